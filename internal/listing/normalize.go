package listing

import (
	"strconv"
	"strings"

	"autoalert/listingworker/config"
	"autoalert/listingworker/internal/scraper"
)

// descriptionLimit bounds stored descriptions to a fixed prefix
const descriptionLimit = 200

// Normalize converts one raw extracted entry into the canonical record and
// applies the search's filters. ok=false means the listing was filtered
// out, which is a valid outcome, not an error.
//
// Filter policy: an unparsable price passes when no bound is configured and
// is excluded when any bound is configured (conservative exclusion on
// ambiguity). Bounds are inclusive. The location filter only applies when
// both location and radius are set.
func Normalize(raw scraper.RawListing, spec config.SearchSpec) (l Listing, ok bool) {
	price, priceOK := ParsePrice(raw.PriceText)

	if spec.PriceMin != nil || spec.PriceMax != nil {
		if !priceOK {
			return Listing{}, false
		}
		if spec.PriceMin != nil && price < float64(*spec.PriceMin) {
			return Listing{}, false
		}
		if spec.PriceMax != nil && price > float64(*spec.PriceMax) {
			return Listing{}, false
		}
	}

	if spec.Location != "" && spec.Radius != nil {
		if !strings.Contains(strings.ToLower(raw.LocationText), strings.ToLower(spec.Location)) {
			return Listing{}, false
		}
	}

	viewCount, _ := strconv.Atoi(raw.ViewCountText)

	return Listing{
		Key:         Identity(spec.Source, raw.ID),
		Source:      spec.Source,
		ID:          raw.ID,
		Title:       raw.Title,
		URL:         raw.URL,
		Price:       raw.PriceText,
		Location:    raw.LocationText,
		Description: TruncateDescription(raw.Description),
		Category:    raw.Category,
		ImageURL:    raw.ImageURL,
		DatePosted:  raw.DatePosted,
		ViewCount:   viewCount,
	}, true
}

// TruncateDescription bounds a description to its first 200 characters.
// Applying it to an already-truncated value returns the value unchanged.
func TruncateDescription(desc string) string {
	runes := []rune(desc)
	if len(runes) <= descriptionLimit {
		return desc
	}
	return string(runes[:descriptionLimit])
}
