package scraper

import (
	"io"

	apperr "autoalert/listingworker/pkg/errors"
)

// Source identifies one supported marketplace
type Source string

const (
	SourceBazosSK Source = "bazos_sk"
	SourceBazosCZ Source = "bazos_cz"
)

// RawListing is a single entry extracted from one index page, before
// normalization. All fields are the source's own text; empty means the
// page did not carry the field.
type RawListing struct {
	ID            string
	Title         string
	URL           string
	PriceText     string
	LocationText  string
	Description   string
	DatePosted    string
	ViewCountText string
	ImageURL      string
	Category      string
}

// Extractor parses one index page of a specific source into raw listings
// plus a signal that more pages likely exist. Malformed entries are skipped;
// a page whose expected structure is missing entirely yields a page-level
// parse error, distinct from a valid zero-listing page.
type Extractor interface {
	// Source returns the marketplace this extractor understands
	Source() Source

	// ExtractPage parses one page's content
	ExtractPage(content io.Reader) (listings []RawListing, hasNext bool, err error)
}

// ForSource returns the extraction strategy for a source. Adding a source
// means adding a case here; the runner, normalizer and store stay untouched.
func ForSource(src Source) (Extractor, error) {
	switch src {
	case SourceBazosSK, SourceBazosCZ:
		return NewBazosExtractor(src)
	default:
		return nil, apperr.NewConfiguration("unsupported source "+string(src), nil)
	}
}
