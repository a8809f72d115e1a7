package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"autoalert/listingworker/config"
	apperr "autoalert/listingworker/pkg/errors"
)

// BuildSearchURL returns the first-page URL for a search: the configured URL
// verbatim when present, otherwise a query URL built from the parameters.
func BuildSearchURL(spec config.SearchSpec) (string, error) {
	if spec.URL != "" {
		return spec.URL, nil
	}

	base, ok := bazosBaseURLs[Source(spec.Source)]
	if !ok {
		return "", apperr.NewConfiguration("unsupported source "+spec.Source, nil)
	}
	if spec.SearchTerm == "" {
		return "", apperr.NewConfiguration(fmt.Sprintf("search %q has neither url nor search_term", spec.Name), nil)
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("/?hledat=")
	b.WriteString(url.QueryEscape(spec.SearchTerm))

	if spec.PriceMin != nil {
		b.WriteString("&cenaod=")
		b.WriteString(strconv.Itoa(*spec.PriceMin))
	}
	if spec.PriceMax != nil {
		b.WriteString("&cenado=")
		b.WriteString(strconv.Itoa(*spec.PriceMax))
	}
	if spec.Location != "" {
		b.WriteString("&hlokalita=")
		b.WriteString(url.QueryEscape(spec.Location))
	}
	if spec.Radius != nil {
		b.WriteString("&humkreis=")
		b.WriteString(strconv.Itoa(*spec.Radius))
	}
	if spec.Order != "" {
		b.WriteString("&order=")
		b.WriteString(url.QueryEscape(spec.Order))
	}

	return b.String(), nil
}

// PageURL returns the URL for a 1-based page index. Bazos encodes pagination
// as a path offset in steps of 20: page 1 is the base URL, page 2 inserts
// /20/, page 3 /40/, and so on.
func PageURL(base string, page int) string {
	if page <= 1 {
		return base
	}

	offset := (page - 1) * bazosPageSize

	if idx := strings.Index(base, "/?"); idx >= 0 {
		return fmt.Sprintf("%s/%d/?%s", base[:idx], offset, base[idx+2:])
	}
	return fmt.Sprintf("%s/%d/", strings.TrimRight(base, "/"), offset)
}
