package scraper

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperr "autoalert/listingworker/pkg/errors"
)

// bazosBaseURLs maps the source enum to its search endpoint
var bazosBaseURLs = map[Source]string{
	SourceBazosSK: "https://www.bazos.sk",
	SourceBazosCZ: "https://www.bazos.cz",
}

var (
	listingIDPattern  = regexp.MustCompile(`/inzerat/(\d+)/`)
	datePostedPattern = regexp.MustCompile(`\[(\d{1,2}\.\d{1,2}\.\s*\d{4})\]`)
	viewCountPattern  = regexp.MustCompile(`(\d+)\s*x`)
	postalCodePattern = regexp.MustCompile(`^(.*?)(\d{3,5}\s?\d{2})$`)
	categoryPattern   = regexp.MustCompile(`https?://([^.]+)\.bazos\.(sk|cz)`)
)

// Bazos paginates in fixed steps of 20 results
const bazosPageSize = 20

// BazosExtractor extracts listings from bazos.sk and bazos.cz result pages.
// Both sites share the same markup.
type BazosExtractor struct {
	source  Source
	baseURL string
}

// NewBazosExtractor creates an extractor for one of the bazos sources
func NewBazosExtractor(src Source) (*BazosExtractor, error) {
	base, ok := bazosBaseURLs[src]
	if !ok {
		return nil, apperr.NewConfiguration("unknown bazos source "+string(src), nil)
	}
	return &BazosExtractor{source: src, baseURL: base}, nil
}

// Source returns the marketplace this extractor understands
func (e *BazosExtractor) Source() Source {
	return e.source
}

// ExtractPage parses one result page into raw listings and a has-next signal
func (e *BazosExtractor) ExtractPage(content io.Reader) ([]RawListing, bool, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return nil, false, apperr.NewParsePage(string(e.source), "failed to parse HTML", err)
	}

	items := doc.Find("div.inzeraty")
	if items.Length() == 0 {
		// A results page without listing boxes is only valid when the page
		// is recognizably a bazos results page; anything else means the
		// markup changed under us.
		if doc.Find("div.maincontent, div.listainzerat, form[name='formhledani']").Length() == 0 {
			return nil, false, apperr.NewParsePage(string(e.source), "unexpected page structure", nil)
		}
		return nil, false, nil
	}

	var listings []RawListing
	items.Each(func(_ int, s *goquery.Selection) {
		if raw, ok := e.parseItem(s); ok {
			listings = append(listings, raw)
		}
	})

	return listings, e.hasNextPage(doc, items.Length()), nil
}

// parseItem extracts one listing box; malformed entries report false and
// are skipped without failing the page
func (e *BazosExtractor) parseItem(s *goquery.Selection) (RawListing, bool) {
	head := s.Find("div.inzeratynadpis")
	link := head.Find("h2.nadpis a")

	href, exists := link.Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return RawListing{}, false
	}

	detailURL := e.resolveURL(strings.TrimSpace(href))
	idMatch := listingIDPattern.FindStringSubmatch(detailURL)
	if idMatch == nil {
		return RawListing{}, false
	}

	raw := RawListing{
		ID:        idMatch[1],
		Title:     strings.TrimSpace(link.Text()),
		URL:       detailURL,
		PriceText: strings.TrimSpace(s.Find("div.inzeratycena").Text()),
	}
	if raw.Title == "" {
		return RawListing{}, false
	}

	if m := datePostedPattern.FindStringSubmatch(head.Find("span.velikost10").Text()); m != nil {
		raw.DatePosted = strings.TrimSpace(m[1])
	}

	if src, ok := head.Find("img.obrazek").Attr("src"); ok {
		if !strings.Contains(strings.ToLower(src), "no-image") {
			raw.ImageURL = e.resolveURL(strings.TrimSpace(src))
		}
	}

	raw.LocationText = normalizeLocation(s.Find("div.inzeratylok").Text())

	if m := viewCountPattern.FindStringSubmatch(s.Find("div.inzeratyview").Text()); m != nil {
		raw.ViewCountText = m[1]
	}

	raw.Description = strings.TrimSpace(s.Find("div.popis").Text())

	if m := categoryPattern.FindStringSubmatch(detailURL); m != nil {
		raw.Category = m[1]
	}

	return raw, true
}

// hasNextPage reports whether more pages likely exist: either a next-page
// control is present, or the result set is full-size
func (e *BazosExtractor) hasNextPage(doc *goquery.Document, count int) bool {
	next := false
	doc.Find("div.strankovani a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		// "Ďalšia" (sk), "Další" (cz)
		if strings.Contains(text, "alš") || strings.Contains(text, "next") {
			next = true
			return false
		}
		return true
	})
	return next || count >= bazosPageSize
}

// resolveURL makes a page-relative href absolute against the source host
func (e *BazosExtractor) resolveURL(href string) string {
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return e.baseURL + href
	default:
		return e.baseURL + "/" + href
	}
}

// normalizeLocation collapses the location cell into "name, postal code"
func normalizeLocation(text string) string {
	loc := strings.TrimSpace(text)
	if loc == "" {
		return ""
	}
	if idx := strings.IndexByte(loc, '\n'); idx >= 0 {
		loc = strings.TrimSpace(loc[:idx])
	}
	if m := postalCodePattern.FindStringSubmatch(loc); m != nil {
		name := strings.TrimSuffix(strings.TrimSpace(m[1]), ",")
		if name != "" {
			return name + ", " + strings.TrimSpace(m[2])
		}
		return strings.TrimSpace(m[2])
	}
	return loc
}
