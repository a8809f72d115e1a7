package scraper

import (
	"context"
	"io"

	"autoalert/listingworker/config"
	"autoalert/listingworker/logger"
)

// Fetcher retrieves one page's content given its URL. Retry and backoff
// policy belong to the implementation, not the runner.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// RunStatus summarizes how far one search got
type RunStatus string

const (
	// StatusSuccess means every wanted page was fetched and extracted
	StatusSuccess RunStatus = "success"
	// StatusPartial means a page failed after at least one page succeeded
	StatusPartial RunStatus = "partial"
	// StatusFailed means no page of the search yielded listings
	StatusFailed RunStatus = "failed"
)

// SearchResult is the outcome of driving one search across its pages
type SearchResult struct {
	Spec         config.SearchSpec
	Listings     []RawListing
	PagesFetched int
	Status       RunStatus
	Err          error
}

// Runner drives pagination for one search: fetch, extract, next page, until
// max_pages, a no-more-pages signal, or the first page failure. Listings
// from pages that succeeded before a failure are kept.
type Runner struct {
	fetcher      Fetcher
	log          *logger.Logger
	extractorFor func(Source) (Extractor, error)
}

// NewRunner creates a runner on top of the given fetcher
func NewRunner(fetcher Fetcher) *Runner {
	return &Runner{
		fetcher:      fetcher,
		log:          logger.ForComponent("runner"),
		extractorFor: ForSource,
	}
}

// Run executes one search. Pages are fetched strictly sequentially.
func (r *Runner) Run(ctx context.Context, spec config.SearchSpec) SearchResult {
	res := SearchResult{Spec: spec, Status: StatusFailed}
	log := logger.ForSearch(spec.Name, spec.Source)

	extractor, err := r.extractorFor(Source(spec.Source))
	if err != nil {
		res.Err = err
		return res
	}

	base, err := BuildSearchURL(spec)
	if err != nil {
		res.Err = err
		return res
	}

	for page := 1; page <= spec.MaxPages; page++ {
		pageURL := PageURL(base, page)
		log.Debug().Int("page", page).Str("url", pageURL).Msg("Fetching page")

		body, err := r.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			r.stopEarly(&res, log, page, err)
			return res
		}

		listings, hasNext, err := extractor.ExtractPage(body)
		if err != nil {
			r.stopEarly(&res, log, page, err)
			return res
		}

		res.PagesFetched++
		res.Listings = append(res.Listings, listings...)
		log.Debug().Int("page", page).Int("listings", len(listings)).Msg("Extracted page")

		if !hasNext {
			break
		}
	}

	res.Status = StatusSuccess
	log.Info().
		Int("pages", res.PagesFetched).
		Int("listings", len(res.Listings)).
		Msg("Search completed")
	return res
}

// stopEarly records a page failure; earlier pages' listings stay in the result
func (r *Runner) stopEarly(res *SearchResult, log *logger.Logger, page int, err error) {
	res.Err = err
	if res.PagesFetched > 0 {
		res.Status = StatusPartial
	}
	log.Warn().Err(err).Int("page", page).Str("status", string(res.Status)).Msg("Search stopped early")
}
