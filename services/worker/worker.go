package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"autoalert/listingworker/config"
	"autoalert/listingworker/internal/listing"
	"autoalert/listingworker/internal/scraper"
	"autoalert/listingworker/logger"
	"autoalert/listingworker/services/notifier"
	"autoalert/listingworker/services/publisher"
	"autoalert/listingworker/services/store"
)

// SearchRunner drives one configured search across its pages
type SearchRunner interface {
	Run(ctx context.Context, spec config.SearchSpec) scraper.SearchResult
}

// ListingDispatcher delivers the pending-notification set
type ListingDispatcher interface {
	Dispatch(ctx context.Context, pending []listing.Listing) notifier.Report
}

// SearchReport summarizes one search within a run
type SearchReport struct {
	Name         string `json:"name"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	PagesFetched int    `json:"pages_fetched"`
	Found        int    `json:"listings_found"`
	Filtered     int    `json:"listings_filtered"`
	New          int    `json:"listings_new"`
	Error        string `json:"error,omitempty"`
}

// RunReport is the machine-readable summary of one invocation
type RunReport struct {
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Searches  []SearchReport  `json:"searches"`
	Pending   int             `json:"pending_notifications"`
	Notify    notifier.Report `json:"notify"`
}

// Deps wires the worker's collaborators
type Deps struct {
	Runner     SearchRunner
	Store      store.Store
	Dispatcher ListingDispatcher
	Publisher  publisher.Publisher
	// Status sends operational alerts on search failures; may be nil
	Status notifier.Notifier

	Searches      []config.SearchSpec
	MaxConcurrent int
	NotifyMaxAge  time.Duration
	Interval      time.Duration
}

// Worker runs the configured searches, classifies listings through the
// store and hands the pending set to the dispatcher. Searches run in a
// bounded pool; pages within one search stay sequential inside the runner.
type Worker struct {
	deps Deps
	log  *logger.Logger
}

// New creates a worker
func New(deps Deps) *Worker {
	if deps.MaxConcurrent < 1 {
		deps.MaxConcurrent = 1
	}
	if deps.Publisher == nil {
		deps.Publisher = publisher.Noop{}
	}
	return &Worker{
		deps: deps,
		log:  logger.ForComponent("worker"),
	}
}

// RunOnce processes every configured search once. Every successfully
// normalized listing is upserted regardless of later failures; the returned
// error is non-nil only when every search failed outright.
func (w *Worker) RunOnce(ctx context.Context) (RunReport, error) {
	report := RunReport{StartedAt: time.Now()}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		pending = make(map[string]listing.Listing)
		reports = make([]SearchReport, 0, len(w.deps.Searches))
	)

	sem := make(chan struct{}, w.deps.MaxConcurrent)

	for _, spec := range w.deps.Searches {
		wg.Add(1)
		go func(spec config.SearchSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sr := w.runSearch(ctx, spec, &mu, pending)

			mu.Lock()
			reports = append(reports, sr)
			mu.Unlock()
		}(spec)
	}
	wg.Wait()

	// Deterministic report and dispatch order
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	report.Searches = reports

	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	toNotify := make([]listing.Listing, 0, len(keys))
	for _, k := range keys {
		toNotify = append(toNotify, pending[k])
	}
	report.Pending = len(toNotify)

	if len(toNotify) > 0 {
		report.Notify = w.deps.Dispatcher.Dispatch(ctx, toNotify)
	}

	report.Duration = time.Since(report.StartedAt)

	failed := 0
	for _, sr := range reports {
		if sr.Status == string(scraper.StatusFailed) {
			failed++
		}
	}
	if len(reports) > 0 && failed == len(reports) {
		return report, fmt.Errorf("all %d searches failed", failed)
	}
	return report, nil
}

// runSearch executes one search and folds its listings into the shared
// pending set
func (w *Worker) runSearch(ctx context.Context, spec config.SearchSpec, mu *sync.Mutex, pending map[string]listing.Listing) SearchReport {
	log := logger.ForSearch(spec.Name, spec.Source)

	res := w.deps.Runner.Run(ctx, spec)

	sr := SearchReport{
		Name:         spec.Name,
		Source:       spec.Source,
		Status:       string(res.Status),
		PagesFetched: res.PagesFetched,
		Found:        len(res.Listings),
	}
	if res.Err != nil {
		sr.Error = res.Err.Error()
		w.alertFailure(ctx, spec, res.Err)
	}

	for _, raw := range res.Listings {
		l, ok := listing.Normalize(raw, spec)
		if !ok {
			sr.Filtered++
			continue
		}

		isNew, err := w.deps.Store.Upsert(l)
		if err != nil {
			log.Error().Err(err).Str("listing", l.Identity()).Msg("Upsert failed")
			continue
		}

		if isNew {
			sr.New++
			if err := w.deps.Publisher.PublishListing(l); err != nil {
				log.Warn().Err(err).Str("listing", l.Identity()).Msg("Event publish failed")
			}
		}

		if w.shouldNotify(l, isNew, log) {
			mu.Lock()
			pending[l.Identity()] = l
			mu.Unlock()
		}
	}

	return sr
}

// shouldNotify decides membership in the pending-notification set: freshly
// inserted listings, plus seen listings whose earlier delivery never
// succeeded, unless they have aged out of the retry window.
func (w *Worker) shouldNotify(l listing.Listing, isNew bool, log *logger.Logger) bool {
	if isNew {
		return true
	}

	stored, err := w.deps.Store.Get(l.Source, l.ID)
	if err != nil {
		log.Error().Err(err).Str("listing", l.Identity()).Msg("Lookup after upsert failed")
		return false
	}
	if stored.Notified {
		return false
	}
	if w.deps.NotifyMaxAge > 0 && time.Since(stored.FirstSeen) > w.deps.NotifyMaxAge {
		log.Debug().Str("listing", l.Identity()).Msg("Giving up on stale undelivered listing")
		return false
	}
	return true
}

// alertFailure sends an operational alert for a failed search
func (w *Worker) alertFailure(ctx context.Context, spec config.SearchSpec, err error) {
	if w.deps.Status == nil {
		return
	}
	msg := fmt.Sprintf("Search %q (%s) failed: %v", spec.Name, spec.Source, err)
	if serr := w.deps.Status.NotifyStatus(ctx, "Scraping Error", msg); serr != nil {
		w.log.Warn().Err(serr).Msg("Status alert failed")
	}
}

// Start runs search cycles until ctx is canceled, sleeping the configured
// interval between cycles
func (w *Worker) Start(ctx context.Context) error {
	for {
		report, err := w.RunOnce(ctx)
		w.logReport(report, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.deps.Interval):
		}
	}
}

// logReport emits the run summary
func (w *Worker) logReport(report RunReport, err error) {
	evt := w.log.Info()
	if err != nil {
		evt = w.log.Error().Err(err)
	}
	evt.
		Interface("report", report).
		Dur("duration", report.Duration).
		Int("pending", report.Pending).
		Int("sent", report.Notify.Sent).
		Int("failed", report.Notify.Failed).
		Msg("Run completed")
}
