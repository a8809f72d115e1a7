package notifier

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"autoalert/listingworker/internal/listing"
	"autoalert/listingworker/logger"
	"autoalert/listingworker/services/store"
)

// Report is the per-run dispatch outcome
type Report struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Dispatcher sends one notification per pending listing and records
// delivery in the store. Items fail independently; a failed send leaves the
// listing unnotified so the next run picks it up again. Sends are paced to
// keep burst-sensitive webhook endpoints happy.
type Dispatcher struct {
	notifier Notifier
	store    store.Store
	limiter  *rate.Limiter
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher; sendInterval of zero disables pacing
func NewDispatcher(n Notifier, st store.Store, sendInterval time.Duration) *Dispatcher {
	var limiter *rate.Limiter
	if sendInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(sendInterval), 1)
	}
	return &Dispatcher{
		notifier: n,
		store:    st,
		limiter:  limiter,
		log:      logger.ForComponent("dispatcher"),
	}
}

// Dispatch delivers the pending set. MarkNotified happens only after a
// successful send, so a crash between send and mark can at worst cause one
// duplicate notification on the next run, never a lost one.
func (d *Dispatcher) Dispatch(ctx context.Context, pending []listing.Listing) Report {
	rep := Report{Attempted: len(pending)}

	for _, l := range pending {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				rep.Failed += rep.Attempted - rep.Sent - rep.Failed
				d.log.Warn().Err(err).Msg("Dispatch interrupted")
				return rep
			}
		}

		if err := d.notifier.NotifyListing(ctx, l); err != nil {
			rep.Failed++
			d.log.Warn().
				Err(err).
				Str("listing", l.Identity()).
				Msg("Notification failed, will retry next run")
			continue
		}
		rep.Sent++

		if err := d.store.MarkNotified(l.Source, l.ID); err != nil {
			// The send went out; the worst case is one duplicate next run.
			d.log.Error().
				Err(err).
				Str("listing", l.Identity()).
				Msg("Failed to mark listing notified")
		}
	}

	return rep
}
