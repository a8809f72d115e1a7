package notifier

import (
	"context"

	"autoalert/listingworker/internal/listing"
)

// Notifier delivers outbound notifications. NotifyListing sends one message
// per newly discovered listing; NotifyStatus sends plain operational alerts
// (scrape failures, start/stop in continuous mode).
type Notifier interface {
	NotifyListing(ctx context.Context, l listing.Listing) error
	NotifyStatus(ctx context.Context, title, message string) error
}
