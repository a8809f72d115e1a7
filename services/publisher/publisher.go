package publisher

import "autoalert/listingworker/internal/listing"

// Publisher emits newly discovered listings to an event stream for
// downstream consumers. Publication is best-effort and independent of the
// webhook notification path.
type Publisher interface {
	// PublishListing publishes one newly discovered listing
	PublishListing(l listing.Listing) error

	// Close closes the publisher connection
	Close() error
}

// Noop is used when no event stream is configured
type Noop struct{}

// PublishListing discards the listing
func (Noop) PublishListing(listing.Listing) error { return nil }

// Close is a no-op
func (Noop) Close() error { return nil }
