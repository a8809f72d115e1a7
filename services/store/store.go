package store

import (
	"errors"
	"time"

	"autoalert/listingworker/internal/listing"
)

// ErrNotFound is returned when an identity is not in the store
var ErrNotFound = errors.New("listing not found")

// Store is the durable deduplication state keyed by (source, id). Upsert is
// the single point of truth for "new vs seen": under concurrent upserts of
// one identity exactly one caller observes isNew=true.
type Store interface {
	// Upsert inserts the listing if its identity is absent (isNew=true) or
	// refreshes it if present (isNew=false). FirstSeen and Notified are
	// never regressed; LastChecked never decreases. Idempotent.
	Upsert(l listing.Listing) (isNew bool, err error)

	// Get returns the stored listing for an identity
	Get(source, id string) (*listing.Listing, error)

	// MarkNotified flips Notified to true. No-op when already true;
	// ErrNotFound when the identity is unknown.
	MarkNotified(source, id string) error

	// IsNotified is a point lookup of the Notified flag
	IsNotified(source, id string) (bool, error)

	// Count returns the number of stored listings, optionally per source
	Count(source string) (int, error)

	// CleanupOlderThan removes listings first seen before now-age and
	// returns how many were removed. Maintenance only; never called by
	// the core flow.
	CleanupOlderThan(age time.Duration) (int, error)

	// Close releases the underlying storage
	Close() error
}
