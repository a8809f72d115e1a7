package store

import (
	"errors"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"autoalert/listingworker/internal/listing"
	"autoalert/listingworker/logger"
	apperr "autoalert/listingworker/pkg/errors"
)

// BadgerStore implements Store on an embedded Badger database. Values are
// struct-encoded, so adding optional fields later still reads older data.
// Mutations of one identity are serialized through a striped lock keyed by
// the identity; distinct identities proceed concurrently.
type BadgerStore struct {
	store *badgerhold.Store
	log   *logger.Logger
	locks [64]sync.Mutex
	now   func() time.Time
}

// Open opens (or creates) the store at the given path
func Open(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, apperr.NewStore("", "failed to create store directory "+path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, apperr.NewStore("", "failed to open store at "+path, err)
	}

	log := logger.ForComponent("store")
	log.Debug().Str("path", path).Msg("Listing store opened")

	return &BadgerStore{
		store: store,
		log:   log,
		now:   time.Now,
	}, nil
}

// lockFor returns the stripe mutex guarding one identity
func (s *BadgerStore) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

// Upsert inserts or refreshes one listing. Exactly one of any set of
// concurrent upserts for the same identity reports isNew=true.
func (s *BadgerStore) Upsert(l listing.Listing) (bool, error) {
	key := l.Identity()
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()

	var existing listing.Listing
	err := s.store.Get(key, &existing)
	if errors.Is(err, badgerhold.ErrNotFound) {
		l.Key = key
		l.FirstSeen = now
		l.LastChecked = now
		l.Notified = false
		if err := s.store.Insert(key, l); err != nil {
			return false, apperr.NewStore(l.Source, "failed to insert listing "+key, err)
		}
		return true, nil
	}
	if err != nil {
		return false, apperr.NewStore(l.Source, "failed to read listing "+key, err)
	}

	// Refresh from the latest scrape; bookkeeping never regresses.
	l.Key = key
	l.FirstSeen = existing.FirstSeen
	l.Notified = existing.Notified
	l.LastChecked = now
	if l.LastChecked.Before(existing.LastChecked) {
		l.LastChecked = existing.LastChecked
	}

	if err := s.store.Update(key, l); err != nil {
		return false, apperr.NewStore(l.Source, "failed to update listing "+key, err)
	}
	return false, nil
}

// Get returns the stored listing for an identity
func (s *BadgerStore) Get(source, id string) (*listing.Listing, error) {
	key := listing.Identity(source, id)

	var l listing.Listing
	if err := s.store.Get(key, &l); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, apperr.NewStore(source, "failed to read listing "+key, err)
	}
	return &l, nil
}

// MarkNotified flips Notified to true exactly once
func (s *BadgerStore) MarkNotified(source, id string) error {
	key := listing.Identity(source, id)
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	var l listing.Listing
	if err := s.store.Get(key, &l); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrNotFound
		}
		return apperr.NewStore(source, "failed to read listing "+key, err)
	}

	if l.Notified {
		return nil
	}

	l.Notified = true
	if err := s.store.Update(key, l); err != nil {
		return apperr.NewStore(source, "failed to mark listing notified "+key, err)
	}
	return nil
}

// IsNotified is a point lookup of the Notified flag
func (s *BadgerStore) IsNotified(source, id string) (bool, error) {
	l, err := s.Get(source, id)
	if err != nil {
		return false, err
	}
	return l.Notified, nil
}

// Count returns the number of stored listings, for one source or all
func (s *BadgerStore) Count(source string) (int, error) {
	var query *badgerhold.Query
	if source != "" {
		query = badgerhold.Where("Source").Eq(source)
	}

	n, err := s.store.Count(&listing.Listing{}, query)
	if err != nil {
		return 0, apperr.NewStore(source, "failed to count listings", err)
	}
	return int(n), nil
}

// CleanupOlderThan removes listings first seen before now-age
func (s *BadgerStore) CleanupOlderThan(age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	query := badgerhold.Where("FirstSeen").Lt(cutoff)

	n, err := s.store.Count(&listing.Listing{}, query)
	if err != nil {
		return 0, apperr.NewStore("", "failed to count stale listings", err)
	}
	if n == 0 {
		return 0, nil
	}

	if err := s.store.DeleteMatching(&listing.Listing{}, query); err != nil {
		return 0, apperr.NewStore("", "failed to delete stale listings", err)
	}

	s.log.Info().Int("removed", int(n)).Time("cutoff", cutoff).Msg("Pruned stale listings")
	return int(n), nil
}

// Close releases the underlying database
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
