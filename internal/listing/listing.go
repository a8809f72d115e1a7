package listing

import "time"

// Listing is the canonical, durable record of one classified ad.
// Identity is the (Source, ID) pair; Key is its encoded form used as the
// store key. Price keeps the source's raw text; numeric interpretation is
// a filtering concern only and is never persisted.
type Listing struct {
	Key    string `badgerhold:"key"`
	Source string `badgerholdIndex:"Source"`
	ID     string

	Title       string
	URL         string
	Price       string
	Location    string
	Description string
	Category    string
	ImageURL    string
	DatePosted  string
	ViewCount   int

	FirstSeen   time.Time
	LastChecked time.Time
	Notified    bool
}

// Identity encodes a (source, id) pair into the store key
func Identity(source, id string) string {
	return source + "/" + id
}

// Identity returns the listing's store key
func (l Listing) Identity() string {
	return Identity(l.Source, l.ID)
}
