package store

import "errors"

var (
	// ErrPageNotFound is returned when a PageId has no entry in page_store,
	// typically because a posting in word_index outlived its page (a bug
	// this store tries hard not to have, see AddPage's stale-posting sweep).
	ErrPageNotFound = errors.New("store: page not found")

	// ErrURLNotFound is returned by LookupID when a URL has never been
	// indexed.
	ErrURLNotFound = errors.New("store: url not found")

	// ErrCorruptIndex is returned when a stored value cannot be decoded into
	// the shape its keyspace promises.
	ErrCorruptIndex = errors.New("store: corrupt index entry")
)
