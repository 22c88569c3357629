package repository

import "time"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the function used to allocate group ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *SQLiteStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}
