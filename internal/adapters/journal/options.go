package journal

import "time"

// Option applies a configuration option to the Journal.
type Option func(*Journal)

// WithOpenTimeout bounds how long Open waits for the database file lock.
func WithOpenTimeout(d time.Duration) Option {
	return func(j *Journal) {
		if d > 0 {
			j.openTimeout = d
		}
	}
}
