// Package journal tracks which units of work have been processed.
//
// Re-running a prediction fleet over a large archive must skip units that
// already produced a pick file. The journal is an embedded bbolt database:
// one bucket, unit id as key, completion timestamp as value. Writers from
// different workers serialize through bbolt's single-writer transaction
// model, so no extra locking is needed.
package journal

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Default journal configuration constants.
const (
	defaultOpenTimeout = 5 * time.Second
	defaultFileMode    = 0o600
)

var bucketProcessed = []byte("processed")

// Journal records processed unit ids in an embedded database.
type Journal struct {
	db          *bolt.DB
	openTimeout time.Duration
}

// Open opens (or creates) the journal database at path.
func Open(path string, opts ...Option) (*Journal, error) {
	j := &Journal{
		openTimeout: defaultOpenTimeout,
	}

	for _, opt := range opts {
		opt(j)
	}

	db, err := bolt.Open(path, defaultFileMode, &bolt.Options{Timeout: j.openTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenJournal, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketProcessed)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpenJournal, err)
	}

	j.db = db
	return j, nil
}

// MarkProcessed records a unit id with the current time.
func (j *Journal) MarkProcessed(ctx context.Context, unitID string) error {
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcessed)
		return b.Put([]byte(unitID), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJournalWrite, err)
	}
	return nil
}

// IsProcessed reports whether a unit id has been recorded.
func (j *Journal) IsProcessed(ctx context.Context, unitID string) (bool, error) {
	var seen bool
	err := j.db.View(func(tx *bolt.Tx) error {
		seen = tx.Bucket(bucketProcessed).Get([]byte(unitID)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrJournalRead, err)
	}
	return seen, nil
}

// Count returns the number of recorded unit ids.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketProcessed).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrJournalRead, err)
	}
	return n, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrCloseJournal, err)
	}
	return nil
}
