// Package queue defines the contract for enqueuing and consuming units of
// work awaiting pick extraction.
package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds how many units of work may wait for extraction.
// Enqueue reports backpressure once the bound is reached.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithBufferSize sizes the underlying task channel. Usually set equal to
// the capacity so a full queue never blocks an enqueueing handler.
func WithBufferSize(size int) Option {
	return func(q *InMemoryQueue) {
		if size > 0 {
			q.bufferSize = size
		}
	}
}
