// Package model contains domain models passed between layers.
package model

import (
	"github.com/quakeflow/picker/internal/domain/picks"
	"github.com/quakeflow/picker/internal/domain/tensor"
)

// Task is one unit of work: a score tensor with its batch metadata, produced
// by a model/data-loading collaborator and queued for pick extraction.
type Task struct {
	// ID identifies the task for journaling and logging. Assigned a UUID at
	// ingestion when the caller supplies none.
	ID string

	// Scores is the (batch, channel, time, station) probability tensor.
	Scores *tensor.Dense4D

	// Meta carries per-batch identifiers, anchor times, sample intervals,
	// offsets and the optional polarity/waveform tensors.
	Meta picks.Metadata
}
