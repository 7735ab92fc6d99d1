// Package worker defines worker contracts for asynchronous pick extraction.
package worker

import (
	"github.com/quakeflow/picker/pkg/logger"
)

// Option applies a configuration option to the ExtractionWorker.
type Option func(*ExtractionWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *ExtractionWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *ExtractionWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
