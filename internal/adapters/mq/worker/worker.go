// Package worker defines worker contracts for asynchronous pick extraction.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/quakeflow/picker/internal/domain/model"
	"github.com/quakeflow/picker/internal/domain/peaks"
	"github.com/quakeflow/picker/internal/domain/picks"
	"github.com/quakeflow/picker/internal/domain/tensor"
	"github.com/quakeflow/picker/pkg/logger"
	"github.com/quakeflow/picker/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU(); extraction is CPU-bound
	poolShutdownTimeout     = 30 * time.Second
)

// Task abstracts what workers read off the queue.
type Task = model.Task

// Detector finds surviving peaks in a score tensor.
type Detector interface {
	Detect(scores *tensor.Dense4D) (*peaks.Result, error)
}

// Extractor materializes picks from detection output.
type Extractor interface {
	Extract(res *peaks.Result, meta picks.Metadata) ([][]picks.Pick, error)
}

// Sink persists the picks of one unit of work.
type Sink interface {
	Write(ctx context.Context, unitID string, pp []picks.Pick) (string, error)
}

// Journal tracks processed units so re-runs skip them.
type Journal interface {
	IsProcessed(ctx context.Context, unitID string) (bool, error)
	MarkProcessed(ctx context.Context, unitID string) error
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker processes tasks using the provided collaborators.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// ExtractionWorker implements Worker for the detect/extract/write pipeline.
type ExtractionWorker struct {
	queue     Queue
	detector  Detector
	extractor Extractor
	sink      Sink
	journal   Journal
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewExtractionWorker creates a worker with configuration options.
func NewExtractionWorker(q Queue, d Detector, e Extractor, s Sink, j Journal, opts ...Option) *ExtractionWorker {
	w := &ExtractionWorker{
		queue:     q,
		detector:  d,
		extractor: e,
		sink:      s,
		journal:   j,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *ExtractionWorker) Run(ctx context.Context) {
	defer close(w.done)

	taskChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			// Graceful stop: drain tasks already queued before exiting.
			// The queue must be closed for the channel to end.
			for task := range taskChan {
				if err := w.processTask(ctx, task); err != nil {
					w.logger.Error(ctx, "task processing failed",
						logger.String("task_id", task.ID),
						logger.Error(err),
					)
				}
			}
			return
		case task, ok := <-taskChan:
			if !ok {
				return
			}
			if err := w.processTask(ctx, task); err != nil {
				w.logger.Error(ctx, "task processing failed",
					logger.String("task_id", task.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *ExtractionWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processTask runs one unit of work through the pipeline: journal check,
// peak detection, pick extraction, per-batch-element file write, journal
// mark. Each task owns its tensors; nothing here shares mutable state.
func (w *ExtractionWorker) processTask(ctx context.Context, task Task) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if w.journal != nil {
		seen, err := w.journal.IsProcessed(ctx, task.ID)
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "journal_error")
			return fmt.Errorf("journal lookup for task %s: %w", task.ID, err)
		}
		if seen {
			metrics.RecordUnitSkipped()
			w.logger.Debug(ctx, "skipping processed task", logger.String("task_id", task.ID))
			return nil
		}
	}

	detectStart := time.Now()
	res, err := w.detector.Detect(task.Scores)
	metrics.RecordDetectionLatency(float64(time.Since(detectStart).Milliseconds()))
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "detection_error")
		return fmt.Errorf("detection for task %s: %w", task.ID, err)
	}
	metrics.RecordPeaksDetected(res.NumPeaks())

	extractStart := time.Now()
	batches, err := w.extractor.Extract(res, task.Meta)
	metrics.RecordExtractionLatency(float64(time.Since(extractStart).Milliseconds()))
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "extraction_error")
		return fmt.Errorf("extraction for task %s: %w", task.ID, err)
	}

	extracted := 0
	for i, batch := range batches {
		if _, err := w.sink.Write(ctx, task.Meta.Identifier(i), batch); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "sink_error")
			return fmt.Errorf("writing picks for task %s: %w", task.ID, err)
		}
		metrics.RecordPicksExtracted(len(batch))
		extracted += len(batch)
	}
	// Peaks that survived suppression but fell at or below the threshold.
	if d := res.NumPeaks() - extracted; d > 0 {
		metrics.RecordPicksBelowMin(d)
	}

	if w.journal != nil {
		if err := w.journal.MarkProcessed(ctx, task.ID); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "journal_error")
			return fmt.Errorf("journal mark for task %s: %w", task.ID, err)
		}
	}

	metrics.RecordUnitProcessed()
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*ExtractionWorker

	logger logger.Logger
}

// NewPool creates a worker pool of workerCount workers. A non-positive count
// defaults to a multiple of the CPU count.
func NewPool(workerCount int, q Queue, d Detector, e Extractor, s Sink, j Journal) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*ExtractionWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewExtractionWorker(q, d, e, s, j,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown stops all workers, waiting up to the pool shutdown timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	metrics.UpdateWorkerCount(0)
	return firstErr
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}
