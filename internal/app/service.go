// Package service provides the core extraction service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"

	"github.com/quakeflow/picker/internal/adapters/journal"
	taskqueue "github.com/quakeflow/picker/internal/adapters/mq/queue"
	workerpool "github.com/quakeflow/picker/internal/adapters/mq/worker"
	"github.com/quakeflow/picker/internal/adapters/pickdir"
	"github.com/quakeflow/picker/internal/adapters/pickfile"
	"github.com/quakeflow/picker/internal/domain/merge"
	"github.com/quakeflow/picker/internal/domain/model"
	"github.com/quakeflow/picker/internal/domain/peaks"
	"github.com/quakeflow/picker/internal/domain/picks"
	"github.com/quakeflow/picker/internal/domain/tensor"
	"github.com/quakeflow/picker/pkg/logger"
	"github.com/quakeflow/picker/pkg/metrics"
)

// Service wires the task queue, the worker pool, and the extraction
// pipeline together. It implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	taskQueue  taskqueue.Queue
	workerPool *workerpool.Pool
	journal    *journal.Journal
	detector   *peaks.Detector
	extractor  *picks.Extractor
	writer     *pickfile.Writer

	// Configuration
	workerCount int
	queueSize   int
	pickDir     string
	mergedDir   string
	minPicks    int
	journalPath string
	mode        pickfile.Mode
	phases      []string
	minScore    float64
	kernel      int
	stride      int
	topK        int
	ampWindows  []float64

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of extraction workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPickDir sets the output directory for per-unit pick files.
func WithPickDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.pickDir = dir
		}
	}
}

// WithMergedDir enables the post-run merge: once the queue drains on
// Stop, pick files are merged into dir. An empty dir disables it.
func WithMergedDir(dir string) Option {
	return func(s *Service) {
		s.mergedDir = dir
	}
}

// WithMinPicks sets the minimum combined pick count for a merged group.
func WithMinPicks(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.minPicks = n
		}
	}
}

// WithJournalPath sets the processed-unit journal location. An empty
// path disables journaling.
func WithJournalPath(path string) Option {
	return func(s *Service) {
		s.journalPath = path
	}
}

// WithMode selects the pick file output discipline.
func WithMode(mode pickfile.Mode) Option {
	return func(s *Service) {
		s.mode = mode
	}
}

// WithPhases sets the phase labels for detection classes.
func WithPhases(phases []string) Option {
	return func(s *Service) {
		if len(phases) > 0 {
			s.phases = phases
		}
	}
}

// WithMinScore sets the pick probability threshold.
func WithMinScore(v float64) Option {
	return func(s *Service) {
		if v > 0 {
			s.minScore = v
		}
	}
}

// WithKernel sets the suppression window length in samples.
func WithKernel(kernel int) Option {
	return func(s *Service) {
		if kernel > 0 {
			s.kernel = kernel
		}
	}
}

// WithStride sets the suppression evaluation stride.
func WithStride(stride int) Option {
	return func(s *Service) {
		if stride > 0 {
			s.stride = stride
		}
	}
}

// WithTopK caps peaks per trace; zero selects the adaptive default.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k >= 0 {
			s.topK = k
		}
	}
}

// WithAmpWindows sets the amplitude window lengths in seconds, one per phase.
func WithAmpWindows(windows []float64) Option {
	return func(s *Service) {
		if len(windows) > 0 {
			s.ampWindows = windows
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 0, // pool picks a CPU-based default
		queueSize:   1024,
		pickDir:     "results/picks_raw",
		mergedDir:   "",
		minPicks:    10,
		journalPath: "",
		mode:        pickfile.ModeSeismic,
		phases:      []string{"P", "S"},
		minScore:    0.3,
		kernel:      101,
		stride:      1,
		topK:        0,
		ampWindows:  []float64{10, 5},
		logger:      nil, // replaced when the service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting pick extraction service...")

	s.detector = peaks.NewDetector(
		peaks.WithKernel(s.kernel),
		peaks.WithStride(s.stride),
		peaks.WithTopK(s.topK),
	)
	s.extractor = picks.NewExtractor(
		picks.WithPhases(s.phases),
		picks.WithMinScore(s.minScore),
		picks.WithAmpWindows(s.ampWindows),
	)
	s.writer = pickfile.NewWriter(s.pickDir, pickfile.WithMode(s.mode))

	if s.journalPath != "" {
		j, err := journal.Open(s.journalPath)
		if err != nil {
			return err
		}
		s.journal = j
	}

	s.taskQueue = taskqueue.NewInMemoryQueue(
		taskqueue.WithCapacity(s.queueSize),
		taskqueue.WithBufferSize(s.queueSize),
	)

	// The typed nil matters: a nil *journal.Journal in a non-nil interface
	// would defeat the worker's journal-disabled check.
	var j workerpool.Journal
	if s.journal != nil {
		j = s.journal
	}
	s.workerPool = workerpool.NewPool(s.workerCount, s.taskQueue, s.detector, s.extractor, s.writer, j)
	s.workerPool.Start(ctx)
	s.workerCount = s.workerPool.Size()

	s.started = true
	s.logger.Info(ctx, "pick extraction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("pickDir", s.pickDir),
	)

	return nil
}

// Stop gracefully shuts down the service. Queued tasks are drained
// before the workers exit.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping pick extraction service...")

	// Close the queue first so draining workers see the end of the stream.
	if q, ok := s.taskQueue.(*taskqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	// Every worker has drained; pick files are final. Merge now if asked.
	// DAS units are per-event patches, so they merge grouped by event
	// token with the minimum-pick filter; seismic per-trace files
	// concatenate flat into one recording-wide file.
	if s.mergedDir != "" {
		var (
			rows int
			err  error
		)
		switch s.mode {
		case pickfile.ModeDAS:
			rows, err = pickdir.MergeGrouped(ctx, s.pickDir, s.mergedDir, merge.WithMinPicks(s.minPicks))
		default:
			rows, err = pickdir.MergeFlat(ctx, s.pickDir)
		}
		if err != nil {
			s.logger.Warn(ctx, "post-run merge failed", logger.Error(err))
		} else {
			s.logger.Info(ctx, "post-run merge complete", logger.Int("rows", rows))
		}
	}

	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn(ctx, "journal close", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "pick extraction service stopped")
}

// Enqueue submits a unit of work for asynchronous processing. It
// returns false when the queue is full or the service is stopped.
func (s *Service) Enqueue(ctx context.Context, task model.Task) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false
	}

	ok := s.taskQueue.Enqueue(ctx, task)
	if ok {
		metrics.UpdateQueueSize(s.taskQueue.Len(ctx))
	}
	return ok
}

// ExtractSync runs the detect/extract pipeline inline and returns the
// picks without writing files or touching the journal.
func (s *Service) ExtractSync(ctx context.Context, scores *tensor.Dense4D, meta picks.Metadata) ([][]picks.Pick, error) {
	s.mu.RLock()
	detector, extractor := s.detector, s.extractor
	s.mu.RUnlock()

	if detector == nil || extractor == nil {
		detector = peaks.NewDetector(peaks.WithKernel(s.kernel), peaks.WithStride(s.stride), peaks.WithTopK(s.topK))
		extractor = picks.NewExtractor(picks.WithPhases(s.phases), picks.WithMinScore(s.minScore), picks.WithAmpWindows(s.ampWindows))
	}

	res, err := detector.Detect(scores)
	if err != nil {
		return nil, err
	}
	metrics.RecordPeaksDetected(res.NumPeaks())

	batches, err := extractor.Extract(res, meta)
	if err != nil {
		return nil, err
	}
	for _, batch := range batches {
		metrics.RecordPicksExtracted(len(batch))
	}
	return batches, nil
}

// IsProcessed reports whether a unit id is already journaled. It
// returns false when journaling is disabled.
func (s *Service) IsProcessed(ctx context.Context, unitID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.journal == nil {
		return false
	}
	seen, err := s.journal.IsProcessed(ctx, unitID)
	if err != nil {
		s.logger.Warn(ctx, "journal lookup failed", logger.String("unit_id", unitID), logger.Error(err))
		return false
	}
	return seen
}

// GetStats returns a service snapshot for monitoring. Gauges for queue
// depth and worker count are refreshed as a side effect.
func (s *Service) GetStats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := model.Stats{
		Started:     s.started,
		WorkerCount: s.workerCount,
		QueueSize:   s.queueSize,
		PickDir:     s.pickDir,
	}

	if s.started {
		stats.QueueLength = s.taskQueue.Len(ctx)
		metrics.UpdateQueueSize(stats.QueueLength)
		metrics.UpdateWorkerCount(s.workerPool.Size())

		if s.journal != nil {
			if n, err := s.journal.Count(ctx); err == nil {
				stats.JournaledUnits = n
			}
		}
	}

	return stats
}
