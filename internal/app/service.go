package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	jobqueue "github.com/strokelab/rallylens/internal/adapters/mq/queue"
	workerpool "github.com/strokelab/rallylens/internal/adapters/mq/worker"
	"github.com/strokelab/rallylens/internal/adapters/repository"
	"github.com/strokelab/rallylens/internal/domain/dedupe"
	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
	"github.com/strokelab/rallylens/pkg/logger"
	"github.com/strokelab/rallylens/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultAnalysisWorkers = 2
	defaultQueueSize       = 64
	defaultDedupeSize      = 10000
	defaultResultsDBPath   = "rallylens.db"
)

// Service owns the submission flow and the components behind it: the
// dedupe cache, the job queue, the analysis workers, the pipeline and
// the results repository.
type Service struct {
	mu sync.RWMutex

	repo     repository.Store
	deduper  dedupe.Deduper
	jobQueue jobqueue.Queue
	pool     *workerpool.Pool
	pipeline *Pipeline

	frames  FrameSource
	backend pose.Backend

	workerCount       int
	queueSize         int
	dedupeSize        int
	minPoseConfidence float64
	resultsDBPath     string
	pipelineOpts      []PipelineOption

	// ownsRepo records whether Stop should close the store.
	ownsRepo bool

	progressMu sync.RWMutex
	progress   map[string]Progress

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFrameSource sets the frame extraction adapter.
func WithFrameSource(fs FrameSource) Option {
	return func(s *Service) {
		if fs != nil {
			s.frames = fs
		}
	}
}

// WithPoseBackend sets the pose estimation backend.
func WithPoseBackend(b pose.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithRepository injects a prebuilt store instead of opening one at
// the configured path.
func WithRepository(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.repo = store
		}
	}
}

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMinPoseConfidence sets the pose confidence floor.
func WithMinPoseConfidence(c float64) Option {
	return func(s *Service) {
		if c > 0 && c <= 1 {
			s.minPoseConfidence = c
		}
	}
}

// WithResultsDBPath sets the sqlite database location.
func WithResultsDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.resultsDBPath = path
		}
	}
}

// WithPipelineOptions forwards options to the analysis pipeline.
func WithPipelineOptions(opts ...PipelineOption) Option {
	return func(s *Service) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithServiceLogger sets a custom logger for the service.
func WithServiceLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       defaultAnalysisWorkers,
		queueSize:         defaultQueueSize,
		dedupeSize:        defaultDedupeSize,
		minPoseConfidence: 0.35,
		resultsDBPath:     defaultResultsDBPath,
		progress:          make(map[string]Progress),
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
	if s.frames == nil {
		return errors.New("service requires a frame source")
	}
	if s.backend == nil {
		return errors.New("service requires a pose backend")
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting analysis service...")

	if s.repo == nil {
		store, err := repository.Open(s.resultsDBPath)
		if err != nil {
			return fmt.Errorf("open results store: %w", err)
		}
		s.repo = store
		s.ownsRepo = true
		s.logger.Info(ctx, "using sqlite results store", logger.String("path", s.resultsDBPath))
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
	)

	estimator := pose.NewEstimator(s.backend, pose.WithMinConfidence(s.minPoseConfidence))
	pipelineOpts := append([]PipelineOption{
		WithPipelineLogger(s.logger.Named("pipeline")),
	}, s.pipelineOpts...)
	s.pipeline = NewPipeline(s.frames, estimator, pipelineOpts...)

	s.pool = workerpool.NewPool(
		s.workerCount,
		s.jobQueue,
		&pipelineRunner{svc: s},
		s.repo,
		workerpool.WithFailureClassifier(FailureReason),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping analysis service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	if s.ownsRepo {
		if closer, ok := s.repo.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
}

// Submit validates nothing beyond identity; callers validate payloads.
// It atomically dedupes the analysis id, persists the pending record
// and enqueues the job.
//
// Returns ErrDuplicate for a resubmitted id and ErrBackpressure when
// the queue is full. On backpressure the id is unrecorded so the
// client may retry.
func (s *Service) Submit(ctx context.Context, req model.AnalysisRequest) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return errors.New("service not started")
	}

	if s.deduper.SeenAndRecord(ctx, req.AnalysisID) {
		metrics.RecordAnalysisDuplicate()
		s.logger.Debug(ctx, "duplicate analysis submission",
			logger.String("analysisID", req.AnalysisID),
		)
		return fmt.Errorf("%w: %s", ErrDuplicate, req.AnalysisID)
	}

	if err := s.repo.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			metrics.RecordAnalysisDuplicate()
			return fmt.Errorf("%w: %s", ErrDuplicate, req.AnalysisID)
		}
		s.deduper.Unrecord(ctx, req.AnalysisID)
		return fmt.Errorf("record submission: %w", err)
	}

	if !s.jobQueue.Enqueue(ctx, req) {
		// Roll the submission back so the same id can be retried.
		s.deduper.Unrecord(ctx, req.AnalysisID)
		if err := s.repo.Delete(ctx, req.AnalysisID); err != nil {
			s.logger.Warn(ctx, "failed to roll back rejected submission",
				logger.String("analysisID", req.AnalysisID),
				logger.Error(err),
			)
		}
		return fmt.Errorf("%w: %s", ErrBackpressure, req.AnalysisID)
	}

	metrics.RecordAnalysisSubmitted()
	s.logger.Info(ctx, "analysis accepted",
		logger.String("analysisID", req.AnalysisID),
		logger.String("videoID", req.VideoID),
		logger.String("skillLevel", string(req.SkillLevel)),
	)
	return nil
}

// Get returns the stored record for an analysis id.
func (s *Service) Get(ctx context.Context, analysisID string) (model.AnalysisRecord, error) {
	rec, err := s.repo.Get(ctx, analysisID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.AnalysisRecord{}, fmt.Errorf("%w: %s", ErrNotFound, analysisID)
		}
		return model.AnalysisRecord{}, err
	}
	return rec, nil
}

// Progress returns the latest pipeline progress for a running analysis.
func (s *Service) Progress(analysisID string) (Progress, bool) {
	s.progressMu.RLock()
	defer s.progressMu.RUnlock()
	p, ok := s.progress[analysisID]
	return p, ok
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stored := s.repo.Count(ctx)

		stats["queueLength"] = queueLen
		stats["storedAnalyses"] = stored

		s.progressMu.RLock()
		stats["runningAnalyses"] = len(s.progress)
		s.progressMu.RUnlock()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateResultsStored(stored)
	}

	return stats
}

func (s *Service) setProgress(analysisID string, p Progress) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.progress[analysisID] = p
}

func (s *Service) clearProgress(analysisID string) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	delete(s.progress, analysisID)
}

// pipelineRunner adapts the pipeline to the worker Runner contract and
// tracks per-analysis progress while a run is in flight.
type pipelineRunner struct {
	svc *Service
}

func (r *pipelineRunner) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	defer r.svc.clearProgress(req.AnalysisID)
	return r.svc.pipeline.Run(ctx, req, func(p Progress) {
		r.svc.setProgress(req.AnalysisID, p)
	})
}
