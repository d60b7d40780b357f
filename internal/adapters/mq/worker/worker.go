// Package worker defines worker contracts for asynchronous video analysis.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/pkg/logger"
	"github.com/strokelab/rallylens/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = model.AnalysisRequest

// Runner executes one analysis end to end.
type Runner interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// Recorder persists analysis state transitions and results.
type Recorder interface {
	MarkRunning(ctx context.Context, analysisID string) error
	SaveResult(ctx context.Context, analysisID string, result *model.AnalysisResult) error
	MarkFailed(ctx context.Context, analysisID string, reason string) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes analysis jobs using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will finish the in-flight analysis before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing analysis jobs.
type InMemoryWorker struct {
	queue    Queue
	runner   Runner
	recorder Recorder
	name     string

	// classify maps a pipeline error to a failure-reason label.
	classify func(error) string

	// active counts in-flight analyses, shared across the pool.
	active *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		recorder: recorder,
		name:     "worker",
		classify: func(error) string { return "internal" },
		active:   &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				return
			}

			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing analysis job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob handles a single analysis job.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	metrics.UpdateActiveAnalyses(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateActiveAnalyses(int(w.active.Add(-1)))
	}()

	if err := w.recorder.MarkRunning(ctx, job.AnalysisID); err != nil {
		w.logger.Warn(ctx, "failed to mark analysis running",
			logger.String("analysisID", job.AnalysisID),
			logger.Error(err),
		)
	}

	start := time.Now()
	result, err := w.runner.Analyze(ctx, job)
	if err != nil {
		reason := w.classify(err)
		metrics.RecordAnalysisFailed(reason)
		metrics.RecordErrorByComponent("worker", reason)
		w.logger.Error(ctx, "analysis failed",
			logger.String("analysisID", job.AnalysisID),
			logger.String("reason", reason),
			logger.Error(err),
		)
		if merr := w.recorder.MarkFailed(ctx, job.AnalysisID, reason); merr != nil {
			w.logger.Error(ctx, "failed to record analysis failure",
				logger.String("analysisID", job.AnalysisID),
				logger.Error(merr),
			)
		}
		return fmt.Errorf("analysis %s failed: %w", job.AnalysisID, err)
	}

	if err := w.recorder.SaveResult(ctx, job.AnalysisID, result); err != nil {
		metrics.RecordErrorByComponent("worker", "result_save_error")
		if merr := w.recorder.MarkFailed(ctx, job.AnalysisID, "internal"); merr != nil {
			w.logger.Error(ctx, "failed to record analysis failure",
				logger.String("analysisID", job.AnalysisID),
				logger.Error(merr),
			)
		}
		return fmt.Errorf("saving result for %s: %w", job.AnalysisID, err)
	}

	metrics.RecordAnalysisCompleted()
	w.logger.Info(ctx, "analysis completed",
		logger.String("analysisID", job.AnalysisID),
		logger.Float64("overallScore", result.OverallScore),
		logger.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	active *atomic.Int64

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, runner Runner, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		active:  &atomic.Int64{},
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{
			WithName(fmt.Sprintf("worker-%d", i)),
			withActiveCounter(pool.active),
		}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, runner, recorder, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateActiveAnalyses(0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown gracefully shuts down the entire worker pool. The queue is
// closed first so no new jobs arrive, then each worker drains.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
