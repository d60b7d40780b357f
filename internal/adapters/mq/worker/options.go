// Package worker defines worker contracts for asynchronous video analysis.
package worker

import (
	"sync/atomic"

	"github.com/strokelab/rallylens/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithFailureClassifier sets the error-to-reason mapping used when an
// analysis fails.
func WithFailureClassifier(classify func(error) string) Option {
	return func(w *InMemoryWorker) {
		if classify != nil {
			w.classify = classify
		}
	}
}

// withActiveCounter shares the pool-wide in-flight counter.
func withActiveCounter(active *atomic.Int64) Option {
	return func(w *InMemoryWorker) {
		if active != nil {
			w.active = active
		}
	}
}
