package worker

import (
	"github.com/s3m-esports/standings/pkg/logger"
)

// Option applies a configuration option to the RelayWorker.
type Option func(*RelayWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *RelayWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *RelayWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
