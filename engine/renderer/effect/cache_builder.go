package effect

import "log/slog"

// CacheBuilderOption is a functional option for configuring a Cache.
type CacheBuilderOption func(*cache)

// WithLogger sets the logger for compile and lifecycle messages.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - CacheBuilderOption: the option
func WithLogger(logger *slog.Logger) CacheBuilderOption {
	return func(c *cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver sets the receiver of compile and cache hit statistics.
func WithObserver(o Observer) CacheBuilderOption {
	return func(c *cache) {
		c.observer = o
	}
}

// WithParallel enables or disables the worker pool. Parallel compilation also requires the
// compiler to report support for it.
//
// Parameters:
//   - parallel: false forces synchronous compilation
//
// Returns:
//   - CacheBuilderOption: the option
func WithParallel(parallel bool) CacheBuilderOption {
	return func(c *cache) {
		c.parallel = parallel
	}
}

// WithWorkers sets the worker pool size and task queue length.
//
// Parameters:
//   - workers: the maximum number of concurrent compiles
//   - queueSize: the number of compiles that can be queued before GetOrCreate blocks
//
// Returns:
//   - CacheBuilderOption: the option
func WithWorkers(workers, queueSize int) CacheBuilderOption {
	return func(c *cache) {
		if workers > 0 {
			c.workers = workers
		}
		if queueSize > 0 {
			c.queueSize = queueSize
		}
	}
}
