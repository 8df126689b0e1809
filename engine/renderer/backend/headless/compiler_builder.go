package headless

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// CompilerBuilderOption is a functional option for configuring a Compiler.
type CompilerBuilderOption func(*compiler)

// WithLogger sets the logger, nil keeps slog.Default().
func WithLogger(logger *slog.Logger) CompilerBuilderOption {
	return func(c *compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLanguage sets the language the compiler accepts.
func WithLanguage(lang shader.Language) CompilerBuilderOption {
	return func(c *compiler) {
		c.language = lang
	}
}

// WithParallel reports parallel compile support, so the cache compiles on its worker pool.
func WithParallel(parallel bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.parallel = parallel
	}
}

// WithDelay makes every compile take at least d, simulating a slow driver.
//
// Parameters:
//   - d: the compile latency
//
// Returns:
//   - CompilerBuilderOption: the option
func WithDelay(d time.Duration) CompilerBuilderOption {
	return func(c *compiler) {
		c.delay = d
	}
}

// WithGate makes every compile wait until gate yields a value or is closed, so tests can hold
// compiles in flight.
func WithGate(gate <-chan struct{}) CompilerBuilderOption {
	return func(c *compiler) {
		c.gate = gate
	}
}

// WithFailure installs a hook that can fail compilations, for example to exercise fallbacks.
//
// Parameters:
//   - fail: called for every compilation with non-empty stages, a non-nil error fails it
//
// Returns:
//   - CompilerBuilderOption: the option
func WithFailure(fail func(c effect.Compilation) error) CompilerBuilderOption {
	return func(c *compiler) {
		c.fail = fail
	}
}
