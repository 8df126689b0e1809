package renderer

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/config"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the logger shared by every component of the context.
//
// Parameters:
//   - logger: the logger, nil keeps slog.Default()
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCaps sets the device capabilities defines are resolved against.
func WithCaps(caps defines.Caps) RendererBuilderOption {
	return func(r *renderer) {
		r.caps = caps
	}
}

// WithBackendType records the backend the compiler was created for.
func WithBackendType(t RendererBackendType) RendererBuilderOption {
	return func(r *renderer) {
		r.backendType = t
	}
}

// WithParallelCompile enables the compile worker pool. The pool is only used when the compiler
// and the capabilities both allow parallel compilation.
//
// Parameters:
//   - parallel: whether to compile on the worker pool
//   - workers: the maximum number of concurrent compiles, <= 0 keeps the default
//   - queueSize: the task queue length, <= 0 keeps the default
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithParallelCompile(parallel bool, workers, queueSize int) RendererBuilderOption {
	return func(r *renderer) {
		r.parallel = parallel
		if workers > 0 {
			r.workers = workers
		}
		if queueSize > 0 {
			r.queueSize = queueSize
		}
	}
}

// WithShaderDir loads shader sources from dir on top of the embedded ones.
//
// Parameters:
//   - dir: the shader directory
//   - watch: reload changed files and recompile the affected effects on the next frame
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithShaderDir(dir string, watch bool) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderDir = dir
		r.watch = watch
	}
}

// WithProfiler enables the profiler.
//
// Parameters:
//   - interval: how often statistics are logged, <= 0 keeps one second
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithProfiler(interval time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		r.profilerEnabled = true
		r.profilerOptions = append(r.profilerOptions, profiler.WithInterval(interval))
	}
}

// WithConfig applies a loaded configuration. Invalid fields are skipped; validate the config
// before passing it.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies every configured field to a renderer
func WithConfig(cfg config.Config) RendererBuilderOption {
	return func(r *renderer) {
		r.caps = cfg.Caps
		if t, err := ParseBackendType(cfg.Backend); err == nil {
			r.backendType = t
		}
		WithParallelCompile(cfg.ParallelCompile, cfg.Workers, cfg.QueueSize)(r)
		WithShaderDir(cfg.ShaderDir, cfg.Watch)(r)
		if cfg.Profiler.Enabled {
			interval, _ := cfg.ProfilerInterval()
			WithProfiler(interval)(r)
		}
	}
}
