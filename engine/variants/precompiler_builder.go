package variants

import (
	"io"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// PrecompilerBuilderOption is a functional option for configuring a Precompiler.
type PrecompilerBuilderOption func(*precompiler)

// WithLogger overrides the logger of the rendering context.
func WithLogger(logger *slog.Logger) PrecompilerBuilderOption {
	return func(p *precompiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTextureResolver resolves the textures named in material documents. Without it textures
// are skipped.
func WithTextureResolver(resolve material.TextureResolver) PrecompilerBuilderOption {
	return func(p *precompiler) {
		p.resolve = resolve
	}
}

// WithProgress draws a progress bar to w.
func WithProgress(w io.Writer) PrecompilerBuilderOption {
	return func(p *precompiler) {
		p.progress = w
	}
}

// WithTimeout bounds the time one variant may take to compile.
//
// Parameters:
//   - timeout: the per-variant limit, <= 0 keeps 30 seconds
//
// Returns:
//   - PrecompilerBuilderOption: a function that applies the option to a precompiler
func WithTimeout(timeout time.Duration) PrecompilerBuilderOption {
	return func(p *precompiler) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithPollInterval sets how often IsReady is polled while a compile is in flight.
func WithPollInterval(d time.Duration) PrecompilerBuilderOption {
	return func(p *precompiler) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithOnResult is called after every pair, on the goroutine calling Run.
func WithOnResult(fn func(Result)) PrecompilerBuilderOption {
	return func(p *precompiler) {
		p.onResult = fn
	}
}
