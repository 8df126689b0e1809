package variants

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/schollz/progressbar/v3"
)

// Result is the outcome of preparing one material for one mesh.
type Result struct {
	Material string
	Mesh     string

	// Key is the effect key, set when the variant compiled or the compile error carried it.
	Key string

	// Defines is the define set the program was built with, after fallbacks.
	Defines string

	Effect  effect.Effect
	Err     error
	Elapsed time.Duration
}

// Report collects the results of a run.
type Report struct {
	Results []Result
}

// Failed returns the results that did not compile.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the errors of every failed result.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s on %s: %w", res.Material, res.Mesh, res.Err))
	}
	return errors.Join(errs...)
}

// precompiler is the implementation of the Precompiler interface.
type precompiler struct {
	logger   *slog.Logger
	renderer renderer.Renderer
	resolve  material.TextureResolver
	progress io.Writer
	poll     time.Duration
	timeout  time.Duration
	onResult func(Result)
}

// Precompiler prepares every (material, mesh) pair of a manifest through a rendering context.
// Materials are disposed without releasing their effects, so the context's cache keeps every
// compiled variant.
type Precompiler interface {
	// Run prepares every pair of m.
	//
	// Parameters:
	//   - ctx: cancels the run between polls
	//   - m: the manifest
	//
	// Returns:
	//   - Report: one result per pair that was attempted
	//   - error: an error if a material document could not be read or ctx was cancelled
	Run(ctx context.Context, m Manifest) (Report, error)
}

var _ Precompiler = &precompiler{}

// NewPrecompiler creates a Precompiler preparing variants through r.
//
// Parameters:
//   - r: the rendering context
//   - options: variadic list of PrecompilerBuilderOption functions
//
// Returns:
//   - Precompiler: the precompiler
func NewPrecompiler(r renderer.Renderer, options ...PrecompilerBuilderOption) Precompiler {
	p := &precompiler{
		logger:   r.Logger(),
		renderer: r,
		poll:     time.Millisecond,
		timeout:  30 * time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *precompiler) Run(ctx context.Context, m Manifest) (Report, error) {
	var report Report
	paths := m.MaterialPaths()
	sc := m.Scene.Build()

	var bar *progressbar.ProgressBar
	if p.progress != nil {
		bar = progressbar.NewOptions(len(paths)*len(m.Meshes),
			progressbar.OptionSetWriter(p.progress),
			progressbar.OptionSetDescription("compiling variants"),
			progressbar.OptionShowCount(),
		)
		defer bar.Close()
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return report, err
		}
		for _, spec := range m.Meshes {
			mat, err := material.Parse(data, p.renderer, sc, p.resolve)
			if mat == nil {
				return report, fmt.Errorf("material %s: %w", path, err)
			}
			if err != nil {
				p.logger.Warn("material restored with errors", "material", path, "error", err)
			}
			res, err := p.prepare(ctx, mat, spec)
			mat.Dispose(false)
			if err != nil {
				return report, err
			}
			report.Results = append(report.Results, res)
			if p.onResult != nil {
				p.onResult(res)
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}
	return report, nil
}

// prepare polls IsReady until the variant of mat for spec compiled or failed.
func (p *precompiler) prepare(ctx context.Context, mat material.ShaderMaterial, spec Mesh) (Result, error) {
	mesh := spec.Build()
	res := Result{Material: mat.Name(), Mesh: spec.Name}
	start := time.Now()
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		if mat.IsReady(mesh, mesh.UseInstances()) {
			e := mat.Effect()
			res.Effect, res.Key = e, e.Key()
			if set := e.Defines(); set != nil {
				res.Defines = set.Join()
			}
			break
		}
		if err := mat.LastError(); err != nil && !errors.Is(err, material.ErrTextureNotReady) {
			res.Err = err
			var ce *effect.CompileError
			if errors.As(err, &ce) {
				res.Key, res.Defines = ce.Key, ce.Defines
			}
			break
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-deadline.C:
			res.Err = fmt.Errorf("not ready after %s: %w", p.timeout, context.DeadlineExceeded)
			return res, nil
		case <-ticker.C:
		}
	}
	res.Elapsed = time.Since(start)
	p.logger.Debug("variant prepared", "material", res.Material, "mesh", res.Mesh, "key", res.Key, "elapsed", res.Elapsed, "error", res.Err)
	return res, nil
}
