// Package backend creates the effect compiler of a renderer backend type, so callers can pick
// the backend from configuration without importing every implementation.
package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-fx/engine/config"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend/headless"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend/naga"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend/webgpu"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// backend is the implementation of the Backend interface.
type backend struct {
	logger   *slog.Logger
	kind     renderer.RendererBackendType
	language shader.Language
	validate bool

	compiler effect.Compiler

	// device is created by New when WithDevice was not given, and released by Close.
	device     webgpu.Device
	ownsDevice bool
	deviceOpts []webgpu.DeviceBuilderOption
	gpuOpts    []webgpu.CompilerBuilderOption
	nagaOpts   []naga.CompilerBuilderOption
}

// Backend owns the compiler of one backend type and whatever device it needs.
type Backend interface {
	// Type returns the backend type.
	Type() renderer.RendererBackendType

	// Compiler returns the effect compiler to build a renderer with.
	Compiler() effect.Compiler

	// Device returns the webgpu device, nil for other backends.
	Device() webgpu.Device

	// RendererOptions returns the options describing this backend to NewRenderer.
	RendererOptions() []renderer.RendererBuilderOption

	// Close releases the compiler and a device created by New.
	Close()
}

var _ Backend = &backend{}

// New creates the backend of type t.
//
// Parameters:
//   - t: the backend type
//   - options: variadic list of BackendBuilderOption functions
//
// Returns:
//   - Backend: the backend
//   - error: an error if the type is unknown or the device could not be created
func New(t renderer.RendererBackendType, options ...BackendBuilderOption) (Backend, error) {
	b := &backend{
		logger:   slog.Default(),
		kind:     t,
		language: shader.LanguageWGSL,
		validate: true,
	}
	for _, opt := range options {
		opt(b)
	}

	switch t {
	case renderer.BackendTypeHeadless:
		b.compiler = headless.NewCompiler(headless.WithLogger(b.logger), headless.WithLanguage(b.language))
	case renderer.BackendTypeNaga:
		if b.language != shader.LanguageWGSL {
			return nil, fmt.Errorf("%s backend compiles WGSL only, got %s", t, b.language)
		}
		b.compiler = naga.NewCompiler(append([]naga.CompilerBuilderOption{naga.WithLogger(b.logger), naga.WithValidation(b.validate)}, b.nagaOpts...)...)
	case renderer.BackendTypeWGPU:
		if b.language != shader.LanguageWGSL {
			return nil, fmt.Errorf("%s backend compiles WGSL only, got %s", t, b.language)
		}
		if b.device == nil {
			d, err := webgpu.NewDevice(append([]webgpu.DeviceBuilderOption{webgpu.WithDeviceLogger(b.logger)}, b.deviceOpts...)...)
			if err != nil {
				return nil, err
			}
			b.device, b.ownsDevice = d, true
		}
		c, err := webgpu.NewCompiler(b.device, append([]webgpu.CompilerBuilderOption{webgpu.WithLogger(b.logger)}, b.gpuOpts...)...)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.compiler = c
	default:
		return nil, errors.New("unknown backend " + t.String())
	}
	b.logger.Debug("backend created", "backend", t, "language", b.compiler.Language(), "parallel", b.compiler.Parallel())
	return b, nil
}

// FromConfig creates the backend named by cfg.Backend for cfg.Language.
//
// Parameters:
//   - cfg: a validated configuration
//   - options: variadic list of BackendBuilderOption functions, applied after the config
//
// Returns:
//   - Backend: the backend
//   - error: an error if the backend name is unknown or creation failed
func FromConfig(cfg config.Config, options ...BackendBuilderOption) (Backend, error) {
	t, err := renderer.ParseBackendType(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return New(t, append([]BackendBuilderOption{WithLanguage(cfg.Language)}, options...)...)
}

func (b *backend) Type() renderer.RendererBackendType { return b.kind }
func (b *backend) Compiler() effect.Compiler          { return b.compiler }
func (b *backend) Device() webgpu.Device              { return b.device }

func (b *backend) RendererOptions() []renderer.RendererBuilderOption {
	return []renderer.RendererBuilderOption{
		renderer.WithLogger(b.logger),
		renderer.WithBackendType(b.kind),
	}
}

func (b *backend) Close() {
	if c, ok := b.compiler.(webgpu.Compiler); ok {
		c.Release()
	}
	b.compiler = nil
	if b.ownsDevice && b.device != nil {
		b.device.Release()
	}
	b.device = nil
}
