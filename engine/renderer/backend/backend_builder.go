package backend

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend/naga"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend/webgpu"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// BackendBuilderOption is a functional option for configuring a Backend.
type BackendBuilderOption func(*backend)

// WithLogger sets the logger handed to the compiler and device, nil keeps slog.Default().
func WithLogger(logger *slog.Logger) BackendBuilderOption {
	return func(b *backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithLanguage sets the shading language. Only the headless backend accepts GLSL.
func WithLanguage(lang shader.Language) BackendBuilderOption {
	return func(b *backend) {
		b.language = lang
	}
}

// WithValidation enables or disables naga IR validation.
func WithValidation(validate bool) BackendBuilderOption {
	return func(b *backend) {
		b.validate = validate
	}
}

// WithDevice uses an existing webgpu device instead of creating one. The device is not released
// by Close.
func WithDevice(d webgpu.Device) BackendBuilderOption {
	return func(b *backend) {
		b.device = d
	}
}

// WithDeviceOptions configures the webgpu device created when WithDevice is not given.
func WithDeviceOptions(options ...webgpu.DeviceBuilderOption) BackendBuilderOption {
	return func(b *backend) {
		b.deviceOpts = append(b.deviceOpts, options...)
	}
}

// WithPipelineOptions configures the webgpu compiler.
func WithPipelineOptions(options ...webgpu.CompilerBuilderOption) BackendBuilderOption {
	return func(b *backend) {
		b.gpuOpts = append(b.gpuOpts, options...)
	}
}

// WithTranslationOptions configures the naga compiler, for example to emit GLSL.
func WithTranslationOptions(options ...naga.CompilerBuilderOption) BackendBuilderOption {
	return func(b *backend) {
		b.nagaOpts = append(b.nagaOpts, options...)
	}
}
