package webgpu

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// DeviceBuilderOption is a functional option for configuring a Device.
type DeviceBuilderOption func(*device)

// WithDeviceLogger sets the logger, nil keeps slog.Default().
func WithDeviceLogger(logger *slog.Logger) DeviceBuilderOption {
	return func(d *device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSurface renders frames to the surface described by desc, typically obtained from a window.
// Without a surface the device can build pipelines but not render frames.
//
// Parameters:
//   - desc: the platform surface descriptor
//
// Returns:
//   - DeviceBuilderOption: a function that applies the option to a device
func WithSurface(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(d *device) {
		d.surfaceDescriptor = desc
	}
}

// WithFallbackAdapter forces a software adapter.
func WithFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallback = force
	}
}

// WithPresentMode sets the surface present mode, wgpu.PresentModeFifo by default.
func WithPresentMode(mode wgpu.PresentMode) DeviceBuilderOption {
	return func(d *device) {
		d.presentMode = mode
	}
}

// WithSampleCount sets the MSAA sample count of the main pass. Only 1 and 4 are supported by
// every adapter; other values fall back to 1.
func WithSampleCount(count uint32) DeviceBuilderOption {
	return func(d *device) {
		if count == 4 {
			d.sampleCount = 4
			return
		}
		d.sampleCount = 1
	}
}

// WithClearColor sets the color the main pass is cleared to.
func WithClearColor(c wgpu.Color) DeviceBuilderOption {
	return func(d *device) {
		d.clearColor = c
	}
}
