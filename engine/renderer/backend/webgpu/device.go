// Package webgpu renders effect variants on the GPU through wgpu-native. The Compiler turns WGSL
// variants into render pipelines, reflecting the generated declarations into bind group and
// vertex layouts; the Device owns the surface and records draws into a frame.
package webgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoSurface is returned by surface operations on a device created without a surface.
	ErrNoSurface = errors.New("device has no surface")

	// ErrNoFrame is returned when drawing outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("no frame in progress")
)

// device is the implementation of the Device interface.
type device struct {
	mu     sync.Mutex
	logger *slog.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceDescriptor *wgpu.SurfaceDescriptor
	forceFallback     bool
	presentMode       wgpu.PresentMode
	sampleCount       uint32
	clearColor        wgpu.Color
	format            wgpu.TextureFormat

	msaaView             *wgpu.TextureView
	depthView            *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

// Device owns the wgpu instance, adapter, device and queue, plus the optional window surface
// frames are rendered to. All calls must come from the goroutine that created the device.
type Device interface {
	// GPU returns the wgpu device.
	GPU() *wgpu.Device

	// Queue returns the device queue.
	Queue() *wgpu.Queue

	// Format returns the color format pipelines render to.
	Format() wgpu.TextureFormat

	// SampleCount returns the MSAA sample count of the main pass.
	SampleCount() uint32

	// Configure (re)creates the swap chain, MSAA and depth targets for a new surface size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: ErrNoSurface or a target creation error
	Configure(width, height int) error

	// BeginFrame acquires the next surface texture and opens the main render pass.
	BeginFrame() error

	// Draw flushes the program's uniform data and bind groups and records an indexed draw of mesh.
	//
	// Parameters:
	//   - p: a program built by a Compiler on this device
	//   - mesh: the geometry to draw
	//   - instances: the instance count, at least 1
	//
	// Returns:
	//   - error: ErrNoFrame or the reason the program could not be bound
	Draw(p Program, mesh *Mesh, instances uint32) error

	// EndFrame closes the render pass and submits the recorded commands.
	EndFrame() error

	// Present shows the frame submitted by EndFrame.
	Present()

	// Release frees every GPU object owned by the device.
	Release()
}

var _ Device = &device{}

// NewDevice requests an adapter and a device. The calling goroutine is locked to its OS thread
// since wgpu-native surfaces are thread affine.
//
// Parameters:
//   - options: variadic list of DeviceBuilderOption functions
//
// Returns:
//   - Device: the device
//   - error: an error if no adapter or device could be obtained
func NewDevice(options ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &device{
		logger:      slog.Default(),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: 1,
		clearColor:  wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
		format:      wgpu.TextureFormatBGRA8Unorm,
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = adapter

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Effect Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if d.surface != nil {
		caps := d.surface.GetCapabilities(d.adapter)
		if len(caps.Formats) > 0 {
			d.format = caps.Formats[0]
		}
	}
	d.logger.Info("webgpu device ready", "format", d.format, "samples", d.sampleCount, "surface", d.surface != nil)
	return d, nil
}

func (d *device) GPU() *wgpu.Device          { return d.device }
func (d *device) Queue() *wgpu.Queue         { return d.queue }
func (d *device) Format() wgpu.TextureFormat { return d.format }
func (d *device) SampleCount() uint32        { return d.sampleCount }

func (d *device) Configure(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return ErrNoSurface
	}
	caps := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})

	d.releaseTargets()
	msaa := d.sampleCount > 1
	if msaa {
		view, err := d.createTarget("MSAA Texture", d.format, width, height)
		if err != nil {
			return err
		}
		d.msaaView = view
	}
	view, err := d.createTarget("Depth Texture", wgpu.TextureFormatDepth24Plus, width, height)
	if err != nil {
		return err
	}
	d.depthView = view

	// With MSAA the pass draws into msaaView and resolves into the surface view set per frame.
	storeOp := wgpu.StoreOpStore
	if msaa {
		storeOp = wgpu.StoreOpDiscard
	}
	d.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       d.msaaView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    storeOp,
			ClearValue: d.clearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	return nil
}

// createTarget creates a render attachment matching the surface size and sample count.
func (d *device) createTarget(label string, format wgpu.TextureFormat, width, height int) (*wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   d.sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return tex.CreateView(nil)
}

func (d *device) releaseTargets() {
	if d.msaaView != nil {
		d.msaaView.Release()
		d.msaaView = nil
	}
	if d.depthView != nil {
		d.depthView.Release()
		d.depthView = nil
	}
}

func (d *device) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.renderPassDescriptor == nil {
		return ErrNoSurface
	}
	if d.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if d.sampleCount > 1 {
		d.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		d.renderPassDescriptor.ColorAttachments[0].View = view
	}
	d.framePass = encoder.BeginRenderPass(d.renderPassDescriptor)
	d.frameEncoder = encoder
	d.frameSurface = surfaceTexture
	d.frameView = view
	return nil
}

func (d *device) Draw(p Program, mesh *Mesh, instances uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.framePass == nil {
		return ErrNoFrame
	}
	groups, err := p.flush(d)
	if err != nil {
		return err
	}

	d.framePass.SetPipeline(p.Pipeline())
	for i, g := range groups {
		d.framePass.SetBindGroup(uint32(i), g, nil)
	}
	d.framePass.SetVertexBuffer(0, mesh.vertexBuffer, 0, wgpu.WholeSize)
	d.framePass.SetIndexBuffer(mesh.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	d.framePass.DrawIndexed(mesh.indexCount, max(instances, 1), 0, 0, 0)
	return nil
}

func (d *device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.framePass == nil {
		return ErrNoFrame
	}
	d.framePass.End()
	d.framePass = nil

	commandBuffer, err := d.frameEncoder.Finish(nil)
	d.frameEncoder.Release()
	d.frameEncoder = nil
	if err != nil {
		d.releaseFrame()
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (d *device) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}
	d.surface.Present()
	d.releaseFrame()
}

func (d *device) releaseFrame() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseFrame()
	d.releaseTargets()
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
