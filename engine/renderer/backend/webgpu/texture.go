package webgpu

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/cogentcore/webgpu/wgpu"
)

// SamplerOptions configures a sampler. Zero fields take the defaults of samplerDescriptor.
type SamplerOptions struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32

	// Compare makes the sampler a comparison sampler, used for shadow lookups.
	Compare       wgpu.CompareFunction
	MaxAnisotropy uint16
}

// coalesce returns the first non-zero value.
func coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// samplerDescriptor fills the zero fields of o with repeat addressing, linear filtering and a
// 0..32 LOD range.
func samplerDescriptor(label string, o SamplerOptions) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  coalesce(o.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  coalesce(o.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  coalesce(o.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     coalesce(o.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     coalesce(o.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  coalesce(o.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   o.LodMinClamp,
		LodMaxClamp:   coalesce(o.LodMaxClamp, 32.0),
		MaxAnisotropy: coalesce(o.MaxAnisotropy, 1),
		Compare:       o.Compare,
	}
}

// Sampler is a GPU sampler usable as a uniform.Sampler value.
type Sampler struct {
	name    string
	sampler *wgpu.Sampler
}

var _ uniform.Sampler = &Sampler{}

func (s *Sampler) Name() string       { return s.name }
func (s *Sampler) GPU() *wgpu.Sampler { return s.sampler }
func (s *Sampler) Release()           { s.sampler.Release() }

// TextureData holds RGBA8 pixel data pending upload.
type TextureData struct {
	// Pixels holds 4 bytes per pixel, rows tightly packed.
	Pixels []byte
	Width  uint32
	Height uint32
}

// DecodeTextureData decodes a PNG or JPEG image into RGBA8 pixels.
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - TextureData: the decoded pixels
//   - error: an error if the image could not be decoded
func DecodeTextureData(r io.Reader) (TextureData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return TextureData{}, fmt.Errorf("decode texture: %w", err)
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return TextureData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// Texture is a sampled 2D GPU texture usable as a uniform.Texture value. It is ready once its
// pixels were written to the queue. Its sampler is bound to the "<name>Sampler" slot generated
// for it unless the material sets a sampler value under that name.
type Texture struct {
	name    string
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *Sampler
	ready   atomic.Bool
}

var _ uniform.Texture = &Texture{}

// NewTexture creates an sRGB RGBA8 texture of the given size. Pixels are uploaded by Upload.
//
// Parameters:
//   - d: the device to create the texture on
//   - name: the texture name
//   - width, height: the size in pixels
//   - sampler: the sampler options used with this texture
//
// Returns:
//   - *Texture: the texture, not ready until Upload is called
//   - error: an error if a GPU object could not be created
func NewTexture(d Device, name string, width, height uint32, sampler SamplerOptions) (*Texture, error) {
	tex, err := d.GPU().CreateTexture(&wgpu.TextureDescriptor{
		Label:     name,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	samp, err := d.GPU().CreateSampler(samplerDescriptor(name+" Sampler", sampler))
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}
	return &Texture{
		name:    name,
		texture: tex,
		view:    view,
		sampler: &Sampler{name: name + "Sampler", sampler: samp},
	}, nil
}

// NewTextureFromData creates a texture and uploads data to it.
func NewTextureFromData(d Device, name string, data TextureData, sampler SamplerOptions) (*Texture, error) {
	t, err := NewTexture(d, name, data.Width, data.Height, sampler)
	if err != nil {
		return nil, err
	}
	if err := t.Upload(d, data); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

// Upload writes the whole texture and marks it ready.
//
// Parameters:
//   - d: the device the texture was created on
//   - data: pixels matching the texture size
//
// Returns:
//   - error: an error if the pixel data does not match the texture size
func (t *Texture) Upload(d Device, data TextureData) error {
	if want := int(data.Width) * int(data.Height) * 4; len(data.Pixels) != want {
		return fmt.Errorf("texture %s: %d bytes of pixel data, want %d", t.name, len(data.Pixels), want)
	}
	d.Queue().WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
	t.ready.Store(true)
	return nil
}

func (t *Texture) Name() string            { return t.name }
func (t *Texture) IsReady() bool           { return t.ready.Load() }
func (t *Texture) View() *wgpu.TextureView { return t.view }
func (t *Texture) Sampler() *Sampler       { return t.sampler }

// Release frees the texture, its view and its sampler.
func (t *Texture) Release() {
	t.ready.Store(false)
	t.sampler.Release()
	t.view.Release()
	t.texture.Release()
}

// Buffer is a GPU buffer usable as a uniform or storage buffer value.
type Buffer struct {
	name   string
	buffer *wgpu.Buffer
	size   uint64
}

var _ uniform.Buffer = &Buffer{}

// NewBuffer creates a buffer usable as a uniform or storage binding.
//
// Parameters:
//   - d: the device
//   - name: the buffer name
//   - size: the size in bytes
//   - storage: true for a storage buffer, false for a uniform buffer
//
// Returns:
//   - *Buffer: the buffer
//   - error: an error if the buffer could not be created
func NewBuffer(d Device, name string, size uint64, storage bool) (*Buffer, error) {
	usage := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	if storage {
		usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	}
	buf, err := d.GPU().CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	return &Buffer{name: name, buffer: buf, size: size}, nil
}

func (b *Buffer) Name() string      { return b.name }
func (b *Buffer) GPU() *wgpu.Buffer { return b.buffer }
func (b *Buffer) Size() uint64      { return b.size }
func (b *Buffer) Release()          { b.buffer.Release() }

// Write uploads data at offset.
func (b *Buffer) Write(d Device, offset uint64, data []byte) {
	d.Queue().WriteBuffer(b.buffer, offset, data)
}
