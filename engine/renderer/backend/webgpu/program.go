package webgpu

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrReleased is returned when drawing with a released program.
var ErrReleased = errors.New("program released")

// program is the implementation of the Program interface.
type program struct {
	mu  sync.Mutex
	key string

	pipeline *wgpu.RenderPipeline
	layouts  []*wgpu.BindGroupLayout
	groups   []groupLayout

	bindGroups []*wgpu.BindGroup
	dirty      []bool

	// The generated uniform block is bound at binding 0 of materialGroup, staged in WGSL layout.
	materialGroup  int
	staging        *shader.Staging
	uniformBuffer  *wgpu.Buffer
	defaultSampler *Sampler

	resources map[string]uniform.Value
	released  bool
}

// Program is a render pipeline variant together with its bind groups. Numeric values are staged
// into the material uniform buffer; textures, samplers and buffers are bound by variable name.
// Bind groups are rebuilt on the next draw after a resource changes.
type Program interface {
	effect.Program

	// Key returns the effect key the program was compiled for.
	Key() string

	// Pipeline returns the render pipeline.
	Pipeline() *wgpu.RenderPipeline

	// UniformData returns the staged material block.
	UniformData() []byte

	flush(d Device) ([]*wgpu.BindGroup, error)
}

var _ Program = &program{}

func (p *program) Key() string                    { return p.key }
func (p *program) Pipeline() *wgpu.RenderPipeline { return p.pipeline }

func (p *program) UniformData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.staging.Bytes()
}

func (p *program) Apply(name string, v uniform.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	switch v.Kind() {
	case uniform.KindTexture, uniform.KindTextureArray, uniform.KindExternalTexture,
		uniform.KindSampler, uniform.KindUniformBuffer, uniform.KindStorageBuffer:
		if old, ok := p.resources[name]; ok && old.Equal(v) {
			return
		}
		p.resources[name] = v
		for g := range p.dirty {
			p.dirty[g] = true
		}
	default:
		p.staging.Write(name, v.Numbers())
	}
}

// flush uploads the staged block and rebuilds stale bind groups.
func (p *program) flush(d Device) ([]*wgpu.BindGroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil, ErrReleased
	}
	if p.uniformBuffer != nil && p.staging.Dirty() {
		d.Queue().WriteBuffer(p.uniformBuffer, 0, p.staging.Bytes())
		p.staging.ClearDirty()
	}

	for g, layout := range p.groups {
		if !p.dirty[g] && p.bindGroups[g] != nil {
			continue
		}
		entries := make([]wgpu.BindGroupEntry, 0, len(layout.entries))
		for _, e := range layout.entries {
			src, err := p.resolve(g, e, layout.names[e.Binding])
			if err != nil {
				return nil, err
			}
			entries = append(entries, src.entry(e.Binding))
		}
		bg, err := d.GPU().CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.key, g),
			Layout:  p.layouts[g],
			Entries: entries,
		})
		if err != nil {
			return nil, fmt.Errorf("bind group %d: %w", g, err)
		}
		if p.bindGroups[g] != nil {
			p.bindGroups[g].Release()
		}
		p.bindGroups[g] = bg
		p.dirty[g] = false
	}
	return p.bindGroups, nil
}

// bindingSource is the object bound to one layout entry.
type bindingSource struct {
	buffer  *wgpu.Buffer
	texture *Texture
	sampler *Sampler
}

func (s bindingSource) entry(index uint32) wgpu.BindGroupEntry {
	switch {
	case s.texture != nil:
		return wgpu.BindGroupEntry{Binding: index, TextureView: s.texture.view}
	case s.sampler != nil:
		return wgpu.BindGroupEntry{Binding: index, Sampler: s.sampler.sampler}
	}
	return wgpu.BindGroupEntry{Binding: index, Buffer: s.buffer, Size: wgpu.WholeSize}
}

// resolve finds what to bind to the entry declared as name in group g. The sampler generated for
// a texture "t" is named "tSampler": a sampler value set under that name wins, then the sampler
// of the texture, then the compiler's default sampler.
func (p *program) resolve(g int, e wgpu.BindGroupLayoutEntry, name string) (bindingSource, error) {
	v, ok := p.resources[name]
	switch {
	case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
		if g == p.materialGroup && e.Binding == 0 && p.uniformBuffer != nil {
			return bindingSource{buffer: p.uniformBuffer}, nil
		}
		if b, isGPU := v.Buffer().(*Buffer); ok && isGPU {
			return bindingSource{buffer: b.buffer}, nil
		}
		return bindingSource{}, fmt.Errorf("binding %s has no buffer", name)

	case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		t, isGPU := v.Texture().(*Texture)
		if !ok || !isGPU {
			return bindingSource{}, fmt.Errorf("binding %s has no texture", name)
		}
		if !t.IsReady() {
			return bindingSource{}, fmt.Errorf("binding %s: texture %s not ready", name, t.Name())
		}
		return bindingSource{texture: t}, nil

	case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		if s, isGPU := v.Sampler().(*Sampler); ok && isGPU {
			return bindingSource{sampler: s}, nil
		}
		if tv, found := p.resources[strings.TrimSuffix(name, "Sampler")]; found {
			if t, isGPU := tv.Texture().(*Texture); isGPU {
				return bindingSource{sampler: t.sampler}, nil
			}
		}
		if p.defaultSampler != nil {
			return bindingSource{sampler: p.defaultSampler}, nil
		}
		return bindingSource{}, fmt.Errorf("binding %s has no sampler", name)
	}
	return bindingSource{}, fmt.Errorf("binding %s has an unsupported type", name)
}

func (p *program) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	p.resources = nil
	for _, bg := range p.bindGroups {
		if bg != nil {
			bg.Release()
		}
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	if p.uniformBuffer != nil {
		p.uniformBuffer.Release()
	}
	if p.pipeline != nil {
		p.pipeline.Release()
	}
}
