package naga

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
)

// StageOutput is the translation of one stage.
type StageOutput struct {
	SPIRV []byte

	// GLSL is empty unless the compiler was built WithGLSL.
	GLSL string

	EntryPoints []string
}

// program is the implementation of the Program interface.
type program struct {
	mu sync.Mutex

	compilation effect.Compilation
	stages      map[shader.Stage]StageOutput
	staging     *shader.Staging
	resources   map[string]uniform.Value
	released    bool
}

// Program is a translated variant. Numeric values are packed into a WGSL-laid-out copy of the
// uniform block; textures, samplers and buffers are kept by name.
type Program interface {
	effect.Program

	// Key returns the effect key the program was compiled for.
	Key() string

	// Stage returns the translation of one stage.
	Stage(stage shader.Stage) StageOutput

	// UniformData returns the packed uniform block and whether it changed since the last call.
	UniformData() ([]byte, bool)

	// Resource returns the non-numeric value applied under name.
	Resource(name string) (uniform.Value, bool)

	// Released reports whether the program was released.
	Released() bool
}

var _ Program = &program{}

func newProgram(c effect.Compilation) *program {
	return &program{
		compilation: c,
		stages:      make(map[shader.Stage]StageOutput, 2),
		staging:     shader.NewStaging(c.Declarations.Uniforms, shader.LanguageWGSL),
		resources:   make(map[string]uniform.Value),
	}
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
		p.resources[name] = v
	default:
		p.staging.Write(name, v.Numbers())
	}
}

func (p *program) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
	p.resources = nil
}

func (p *program) Key() string { return p.compilation.Key }

func (p *program) Stage(stage shader.Stage) StageOutput {
	return p.stages[stage]
}

func (p *program) UniformData() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dirty := p.staging.Dirty()
	p.staging.ClearDirty()
	return p.staging.Bytes(), dirty
}

func (p *program) Resource(name string) (uniform.Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.resources[name]
	return v, ok
}

func (p *program) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
