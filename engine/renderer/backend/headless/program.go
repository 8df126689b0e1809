package headless

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
)

// Applied is one recorded Apply call.
type Applied struct {
	Name  string
	Value uniform.Value
}

// program is the implementation of the Program interface.
type program struct {
	mu sync.Mutex

	compilation effect.Compilation
	declared    map[string]bool

	applied  []Applied
	values   map[string]uniform.Value
	ignored  []string
	released bool
}

// Program is a recorded effect.Program. Only names declared by the compilation are stored, every
// other name is recorded as ignored.
type Program interface {
	effect.Program

	// Compilation returns the compilation the program was created from.
	Compilation() effect.Compilation

	// Applied returns the accepted Apply calls in order.
	Applied() []Applied

	// Value returns the last value applied under name.
	Value(name string) (uniform.Value, bool)

	// Ignored returns the names applied without being declared.
	Ignored() []string

	// Released reports whether the program was released.
	Released() bool

	// Reset clears the recorded calls.
	Reset()
}

var _ Program = &program{}

func newProgram(c effect.Compilation) *program {
	p := &program{
		compilation: c,
		declared:    make(map[string]bool),
		values:      make(map[string]uniform.Value),
	}
	d := c.Declarations
	for _, f := range d.Uniforms.Fields {
		p.declared[f.Name] = true
	}
	for _, group := range [][]string{d.Samplers, d.ExternalTextures, c.UniformBuffers, c.StorageBuffers} {
		for _, name := range group {
			p.declared[name] = true
		}
	}
	return p
}

func (p *program) Apply(name string, v uniform.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.declared[name] {
		p.ignored = append(p.ignored, name)
		return
	}
	p.applied = append(p.applied, Applied{Name: name, Value: v})
	p.values[name] = v
}

func (p *program) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
}

func (p *program) Compilation() effect.Compilation {
	return p.compilation
}

func (p *program) Applied() []Applied {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.applied)
}

func (p *program) Value(name string) (uniform.Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[name]
	return v, ok
}

func (p *program) Ignored() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.ignored)
}

func (p *program) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func (p *program) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied = nil
	p.ignored = nil
}
