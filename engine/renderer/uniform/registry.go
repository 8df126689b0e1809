package uniform

import (
	"cogentcore.org/core/base/keylist"
)

// NameRegistrar receives the names set on a Registry so they can be declared to the shader.
// A material's options implement it: textures become samplers, buffers become uniform or
// storage buffers and everything else becomes a uniform.
type NameRegistrar interface {
	// RegisterName adds name to the name list matching kind if it is not already present.
	RegisterName(kind Kind, name string)
}

// Binder is the sink a Registry flushes into, typically a compiled effect. Implementations
// ignore names their program does not declare.
type Binder interface {
	Apply(name string, v Value)
}

// Entry is one named value of a Registry.
type Entry struct {
	Name  string
	Value Value
}

// registry is the implementation of the Registry interface.
type registry struct {
	registrar NameRegistrar

	// tables holds one ordered name table per kind, indexed by Kind.
	tables [kindCount]keylist.List[string, Value]
}

// Registry is a per-material table of named values grouped by kind. Within a kind, values keep
// the order in which their names were first set; across kinds, iteration follows the Kind order.
// The same name may be set under several kinds, each table is independent.
type Registry interface {
	// Set inserts or overwrites the value stored under name for the value's kind and registers
	// name with the registrar. Registration is idempotent.
	//
	// Parameters:
	//   - name: the uniform, texture or buffer name
	//   - v: the value
	//
	// Returns:
	//   - bool: true if the stored value changed
	Set(name string, v Value) bool

	// Get returns the value stored under name for the given kind.
	Get(kind Kind, name string) (Value, bool)

	// Lookup returns the first value stored under name in flush order, whatever its kind.
	Lookup(name string) (Value, bool)

	// Remove deletes a texture or texture array. Other kinds cannot be removed.
	//
	// Parameters:
	//   - name: the texture name
	//
	// Returns:
	//   - bool: true if a texture was removed
	Remove(name string) bool

	// Each calls fn for every value in flush order until fn returns false.
	Each(fn func(name string, v Value) bool)

	// Entries returns the values of one kind in order.
	Entries(kind Kind) []Entry

	// Textures returns every texture referenced by the registry, external textures included.
	Textures() []Texture

	// Len returns the number of stored values across all kinds.
	Len() int

	// Clone returns a copy of the table that reports names to registrar.
	Clone(registrar NameRegistrar) Registry
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
//
// Parameters:
//   - registrar: receives names on Set, may be nil
//
// Returns:
//   - Registry: the new registry
func NewRegistry(registrar NameRegistrar) Registry {
	return &registry{registrar: registrar}
}

func (r *registry) Set(name string, v Value) bool {
	if r.registrar != nil {
		r.registrar.RegisterName(v.kind, name)
	}
	t := &r.tables[v.kind]
	if old, ok := t.AtTry(name); ok && old.Equal(v) {
		return false
	}
	t.Set(name, v)
	return true
}

func (r *registry) Get(kind Kind, name string) (Value, bool) {
	if kind < 0 || kind >= kindCount {
		return Value{}, false
	}
	return r.tables[kind].AtTry(name)
}

func (r *registry) Lookup(name string) (Value, bool) {
	for k := range r.tables {
		if v, ok := r.tables[k].AtTry(name); ok {
			return v, true
		}
	}
	return Value{}, false
}

func (r *registry) Remove(name string) bool {
	removed := r.tables[KindTexture].DeleteByKey(name)
	if r.tables[KindTextureArray].DeleteByKey(name) {
		removed = true
	}
	return removed
}

func (r *registry) Each(fn func(name string, v Value) bool) {
	for k := range r.tables {
		t := &r.tables[k]
		for i, name := range t.Keys {
			if !fn(name, t.Values[i]) {
				return
			}
		}
	}
}

func (r *registry) Entries(kind Kind) []Entry {
	if kind < 0 || kind >= kindCount {
		return nil
	}
	t := &r.tables[kind]
	out := make([]Entry, len(t.Keys))
	for i, name := range t.Keys {
		out[i] = Entry{Name: name, Value: t.Values[i]}
	}
	return out
}

func (r *registry) Textures() []Texture {
	var out []Texture
	for _, k := range []Kind{KindTexture, KindTextureArray, KindExternalTexture} {
		for _, v := range r.tables[k].Values {
			out = append(out, v.textures...)
		}
	}
	return out
}

func (r *registry) Len() int {
	n := 0
	for k := range r.tables {
		n += r.tables[k].Len()
	}
	return n
}

func (r *registry) Clone(registrar NameRegistrar) Registry {
	c := &registry{registrar: registrar}
	for k := range r.tables {
		t := &r.tables[k]
		for i, name := range t.Keys {
			c.tables[k].Set(name, t.Values[i])
		}
	}
	return c
}
