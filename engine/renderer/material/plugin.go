package material

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// Plugin extends a material with optional features. Plugins run in the order they were added:
// PrepareDefines after the collector, Uniforms when the uniform block is built and Bind at the end
// of every full bind.
type Plugin interface {
	// Name identifies the plugin within a material.
	Name() string

	// PrepareDefines adds the plugin defines to set.
	PrepareDefines(set *defines.Set)

	// Uniforms returns the uniform block fields the plugin needs.
	Uniforms() []shader.Field

	// Bind applies the plugin values.
	Bind(binder uniform.Binder)

	// Clone returns an independent copy for a cloned material.
	Clone() Plugin
}

// Tint multiplies the fragment color by Color.rgb scaled by Color.a. The fragment shader reads it
// as uniforms.tintColor under the TINT define.
type Tint struct {
	Enabled bool

	// Color is the RGB tint plus the blend intensity in alpha (0 no tint, 1 fully tinted).
	Color mgl32.Vec4
}

var _ Plugin = &Tint{}

// NewTint returns a disabled white tint.
func NewTint() *Tint {
	return &Tint{Color: mgl32.Vec4{1, 1, 1, 1}}
}

func (t *Tint) Name() string { return "tint" }

func (t *Tint) PrepareDefines(set *defines.Set) {
	if t.Enabled {
		set.Flag("TINT")
	}
}

func (t *Tint) Uniforms() []shader.Field {
	if !t.Enabled {
		return nil
	}
	return []shader.Field{{Name: "tintColor", Type: shader.TypeVec4}}
}

func (t *Tint) Bind(binder uniform.Binder) {
	if t.Enabled {
		binder.Apply("tintColor", uniform.Color4(t.Color))
	}
}

func (t *Tint) Clone() Plugin {
	c := *t
	return &c
}

// Overlay mixes the fragment color towards Color.rgb by Color.a, used for selection highlights.
// The fragment shader reads it as uniforms.overlayColor under the OVERLAY define.
type Overlay struct {
	Enabled bool
	Color   mgl32.Vec4
}

var _ Plugin = &Overlay{}

// NewOverlay returns a disabled, fully transparent overlay.
func NewOverlay() *Overlay {
	return &Overlay{}
}

func (o *Overlay) Name() string { return "overlay" }

func (o *Overlay) PrepareDefines(set *defines.Set) {
	if o.Enabled {
		set.Flag("OVERLAY")
	}
}

func (o *Overlay) Uniforms() []shader.Field {
	if !o.Enabled {
		return nil
	}
	return []shader.Field{{Name: "overlayColor", Type: shader.TypeVec4}}
}

func (o *Overlay) Bind(binder uniform.Binder) {
	if o.Enabled {
		binder.Apply("overlayColor", uniform.Color4(o.Color))
	}
}

func (o *Overlay) Clone() Plugin {
	c := *o
	return &c
}
