package bind

import (
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// Observer receives the outcome of every bind decision.
type Observer interface {
	ObserveBind(state State)
}

// Inputs is the per-draw information Decide compares against the wrapper's bound state.
type Inputs struct {
	// MaterialID identifies the material being drawn.
	MaterialID uint64

	// CachedMaterialID is the material last bound in the rendering context, 0 if none.
	CachedMaterialID uint64

	// Frozen is the material's current frozen state.
	Frozen bool

	// SameMeshWorld reports that the context last bound the same mesh with the same world matrix.
	SameMeshWorld bool
}

// Matrices are the transforms of one draw.
type Matrices struct {
	World      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// WorldView returns View * World.
func (m Matrices) WorldView() mgl32.Mat4 {
	return m.View.Mul4(m.World)
}

// ViewProjection returns Projection * View.
func (m Matrices) ViewProjection() mgl32.Mat4 {
	return m.Projection.Mul4(m.View)
}

// WorldViewProjection returns Projection * View * World.
func (m Matrices) WorldViewProjection() mgl32.Mat4 {
	return m.ViewProjection().Mul4(m.World)
}

// dispatcher is the implementation of the Dispatcher interface.
type dispatcher struct {
	logger   *slog.Logger
	observer Observer
}

// Dispatcher selects the bind state of a draw and pushes values to an effect.
type Dispatcher interface {
	// Decide selects the bind state for a draw. A ready decision records the wrapper's active
	// effect and the frozen state as bound, so the caller must perform the bind it returns.
	//
	// Parameters:
	//   - w: the draw wrapper of the submesh
	//   - in: the material and context state of the draw
	//
	// Returns:
	//   - State: NotReady while the active effect is not compiled, ReadyFullBind when the material,
	//     effect or frozen state changed since the last bind, ReadyNoBind when the same mesh and
	//     world were bound last, ReadyMatrixOnlyBind otherwise
	Decide(w DrawWrapper, in Inputs) State

	// Flush applies every value of registry to binder in flush order.
	//
	// Parameters:
	//   - registry: the material values
	//   - binder: the target, typically the active effect
	//
	// Returns:
	//   - int: the number of values applied
	Flush(registry uniform.Registry, binder uniform.Binder) int

	// BindMatrices applies the per-object matrices world, worldView, worldViewProjection and view.
	//
	// Parameters:
	//   - binder: the target
	//   - m: the draw transforms
	//   - names: the uniform names the program declares, nil to apply every matrix
	BindMatrices(binder uniform.Binder, m Matrices, names []string)

	// BindCamera applies projection and viewProjection.
	BindCamera(binder uniform.Binder, m Matrices, names []string)
}

var _ Dispatcher = &dispatcher{}

// NewDispatcher creates a Dispatcher.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Dispatcher: the dispatcher
func NewDispatcher(options ...DispatcherBuilderOption) Dispatcher {
	d := &dispatcher{logger: slog.Default()}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *dispatcher) Decide(w DrawWrapper, in Inputs) State {
	state := d.decide(w, in)
	if d.observer != nil {
		d.observer.ObserveBind(state)
	}
	return state
}

func (d *dispatcher) decide(w DrawWrapper, in Inputs) State {
	e := w.Effect()
	if e == nil || !e.IsReady() {
		return NotReady
	}
	changed := w.record(e, in.Frozen)
	switch {
	case changed || in.MaterialID != in.CachedMaterialID:
		d.logger.Debug("full bind", "effect", e.Key(), "material", in.MaterialID)
		return ReadyFullBind
	case in.SameMeshWorld:
		return ReadyNoBind
	default:
		return ReadyMatrixOnlyBind
	}
}

func (d *dispatcher) Flush(registry uniform.Registry, binder uniform.Binder) int {
	n := 0
	registry.Each(func(name string, v uniform.Value) bool {
		binder.Apply(name, v)
		n++
		return true
	})
	return n
}

func (d *dispatcher) BindMatrices(binder uniform.Binder, m Matrices, names []string) {
	apply(binder, names, "world", func() mgl32.Mat4 { return m.World })
	apply(binder, names, "worldView", m.WorldView)
	apply(binder, names, "worldViewProjection", m.WorldViewProjection)
	apply(binder, names, "view", func() mgl32.Mat4 { return m.View })
}

func (d *dispatcher) BindCamera(binder uniform.Binder, m Matrices, names []string) {
	apply(binder, names, "projection", func() mgl32.Mat4 { return m.Projection })
	apply(binder, names, "viewProjection", m.ViewProjection)
}

// apply computes and applies a matrix only when the program declares it.
func apply(binder uniform.Binder, names []string, name string, fn func() mgl32.Mat4) {
	if names != nil && !slices.Contains(names, name) {
		return
	}
	binder.Apply(name, uniform.Matrix(fn()))
}
