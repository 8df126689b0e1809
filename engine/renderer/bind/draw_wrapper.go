package bind

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
)

// drawWrapper is the implementation of the DrawWrapper interface.
type drawWrapper struct {
	active  effect.Effect
	pending effect.Effect

	cachedDefines *defines.Set
	failedDefines string

	previouslyReady          bool
	previouslyUsingInstances bool

	// bound* describe the state of the last Decide that returned a ready state.
	bound       bool
	boundEffect effect.Effect
	boundFrozen bool
}

// DrawWrapper is the per-submesh binding state of one material. It owns the active effect, the
// effect being compiled to replace it, and the define set both were requested with.
//
// The wrapper never releases effects itself. Methods that drop an effect return it so the caller
// can release it through the cache that created it.
type DrawWrapper interface {
	// Effect returns the effect currently used for drawing, nil before the first compile succeeds.
	Effect() effect.Effect

	// Pending returns the effect being compiled, nil if none.
	Pending() effect.Effect

	// SetEffect installs e as the pending effect for set. The pending effect is promoted by Promote
	// once it is compiled.
	//
	// Parameters:
	//   - e: the requested effect
	//   - set: the define set the effect was requested with
	//
	// Returns:
	//   - effect.Effect: the pending effect that was superseded, nil if none. This is e itself when
	//     the same variant was requested twice; it holds a reference either way.
	SetEffect(e effect.Effect, set *defines.Set) effect.Effect

	// Promote makes a compiled pending effect the active one.
	//
	// Returns:
	//   - effect.Effect: the previously active effect, nil if none. When the pending effect was the
	//     active one again, this is a duplicate reference to it.
	//   - bool: true if the active effect changed
	Promote() (effect.Effect, bool)

	// Fail drops a pending effect whose compile failed and remembers its defines so the same
	// variant is not requested again. The active effect stays in place.
	//
	// Returns:
	//   - effect.Effect: the failed effect
	Fail() effect.Effect

	// CachedDefines returns the define set of the last request, nil before the first one.
	CachedDefines() *defines.Set

	// FailedDefines returns the joined defines of the last failed compile, "" if none.
	FailedDefines() string

	// ClearFailure forgets the failed defines so the variant can be requested again, for example
	// after its source was reloaded.
	ClearFailure()

	PreviouslyReady() bool
	SetPreviouslyReady(ready bool)
	PreviouslyUsingInstances() bool
	SetPreviouslyUsingInstances(instances bool)

	// BoundFrozen returns the frozen state recorded by the last ready decision.
	BoundFrozen() bool

	// Reset drops every effect and clears the cached state.
	//
	// Returns:
	//   - []effect.Effect: the dropped active and pending effects
	Reset() []effect.Effect

	// record stores e and frozen as the bound state and reports whether either differs from the
	// previous bind.
	record(e effect.Effect, frozen bool) bool
}

var _ DrawWrapper = &drawWrapper{}

// NewDrawWrapper creates an empty DrawWrapper.
func NewDrawWrapper() DrawWrapper {
	return &drawWrapper{}
}

func (w *drawWrapper) Effect() effect.Effect  { return w.active }
func (w *drawWrapper) Pending() effect.Effect { return w.pending }

func (w *drawWrapper) SetEffect(e effect.Effect, set *defines.Set) effect.Effect {
	prev := w.pending
	w.pending = e
	if set != nil {
		w.cachedDefines = set.Clone()
	}
	return prev
}

func (w *drawWrapper) Promote() (effect.Effect, bool) {
	if w.pending == nil || !w.pending.IsReady() {
		return nil, false
	}
	prev := w.active
	w.active = w.pending
	w.pending = nil
	w.failedDefines = ""
	return prev, prev != w.active
}

func (w *drawWrapper) Fail() effect.Effect {
	failed := w.pending
	w.pending = nil
	if w.cachedDefines != nil {
		w.failedDefines = w.cachedDefines.Join()
	}
	return failed
}

func (w *drawWrapper) CachedDefines() *defines.Set { return w.cachedDefines }
func (w *drawWrapper) FailedDefines() string       { return w.failedDefines }
func (w *drawWrapper) ClearFailure()               { w.failedDefines = "" }

func (w *drawWrapper) PreviouslyReady() bool         { return w.previouslyReady }
func (w *drawWrapper) SetPreviouslyReady(ready bool) { w.previouslyReady = ready }

func (w *drawWrapper) PreviouslyUsingInstances() bool { return w.previouslyUsingInstances }
func (w *drawWrapper) SetPreviouslyUsingInstances(instances bool) {
	w.previouslyUsingInstances = instances
}

func (w *drawWrapper) BoundFrozen() bool { return w.boundFrozen }

func (w *drawWrapper) Reset() []effect.Effect {
	var out []effect.Effect
	if w.active != nil {
		out = append(out, w.active)
	}
	if w.pending != nil {
		out = append(out, w.pending)
	}
	*w = drawWrapper{}
	return out
}

func (w *drawWrapper) record(e effect.Effect, frozen bool) bool {
	changed := !w.bound || w.boundEffect != e || w.boundFrozen != frozen
	w.bound = true
	w.boundEffect = e
	w.boundFrozen = frozen
	return changed
}
