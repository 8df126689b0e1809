// Package bind decides how much per-draw state has to be pushed to an effect and flushes
// material values in a fixed order.
package bind

// State is the outcome of a bind decision for one draw.
type State int

const (
	// NotReady means the active effect is not compiled; the draw is skipped.
	NotReady State = iota
	// ReadyNoBind means the effect, material and world matrix are already bound.
	ReadyNoBind
	// ReadyFullBind flushes every material value and the matrices.
	ReadyFullBind
	// ReadyMatrixOnlyBind only updates the per-object matrices.
	ReadyMatrixOnlyBind
)

func (s State) String() string {
	switch s {
	case NotReady:
		return "NotReady"
	case ReadyNoBind:
		return "ReadyNoBind"
	case ReadyFullBind:
		return "ReadyFullBind"
	case ReadyMatrixOnlyBind:
		return "ReadyMatrixOnlyBind"
	default:
		return "Unknown"
	}
}

// Ready reports whether the draw can be issued.
func (s State) Ready() bool {
	return s != NotReady
}
