package defines

import "slices"

// fallback is one reduction step applied when a variant fails to compile.
type fallback struct {
	rank int

	// define is removed from the set. Empty for the CPU skinning step.
	define string

	// cpuSkinning drops GPU skinning down to zero influencers.
	cpuSkinning bool
}

// Fallbacks is an ordered list of define reductions. Each Reduce call removes every define of the
// lowest remaining rank, so a failing variant degrades one rank at a time.
type Fallbacks struct {
	steps []fallback
}

// NewFallbacks creates an empty fallback list.
func NewFallbacks() *Fallbacks {
	return &Fallbacks{}
}

// Add registers a define to be removed at the given rank.
//
// Parameters:
//   - rank: lower ranks are applied first
//   - define: the define name to remove
func (f *Fallbacks) Add(rank int, define string) {
	f.steps = append(f.steps, fallback{rank: rank, define: define})
}

// AddCPUSkinning registers a step that moves skinning to the CPU at the given rank.
// Nothing is registered for meshes without bone influencers.
//
// Parameters:
//   - rank: lower ranks are applied first
//   - influencers: the number of bone influencers currently in use
func (f *Fallbacks) AddCPUSkinning(rank, influencers int) {
	if influencers <= 0 {
		return
	}
	f.steps = append(f.steps, fallback{rank: rank, cpuSkinning: true})
}

// HasMore reports whether any reduction step remains.
func (f *Fallbacks) HasMore() bool {
	return f != nil && len(f.steps) > 0
}

// Reduce applies the lowest remaining rank to the set and drops it from the list. Ranks whose
// steps change nothing are skipped so the caller never retries an identical variant.
//
// Parameters:
//   - set: the define set to reduce in place
//
// Returns:
//   - bool: true if the set was changed
func (f *Fallbacks) Reduce(set *Set) bool {
	for f.HasMore() {
		if f.reduceLowest(set) {
			return true
		}
	}
	return false
}

func (f *Fallbacks) reduceLowest(set *Set) bool {
	lowest := slices.MinFunc(f.steps, func(a, b fallback) int { return a.rank - b.rank }).rank

	kept := f.steps[:0]
	applied := false
	for _, s := range f.steps {
		if s.rank != lowest {
			kept = append(kept, s)
			continue
		}
		if s.cpuSkinning {
			if v, ok := set.Value(defineBoneInfluencers); ok && v != "0" {
				set.SetValue(defineBoneInfluencers, "0")
				applied = true
			}
			set.Remove(defineBoneTexture)
			set.Remove(defineBonesPerMesh)
			continue
		}
		if set.Remove(s.define) {
			applied = true
		}
	}
	f.steps = kept
	return applied
}

// Clone returns an independent copy of the remaining steps.
func (f *Fallbacks) Clone() *Fallbacks {
	if f == nil {
		return NewFallbacks()
	}
	return &Fallbacks{steps: slices.Clone(f.steps)}
}
