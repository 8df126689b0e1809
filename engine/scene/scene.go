// Package scene holds the plain-data view of a scene that materials consume: camera, fog, clip
// planes and meshes with their skinning, morph and instancing state. Transform hierarchies and
// geometry storage live elsewhere.
package scene

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/go-gl/mathgl/mgl32"
)

// FogMode selects the fog falloff.
type FogMode int

const (
	FogModeNone FogMode = iota
	FogModeExp
	FogModeExp2
	FogModeLinear
)

// Fog is the scene fog.
type Fog struct {
	Mode    FogMode
	Start   float32
	End     float32
	Density float32
	Color   mgl32.Vec3
}

// Infos returns the fog parameters packed as (mode, start, end, density).
func (f Fog) Infos() mgl32.Vec4 {
	return mgl32.Vec4{float32(f.Mode), f.Start, f.End, f.Density}
}

// Scene is the scene-wide state read by materials.
type Scene struct {
	Camera Camera

	// FogEnabled switches fog for every mesh that applies it.
	FogEnabled bool
	Fog        Fog

	// ClipPlanes are the six user clip planes as (normal, d). Nil entries are inactive.
	ClipPlanes [6]*mgl32.Vec4

	// Time is the scene time in seconds, used by baked vertex animation.
	Time float32
}

// NewScene creates a scene viewed through camera. A nil camera is replaced by a default one.
func NewScene(camera Camera) *Scene {
	if camera == nil {
		camera = NewCamera()
	}
	return &Scene{Camera: camera, Fog: Fog{Mode: FogModeNone, Start: 20, End: 60, Density: 0.1}}
}

// FogActive reports whether fog has to be computed.
func (s *Scene) FogActive() bool {
	return s.FogEnabled && s.Fog.Mode != FogModeNone
}

// DefinesScene returns the scene state the define collector consumes.
//
// Returns:
//   - defines.Scene: fog, clip plane and multiview state
func (s *Scene) DefinesScene() defines.Scene {
	out := defines.Scene{FogEnabled: s.FogActive()}
	for i, p := range s.ClipPlanes {
		out.ClipPlanes[i] = p != nil
	}
	if s.Camera != nil {
		out.MultiviewActive = s.Camera.Multiview()
	}
	return out
}
