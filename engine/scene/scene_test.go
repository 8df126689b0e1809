package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraMatrices(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 5}), WithClipRange(1, 255))
	assert.True(t, c.ViewProjection().ApproxEqual(c.Projection().Mul4(c.View())))
	assert.InDelta(t, 0.25, c.LogarithmicDepthConstant(), 1e-6)

	c.SetPosition(mgl32.Vec3{0, 0, 10})
	eye := c.View().Mul4x1(mgl32.Vec4{0, 0, 10, 1})
	assert.InDelta(t, 0, eye.Vec3().Len(), 1e-5)

	assert.Equal(t, mgl32.Ident4(), c.ViewProjectionR())
	c.SetMultiview(mgl32.Ident4(), mgl32.Scale3D(2, 2, 2))
	assert.True(t, c.Multiview())
	assert.Equal(t, mgl32.Scale3D(2, 2, 2), c.ViewProjectionR())
}

func TestDefinesScene(t *testing.T) {
	s := NewScene(nil)
	plane := mgl32.Vec4{0, 1, 0, 0}
	s.ClipPlanes[2] = &plane
	s.FogEnabled = true

	ds := s.DefinesScene()
	assert.False(t, ds.FogEnabled, "fog mode none")
	assert.Equal(t, [6]bool{false, false, true, false, false, false}, ds.ClipPlanes)

	s.Fog.Mode = FogModeLinear
	assert.True(t, s.DefinesScene().FogEnabled)
	assert.Equal(t, mgl32.Vec4{3, 20, 60, 0.1}, s.Fog.Infos())
}

func TestDefinesMesh(t *testing.T) {
	m := NewMesh("box")
	other := NewMesh("other")
	assert.NotEqual(t, m.ID(), other.ID())
	require.Len(t, m.SubMeshes, 1)

	m.Skeleton = &Skeleton{Bones: make([]mgl32.Mat4, 12)}
	m.NumBoneInfluencers = 4
	m.Morph = &MorphTargetManager{Influences: []float32{0.5, 0.25, 0}, SupportsPositions: true}

	dm := m.DefinesMesh()
	require.NotNil(t, dm.Skeleton)
	assert.Equal(t, 12, dm.Skeleton.BoneCount)
	require.NotNil(t, dm.Morph)
	assert.Equal(t, 3, dm.Morph.NumInfluencers)
	assert.True(t, dm.ApplyFog)
	assert.False(t, m.UseInstances())

	m.Instances = 4
	assert.True(t, m.UseInstances())
}

func TestBakedVertexAnimationSizeInverted(t *testing.T) {
	b := &BakedVertexAnimation{TextureSize: mgl32.Vec2{256, 0}}
	assert.Equal(t, mgl32.Vec2{1.0 / 256, 0}, b.TextureSizeInverted())
}

func TestMorphTextureInfo(t *testing.T) {
	m := &MorphTargetManager{Influences: []float32{1, 0.5}, UseTextures: true, TextureSize: mgl32.Vec2{64, 2}}
	assert.Equal(t, mgl32.Vec3{2, 64, 2}, m.TextureInfo())
	assert.Equal(t, []float32{0, 1}, m.TextureIndices())
}
