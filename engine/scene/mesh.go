package scene

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

// meshCount generates unique mesh ids.
var meshCount atomic.Uint64

// Skeleton holds the bone matrices of a skinned mesh.
type Skeleton struct {
	// Bones are the final bone matrices, one per bone.
	Bones []mgl32.Mat4

	// UseTexture stores the bone matrices in Texture instead of a uniform array.
	UseTexture bool
	Texture    uniform.Texture

	// ComputeOnCPU skins the mesh on the CPU.
	ComputeOnCPU bool
}

// MorphTargetManager holds the morph target influences of a mesh.
type MorphTargetManager struct {
	// Influences has one weight per active target.
	Influences []float32

	// UseTextures stores the target data in Texture instead of vertex attributes.
	UseTextures bool
	Texture     uniform.Texture

	// TextureSize is the target texture size in texels.
	TextureSize mgl32.Vec2

	SupportsPositions bool
	SupportsNormals   bool
	SupportsTangents  bool
	SupportsUVs       bool
	SupportsUV2s      bool
	SupportsColors    bool
}

// TextureInfo returns (influencer count, texture width, texture height) packed for the shader.
func (m *MorphTargetManager) TextureInfo() mgl32.Vec3 {
	return mgl32.Vec3{float32(len(m.Influences)), m.TextureSize[0], m.TextureSize[1]}
}

// TextureIndices returns the texture layer of every active target.
func (m *MorphTargetManager) TextureIndices() []float32 {
	out := make([]float32, len(m.Influences))
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

// BakedVertexAnimation is a baked vertex animation texture and its playback settings.
type BakedVertexAnimation struct {
	Texture uniform.Texture

	// Settings is (from frame, to frame, offset, speed in frames per second).
	Settings mgl32.Vec4

	// TextureSize is the animation texture size in texels.
	TextureSize mgl32.Vec2
}

// TextureSizeInverted returns 1 / TextureSize, zero components stay zero.
func (b *BakedVertexAnimation) TextureSizeInverted() mgl32.Vec2 {
	var out mgl32.Vec2
	for i, v := range b.TextureSize {
		if v != 0 {
			out[i] = 1 / v
		}
	}
	return out
}

// SubMesh is a draw range of a mesh using one material.
type SubMesh struct {
	Index      int
	IndexStart int
	IndexCount int
}

// Mesh is the per-mesh state a material reads when it prepares and binds a draw.
type Mesh struct {
	id   uint64
	Name string

	HasVertexColors bool
	HasUVs          bool
	HasNormals      bool
	HasTangents     bool

	Skeleton           *Skeleton
	NumBoneInfluencers int

	Morph *MorphTargetManager

	BakedVertexAnimation *BakedVertexAnimation

	// Instances is the number of hardware instances, 0 for none.
	Instances         int
	ThinInstances     bool
	HasInstanceColors bool

	// ApplyFog opts the mesh into scene fog.
	ApplyFog bool

	VertexPulling     bool
	HasIndexBuffer    bool
	IndexBuffer32Bits bool

	// World is the world matrix of the mesh.
	World mgl32.Mat4

	SubMeshes []*SubMesh
}

// NewMesh creates a mesh with an identity world matrix and one submesh.
func NewMesh(name string) *Mesh {
	m := &Mesh{
		id:       meshCount.Add(1),
		Name:     name,
		ApplyFog: true,
		World:    mgl32.Ident4(),
	}
	m.SubMeshes = []*SubMesh{{Index: 0}}
	return m
}

// ID returns the unique id of the mesh.
func (m *Mesh) ID() uint64 {
	return m.id
}

// UseInstances reports whether the mesh is drawn with instancing.
func (m *Mesh) UseInstances() bool {
	return m.Instances > 0 || m.ThinInstances
}

// DefinesMesh converts the mesh into the define collector's input.
//
// Returns:
//   - *defines.Mesh: the mesh facts, never nil
func (m *Mesh) DefinesMesh() *defines.Mesh {
	out := &defines.Mesh{
		HasVertexColors:      m.HasVertexColors,
		HasUVs:               m.HasUVs,
		HasNormals:           m.HasNormals,
		HasTangents:          m.HasTangents,
		NumBoneInfluencers:   m.NumBoneInfluencers,
		BakedVertexAnimation: m.BakedVertexAnimation != nil,
		HasThinInstances:     m.ThinInstances,
		HasInstanceColors:    m.HasInstanceColors,
		ApplyFog:             m.ApplyFog,
		VertexPulling:        m.VertexPulling,
		HasIndexBuffer:       m.HasIndexBuffer,
		IndexBuffer32Bits:    m.IndexBuffer32Bits,
	}
	if s := m.Skeleton; s != nil {
		out.Skeleton = &defines.Skeleton{
			BoneCount:    len(s.Bones),
			UseTexture:   s.UseTexture,
			ComputeOnCPU: s.ComputeOnCPU,
		}
	}
	if mt := m.Morph; mt != nil {
		out.Morph = &defines.Morph{
			NumInfluencers:    len(mt.Influences),
			UseTextures:       mt.UseTextures,
			SupportsPositions: mt.SupportsPositions,
			SupportsNormals:   mt.SupportsNormals,
			SupportsTangents:  mt.SupportsTangents,
			SupportsUVs:       mt.SupportsUVs,
			SupportsUV2s:      mt.SupportsUV2s,
			SupportsColors:    mt.SupportsColors,
		}
	}
	return out
}
