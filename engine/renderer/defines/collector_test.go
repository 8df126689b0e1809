package defines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPlainMesh(t *testing.T) {
	c := NewCollector()
	res := c.Collect(Input{
		Uniforms: []string{"worldViewProjection"},
		Caps:     DefaultCaps(),
		Mesh:     &Mesh{},
	})

	assert.Equal(t, []string{
		"#define NUM_BONE_INFLUENCERS 0",
		"#define NUM_MORPH_INFLUENCERS 0",
	}, res.Defines.Entries())
	assert.Equal(t, "worldViewProjection", res.Uniforms[0])
	assert.Contains(t, res.Uniforms, "vClipPlane")
	assert.False(t, res.Fallbacks.HasMore())
}

func TestCollectOrderIsFixed(t *testing.T) {
	c := NewCollector()
	clip := true
	res := c.Collect(Input{
		Defines:    []string{"CUSTOM", "#define LEVEL 2"},
		Attributes: []string{"position", "color"},
		Caps:       DefaultCaps(),
		Scene: Scene{
			FogEnabled: true,
			ClipPlanes: [6]bool{true, false, true},
		},
		Mesh: &Mesh{
			HasVertexColors:      true,
			ApplyFog:             true,
			Skeleton:             &Skeleton{BoneCount: 10},
			NumBoneInfluencers:   4,
			Morph:                &Morph{NumInfluencers: 2, SupportsPositions: true},
			BakedVertexAnimation: true,
			HasThinInstances:     true,
		},
		UseInstances:     true,
		AlphaTest:        true,
		UseClipPlane:     &clip,
		LogarithmicDepth: true,
	})

	assert.Equal(t, []string{
		"#define CUSTOM",
		"#define LEVEL 2",
		"#define INSTANCES",
		"#define THIN_INSTANCES",
		"#define NUM_BONE_INFLUENCERS 4",
		"#define BonesPerMesh 11",
		"#define MORPHTARGETS",
		"#define MORPHTARGETS_POSITION",
		"#define NUM_MORPH_INFLUENCERS 2",
		"#define BAKED_VERTEX_ANIMATION_TEXTURE",
		"#define VERTEXCOLOR",
		"#define ALPHATEST",
		"#define CLIPPLANE",
		"#define CLIPPLANE3",
		"#define FOG",
		"#define LOGARITHMICDEPTH",
	}, res.Defines.Entries())
	assert.Equal(t, []string{
		"position", "color",
		"world0", "world1", "world2", "world3",
		"matricesIndices", "matricesWeights",
		"position0", "position1",
		"bakedVertexAnimationSettingsInstanced",
	}, res.Attributes)
	assert.Contains(t, res.Uniforms, "mBones")
	assert.Contains(t, res.Uniforms, "logarithmicDepthConstant")
	assert.Contains(t, res.Samplers, "bakedVertexAnimationTexture")
	assert.True(t, res.Fallbacks.HasMore())
}

func TestCollectVertexColorsFromMesh(t *testing.T) {
	c := NewCollector()
	res := c.Collect(Input{
		Attributes: []string{"position", "normal", "uv"},
		Caps:       DefaultCaps(),
		Mesh:       &Mesh{HasVertexColors: true},
	})
	assert.True(t, res.Defines.Has("VERTEXCOLOR"))
	assert.Equal(t, []string{"position", "normal", "uv", "color"}, res.Attributes)

	res = c.Collect(Input{Attributes: []string{"position"}, Caps: DefaultCaps(), Mesh: &Mesh{}})
	assert.False(t, res.Defines.Has("VERTEXCOLOR"))
	assert.NotContains(t, res.Attributes, "color")
}

func TestCollectInstanceColorsNeedThinInstances(t *testing.T) {
	c := NewCollector()
	res := c.Collect(Input{
		Caps:         DefaultCaps(),
		Mesh:         &Mesh{HasInstanceColors: true},
		UseInstances: true,
	})
	assert.True(t, res.Defines.Has("INSTANCES"))
	assert.False(t, res.Defines.Has("INSTANCESCOLOR"))
	assert.NotContains(t, res.Attributes, "instanceColor")

	res = c.Collect(Input{
		Caps:         DefaultCaps(),
		Mesh:         &Mesh{HasThinInstances: true, HasInstanceColors: true},
		UseInstances: true,
	})
	assert.True(t, res.Defines.Has("THIN_INSTANCES"))
	assert.True(t, res.Defines.Has("INSTANCESCOLOR"))
	assert.Contains(t, res.Attributes, "instanceColor")
}

func TestCollectBoneResolution(t *testing.T) {
	tests := []struct {
		name        string
		caps        Caps
		mesh        Mesh
		want        string
		wantDefine  string
		wantCPU     bool
		wantAttribs int
	}{
		{
			name:        "clamps to eight influencers",
			caps:        DefaultCaps(),
			mesh:        Mesh{Skeleton: &Skeleton{BoneCount: 4}, NumBoneInfluencers: 12},
			want:        "8",
			wantDefine:  "BonesPerMesh",
			wantAttribs: 4,
		},
		{
			name:        "bone texture when supported",
			caps:        DefaultCaps(),
			mesh:        Mesh{Skeleton: &Skeleton{BoneCount: 4, UseTexture: true}, NumBoneInfluencers: 4},
			want:        "4",
			wantDefine:  "BONETEXTURE",
			wantAttribs: 2,
		},
		{
			name:        "uniform array when textures unsupported",
			caps:        Caps{MaxVertexUniformVectors: 1024},
			mesh:        Mesh{Skeleton: &Skeleton{BoneCount: 4, UseTexture: true}, NumBoneInfluencers: 2},
			want:        "2",
			wantDefine:  "BonesPerMesh",
			wantAttribs: 2,
		},
		{
			name:    "cpu skinning when over budget",
			caps:    Caps{MaxVertexUniformVectors: 128},
			mesh:    Mesh{Skeleton: &Skeleton{BoneCount: 64}, NumBoneInfluencers: 4},
			want:    "0",
			wantCPU: true,
		},
		{
			name:    "cpu skinning requested",
			caps:    DefaultCaps(),
			mesh:    Mesh{Skeleton: &Skeleton{BoneCount: 4, ComputeOnCPU: true}, NumBoneInfluencers: 4},
			want:    "0",
			wantCPU: true,
		},
	}

	c := NewCollector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh := tt.mesh
			res := c.Collect(Input{Caps: tt.caps, Mesh: &mesh})
			v, ok := res.Defines.Value("NUM_BONE_INFLUENCERS")
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.wantCPU, res.CPUSkinning)
			if tt.wantDefine != "" {
				assert.True(t, res.Defines.Has(tt.wantDefine))
			}
			assert.Len(t, res.Attributes, tt.wantAttribs)
		})
	}
}

func TestCollectMorphTransition(t *testing.T) {
	c := NewCollector()
	mesh := &Mesh{HasNormals: true}

	before := c.Collect(Input{Caps: DefaultCaps(), Mesh: mesh})
	v, _ := before.Defines.Value("NUM_MORPH_INFLUENCERS")
	assert.Equal(t, "0", v)
	assert.False(t, before.Defines.Has("MORPHTARGETS"))

	mesh.Morph = &Morph{NumInfluencers: 3, SupportsPositions: true, SupportsNormals: true}
	after := c.Collect(Input{Caps: DefaultCaps(), Mesh: mesh})
	assert.Equal(t, []string{
		"#define NUM_BONE_INFLUENCERS 0",
		"#define MORPHTARGETS",
		"#define MORPHTARGETS_POSITION",
		"#define MORPHTARGETS_NORMAL",
		"#define NUM_MORPH_INFLUENCERS 3",
	}, after.Defines.Entries())
	assert.NotEqual(t, before.Defines.Join(), after.Defines.Join())
	assert.Equal(t, 3, after.NumMorphInfluencers)

	again := c.Collect(Input{Caps: DefaultCaps(), Mesh: mesh})
	assert.Equal(t, after.Defines.Join(), again.Defines.Join())
}

func TestCollectMorphTextureNeedsFloatTextures(t *testing.T) {
	c := NewCollector()
	mesh := &Mesh{Morph: &Morph{NumInfluencers: 2, SupportsPositions: true, UseTextures: true}}

	res := c.Collect(Input{Caps: DefaultCaps(), Mesh: mesh})
	assert.True(t, res.Defines.Has("MORPHTARGETS_TEXTURE"))
	assert.Contains(t, res.Samplers, "morphTargets")
	assert.Empty(t, res.Attributes)

	res = c.Collect(Input{Caps: Caps{}, Mesh: mesh})
	assert.False(t, res.Defines.Has("MORPHTARGETS_TEXTURE"))
	assert.Equal(t, []string{"position0", "position1"}, res.Attributes)
}

func TestCollectClipPlaneOptOut(t *testing.T) {
	off := false
	res := NewCollector().Collect(Input{
		Scene:        Scene{ClipPlanes: [6]bool{true}},
		UseClipPlane: &off,
	})
	assert.False(t, res.Defines.Has("CLIPPLANE"))
	assert.NotContains(t, res.Uniforms, "vClipPlane")
}

func TestCollectMisc(t *testing.T) {
	res := NewCollector().Collect(Input{
		Uniforms:           []string{"viewProjection"},
		Caps:               Caps{Multiview: true, MaxDrawBuffers: 4},
		Scene:              Scene{MultiviewActive: true},
		Mesh:               &Mesh{VertexPulling: true, HasIndexBuffer: true, IndexBuffer32Bits: true},
		DualSourceBlending: true,
		OutputCount:        6,
	})

	for _, name := range []string{"MULTIVIEW", "USE_VERTEX_PULLING", "VERTEX_PULLING_USE_INDEX_BUFFER", "VERTEX_PULLING_INDEX_BUFFER_32BITS", "DUAL_SOURCE_FALLBACK", "MRT"} {
		assert.True(t, res.Defines.Has(name), name)
	}
	count, _ := res.Defines.Value("MRT_COUNT")
	assert.Equal(t, "4", count)
	assert.Contains(t, res.Uniforms, "viewProjectionR")
}

func TestFogNeedsMeshOptIn(t *testing.T) {
	in := Input{Scene: Scene{FogEnabled: true}, Mesh: &Mesh{}}
	assert.False(t, NewCollector().Collect(in).Defines.Has("FOG"))

	in.Mesh.ApplyFog = true
	assert.True(t, NewCollector().Collect(in).Defines.Has("FOG"))
}
