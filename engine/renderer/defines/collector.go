package defines

import (
	"log/slog"
	"slices"
	"strconv"
)

// Define names emitted by the collector.
const (
	defineInstances            = "INSTANCES"
	defineThinInstances        = "THIN_INSTANCES"
	defineInstancesColor       = "INSTANCESCOLOR"
	defineBoneInfluencers      = "NUM_BONE_INFLUENCERS"
	defineBoneTexture          = "BONETEXTURE"
	defineBonesPerMesh         = "BonesPerMesh"
	defineMorphTargets         = "MORPHTARGETS"
	defineMorphTexture         = "MORPHTARGETS_TEXTURE"
	defineMorphInfluencers     = "NUM_MORPH_INFLUENCERS"
	defineBakedVertexAnimation = "BAKED_VERTEX_ANIMATION_TEXTURE"
	defineVertexColor          = "VERTEXCOLOR"
	defineAlphaTest            = "ALPHATEST"
	defineFog                  = "FOG"
	defineMultiview            = "MULTIVIEW"
	defineLogarithmicDepth     = "LOGARITHMICDEPTH"
	defineVertexPulling        = "USE_VERTEX_PULLING"
	defineVertexPullingIndex   = "VERTEX_PULLING_USE_INDEX_BUFFER"
	defineVertexPulling32Bits  = "VERTEX_PULLING_INDEX_BUFFER_32BITS"
	defineDualSource           = "DUAL_SOURCE_BLENDING"
	defineDualSourceFallback   = "DUAL_SOURCE_FALLBACK"
	defineMRT                  = "MRT"
	defineMRTCount             = "MRT_COUNT"
)

// maxBoneInfluencers is the largest number of bone weights a vertex can carry (two vec4 attributes).
const maxBoneInfluencers = 8

// collector is the implementation of the Collector interface.
type collector struct {
	logger *slog.Logger

	// reservedUniformVectors is the number of vertex uniform vectors kept free for non-bone uniforms
	// when deciding whether a bone matrix array still fits.
	reservedUniformVectors int
}

// Collector derives the ordered define set, attribute list and extra uniform/sampler names for a
// shader variant. Material option defines come first, followed by the fixed priority order
// instancing, bones, morph targets, baked vertex animation, vertex color, alpha test, clip planes,
// fog and finally the miscellaneous defines.
//
// Invalid combinations never fail: they are resolved silently by fixed precedence rules and logged
// at debug level.
type Collector interface {
	// Collect runs one collection pass.
	//
	// Parameters:
	//   - in: the mesh, material and capability state
	//
	// Returns:
	//   - Result: the ordered defines, attributes, names and fallbacks for the variant
	Collect(in Input) Result
}

var _ Collector = &collector{}

// NewCollector creates a Collector configured with the provided options.
//
// Parameters:
//   - options: variadic list of CollectorBuilderOption functions
//
// Returns:
//   - Collector: a new Collector instance
func NewCollector(options ...CollectorBuilderOption) Collector {
	c := &collector{
		logger:                 slog.Default(),
		reservedUniformVectors: 32,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// nameList is an append-only list of unique names.
type nameList []string

func (l *nameList) push(names ...string) {
	for _, n := range names {
		if !slices.Contains(*l, n) {
			*l = append(*l, n)
		}
	}
}

func (c *collector) Collect(in Input) Result {
	set := &Set{}
	attribs := nameList(slices.Clone(in.Attributes))
	uniforms := nameList(slices.Clone(in.Uniforms))
	samplers := nameList(slices.Clone(in.Samplers))
	fallbacks := NewFallbacks()
	res := Result{}

	for _, d := range in.Defines {
		set.Add(d)
	}

	mesh := in.Mesh
	if mesh == nil {
		mesh = &Mesh{}
	}

	// instancing
	if in.UseInstances {
		set.Flag(defineInstances)
		attribs.push("world0", "world1", "world2", "world3")
		// Per-instance colors only exist on thin instance buffers.
		if mesh.HasThinInstances {
			set.Flag(defineThinInstances)
			if mesh.HasInstanceColors {
				set.Flag(defineInstancesColor)
				attribs.push("instanceColor")
			}
		}
	} else if mesh.HasThinInstances || mesh.HasInstanceColors {
		c.logger.Debug("instance data ignored without instancing", "thin", mesh.HasThinInstances, "colors", mesh.HasInstanceColors)
	}

	// bones
	res.NumBoneInfluencers, res.CPUSkinning = c.collectBones(in, mesh, set, &attribs, &uniforms, &samplers, fallbacks)

	// morph targets
	res.NumMorphInfluencers = c.collectMorph(in, mesh, set, &attribs, &uniforms, &samplers)

	// baked vertex animation
	if mesh.BakedVertexAnimation {
		set.Flag(defineBakedVertexAnimation)
		uniforms.push("bakedVertexAnimationSettings", "bakedVertexAnimationTextureSizeInverted", "bakedVertexAnimationTime")
		samplers.push("bakedVertexAnimationTexture")
		if in.UseInstances {
			attribs.push("bakedVertexAnimationSettingsInstanced")
		}
	}

	// vertex color
	if mesh.HasVertexColors {
		attribs.push("color")
		set.Flag(defineVertexColor)
	}

	if in.AlphaTest {
		set.Flag(defineAlphaTest)
	}

	// clip planes
	if in.UseClipPlane == nil || *in.UseClipPlane {
		uniforms.push(clipPlaneUniforms()...)
		for i, active := range in.Scene.ClipPlanes {
			if active {
				set.Flag(clipPlaneDefine(i))
			}
		}
	}

	// fog
	if in.Scene.FogEnabled && mesh.ApplyFog {
		set.Flag(defineFog)
		uniforms.push("view", "vFogInfos", "vFogColor")
	}

	c.collectMisc(in, mesh, set, &uniforms)

	res.Defines = set
	res.Attributes = attribs
	res.Uniforms = uniforms
	res.Samplers = samplers
	res.Fallbacks = fallbacks
	return res
}

func (c *collector) collectBones(in Input, mesh *Mesh, set *Set, attribs, uniforms, samplers *nameList, fallbacks *Fallbacks) (int, bool) {
	influencers := mesh.NumBoneInfluencers
	if mesh.Skeleton == nil || influencers <= 0 {
		set.SetValue(defineBoneInfluencers, "0")
		return 0, false
	}
	if influencers > maxBoneInfluencers {
		c.logger.Debug("bone influencers clamped", "requested", influencers, "max", maxBoneInfluencers)
		influencers = maxBoneInfluencers
	}

	skel := mesh.Skeleton
	useTexture := skel.UseTexture && in.Caps.BoneTextures
	if !useTexture && !skel.ComputeOnCPU {
		needed := (skel.BoneCount+1)*4 + c.reservedUniformVectors
		if in.Caps.MaxVertexUniformVectors > 0 && needed > in.Caps.MaxVertexUniformVectors {
			c.logger.Debug("bone matrices exceed uniform budget, skinning on cpu", "bones", skel.BoneCount, "vectors", needed)
			set.SetValue(defineBoneInfluencers, "0")
			return 0, true
		}
	}
	if skel.ComputeOnCPU {
		set.SetValue(defineBoneInfluencers, "0")
		return 0, true
	}

	attribs.push("matricesIndices", "matricesWeights")
	if influencers > 4 {
		attribs.push("matricesIndicesExtra", "matricesWeightsExtra")
	}
	set.SetValue(defineBoneInfluencers, strconv.Itoa(influencers))
	fallbacks.AddCPUSkinning(0, influencers)

	if useTexture {
		set.Flag(defineBoneTexture)
		uniforms.push("boneTextureWidth")
		samplers.push("boneSampler")
	} else {
		set.SetValue(defineBonesPerMesh, strconv.Itoa(skel.BoneCount+1))
		uniforms.push("mBones")
	}
	return influencers, false
}

func (c *collector) collectMorph(in Input, mesh *Mesh, set *Set, attribs, uniforms, samplers *nameList) int {
	m := mesh.Morph
	if m == nil || m.NumInfluencers <= 0 {
		set.SetValue(defineMorphInfluencers, "0")
		return 0
	}

	n := m.NumInfluencers
	useTexture := m.UseTextures && in.Caps.TextureFloat
	if m.UseTextures && !useTexture {
		c.logger.Debug("morph target textures unsupported, using attributes", "influencers", n)
	}

	set.Flag(defineMorphTargets)
	channels := []struct {
		ok     bool
		define string
		attrib string
	}{
		{m.SupportsPositions, "MORPHTARGETS_POSITION", "position"},
		{m.SupportsNormals && mesh.HasNormals, "MORPHTARGETS_NORMAL", "normal"},
		{m.SupportsTangents && mesh.HasTangents, "MORPHTARGETS_TANGENT", "tangent"},
		{m.SupportsUVs && mesh.HasUVs, "MORPHTARGETS_UV", "uv_"},
		{m.SupportsUV2s && mesh.HasUVs, "MORPHTARGETS_UV2", "uv2_"},
		{m.SupportsColors && mesh.HasVertexColors, "MORPHTARGETS_COLOR", "color"},
	}
	for _, ch := range channels {
		if ch.ok {
			set.Flag(ch.define)
		}
	}
	set.SetValue(defineMorphInfluencers, strconv.Itoa(n))

	if useTexture {
		set.Flag(defineMorphTexture)
		uniforms.push("morphTargetTextureInfo", "morphTargetTextureIndices")
		samplers.push("morphTargets")
	} else {
		for i := range n {
			for _, ch := range channels {
				if !ch.ok {
					continue
				}
				attribs.push(ch.attrib + strconv.Itoa(i))
			}
		}
	}
	uniforms.push("morphTargetInfluences")
	return n
}

func (c *collector) collectMisc(in Input, mesh *Mesh, set *Set, uniforms *nameList) {
	if in.Scene.MultiviewActive {
		if in.Caps.Multiview {
			set.Flag(defineMultiview)
			if slices.Contains(*uniforms, "viewProjection") {
				uniforms.push("viewProjectionR")
			}
		} else {
			c.logger.Debug("multiview requested without device support")
		}
	}

	if in.LogarithmicDepth {
		set.Flag(defineLogarithmicDepth)
		uniforms.push("logarithmicDepthConstant")
	}

	if mesh.VertexPulling {
		set.Flag(defineVertexPulling)
		if mesh.HasIndexBuffer {
			set.Flag(defineVertexPullingIndex)
			if mesh.IndexBuffer32Bits {
				set.Flag(defineVertexPulling32Bits)
			}
		}
	}

	if in.DualSourceBlending {
		if in.Caps.DualSourceBlending {
			set.Flag(defineDualSource)
		} else {
			set.Flag(defineDualSourceFallback)
		}
	}

	if in.OutputCount > 1 {
		count := in.OutputCount
		if in.Caps.MaxDrawBuffers > 0 && count > in.Caps.MaxDrawBuffers {
			c.logger.Debug("render target count clamped", "requested", count, "max", in.Caps.MaxDrawBuffers)
			count = in.Caps.MaxDrawBuffers
		}
		if count > 1 {
			set.Flag(defineMRT)
			set.SetValue(defineMRTCount, strconv.Itoa(count))
		}
	}
}

// clipPlaneUniforms returns the uniform names of all six user clip planes.
func clipPlaneUniforms() []string {
	out := make([]string, 6)
	for i := range out {
		out[i] = "vClipPlane"
		if i > 0 {
			out[i] += strconv.Itoa(i + 1)
		}
	}
	return out
}

// clipPlaneDefine returns the define enabling clip plane i (0-based).
func clipPlaneDefine(i int) string {
	if i == 0 {
		return "CLIPPLANE"
	}
	return "CLIPPLANE" + strconv.Itoa(i+1)
}
