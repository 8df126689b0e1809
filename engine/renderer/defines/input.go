package defines

// Caps describes the renderer capabilities the collector resolves define combinations against.
type Caps struct {
	// MaxVertexUniformVectors is the number of vec4 uniform slots available to a vertex stage.
	MaxVertexUniformVectors int `yaml:"max_vertex_uniform_vectors" toml:"max_vertex_uniform_vectors"`

	// BoneTextures reports whether bone matrices may be read from a float texture.
	BoneTextures bool `yaml:"bone_textures" toml:"bone_textures"`

	// TextureFloat reports support for sampling float textures, required for morph target textures.
	TextureFloat bool `yaml:"texture_float" toml:"texture_float"`

	// DualSourceBlending reports support for dual-source blending.
	DualSourceBlending bool `yaml:"dual_source_blending" toml:"dual_source_blending"`

	// Multiview reports support for multiview rendering.
	Multiview bool `yaml:"multiview" toml:"multiview"`

	// MaxDrawBuffers is the maximum number of simultaneous color attachments.
	MaxDrawBuffers int `yaml:"max_draw_buffers" toml:"max_draw_buffers"`

	// ParallelShaderCompile reports whether the backend compiles programs off the main thread.
	ParallelShaderCompile bool `yaml:"parallel_shader_compile" toml:"parallel_shader_compile"`
}

// DefaultCaps returns the capabilities of a baseline WebGPU device.
//
// Returns:
//   - Caps: the default capability set
func DefaultCaps() Caps {
	return Caps{
		MaxVertexUniformVectors: 1024,
		BoneTextures:            true,
		TextureFloat:            true,
		DualSourceBlending:      false,
		Multiview:               false,
		MaxDrawBuffers:          8,
		ParallelShaderCompile:   true,
	}
}

// Skeleton is the skinning state of a mesh.
type Skeleton struct {
	// BoneCount is the number of bones in the skeleton.
	BoneCount int

	// UseTexture selects bone matrices stored in a texture instead of a uniform array.
	UseTexture bool

	// ComputeOnCPU disables GPU skinning for the mesh.
	ComputeOnCPU bool
}

// Morph is the morph target state of a mesh.
type Morph struct {
	// NumInfluencers is the number of active morph influencers.
	NumInfluencers int

	// UseTextures stores target data in a texture array instead of vertex attributes.
	UseTextures bool

	SupportsPositions bool
	SupportsNormals   bool
	SupportsTangents  bool
	SupportsUVs       bool
	SupportsUV2s      bool
	SupportsColors    bool
}

// Mesh carries the per-mesh facts the collector needs. It is plain data supplied by the scene.
type Mesh struct {
	HasVertexColors bool
	HasUVs          bool
	HasNormals      bool
	HasTangents     bool

	// Skeleton is nil for unskinned meshes.
	Skeleton *Skeleton

	// NumBoneInfluencers is the number of bone weights per vertex.
	NumBoneInfluencers int

	// Morph is nil when the mesh has no morph target manager.
	Morph *Morph

	// BakedVertexAnimation is true when a baked vertex animation manager is enabled on the mesh.
	BakedVertexAnimation bool

	HasThinInstances  bool
	HasInstanceColors bool
	ApplyFog          bool
	VertexPulling     bool
	HasIndexBuffer    bool
	IndexBuffer32Bits bool
}

// Scene carries the scene-wide state the collector needs.
type Scene struct {
	FogEnabled bool

	// ClipPlanes marks which of the six user clip planes are active.
	ClipPlanes [6]bool

	// MultiviewActive is true when the active camera renders multiple views in one pass.
	MultiviewActive bool
}

// Input is everything the collector derives a define set from.
type Input struct {
	// Defines are the material option defines, emitted first.
	Defines []string

	// Attributes are the material option attributes, emitted first.
	Attributes []string

	// Uniforms are the material option uniform names. Collected uniforms are merged behind them.
	Uniforms []string

	// Samplers are the material option sampler names. Collected samplers are merged behind them.
	Samplers []string

	Caps  Caps
	Scene Scene

	// Mesh is nil when readiness is checked without a mesh.
	Mesh *Mesh

	UseInstances bool
	AlphaTest    bool

	// UseClipPlane is the material's tri-state clip plane option. Nil follows the scene.
	UseClipPlane *bool

	LogarithmicDepth   bool
	DualSourceBlending bool

	// OutputCount is the number of render targets the material writes.
	OutputCount int
}

// Result is the output of a collection pass.
type Result struct {
	// Defines is the ordered define set.
	Defines *Set

	// Attributes lists the vertex attribute names, material attributes first.
	Attributes []string

	// Uniforms and Samplers list the material names followed by those the defines require.
	Uniforms []string
	Samplers []string

	// Fallbacks lists the define reductions to retry with when compilation fails.
	Fallbacks *Fallbacks

	NumBoneInfluencers  int
	NumMorphInfluencers int

	// CPUSkinning is true when skinning was resolved to the CPU path.
	CPUSkinning bool
}
