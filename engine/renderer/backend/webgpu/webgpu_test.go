package webgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBlock = shader.Block{Name: "Material", Fields: []shader.Field{
	{Name: "worldViewProjection", Type: shader.TypeMat4},
	{Name: "alpha", Type: shader.TypeFloat},
}}

func testDeclarations() shader.Declarations {
	return shader.Declarations{
		Attributes: []string{"position", "normal", "uv"},
		Uniforms:   testBlock,
		Samplers:   []string{"diffuse"},
	}
}

func testSources() (string, string) {
	e := shader.NewEmitter(shader.LanguageWGSL)
	d := testDeclarations()
	vertex := e.Emit(shader.StageVertex, d) + `
// @fragment fn notThis() {}
@vertex
fn vertMain(input: VertexInputs) -> @builtin(position) vec4<f32> {
    return uniforms.worldViewProjection * vec4<f32>(input.position, 1.0);
}
`
	fragment := e.Emit(shader.StageFragment, d) + `
@fragment
fn fragMain() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, uniforms.alpha);
}
`
	return vertex, fragment
}

func TestReflectVertexStage(t *testing.T) {
	vertex, _ := testSources()
	r := reflectStage(vertex, shader.StageVertex)

	assert.Equal(t, "vertMain", r.entryPoint)
	require.Len(t, r.vertexBuffers, 1)
	vb := r.vertexBuffers[0]
	assert.Equal(t, uint64(32), vb.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, vb.StepMode)
	assert.Equal(t, []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	}, vb.Attributes)

	require.Len(t, r.bindings, 3)
	assert.Equal(t, "uniforms", r.bindings[0].name)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, r.bindings[0].entry.Buffer.Type)
	assert.Equal(t, testBlock.Size(shader.LanguageWGSL), r.bindings[0].entry.Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex, r.bindings[0].entry.Visibility)
}

func TestReflectFragmentStageHasNoVertexBuffers(t *testing.T) {
	_, fragment := testSources()
	r := reflectStage(fragment, shader.StageFragment)
	assert.Equal(t, "fragMain", r.entryPoint)
	assert.Empty(t, r.vertexBuffers)
	assert.Len(t, r.bindings, 3)

	assert.Equal(t, "main", reflectStage("fn helper() {}", shader.StageFragment).entryPoint)
}

func TestMergeBindingsUnionsVisibility(t *testing.T) {
	vertex, fragment := testSources()
	groups := mergeBindings(reflectStage(vertex, shader.StageVertex), reflectStage(fragment, shader.StageFragment))
	require.Len(t, groups, 1)

	g := groups[0]
	require.Len(t, g.entries, 3)
	assert.Equal(t, map[uint32]string{0: "uniforms", 1: "diffuseSampler", 2: "diffuse"}, g.names)
	for _, e := range g.entries {
		assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility, "binding %d", e.Binding)
	}
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, g.entries[1].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, g.entries[2].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, g.entries[2].Texture.ViewDimension)
	assert.NoError(t, checkBindings(groups))
}

func TestMergeBindingsLeavesGroupHoles(t *testing.T) {
	src := `@group(2) @binding(0) var<storage, read> particles: array<vec4<f32>>;`
	groups := mergeBindings(reflectStage(src, shader.StageVertex))
	require.Len(t, groups, 3)
	assert.Empty(t, groups[0].entries)
	assert.Empty(t, groups[1].entries)
	require.Len(t, groups[2].entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, groups[2].entries[0].Buffer.Type)
	assert.Equal(t, uint64(16), groups[2].entries[0].Buffer.MinBindingSize)
}

func TestCheckBindingsRejectsExternalTextures(t *testing.T) {
	src := `@group(0) @binding(3) var video: texture_external;`
	err := checkBindings(mergeBindings(reflectStage(src, shader.StageFragment)))
	require.Error(t, err)
	var se *effect.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, shader.StageFragment, se.Stage)
	assert.Contains(t, err.Error(), "video")
}

func TestResolveTypeLayout(t *testing.T) {
	structs := parseStructBlocks(`
struct Light { position: vec3<f32>, intensity: f32, }
struct Lights { count: u32, items: array<Light, 4>, }
`)
	known := computeStructSizes(structs)
	assert.Equal(t, typeLayout{16, 16}, known["Light"])
	assert.Equal(t, typeLayout{80, 16}, known["Lights"])

	cases := map[string]typeLayout{
		"f32":                     {4, 4},
		"vec3f":                   {12, 16},
		"mat4x4<f32>":             {64, 16},
		"array<vec4<f32>, 3>":     {48, 16},
		"array<vec3<f32>, 2>":     {32, 16},
		"array<f32>":              {4, 4},
		"array<Light, 2>":         {32, 16},
		"array<array<f32, 2>, 2>": {16, 4},
	}
	for name, want := range cases {
		got, ok := resolveTypeLayout(name, known)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := resolveTypeLayout("Unknown", known)
	assert.False(t, ok)
}

func TestStripComments(t *testing.T) {
	src := "a /* outer /* inner */ still */ b // tail\nc"
	assert.Equal(t, "a  b \nc", stripComments(src))
}

func TestSamplerDescriptorDefaults(t *testing.T) {
	d := samplerDescriptor("s", SamplerOptions{})
	assert.Equal(t, wgpu.AddressModeRepeat, d.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, d.AddressModeW)
	assert.Equal(t, wgpu.FilterModeLinear, d.MagFilter)
	assert.Equal(t, wgpu.MipmapFilterModeLinear, d.MipmapFilter)
	assert.Equal(t, float32(32), d.LodMaxClamp)
	assert.Equal(t, uint16(1), d.MaxAnisotropy)

	d = samplerDescriptor("s", SamplerOptions{MagFilter: wgpu.FilterModeNearest, AddressModeU: wgpu.AddressModeClampToEdge, MaxAnisotropy: 8})
	assert.Equal(t, wgpu.FilterModeNearest, d.MagFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, d.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, d.AddressModeV)
	assert.Equal(t, uint16(8), d.MaxAnisotropy)
}

func testProgram(t *testing.T) *program {
	vertex, fragment := testSources()
	groups := mergeBindings(reflectStage(vertex, shader.StageVertex), reflectStage(fragment, shader.StageFragment))
	return &program{
		key:            "test@",
		groups:         groups,
		layouts:        make([]*wgpu.BindGroupLayout, len(groups)),
		bindGroups:     make([]*wgpu.BindGroup, len(groups)),
		dirty:          make([]bool, len(groups)),
		staging:        shader.NewStaging(testBlock, shader.LanguageWGSL),
		defaultSampler: &Sampler{name: "default"},
		resources:      make(map[string]uniform.Value),
	}
}

func TestProgramResolvesTextureAndSampler(t *testing.T) {
	p := testProgram(t)
	g := p.groups[0]

	_, err := p.resolve(0, g.entries[2], "diffuse")
	assert.ErrorContains(t, err, "has no texture")

	src, err := p.resolve(0, g.entries[1], "diffuseSampler")
	require.NoError(t, err)
	assert.Same(t, p.defaultSampler, src.sampler)

	tex := &Texture{name: "albedo", sampler: &Sampler{name: "albedoSampler"}}
	p.Apply("diffuse", uniform.TextureValue(tex))
	assert.True(t, p.dirty[0])

	_, err = p.resolve(0, g.entries[2], "diffuse")
	assert.ErrorContains(t, err, "not ready")

	tex.ready.Store(true)
	src, err = p.resolve(0, g.entries[2], "diffuse")
	require.NoError(t, err)
	assert.Same(t, tex, src.texture)

	src, err = p.resolve(0, g.entries[1], "diffuseSampler")
	require.NoError(t, err)
	assert.Same(t, tex.sampler, src.sampler)

	nearest := &Sampler{name: "nearest"}
	p.Apply("diffuseSampler", uniform.SamplerObject(nearest))
	src, err = p.resolve(0, g.entries[1], "diffuseSampler")
	require.NoError(t, err)
	assert.Same(t, nearest, src.sampler)
}

func TestProgramResolvesBuffers(t *testing.T) {
	p := testProgram(t)
	_, err := p.resolve(0, p.groups[0].entries[0], "uniforms")
	assert.ErrorContains(t, err, "has no buffer")

	lights := &Buffer{name: "Lights"}
	p.Apply("Lights", uniform.UniformBuffer(lights))
	entry := wgpu.BindGroupLayoutEntry{Binding: 4}
	entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	_, err = p.resolve(0, entry, "Lights")
	assert.NoError(t, err)
}

func TestProgramStagesNumericValues(t *testing.T) {
	p := testProgram(t)
	p.Apply("alpha", uniform.Float(0.5))
	p.Apply("missing", uniform.Float(2))
	assert.False(t, p.dirty[0])

	data := p.UniformData()
	require.Len(t, data, 80)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(data[64:])))
	assert.True(t, p.staging.Dirty())
}

func TestProgramApplyIgnoresUnchangedResources(t *testing.T) {
	p := testProgram(t)
	tex := &Texture{name: "albedo"}
	p.Apply("diffuse", uniform.TextureValue(tex))
	p.dirty[0] = false
	p.Apply("diffuse", uniform.TextureValue(tex))
	assert.False(t, p.dirty[0])

	p.Release()
	p.Apply("diffuse", uniform.TextureValue(&Texture{name: "other"}))
	assert.Nil(t, p.resources)
}
