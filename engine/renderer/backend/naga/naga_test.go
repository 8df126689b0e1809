package naga

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/naga/glsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `
struct Material {
    color: vec4<f32>,
    scale: f32,
}

@group(0) @binding(0) var<uniform> uniforms: Material;

@vertex
fn main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position.x, position.y, position.z, 1.0);
}
`

const fragmentSource = `
@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.5, 0.0, 1.0);
}
`

type fakeTexture struct{}

func (fakeTexture) Name() string  { return "albedo" }
func (fakeTexture) IsReady() bool { return true }

func testCompilation(vertex, fragment string) effect.Compilation {
	return effect.Compilation{
		Key:     "test@",
		Name:    "test",
		Source:  shader.Source{Vertex: vertex, Fragment: fragment},
		Defines: defines.NewSet(),
		Declarations: shader.Declarations{
			Uniforms: shader.Block{Name: "Material", Fields: []shader.Field{
				{Name: "color", Type: shader.TypeVec4},
				{Name: "scale", Type: shader.TypeFloat},
			}},
		},
	}
}

func newTestCompiler(options ...CompilerBuilderOption) Compiler {
	base := []CompilerBuilderOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithValidation(false),
	}
	return NewCompiler(append(base, options...)...)
}

func TestCompileProducesSPIRV(t *testing.T) {
	c := newTestCompiler()
	assert.Equal(t, shader.LanguageWGSL, c.Language())
	assert.True(t, c.Parallel())

	prog, err := c.Compile(context.Background(), testCompilation(vertexSource, fragmentSource))
	require.NoError(t, err)
	p := prog.(Program)

	for _, stage := range []shader.Stage{shader.StageVertex, shader.StageFragment} {
		out := p.Stage(stage)
		require.GreaterOrEqual(t, len(out.SPIRV), 20, stage.String())
		assert.Equal(t, uint32(0x07230203), binary.LittleEndian.Uint32(out.SPIRV[:4]), stage.String())
		assert.Equal(t, []string{"main"}, out.EntryPoints)
		assert.Empty(t, out.GLSL)
	}
}

func TestCompileWithGLSL(t *testing.T) {
	c := newTestCompiler(WithGLSL(glsl.VersionES300))
	prog, err := c.Compile(context.Background(), testCompilation(vertexSource, fragmentSource))
	require.NoError(t, err)
	assert.NotEmpty(t, prog.(Program).Stage(shader.StageVertex).GLSL)
	assert.NotEmpty(t, prog.(Program).Stage(shader.StageFragment).GLSL)
}

func TestCompileErrorNamesStage(t *testing.T) {
	c := newTestCompiler()
	_, err := c.Compile(context.Background(), testCompilation(vertexSource, "@fragment fn main( -> {"))
	require.Error(t, err)
	var se *effect.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, shader.StageFragment, se.Stage)

	_, err = c.Compile(context.Background(), testCompilation("", fragmentSource))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, shader.StageVertex, se.Stage)
}

func TestCompileHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestCompiler().Compile(ctx, testCompilation(vertexSource, fragmentSource))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgramPacksUniforms(t *testing.T) {
	prog, err := newTestCompiler().Compile(context.Background(), testCompilation(vertexSource, fragmentSource))
	require.NoError(t, err)
	p := prog.(Program)

	data, dirty := p.UniformData()
	assert.False(t, dirty)
	assert.Len(t, data, 32)

	p.Apply("color", uniform.Color4(mgl32.Vec4{1, 0.5, 0.25, 1}))
	p.Apply("scale", uniform.Float(2))
	p.Apply("missing", uniform.Float(3))
	p.Apply("diffuseSampler", uniform.TextureValue(fakeTexture{}))

	data, dirty = p.UniformData()
	require.True(t, dirty)
	read := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(data[off:])) }
	assert.Equal(t, float32(0.5), read(4))
	assert.Equal(t, float32(0.25), read(8))
	assert.Equal(t, float32(2), read(16))

	_, dirty = p.UniformData()
	assert.False(t, dirty)

	tex, ok := p.Resource("diffuseSampler")
	require.True(t, ok)
	assert.Equal(t, "albedo", tex.Texture().Name())

	p.Release()
	assert.True(t, p.Released())
	_, ok = p.Resource("diffuseSampler")
	assert.False(t, ok)
}

func TestArtifactName(t *testing.T) {
	a := ArtifactName("default@#define FOG\n#define NUM_BONE_INFLUENCERS 0")
	b := ArtifactName("default@#define NUM_BONE_INFLUENCERS 0")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^default-[0-9a-f]{8}$`, a)
	assert.Regexp(t, `^my_shader-[0-9a-f]{8}$`, ArtifactName("my/shader@"))
}

func TestExport(t *testing.T) {
	prog, err := newTestCompiler(WithGLSL(glsl.VersionES300)).Compile(context.Background(), testCompilation(vertexSource, fragmentSource))
	require.NoError(t, err)
	p := prog.(Program)
	assert.Equal(t, "test@", p.Key())

	dir := filepath.Join(t.TempDir(), "out")
	written, err := Export(dir, p)
	require.NoError(t, err)
	base := filepath.Join(dir, ArtifactName("test@"))
	assert.Equal(t, []string{base + ".vert.spv", base + ".vert.glsl", base + ".frag.spv", base + ".frag.glsl"}, written)

	spv, err := os.ReadFile(base + ".frag.spv")
	require.NoError(t, err)
	assert.Equal(t, p.Stage(shader.StageFragment).SPIRV, spv)
}
