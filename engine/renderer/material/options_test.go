package material

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefineForms(t *testing.T) {
	o := DefaultOptions()
	o.Defines = []string{"#define FOO 1", "FOOBAR", "BAR"}

	assert.True(t, o.HasDefine("FOO"))
	assert.True(t, o.SetDefine("FOO", "x"))
	assert.Equal(t, []string{"FOOBAR", "BAR", "FOO x"}, o.Defines)

	assert.True(t, o.SetDefine("BAR", false))
	assert.Equal(t, []string{"FOOBAR", "FOO x"}, o.Defines)
	assert.False(t, o.HasDefine("BAR"))
	assert.True(t, o.HasDefine("FOOBAR"))
}

func TestRegisterName(t *testing.T) {
	o := DefaultOptions()
	o.RegisterName(uniform.KindTexture, "diffuseSampler")
	o.RegisterName(uniform.KindTexture, "diffuseSampler")
	o.RegisterName(uniform.KindStorageBuffer, "particles")
	o.RegisterName(uniform.KindUniformBuffer, "Lights")
	o.RegisterName(uniform.KindSampler, "linear")
	o.RegisterName(uniform.KindExternalTexture, "video")
	o.RegisterName(uniform.KindFloat, "alpha")

	assert.Equal(t, []string{"diffuseSampler"}, o.Samplers)
	assert.Equal(t, []string{"particles"}, o.StorageBuffers)
	assert.Equal(t, []string{"Lights"}, o.UniformBuffers)
	assert.Equal(t, []string{"linear"}, o.SamplerObjects)
	assert.Equal(t, []string{"video"}, o.ExternalTextures)
	assert.Equal(t, []string{"worldViewProjection", "alpha"}, o.Uniforms)
}

func TestOptionsCloneIsDeep(t *testing.T) {
	o := DefaultOptions()
	c := o.Clone()
	c.Attributes[0] = "changed"
	*c.UseClipPlane = true
	c.SetDefine("X", true)

	assert.Equal(t, "position", o.Attributes[0])
	assert.False(t, *o.UseClipPlane)
	assert.Empty(t, o.Defines)
}

func TestBuildBlock(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	values := uniform.NewRegistry(nil)
	values.Set("alpha", uniform.Float(1))
	values.Set("lights", uniform.Vector4Array(make([]mgl32.Vec4, 3)))
	values.Set("normalMatrix", uniform.Matrix3x3(mgl32.Ident3()))
	values.Set("diffuseSampler", uniform.TextureValue(&fakeTexture{name: "t"}))

	res := defines.Result{Defines: defines.NewSet("#define BonesPerMesh 5"), NumMorphInfluencers: 2}
	tint := NewTint()
	tint.Enabled = true
	names := []string{"worldViewProjection", "alpha", "alpha", "lights", "normalMatrix", "diffuseSampler", "mBones", "morphTargetInfluences", "unknown"}

	block := buildBlock(logger, names, res, values, []Plugin{tint})
	require.Equal(t, "Material", block.Name)
	assert.Equal(t, []shader.Field{
		{Name: "worldViewProjection", Type: shader.TypeMat4},
		{Name: "alpha", Type: shader.TypeFloat},
		{Name: "lights", Type: shader.TypeVec4, ArraySize: 3},
		{Name: "normalMatrix", Type: shader.TypeMat3},
		{Name: "mBones", Type: shader.TypeMat4, ArraySize: 5},
		{Name: "morphTargetInfluences", Type: shader.TypeFloat, ArraySize: 2},
		{Name: "unknown", Type: shader.TypeVec4},
		{Name: "tintColor", Type: shader.TypeVec4},
	}, block.Fields)
}

func TestOverlayPlugin(t *testing.T) {
	o := NewOverlay()
	set := defines.NewSet()
	o.PrepareDefines(set)
	assert.False(t, set.Has("OVERLAY"))
	assert.Empty(t, o.Uniforms())

	o.Enabled = true
	o.PrepareDefines(set)
	assert.True(t, set.Has("OVERLAY"))
	require.Len(t, o.Uniforms(), 1)

	c := o.Clone().(*Overlay)
	c.Enabled = false
	assert.True(t, o.Enabled)
}
