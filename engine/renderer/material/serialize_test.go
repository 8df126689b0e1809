package material

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-fx/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	r, _ := newTestRenderer(t)
	sc := scene.NewScene(nil)
	albedo := &fakeTexture{name: "albedo.png", ready: true}
	m := newTestMaterial(r, sc, WithStoreEffectOnSubMeshes(false))
	m.SetDefine("FOO", 2)
	m.SetFloat("alpha", 0.25)
	m.SetInt("mode", 3)
	m.SetColor3("tint", mgl32.Vec3{1, 0.5, 0})
	m.SetMatrix("offset", mgl32.Translate3D(1, 2, 3))
	m.SetArray2("points", []mgl32.Vec2{{1, 2}, {3, 4}})
	m.SetTexture("diffuseSampler", albedo)

	data, err := Marshal(m)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "oxy.ShaderMaterial", doc["customType"])
	assert.Equal(t, "default", doc["shaderPath"])
	assert.Equal(t, map[string]any{"diffuseSampler": "albedo.png"}, doc["textures"])

	resolve := func(name string) (uniform.Texture, error) {
		if name == albedo.name {
			return albedo, nil
		}
		return nil, fmt.Errorf("no texture %q", name)
	}
	back, err := Parse(data, r, sc, resolve)
	require.NoError(t, err)
	assert.Equal(t, m.Name(), back.Name())
	assert.Equal(t, m.ShaderName(), back.ShaderName())
	assert.Equal(t, m.Options().Defines, back.Options().Defines)
	assert.ElementsMatch(t, m.Options().Uniforms, back.Options().Uniforms)
	assert.Equal(t, m.Options().Samplers, back.Options().Samplers)

	for _, name := range []string{"alpha", "mode", "tint", "offset", "points", "diffuseSampler"} {
		want, ok := m.Values().Lookup(name)
		require.True(t, ok, name)
		got, ok := back.Values().Lookup(name)
		require.True(t, ok, name)
		assert.True(t, want.Equal(got), name)
	}
	assert.True(t, back.HasTexture(albedo))
}

func entryNames(entries []uniform.Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestSerializeKeepsIntegerPrecision(t *testing.T) {
	r, _ := newTestRenderer(t)
	m := newTestMaterial(r, nil)
	m.SetInt("seed", 16777217)
	m.SetInt("offset", -2147483648)
	m.SetInts("lut", []int32{2147483647, -16777219, 0})
	m.SetUint("mask", 0xFFFFFFFF)

	data, err := Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"seed":16777217`)
	assert.Contains(t, string(data), `"mask":4294967295`)

	back, err := Parse(data, r, nil, nil)
	require.NoError(t, err)
	v, ok := back.Values().Get(uniform.KindInt, "seed")
	require.True(t, ok)
	assert.Equal(t, int32(16777217), v.Int())
	v, _ = back.Values().Get(uniform.KindInt, "offset")
	assert.Equal(t, int32(-2147483648), v.Int())
	v, _ = back.Values().Get(uniform.KindIntArray, "lut")
	assert.Equal(t, []int32{2147483647, -16777219, 0}, v.Ints())
	v, ok = back.Values().Get(uniform.KindUint, "mask")
	require.True(t, ok)
	assert.Equal(t, uint32(0xFFFFFFFF), v.Uint())
}

func TestSerializeKeepsFlushOrder(t *testing.T) {
	r, _ := newTestRenderer(t)
	m := newTestMaterial(r, nil)
	m.SetFloat("zeta", 1)
	m.SetFloat("alpha", 2)
	m.SetFloat("mid", 3)
	m.SetInt("zeta", 4)
	m.SetInt("beta", 5)

	data, err := Marshal(m)
	require.NoError(t, err)
	back, err := Parse(data, r, nil, nil)
	require.NoError(t, err)

	for _, kind := range []uniform.Kind{uniform.KindFloat, uniform.KindInt} {
		assert.Equal(t, entryNames(m.Values().Entries(kind)), entryNames(back.Values().Entries(kind)), kind.String())
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, entryNames(back.Values().Entries(uniform.KindFloat)))

	// Documents without an order restore by name.
	legacy := `{"name": "old", "shaderPath": "default", "options": {"shaderLanguage": "wgsl"}, "floats": {"b": [1], "a": [2]}}`
	old, err := Parse([]byte(legacy), r, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entryNames(old.Values().Entries(uniform.KindFloat)))
}

func TestParseReportsEveryInvalidEntry(t *testing.T) {
	r, _ := newTestRenderer(t)
	doc := `{
		"customType": "oxy.ShaderMaterial",
		"name": "broken",
		"shaderPath": "default",
		"options": {"attributes": ["position"], "uniforms": [], "shaderLanguage": "wgsl"},
		"textures": {"diffuseSampler": "missing.png"},
		"floats": {"alpha": [1, 2], "beta": [0.5]},
		"colors3": {"tint": [1, 1]}
	}`

	m, err := Parse([]byte(doc), r, nil, func(name string) (uniform.Texture, error) {
		return nil, errors.New("not found")
	})
	require.Error(t, err)
	require.NotNil(t, m)
	assert.ErrorContains(t, err, "texture diffuseSampler")
	assert.ErrorContains(t, err, "alpha")
	assert.ErrorContains(t, err, "tint")

	v, ok := m.Values().Get(uniform.KindFloat, "beta")
	require.True(t, ok)
	assert.Equal(t, float32(0.5), v.Float())
	_, ok = m.Values().Lookup("alpha")
	assert.False(t, ok)
}

func TestParseRejectsOtherMaterials(t *testing.T) {
	r, _ := newTestRenderer(t)

	_, err := Parse([]byte(`{"customType": "oxy.PBRMaterial"}`), r, nil, nil)
	assert.ErrorIs(t, err, ErrNotShaderMaterial)

	_, err = Parse([]byte(`{`), r, nil, nil)
	assert.Error(t, err)
}

func TestParseWithoutResolverSkipsTextures(t *testing.T) {
	r, _ := newTestRenderer(t)
	s := Serialized{
		CustomType: customType,
		Name:       "plain",
		ShaderPath: "default",
		Options:    DefaultOptions(),
		Textures:   map[string]string{"diffuseSampler": "albedo.png"},
		Ints:       map[string][]float32{"mode": {2}},
	}
	m, err := FromSerialized(s, r, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, m.ActiveTextures())
	v, ok := m.Values().Get(uniform.KindInt, "mode")
	require.True(t, ok)
	assert.Equal(t, int32(2), v.Int())
}
