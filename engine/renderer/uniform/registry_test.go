package uniform

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexture struct {
	name  string
	ready bool
}

func (t *fakeTexture) Name() string  { return t.name }
func (t *fakeTexture) IsReady() bool { return t.ready }

type fakeBuffer string

func (b fakeBuffer) Name() string { return string(b) }

type recordingRegistrar struct {
	calls []string
}

func (r *recordingRegistrar) RegisterName(kind Kind, name string) {
	r.calls = append(r.calls, kind.String()+":"+name)
}

func TestSetReportsChangesAndRegisters(t *testing.T) {
	reg := &recordingRegistrar{}
	r := NewRegistry(reg)
	c := mgl32.Vec3{1, 0, 0}

	assert.True(t, r.Set("color", Color3(c)))
	assert.False(t, r.Set("color", Color3(c)), "same value twice is not a change")
	assert.True(t, r.Set("color", Color3(mgl32.Vec3{0, 1, 0})))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"color3:color", "color3:color", "color3:color"}, reg.calls)

	v, ok := r.Get(KindColor3, "color")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1, 0}, v.Floats())
}

func TestEachFollowsFlushOrder(t *testing.T) {
	r := NewRegistry(nil)
	tex := &fakeTexture{name: "diffuse", ready: true}

	r.Set("storage", StorageBuffer(fakeBuffer("particles")))
	r.Set("world", Matrix(mgl32.Ident4()))
	r.Set("scene", UniformBuffer(fakeBuffer("scene")))
	r.Set("alpha", Float(0.5))
	r.Set("offset", Vector2(mgl32.Vec2{1, 2}))
	r.Set("tint", Color4(mgl32.Vec4{1, 1, 1, 1}))
	r.Set("count", Int(3))
	r.Set("base", Color3(mgl32.Vec3{1, 1, 1}))
	r.Set("diffuseSampler", TextureValue(tex))
	r.Set("beta", Float(0.25))

	var names []string
	r.Each(func(name string, _ Value) bool {
		names = append(names, name)
		return true
	})
	assert.Equal(t, []string{
		"diffuseSampler", "count", "alpha", "beta", "base", "tint", "offset", "world", "scene", "storage",
	}, names)
}

func TestEachStops(t *testing.T) {
	r := NewRegistry(nil)
	r.Set("a", Float(1))
	r.Set("b", Float(2))

	n := 0
	r.Each(func(string, Value) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n)
}

func TestRemoveOnlyTextures(t *testing.T) {
	r := NewRegistry(nil)
	r.Set("diffuse", TextureValue(&fakeTexture{name: "d"}))
	r.Set("layers", TextureArray([]Texture{&fakeTexture{name: "l0"}}))
	r.Set("alpha", Float(1))

	assert.True(t, r.Remove("diffuse"))
	assert.True(t, r.Remove("layers"))
	assert.False(t, r.Remove("alpha"))
	assert.False(t, r.Remove("missing"))

	_, ok := r.Lookup("alpha")
	assert.True(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestTexturesAndReadiness(t *testing.T) {
	r := NewRegistry(nil)
	a := &fakeTexture{name: "a", ready: true}
	b := &fakeTexture{name: "b"}
	r.Set("a", TextureValue(a))
	r.Set("b", ExternalTexture(b))

	assert.Equal(t, []Texture{a, b}, r.Textures())
	v, _ := r.Get(KindExternalTexture, "b")
	assert.False(t, v.IsReady())
	b.ready = true
	assert.True(t, v.IsReady())
}

func TestClone(t *testing.T) {
	r := NewRegistry(nil)
	r.Set("alpha", Float(1))
	c := r.Clone(nil)
	c.Set("alpha", Float(2))

	v, _ := r.Get(KindFloat, "alpha")
	assert.Equal(t, float32(1), v.Float())
	v, _ = c.Get(KindFloat, "alpha")
	assert.Equal(t, float32(2), v.Float())
}

func TestValueAccessors(t *testing.T) {
	q := mgl32.QuatIdent()
	assert.Equal(t, []float32{0, 0, 0, 1}, Quaternion(q).Floats())
	assert.Len(t, MatrixArray([]mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()}).Floats(), 32)
	assert.Equal(t, []float32{3, 4}, Ints([]int32{3, 4}).Numbers())
	assert.Equal(t, []int32{-16777217, 5}, Ints([]int32{-16777217, 5}).Ints())
	assert.Equal(t, uint32(0xFFFFFFFF), Uint(0xFFFFFFFF).Uint())
	v := FromFloats(KindVector2, []float32{1, 2})
	assert.Equal(t, KindVector2, v.Kind())
	assert.Equal(t, []float32{1, 2}, v.Floats())
	assert.Equal(t, mgl32.Ident4(), Float(1).Matrix())
	assert.True(t, Int(2).Equal(Int(2)))
	assert.False(t, Int(2).Equal(Float(2)))
	assert.Equal(t, "storageBuffer", KindStorageBuffer.String())
}
