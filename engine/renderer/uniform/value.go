// Package uniform holds the per-material table of named uniform, texture and buffer values.
// Values are a tagged variant so a table can be flushed to any backend in a fixed order
// without reflection.
package uniform

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies the type carried by a Value. The declaration order is the flush order:
// textures, ints, floats, color3, color4, vectors, matrices, uniform buffers, then external
// textures, samplers and storage buffers.
type Kind int

const (
	KindTexture Kind = iota
	KindTextureArray
	KindInt
	KindIntArray
	KindUint
	KindFloat
	KindFloatArray
	KindColor3
	KindColor3Array
	KindColor4
	KindColor4Array
	KindVector2
	KindVector3
	KindVector4
	KindQuaternion
	KindVector2Array
	KindVector3Array
	KindVector4Array
	KindQuaternionArray
	KindMatrix
	KindMatrixArray
	KindMatrix3x3
	KindMatrix2x2
	KindUniformBuffer
	KindExternalTexture
	KindSampler
	KindStorageBuffer

	kindCount
)

var kindNames = [kindCount]string{
	"texture", "textureArray", "int", "intArray", "uint", "float", "floatArray",
	"color3", "color3Array", "color4", "color4Array",
	"vector2", "vector3", "vector4", "quaternion",
	"vector2Array", "vector3Array", "vector4Array", "quaternionArray",
	"matrix", "matrixArray", "matrix3x3", "matrix2x2",
	"uniformBuffer", "externalTexture", "sampler", "storageBuffer",
}

// String returns the name of the kind as used in serialized materials.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds returns every kind in flush order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// IsTexture reports whether the kind holds textures that gate readiness.
func (k Kind) IsTexture() bool {
	return k == KindTexture || k == KindTextureArray || k == KindExternalTexture
}

// Texture is a GPU texture owned by the application. Readiness gates material readiness.
type Texture interface {
	// Name identifies the texture for serialization.
	Name() string

	// IsReady reports whether the texture data is uploaded and can be sampled.
	IsReady() bool
}

// Buffer is a GPU buffer owned by the application (uniform or storage).
type Buffer interface {
	Name() string
}

// Sampler is a GPU sampler object owned by the application.
type Sampler interface {
	Name() string
}

// Value is a tagged variant holding one uniform value. Numeric kinds store their components
// in floats/ints, resources are stored by reference. The zero Value is a texture value with no texture.
type Value struct {
	kind     Kind
	floats   []float32
	ints     []int32
	uints    []uint32
	textures []Texture
	buffer   Buffer
	sampler  Sampler
}

// Constructors for every kind. Slice arguments are copied.

func Float(f float32) Value         { return Value{kind: KindFloat, floats: []float32{f}} }
func Floats(f []float32) Value      { return Value{kind: KindFloatArray, floats: slices.Clone(f)} }
func Int(i int32) Value             { return Value{kind: KindInt, ints: []int32{i}} }
func Ints(i []int32) Value          { return Value{kind: KindIntArray, ints: slices.Clone(i)} }
func Uint(u uint32) Value           { return Value{kind: KindUint, uints: []uint32{u}} }
func Color3(c mgl32.Vec3) Value     { return Value{kind: KindColor3, floats: c[:]} }
func Color4(c mgl32.Vec4) Value     { return Value{kind: KindColor4, floats: c[:]} }
func Vector2(v mgl32.Vec2) Value    { return Value{kind: KindVector2, floats: v[:]} }
func Vector3(v mgl32.Vec3) Value    { return Value{kind: KindVector3, floats: v[:]} }
func Vector4(v mgl32.Vec4) Value    { return Value{kind: KindVector4, floats: v[:]} }
func Matrix(m mgl32.Mat4) Value     { return Value{kind: KindMatrix, floats: m[:]} }
func Matrix3x3(m mgl32.Mat3) Value  { return Value{kind: KindMatrix3x3, floats: m[:]} }
func Matrix2x2(m mgl32.Mat2) Value  { return Value{kind: KindMatrix2x2, floats: m[:]} }
func UniformBuffer(b Buffer) Value  { return Value{kind: KindUniformBuffer, buffer: b} }
func StorageBuffer(b Buffer) Value  { return Value{kind: KindStorageBuffer, buffer: b} }
func SamplerObject(s Sampler) Value { return Value{kind: KindSampler, sampler: s} }
func TextureValue(t Texture) Value  { return Value{kind: KindTexture, textures: []Texture{t}} }
func ExternalTexture(t Texture) Value {
	return Value{kind: KindExternalTexture, textures: []Texture{t}}
}
func TextureArray(t []Texture) Value { return Value{kind: KindTextureArray, textures: slices.Clone(t)} }

// Quaternion stores q as (x, y, z, w).
func Quaternion(q mgl32.Quat) Value {
	return Value{kind: KindQuaternion, floats: []float32{q.V[0], q.V[1], q.V[2], q.W}}
}

func Color3Array(c []mgl32.Vec3) Value  { return Value{kind: KindColor3Array, floats: flattenVec3(c)} }
func Color4Array(c []mgl32.Vec4) Value  { return Value{kind: KindColor4Array, floats: flattenVec4(c)} }
func Vector2Array(v []mgl32.Vec2) Value { return Value{kind: KindVector2Array, floats: flattenVec2(v)} }
func Vector3Array(v []mgl32.Vec3) Value { return Value{kind: KindVector3Array, floats: flattenVec3(v)} }
func Vector4Array(v []mgl32.Vec4) Value { return Value{kind: KindVector4Array, floats: flattenVec4(v)} }

// QuaternionArray stores each quaternion as (x, y, z, w).
func QuaternionArray(q []mgl32.Quat) Value {
	out := make([]float32, 0, len(q)*4)
	for _, v := range q {
		out = append(out, v.V[0], v.V[1], v.V[2], v.W)
	}
	return Value{kind: KindQuaternionArray, floats: out}
}

// MatrixArray flattens the matrices in column-major order.
func MatrixArray(m []mgl32.Mat4) Value {
	out := make([]float32, 0, len(m)*16)
	for _, v := range m {
		out = append(out, v[:]...)
	}
	return Value{kind: KindMatrixArray, floats: out}
}

// FromFloats builds a float based value of the given kind from its flattened components.
// It is used when decoding serialized materials; integer kinds are built with Int, Ints and Uint.
func FromFloats(kind Kind, f []float32) Value {
	return Value{kind: kind, floats: slices.Clone(f)}
}

// Kind returns the type tag of the value.
func (v Value) Kind() Kind { return v.kind }

// Floats returns the float components. Callers must not modify the slice.
func (v Value) Floats() []float32 { return v.floats }

// Float returns the first float component, or 0.
func (v Value) Float() float32 {
	if len(v.floats) == 0 {
		return 0
	}
	return v.floats[0]
}

// Ints returns the int components. Callers must not modify the slice.
func (v Value) Ints() []int32 { return v.ints }

// Int returns the first int component, or 0.
func (v Value) Int() int32 {
	if len(v.ints) == 0 {
		return 0
	}
	return v.ints[0]
}

// Uint returns the first uint component, or 0.
func (v Value) Uint() uint32 {
	if len(v.uints) == 0 {
		return 0
	}
	return v.uints[0]
}

// Numbers returns the numeric components widened to float32 whatever the kind.
func (v Value) Numbers() []float32 {
	switch {
	case v.ints != nil:
		out := make([]float32, len(v.ints))
		for i, n := range v.ints {
			out[i] = float32(n)
		}
		return out
	case v.uints != nil:
		out := make([]float32, len(v.uints))
		for i, n := range v.uints {
			out[i] = float32(n)
		}
		return out
	}
	return v.floats
}

// Texture returns the first texture of a texture or external texture value.
func (v Value) Texture() Texture {
	if len(v.textures) == 0 {
		return nil
	}
	return v.textures[0]
}

// Textures returns every texture of the value.
func (v Value) Textures() []Texture { return v.textures }

// Buffer returns the buffer of a uniform or storage buffer value.
func (v Value) Buffer() Buffer { return v.buffer }

// Sampler returns the sampler of a sampler value.
func (v Value) Sampler() Sampler { return v.sampler }

// Matrix returns the value as a 4x4 matrix. Non-matrix values return the identity.
func (v Value) Matrix() mgl32.Mat4 {
	if v.kind != KindMatrix || len(v.floats) != 16 {
		return mgl32.Ident4()
	}
	var m mgl32.Mat4
	copy(m[:], v.floats)
	return m
}

// IsReady reports whether every texture referenced by the value is ready.
func (v Value) IsReady() bool {
	for _, t := range v.textures {
		if t == nil || !t.IsReady() {
			return false
		}
	}
	return true
}

// Equal reports whether both values have the same kind and contents. Resources compare by identity.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind &&
		slices.Equal(v.floats, o.floats) &&
		slices.Equal(v.ints, o.ints) &&
		slices.Equal(v.uints, o.uints) &&
		slices.Equal(v.textures, o.textures) &&
		v.buffer == o.buffer &&
		v.sampler == o.sampler
}

func flattenVec2(v []mgl32.Vec2) []float32 {
	out := make([]float32, 0, len(v)*2)
	for _, e := range v {
		out = append(out, e[:]...)
	}
	return out
}

func flattenVec3(v []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(v)*3)
	for _, e := range v {
		out = append(out, e[:]...)
	}
	return out
}

func flattenVec4(v []mgl32.Vec4) []float32 {
	out := make([]float32, 0, len(v)*4)
	for _, e := range v {
		out = append(out, e[:]...)
	}
	return out
}
