package material

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/go-gl/mathgl/mgl32"
)

func (m *shaderMaterial) Set(name string, v uniform.Value) bool {
	return m.values.Set(name, v)
}

func (m *shaderMaterial) SetTexture(name string, t uniform.Texture) {
	m.values.Set(name, uniform.TextureValue(t))
}

func (m *shaderMaterial) SetTextureArray(name string, t []uniform.Texture) {
	m.values.Set(name, uniform.TextureArray(t))
}

func (m *shaderMaterial) SetExternalTexture(name string, t uniform.Texture) {
	m.values.Set(name, uniform.ExternalTexture(t))
}

func (m *shaderMaterial) SetSampler(name string, s uniform.Sampler) {
	m.values.Set(name, uniform.SamplerObject(s))
}

func (m *shaderMaterial) SetUniformBuffer(name string, b uniform.Buffer) {
	m.values.Set(name, uniform.UniformBuffer(b))
}

func (m *shaderMaterial) SetStorageBuffer(name string, b uniform.Buffer) {
	m.values.Set(name, uniform.StorageBuffer(b))
}

func (m *shaderMaterial) SetInt(name string, v int32)        { m.values.Set(name, uniform.Int(v)) }
func (m *shaderMaterial) SetInts(name string, v []int32)     { m.values.Set(name, uniform.Ints(v)) }
func (m *shaderMaterial) SetUint(name string, v uint32)      { m.values.Set(name, uniform.Uint(v)) }
func (m *shaderMaterial) SetFloat(name string, v float32)    { m.values.Set(name, uniform.Float(v)) }
func (m *shaderMaterial) SetFloats(name string, v []float32) { m.values.Set(name, uniform.Floats(v)) }

func (m *shaderMaterial) SetColor3(name string, c mgl32.Vec3) { m.values.Set(name, uniform.Color3(c)) }
func (m *shaderMaterial) SetColor4(name string, c mgl32.Vec4) { m.values.Set(name, uniform.Color4(c)) }

func (m *shaderMaterial) SetColor3Array(name string, c []mgl32.Vec3) {
	m.values.Set(name, uniform.Color3Array(c))
}

func (m *shaderMaterial) SetColor4Array(name string, c []mgl32.Vec4) {
	m.values.Set(name, uniform.Color4Array(c))
}

func (m *shaderMaterial) SetVector2(name string, v mgl32.Vec2) {
	m.values.Set(name, uniform.Vector2(v))
}

func (m *shaderMaterial) SetVector3(name string, v mgl32.Vec3) {
	m.values.Set(name, uniform.Vector3(v))
}

func (m *shaderMaterial) SetVector4(name string, v mgl32.Vec4) {
	m.values.Set(name, uniform.Vector4(v))
}

func (m *shaderMaterial) SetQuaternion(name string, q mgl32.Quat) {
	m.values.Set(name, uniform.Quaternion(q))
}

func (m *shaderMaterial) SetMatrix(name string, mat mgl32.Mat4) {
	m.values.Set(name, uniform.Matrix(mat))
}

func (m *shaderMaterial) SetMatrices(name string, mats []mgl32.Mat4) {
	m.values.Set(name, uniform.MatrixArray(mats))
}

func (m *shaderMaterial) SetMatrix3x3(name string, mat mgl32.Mat3) {
	m.values.Set(name, uniform.Matrix3x3(mat))
}

func (m *shaderMaterial) SetMatrix2x2(name string, mat mgl32.Mat2) {
	m.values.Set(name, uniform.Matrix2x2(mat))
}

func (m *shaderMaterial) SetArray2(name string, v []mgl32.Vec2) {
	m.values.Set(name, uniform.Vector2Array(v))
}

func (m *shaderMaterial) SetArray3(name string, v []mgl32.Vec3) {
	m.values.Set(name, uniform.Vector3Array(v))
}

func (m *shaderMaterial) SetArray4(name string, v []mgl32.Vec4) {
	m.values.Set(name, uniform.Vector4Array(v))
}

func (m *shaderMaterial) SetQuaternionArray(name string, q []mgl32.Quat) {
	m.values.Set(name, uniform.QuaternionArray(q))
}

func (m *shaderMaterial) RemoveTexture(name string) bool {
	return m.values.Remove(name)
}

func (m *shaderMaterial) ActiveTextures() []uniform.Texture {
	return m.values.Textures()
}

func (m *shaderMaterial) HasTexture(t uniform.Texture) bool {
	if t == nil {
		return false
	}
	for _, have := range m.values.Textures() {
		if have == t {
			return true
		}
	}
	return false
}
