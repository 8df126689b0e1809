package material

import (
	"log/slog"
	"strconv"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
)

// blockName is the name of the generated material uniform block.
const blockName = "Material"

// builtinTypes are the types of the uniforms filled in by Bind rather than by material values.
var builtinTypes = map[string]shader.UniformType{
	"world":                        shader.TypeMat4,
	"view":                         shader.TypeMat4,
	"projection":                   shader.TypeMat4,
	"viewProjection":               shader.TypeMat4,
	"viewProjectionR":              shader.TypeMat4,
	"worldView":                    shader.TypeMat4,
	"worldViewProjection":          shader.TypeMat4,
	"cameraPosition":               shader.TypeVec3,
	"logarithmicDepthConstant":     shader.TypeFloat,
	"vFogInfos":                    shader.TypeVec4,
	"vFogColor":                    shader.TypeVec3,
	"vClipPlane":                   shader.TypeVec4,
	"vClipPlane2":                  shader.TypeVec4,
	"vClipPlane3":                  shader.TypeVec4,
	"vClipPlane4":                  shader.TypeVec4,
	"vClipPlane5":                  shader.TypeVec4,
	"vClipPlane6":                  shader.TypeVec4,
	"boneTextureWidth":             shader.TypeFloat,
	"morphTargetTextureInfo":       shader.TypeVec3,
	"bakedVertexAnimationSettings": shader.TypeVec4,
	"bakedVertexAnimationTextureSizeInverted": shader.TypeVec2,
	"bakedVertexAnimationTime":                shader.TypeFloat,
}

// buildBlock derives the uniform block of a variant from the collected uniform names. Built-in
// names use the fixed type table, array sizes come from the resolved defines and every other name
// takes its type from the material value set under it. Names without a value are declared vec4.
func buildBlock(logger *slog.Logger, names []string, res defines.Result, values uniform.Registry, plugins []Plugin) shader.Block {
	block := shader.Block{Name: blockName}
	seen := make(map[string]bool, len(names))
	add := func(f shader.Field) {
		if seen[f.Name] {
			return
		}
		seen[f.Name] = true
		block.Fields = append(block.Fields, f)
	}

	for _, name := range names {
		switch name {
		case "mBones":
			bones := 1
			if v, ok := res.Defines.Value("BonesPerMesh"); ok {
				if n, err := strconv.Atoi(v); err == nil && n > 0 {
					bones = n
				}
			}
			add(shader.Field{Name: name, Type: shader.TypeMat4, ArraySize: bones})
			continue
		case "morphTargetInfluences", "morphTargetTextureIndices":
			add(shader.Field{Name: name, Type: shader.TypeFloat, ArraySize: max(res.NumMorphInfluencers, 1)})
			continue
		}
		if t, ok := builtinTypes[name]; ok {
			add(shader.Field{Name: name, Type: t})
			continue
		}
		v, ok := values.Lookup(name)
		if !ok {
			logger.Warn("uniform has no value, declared as vec4", "uniform", name)
			add(shader.Field{Name: name, Type: shader.TypeVec4})
			continue
		}
		if f, ok := fieldFor(name, v); ok {
			add(f)
		}
	}

	for _, p := range plugins {
		for _, f := range p.Uniforms() {
			add(f)
		}
	}
	return block
}

// fieldFor returns the block field holding v. Resource kinds have no field.
func fieldFor(name string, v uniform.Value) (shader.Field, bool) {
	f := shader.Field{Name: name}
	n := len(v.Numbers())
	switch v.Kind() {
	case uniform.KindInt:
		f.Type = shader.TypeInt
	case uniform.KindIntArray:
		f.Type, f.ArraySize = shader.TypeInt, max(n, 1)
	case uniform.KindUint:
		f.Type = shader.TypeUint
	case uniform.KindFloat:
		f.Type = shader.TypeFloat
	case uniform.KindFloatArray:
		f.Type, f.ArraySize = shader.TypeFloat, max(n, 1)
	case uniform.KindVector2:
		f.Type = shader.TypeVec2
	case uniform.KindVector2Array:
		f.Type, f.ArraySize = shader.TypeVec2, max(n/2, 1)
	case uniform.KindColor3, uniform.KindVector3:
		f.Type = shader.TypeVec3
	case uniform.KindColor3Array, uniform.KindVector3Array:
		f.Type, f.ArraySize = shader.TypeVec3, max(n/3, 1)
	case uniform.KindColor4, uniform.KindVector4, uniform.KindQuaternion:
		f.Type = shader.TypeVec4
	case uniform.KindColor4Array, uniform.KindVector4Array, uniform.KindQuaternionArray:
		f.Type, f.ArraySize = shader.TypeVec4, max(n/4, 1)
	case uniform.KindMatrix:
		f.Type = shader.TypeMat4
	case uniform.KindMatrixArray:
		f.Type, f.ArraySize = shader.TypeMat4, max(n/16, 1)
	case uniform.KindMatrix3x3:
		f.Type = shader.TypeMat3
	case uniform.KindMatrix2x2:
		f.Type = shader.TypeMat2
	default:
		return f, false
	}
	return f, true
}
