package material

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-fx/engine/scene"
)

// customType tags serialized shader materials.
const customType = "oxy.ShaderMaterial"

// ErrNotShaderMaterial is returned by Parse for documents of another material type.
var ErrNotShaderMaterial = errors.New("not a shader material")

// Serialized is the persisted form of a shader material. Numeric values are stored per kind as
// flattened components, integers in their own integer fields; textures are stored by name and
// resolved again when parsing. Buffers and sampler objects are runtime resources and are not
// persisted. Order lists the value names in insertion order so a parsed material flushes its
// values in the same order as the original.
type Serialized struct {
	CustomType             string  `json:"customType"`
	Name                   string  `json:"name"`
	ShaderPath             string  `json:"shaderPath"`
	Options                Options `json:"options"`
	StoreEffectOnSubMeshes bool    `json:"storeEffectOnSubMeshes"`

	Textures      map[string]string   `json:"textures,omitempty"`
	TextureArrays map[string][]string `json:"textureArrays,omitempty"`

	Ints      map[string]int32   `json:"ints,omitempty"`
	IntArrays map[string][]int32 `json:"intArrays,omitempty"`
	Uints     map[string]uint32  `json:"uints,omitempty"`

	Floats            map[string][]float32 `json:"floats,omitempty"`
	FloatArrays       map[string][]float32 `json:"floatsArrays,omitempty"`
	Colors3           map[string][]float32 `json:"colors3,omitempty"`
	Colors3Arrays     map[string][]float32 `json:"colors3Arrays,omitempty"`
	Colors4           map[string][]float32 `json:"colors4,omitempty"`
	Colors4Arrays     map[string][]float32 `json:"colors4Arrays,omitempty"`
	Vectors2          map[string][]float32 `json:"vectors2,omitempty"`
	Vectors3          map[string][]float32 `json:"vectors3,omitempty"`
	Vectors4          map[string][]float32 `json:"vectors4,omitempty"`
	Quaternions       map[string][]float32 `json:"quaternions,omitempty"`
	Vectors2Arrays    map[string][]float32 `json:"vectors2Arrays,omitempty"`
	Vectors3Arrays    map[string][]float32 `json:"vectors3Arrays,omitempty"`
	Vectors4Arrays    map[string][]float32 `json:"vectors4Arrays,omitempty"`
	QuaternionsArrays map[string][]float32 `json:"quaternionsArrays,omitempty"`
	Matrices          map[string][]float32 `json:"matrices,omitempty"`
	MatrixArrays      map[string][]float32 `json:"matrixArray,omitempty"`
	Matrices3x3       map[string][]float32 `json:"matrices3x3,omitempty"`
	Matrices2x2       map[string][]float32 `json:"matrices2x2,omitempty"`

	Order []string `json:"order,omitempty"`
}

// numeric returns the field holding float values of kind, nil for integer and resource kinds.
func (s *Serialized) numeric(kind uniform.Kind) *map[string][]float32 {
	switch kind {
	case uniform.KindFloat:
		return &s.Floats
	case uniform.KindFloatArray:
		return &s.FloatArrays
	case uniform.KindColor3:
		return &s.Colors3
	case uniform.KindColor3Array:
		return &s.Colors3Arrays
	case uniform.KindColor4:
		return &s.Colors4
	case uniform.KindColor4Array:
		return &s.Colors4Arrays
	case uniform.KindVector2:
		return &s.Vectors2
	case uniform.KindVector3:
		return &s.Vectors3
	case uniform.KindVector4:
		return &s.Vectors4
	case uniform.KindQuaternion:
		return &s.Quaternions
	case uniform.KindVector2Array:
		return &s.Vectors2Arrays
	case uniform.KindVector3Array:
		return &s.Vectors3Arrays
	case uniform.KindVector4Array:
		return &s.Vectors4Arrays
	case uniform.KindQuaternionArray:
		return &s.QuaternionsArrays
	case uniform.KindMatrix:
		return &s.Matrices
	case uniform.KindMatrixArray:
		return &s.MatrixArrays
	case uniform.KindMatrix3x3:
		return &s.Matrices3x3
	case uniform.KindMatrix2x2:
		return &s.Matrices2x2
	}
	return nil
}

// componentCounts are the component counts of the fixed size kinds, checked when parsing.
var componentCounts = map[uniform.Kind]int{
	uniform.KindFloat:      1,
	uniform.KindColor3:     3,
	uniform.KindColor4:     4,
	uniform.KindVector2:    2,
	uniform.KindVector3:    3,
	uniform.KindVector4:    4,
	uniform.KindQuaternion: 4,
	uniform.KindMatrix:     16,
	uniform.KindMatrix3x3:  9,
	uniform.KindMatrix2x2:  4,
}

func (m *shaderMaterial) Serialize() Serialized {
	s := Serialized{
		CustomType:             customType,
		Name:                   m.name,
		ShaderPath:             m.shader,
		Options:                m.options.Clone(),
		StoreEffectOnSubMeshes: m.storeEffectOnSubMeshes,
	}
	m.values.Each(func(name string, v uniform.Value) bool {
		switch v.Kind() {
		case uniform.KindInt:
			if s.Ints == nil {
				s.Ints = make(map[string]int32)
			}
			s.Ints[name] = v.Int()
		case uniform.KindIntArray:
			if s.IntArrays == nil {
				s.IntArrays = make(map[string][]int32)
			}
			s.IntArrays[name] = slices.Clone(v.Ints())
		case uniform.KindUint:
			if s.Uints == nil {
				s.Uints = make(map[string]uint32)
			}
			s.Uints[name] = v.Uint()
		case uniform.KindTexture:
			if t := v.Texture(); t != nil {
				if s.Textures == nil {
					s.Textures = make(map[string]string)
				}
				s.Textures[name] = t.Name()
			}
		case uniform.KindTextureArray:
			if s.TextureArrays == nil {
				s.TextureArrays = make(map[string][]string)
			}
			names := make([]string, 0, len(v.Textures()))
			for _, t := range v.Textures() {
				if t != nil {
					names = append(names, t.Name())
				}
			}
			s.TextureArrays[name] = names
		default:
			field := s.numeric(v.Kind())
			if field == nil {
				return true
			}
			if *field == nil {
				*field = make(map[string][]float32)
			}
			(*field)[name] = slices.Clone(v.Floats())
		}
		s.Order = append(s.Order, name)
		return true
	})
	return s
}

// Marshal encodes the material through Serialize.
func Marshal(m ShaderMaterial) ([]byte, error) {
	return json.Marshal(m.Serialize())
}

type valueKey struct {
	kind uniform.Kind
	name string
}

// TextureResolver returns the texture persisted under name.
type TextureResolver func(name string) (uniform.Texture, error)

// Parse rebuilds a material from its JSON form. Every invalid entry is reported; the material is
// returned with the valid entries applied unless the document itself could not be decoded.
//
// Parameters:
//   - data: the JSON document
//   - r: the rendering context of the new material
//   - sc: the scene of the new material
//   - resolve: looks textures up by name, nil skips textures
//
// Returns:
//   - ShaderMaterial: the material
//   - error: the joined errors of every entry that could not be restored
func Parse(data []byte, r renderer.Renderer, sc *scene.Scene, resolve TextureResolver) (ShaderMaterial, error) {
	var s Serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode material: %w", err)
	}
	if s.CustomType != "" && s.CustomType != customType {
		return nil, fmt.Errorf("%w: %q", ErrNotShaderMaterial, s.CustomType)
	}
	return FromSerialized(s, r, sc, resolve)
}

// FromSerialized builds a material from its persisted form; see Parse.
func FromSerialized(s Serialized, r renderer.Renderer, sc *scene.Scene, resolve TextureResolver) (ShaderMaterial, error) {
	m := NewShaderMaterial(s.Name, r, sc, s.ShaderPath,
		WithOptions(s.Options),
		WithStoreEffectOnSubMeshes(s.StoreEffectOnSubMeshes),
	)

	var errs []error
	restored := make(map[valueKey]uniform.Value)
	if resolve != nil {
		for name, tn := range s.Textures {
			t, err := resolve(tn)
			if err != nil {
				errs = append(errs, fmt.Errorf("texture %s: %w", name, err))
				continue
			}
			restored[valueKey{uniform.KindTexture, name}] = uniform.TextureValue(t)
		}
		for name, names := range s.TextureArrays {
			var textures []uniform.Texture
			for _, tn := range names {
				t, err := resolve(tn)
				if err != nil {
					errs = append(errs, fmt.Errorf("texture array %s: %w", name, err))
					continue
				}
				textures = append(textures, t)
			}
			restored[valueKey{uniform.KindTextureArray, name}] = uniform.TextureArray(textures)
		}
	}

	for name, v := range s.Ints {
		restored[valueKey{uniform.KindInt, name}] = uniform.Int(v)
	}
	for name, v := range s.IntArrays {
		restored[valueKey{uniform.KindIntArray, name}] = uniform.Ints(v)
	}
	for name, v := range s.Uints {
		restored[valueKey{uniform.KindUint, name}] = uniform.Uint(v)
	}
	for _, kind := range uniform.Kinds() {
		field := s.numeric(kind)
		if field == nil {
			continue
		}
		for name, values := range *field {
			if want, ok := componentCounts[kind]; ok && len(values) != want {
				errs = append(errs, fmt.Errorf("%s %s: want %d components, got %d", kind, name, want, len(values)))
				continue
			}
			restored[valueKey{kind, name}] = uniform.FromFloats(kind, values)
		}
	}

	// Order follows the kind order, so the n-th occurrence of a name belongs to the n-th kind
	// holding it. Entries missing from Order fall back to name order.
	for _, name := range s.Order {
		for _, kind := range uniform.Kinds() {
			key := valueKey{kind, name}
			if v, ok := restored[key]; ok {
				m.Set(name, v)
				delete(restored, key)
				break
			}
		}
	}
	rest := slices.SortedFunc(maps.Keys(restored), func(a, b valueKey) int {
		if a.kind != b.kind {
			return int(a.kind) - int(b.kind)
		}
		return strings.Compare(a.name, b.name)
	})
	for _, key := range rest {
		m.Set(key.name, restored[key])
	}
	slices.SortFunc(errs, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })
	return m, errors.Join(errs...)
}
