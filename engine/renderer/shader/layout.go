package shader

import (
	"encoding/binary"
	"math"
	"strings"
)

// UniformType is the backend-agnostic type of a uniform block member.
type UniformType int

const (
	TypeFloat UniformType = iota
	TypeInt
	TypeUint
	TypeVec2
	TypeVec3
	TypeVec4
	TypeIVec4
	TypeMat2
	TypeMat3
	TypeMat4
)

// typeLayout holds the byte size and alignment of a type.
type typeLayout struct {
	size  uint64
	align uint64
}

// typeInfo describes one UniformType in both languages.
type typeInfo struct {
	glsl       string
	wgsl       string
	components int

	// columns is the number of matrix columns, 0 for non-matrix types.
	columns int

	std140 typeLayout
	wgslU  typeLayout
}

// uniformTypes follows the std140 rules for GLSL and the uniform address space rules for WGSL.
var uniformTypes = map[UniformType]typeInfo{
	TypeFloat: {glsl: "float", wgsl: "f32", components: 1, std140: typeLayout{4, 4}, wgslU: typeLayout{4, 4}},
	TypeInt:   {glsl: "int", wgsl: "i32", components: 1, std140: typeLayout{4, 4}, wgslU: typeLayout{4, 4}},
	TypeUint:  {glsl: "uint", wgsl: "u32", components: 1, std140: typeLayout{4, 4}, wgslU: typeLayout{4, 4}},
	TypeVec2:  {glsl: "vec2", wgsl: "vec2<f32>", components: 2, std140: typeLayout{8, 8}, wgslU: typeLayout{8, 8}},
	TypeVec3:  {glsl: "vec3", wgsl: "vec3<f32>", components: 3, std140: typeLayout{12, 16}, wgslU: typeLayout{12, 16}},
	TypeVec4:  {glsl: "vec4", wgsl: "vec4<f32>", components: 4, std140: typeLayout{16, 16}, wgslU: typeLayout{16, 16}},
	TypeIVec4: {glsl: "ivec4", wgsl: "vec4<i32>", components: 4, std140: typeLayout{16, 16}, wgslU: typeLayout{16, 16}},
	// std140 pads every matrix column to a vec4; WGSL only pads vec3 columns.
	TypeMat2: {glsl: "mat2", wgsl: "mat2x2<f32>", components: 4, columns: 2, std140: typeLayout{32, 16}, wgslU: typeLayout{16, 8}},
	TypeMat3: {glsl: "mat3", wgsl: "mat3x3<f32>", components: 9, columns: 3, std140: typeLayout{48, 16}, wgslU: typeLayout{48, 16}},
	TypeMat4: {glsl: "mat4", wgsl: "mat4x4<f32>", components: 16, columns: 4, std140: typeLayout{64, 16}, wgslU: typeLayout{64, 16}},
}

// Components returns the number of scalar components of the type.
func (t UniformType) Components() int {
	return uniformTypes[t].components
}

// isInteger reports whether the type stores integer bits.
func (t UniformType) isInteger() bool {
	return t == TypeInt || t == TypeUint || t == TypeIVec4
}

// Field is one member of a uniform block.
type Field struct {
	Name string
	Type UniformType

	// ArraySize is the element count for array members, 0 for single values.
	ArraySize int
}

// Block is a backend-agnostic uniform buffer description. The emitters translate it into
// a std140 interface block for GLSL or a struct bound in the uniform address space for WGSL.
type Block struct {
	// Name is the block (GLSL) or struct (WGSL) type name.
	Name string

	// Instance is the WGSL variable name the struct is bound to.
	Instance string

	Fields []Field
}

// FieldLayout is the resolved placement of a field in a block.
type FieldLayout struct {
	Field

	Offset uint64
	Size   uint64

	// Stride is the distance between array elements, or the size for single values.
	Stride uint64
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
//
// Parameters:
//   - alignment: the required alignment (must be a power of two)
//   - value: the value to align
//
// Returns:
//   - uint64: value rounded up to the next multiple of alignment
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// layoutFor returns the size and alignment of t in lang.
func layoutFor(t UniformType, lang Language) typeLayout {
	info := uniformTypes[t]
	if lang == LanguageGLSL {
		return info.std140
	}
	return info.wgslU
}

// arrayElement returns the type an array of t is declared with. Uniform arrays need a 16 byte
// stride in both std140 and WGSL, so scalar and vec2 elements are widened to a vec4 slot.
func arrayElement(t UniformType) UniformType {
	switch t {
	case TypeFloat, TypeVec2:
		return TypeVec4
	case TypeInt, TypeUint:
		return TypeIVec4
	}
	return t
}

// Layout resolves the offsets of every field of the block for lang.
//
// Parameters:
//   - lang: the target shading language
//
// Returns:
//   - []FieldLayout: fields in declaration order with offsets
//   - uint64: the total block size rounded up to 16 bytes
func (b Block) Layout(lang Language) ([]FieldLayout, uint64) {
	out := make([]FieldLayout, 0, len(b.Fields))
	var offset uint64
	for _, f := range b.Fields {
		var l typeLayout
		var stride uint64
		if f.ArraySize > 0 {
			el := layoutFor(arrayElement(f.Type), lang)
			stride = roundUpAlign(16, roundUpAlign(el.align, el.size))
			l = typeLayout{size: stride * uint64(f.ArraySize), align: 16}
		} else {
			l = layoutFor(f.Type, lang)
			stride = l.size
		}
		offset = roundUpAlign(l.align, offset)
		out = append(out, FieldLayout{Field: f, Offset: offset, Size: l.size, Stride: stride})
		offset += l.size
	}
	return out, roundUpAlign(16, offset)
}

// Size returns the byte size of the block in lang.
func (b Block) Size(lang Language) uint64 {
	_, size := b.Layout(lang)
	return size
}

// Has reports whether the block declares a field with the given name.
func (b Block) Has(name string) bool {
	for _, f := range b.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Staging is a CPU copy of a uniform block laid out for one language. Values are written by
// field name and the whole buffer is uploaded in one write.
type Staging struct {
	lang   Language
	fields map[string]FieldLayout
	data   []byte
	dirty  bool
}

// NewStaging allocates a zeroed staging buffer for block in lang.
//
// Parameters:
//   - block: the uniform block
//   - lang: the layout rules to apply
//
// Returns:
//   - *Staging: the staging buffer
func NewStaging(block Block, lang Language) *Staging {
	layout, size := block.Layout(lang)
	s := &Staging{
		lang:   lang,
		fields: make(map[string]FieldLayout, len(layout)),
		data:   make([]byte, size),
	}
	for _, f := range layout {
		s.fields[f.Name] = f
	}
	return s
}

// Write stores numeric components for the named field. Matrices are given column-major without
// padding; padding is applied here. Arrays take their elements back to back. Extra components
// are dropped and missing ones stay zero.
//
// Parameters:
//   - name: the field name
//   - values: the scalar components
//
// Returns:
//   - bool: false if the block has no such field
func (s *Staging) Write(name string, values []float32) bool {
	f, ok := s.fields[name]
	if !ok {
		return false
	}
	info := uniformTypes[f.Type]
	count := max(f.ArraySize, 1)
	per := info.components
	for i := 0; i < count && i*per < len(values); i++ {
		end := min((i+1)*per, len(values))
		base := f.Offset + uint64(i)*f.Stride
		s.writeElement(base, f.Type, values[i*per:end])
	}
	s.dirty = true
	return true
}

func (s *Staging) writeElement(base uint64, t UniformType, values []float32) {
	info := uniformTypes[t]
	if info.columns == 0 {
		for i, v := range values {
			s.put(base+uint64(i)*4, v, t.isInteger())
		}
		return
	}
	rows := info.components / info.columns
	colStride := uint64(16)
	if s.lang == LanguageWGSL && rows == 2 {
		colStride = 8
	}
	for i, v := range values {
		col, row := i/rows, i%rows
		s.put(base+uint64(col)*colStride+uint64(row)*4, v, false)
	}
}

func (s *Staging) put(off uint64, v float32, integer bool) {
	if off+4 > uint64(len(s.data)) {
		return
	}
	bits := math.Float32bits(v)
	if integer {
		bits = uint32(int32(v))
	}
	binary.LittleEndian.PutUint32(s.data[off:off+4], bits)
}

// Bytes returns the staged data. Callers must not modify the slice.
func (s *Staging) Bytes() []byte {
	return s.data
}

// Dirty reports whether a write happened since the last ClearDirty.
func (s *Staging) Dirty() bool {
	return s.dirty
}

// ClearDirty marks the staged data as uploaded.
func (s *Staging) ClearDirty() {
	s.dirty = false
}

// typeName returns the declaration type of t in lang. WGSL array elements are widened to their
// 16 byte slot; std140 already strides arrays that way.
func typeName(t UniformType, lang Language, array bool) string {
	if array && lang == LanguageWGSL {
		t = arrayElement(t)
	}
	if lang == LanguageGLSL {
		return uniformTypes[t].glsl
	}
	return uniformTypes[t].wgsl
}

// WGSLTypeLayout returns the size and alignment of a WGSL host-shareable type name as it appears
// in shader source, for reflection of hand-written declarations.
//
// Parameters:
//   - name: a WGSL type such as "f32", "vec3f" or "mat4x4<f32>"
//
// Returns:
//   - uint64: the size in bytes
//   - uint64: the alignment in bytes
//   - bool: false if the type is not a known scalar, vector or matrix
func WGSLTypeLayout(name string) (uint64, uint64, bool) {
	name = strings.TrimSpace(name)
	if alias, ok := wgslShorthand[name]; ok {
		name = alias
	}
	for _, info := range uniformTypes {
		if info.wgsl == name {
			return info.wgslU.size, info.wgslU.align, true
		}
	}
	if l, ok := wgslExtraLayouts[name]; ok {
		return l.size, l.align, true
	}
	return 0, 0, false
}

// wgslShorthand maps the predeclared WGSL aliases to their long form.
var wgslShorthand = map[string]string{
	"vec2f":   "vec2<f32>",
	"vec3f":   "vec3<f32>",
	"vec4f":   "vec4<f32>",
	"vec4i":   "vec4<i32>",
	"mat2x2f": "mat2x2<f32>",
	"mat3x3f": "mat3x3<f32>",
	"mat4x4f": "mat4x4<f32>",
}

// wgslExtraLayouts covers types that never appear in generated blocks but do appear in
// hand-written storage declarations.
var wgslExtraLayouts = map[string]typeLayout{
	"vec2<i32>":   {8, 8},
	"vec2i":       {8, 8},
	"vec3<i32>":   {12, 16},
	"vec3i":       {12, 16},
	"vec2<u32>":   {8, 8},
	"vec2u":       {8, 8},
	"vec3<u32>":   {12, 16},
	"vec3u":       {12, 16},
	"vec4<u32>":   {16, 16},
	"vec4u":       {16, 16},
	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}
