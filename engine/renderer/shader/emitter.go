package shader

import (
	"fmt"
	"strings"
)

// Declarations is the abstract resource list of one program. The same value is handed to either
// emitter; only the emitted syntax differs.
type Declarations struct {
	// Attributes are the vertex input names, emitted for the vertex stage only.
	Attributes []string

	// Uniforms is the material uniform block. A block without fields is not emitted.
	Uniforms Block

	// Samplers are the names of sampled 2D textures.
	Samplers []string

	// ExternalTextures are the names of external (video) textures.
	ExternalTextures []string

	// Group is the bind group all generated resources are placed in. Ignored by GLSL.
	Group int
}

// Emitter translates Declarations into the binding syntax of one shading language.
type Emitter interface {
	// Language returns the language the emitter writes.
	Language() Language

	// Attributes emits the vertex input declarations.
	Attributes(names []string) string

	// UniformBlock emits the uniform block declaration bound at group/binding.
	UniformBlock(b Block, group, binding int) string

	// Samplers emits the texture and sampler declarations starting at firstBinding.
	//
	// Returns:
	//   - string: the declarations
	//   - int: the next free binding
	Samplers(names []string, group, firstBinding int) (string, int)

	// ExternalTextures emits external texture declarations starting at firstBinding.
	//
	// Returns:
	//   - string: the declarations
	//   - int: the next free binding
	ExternalTextures(names []string, group, firstBinding int) (string, int)

	// Emit emits the complete declaration block for a stage.
	Emit(stage Stage, d Declarations) string
}

// NewEmitter returns the emitter for lang.
//
// Parameters:
//   - lang: the target shading language
//
// Returns:
//   - Emitter: the emitter
func NewEmitter(lang Language) Emitter {
	if lang == LanguageGLSL {
		return &glslEmitter{}
	}
	return &wgslEmitter{}
}

// attributeTypes maps well-known vertex attribute names to their types. Numbered morph target
// attributes resolve through their prefix.
var attributeTypes = map[string]UniformType{
	"position":   TypeVec3,
	"normal":     TypeVec3,
	"tangent":    TypeVec4,
	"uv":         TypeVec2,
	"uv2":        TypeVec2,
	"uv3":        TypeVec2,
	"uv4":        TypeVec2,
	"uv5":        TypeVec2,
	"uv6":        TypeVec2,
	"color":      TypeVec4,
	"uv_":        TypeVec2,
	"uv2_":       TypeVec2,
	"morphColor": TypeVec4,
}

// AttributeType returns the type of a vertex attribute by name. Unknown names are vec4.
//
// Parameters:
//   - name: the attribute name, e.g. "position", "normal2" or "uv_1"
//
// Returns:
//   - UniformType: the attribute type
func AttributeType(name string) UniformType {
	if t, ok := attributeTypes[name]; ok {
		return t
	}
	base := strings.TrimRight(name, "0123456789")
	if base != name {
		switch base {
		case "position", "normal", "tangent":
			return TypeVec3
		case "uv_", "uv2_":
			return TypeVec2
		}
	}
	return TypeVec4
}

// glslEmitter is the Emitter for GLSL ES 3.00.
type glslEmitter struct{}

var _ Emitter = &glslEmitter{}

func (e *glslEmitter) Language() Language { return LanguageGLSL }

func (e *glslEmitter) Attributes(names []string) string {
	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "in %s %s;\n", typeName(AttributeType(n), LanguageGLSL, false), n)
	}
	return sb.String()
}

func (e *glslEmitter) UniformBlock(b Block, _, _ int) string {
	if len(b.Fields) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "layout(std140) uniform %s {\n", b.Name)
	for _, f := range b.Fields {
		if f.ArraySize > 0 {
			fmt.Fprintf(&sb, "    %s %s[%d];\n", typeName(f.Type, LanguageGLSL, true), f.Name, f.ArraySize)
			continue
		}
		fmt.Fprintf(&sb, "    %s %s;\n", typeName(f.Type, LanguageGLSL, false), f.Name)
	}
	sb.WriteString("};\n")
	return sb.String()
}

func (e *glslEmitter) Samplers(names []string, _, firstBinding int) (string, int) {
	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "uniform sampler2D %s;\n", n)
	}
	return sb.String(), firstBinding + len(names)
}

func (e *glslEmitter) ExternalTextures(names []string, _, firstBinding int) (string, int) {
	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "uniform sampler2D %s;\n", n)
	}
	return sb.String(), firstBinding + len(names)
}

func (e *glslEmitter) Emit(stage Stage, d Declarations) string {
	var sb strings.Builder
	if stage == StageVertex {
		sb.WriteString(e.Attributes(d.Attributes))
	}
	sb.WriteString(e.UniformBlock(d.Uniforms, d.Group, 0))
	s, next := e.Samplers(d.Samplers, d.Group, 1)
	sb.WriteString(s)
	s, _ = e.ExternalTextures(d.ExternalTextures, d.Group, next)
	sb.WriteString(s)
	return sb.String()
}

// wgslEmitter is the Emitter for WGSL. Resources are numbered within one bind group: the uniform
// block takes binding 0, each sampled texture takes a sampler binding followed by a texture
// binding, and external textures follow.
type wgslEmitter struct{}

var _ Emitter = &wgslEmitter{}

func (e *wgslEmitter) Language() Language { return LanguageWGSL }

func (e *wgslEmitter) Attributes(names []string) string {
	if len(names) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("struct VertexInputs {\n")
	for i, n := range names {
		fmt.Fprintf(&sb, "    @location(%d) %s: %s,\n", i, n, typeName(AttributeType(n), LanguageWGSL, false))
	}
	sb.WriteString("};\n")
	return sb.String()
}

func (e *wgslEmitter) UniformBlock(b Block, group, binding int) string {
	if len(b.Fields) == 0 {
		return ""
	}
	instance := b.Instance
	if instance == "" {
		instance = "uniforms"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "struct %s {\n", b.Name)
	for _, f := range b.Fields {
		if f.ArraySize > 0 {
			fmt.Fprintf(&sb, "    %s: array<%s, %d>,\n", f.Name, typeName(f.Type, LanguageWGSL, true), f.ArraySize)
			continue
		}
		fmt.Fprintf(&sb, "    %s: %s,\n", f.Name, typeName(f.Type, LanguageWGSL, false))
	}
	sb.WriteString("};\n")
	fmt.Fprintf(&sb, "@group(%d) @binding(%d) var<uniform> %s: %s;\n", group, binding, instance, b.Name)
	return sb.String()
}

func (e *wgslEmitter) Samplers(names []string, group, firstBinding int) (string, int) {
	var sb strings.Builder
	b := firstBinding
	for _, n := range names {
		fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %sSampler: sampler;\n", group, b, n)
		fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s: texture_2d<f32>;\n", group, b+1, n)
		b += 2
	}
	return sb.String(), b
}

func (e *wgslEmitter) ExternalTextures(names []string, group, firstBinding int) (string, int) {
	var sb strings.Builder
	b := firstBinding
	for _, n := range names {
		fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s: texture_external;\n", group, b, n)
		b++
	}
	return sb.String(), b
}

func (e *wgslEmitter) Emit(stage Stage, d Declarations) string {
	var sb strings.Builder
	if stage == StageVertex {
		sb.WriteString(e.Attributes(d.Attributes))
	}
	sb.WriteString(e.UniformBlock(d.Uniforms, d.Group, 0))
	s, next := e.Samplers(d.Samplers, d.Group, 1)
	sb.WriteString(s)
	s, _ = e.ExternalTextures(d.ExternalTextures, d.Group, next)
	sb.WriteString(s)
	return sb.String()
}
