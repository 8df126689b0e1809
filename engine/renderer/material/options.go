package material

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
)

// Options are the declarative inputs of a shader material. Changing the define list or the name
// lists between draws is allowed, the next readiness check picks the change up and recompiles
// when the resolved defines differ.
type Options struct {
	NeedAlphaBlending bool `json:"needAlphaBlending"`
	NeedAlphaTesting  bool `json:"needAlphaTesting"`

	// Attributes are the vertex attribute names the shader reads.
	Attributes []string `json:"attributes"`

	// Uniforms are the names of the values of the material uniform block. Matrix names such as
	// "world" or "viewProjection" are filled in by Bind.
	Uniforms []string `json:"uniforms"`

	UniformBuffers   []string `json:"uniformBuffers"`
	Samplers         []string `json:"samplers"`
	ExternalTextures []string `json:"externalTextures"`
	SamplerObjects   []string `json:"samplerObjects"`
	StorageBuffers   []string `json:"storageBuffers"`

	// Defines are preprocessor defines, "NAME" or "NAME value", with or without "#define ".
	Defines []string `json:"defines"`

	// UseClipPlane nil or true declares the scene clip planes, false ignores them.
	UseClipPlane *bool `json:"useClipPlane"`

	// ShaderLanguage is the language the shader sources are written in.
	ShaderLanguage shader.Language `json:"shaderLanguage"`
}

var _ uniform.NameRegistrar = &Options{}

// DefaultOptions returns the options of a new material: position/normal/uv attributes and a
// worldViewProjection uniform.
//
// Returns:
//   - Options: the default options
func DefaultOptions() Options {
	noClip := false
	return Options{
		Attributes:       []string{"position", "normal", "uv"},
		Uniforms:         []string{"worldViewProjection"},
		UniformBuffers:   []string{},
		Samplers:         []string{},
		ExternalTextures: []string{},
		SamplerObjects:   []string{},
		StorageBuffers:   []string{},
		Defines:          []string{},
		UseClipPlane:     &noClip,
		ShaderLanguage:   shader.LanguageWGSL,
	}
}

// Clone returns a deep copy of the options.
func (o *Options) Clone() Options {
	out := *o
	out.Attributes = slices.Clone(o.Attributes)
	out.Uniforms = slices.Clone(o.Uniforms)
	out.UniformBuffers = slices.Clone(o.UniformBuffers)
	out.Samplers = slices.Clone(o.Samplers)
	out.ExternalTextures = slices.Clone(o.ExternalTextures)
	out.SamplerObjects = slices.Clone(o.SamplerObjects)
	out.StorageBuffers = slices.Clone(o.StorageBuffers)
	out.Defines = slices.Clone(o.Defines)
	if o.UseClipPlane != nil {
		v := *o.UseClipPlane
		out.UseClipPlane = &v
	}
	return out
}

// RegisterName adds name to the list matching kind if it is not already present.
func (o *Options) RegisterName(kind uniform.Kind, name string) {
	switch kind {
	case uniform.KindTexture, uniform.KindTextureArray:
		o.Samplers = appendUnique(o.Samplers, name)
	case uniform.KindUniformBuffer:
		o.UniformBuffers = appendUnique(o.UniformBuffers, name)
	case uniform.KindExternalTexture:
		o.ExternalTextures = appendUnique(o.ExternalTextures, name)
	case uniform.KindSampler:
		o.SamplerObjects = appendUnique(o.SamplerObjects, name)
	case uniform.KindStorageBuffer:
		o.StorageBuffers = appendUnique(o.StorageBuffers, name)
	default:
		o.Uniforms = appendUnique(o.Uniforms, name)
	}
}

// SetDefine adds, replaces or removes a define. Any entry named name is removed first; a false
// value leaves it removed, true adds "name true" and any other value adds "name value".
//
// Parameters:
//   - name: the define name
//   - value: a bool, a number or a string
//
// Returns:
//   - bool: true if the define list changed
func (o *Options) SetDefine(name string, value any) bool {
	before := slices.Clone(o.Defines)
	o.Defines = slices.DeleteFunc(o.Defines, func(d string) bool {
		d = strings.TrimPrefix(d, "#define ")
		return d == name || strings.HasPrefix(d, name+" ")
	})
	if b, ok := value.(bool); !ok || b {
		o.Defines = append(o.Defines, name+" "+fmt.Sprint(value))
	}
	return !slices.Equal(before, o.Defines)
}

// HasDefine reports whether a define named name is present.
func (o *Options) HasDefine(name string) bool {
	return slices.ContainsFunc(o.Defines, func(d string) bool {
		d = strings.TrimPrefix(d, "#define ")
		return d == name || strings.HasPrefix(d, name+" ")
	})
}

func appendUnique(list []string, name string) []string {
	if slices.Contains(list, name) {
		return list
	}
	return append(list, name)
}
