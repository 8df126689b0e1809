package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapIncludes map[string]string

func (m mapIncludes) Include(name string, _ Language) (string, bool) {
	src, ok := m[name]
	return src, ok
}

func process(t *testing.T, lang Language, source string, set *defines.Set) string {
	t.Helper()
	pp := NewPreProcessor(lang, WithIncludes(mapIncludes{
		"clip": "clip {X}",
		"loop": "#include<loop>",
		"bad":  "ok\n#endif",
	}))
	out, err := pp.Process(Unit{Stage: StageVertex, Source: source, Defines: set})
	require.NoError(t, err)
	return out
}

func TestProcessIfdef(t *testing.T) {
	src := "a\n#ifdef FOG\nfog\n#else\nnofog\n#endif\nb"
	assert.Equal(t, "a\nfog\nb", process(t, LanguageWGSL, src, defines.NewSet("FOG")))
	assert.Equal(t, "a\nnofog\nb", process(t, LanguageWGSL, src, defines.NewSet()))
	assert.Equal(t, "a\nnofog\nb", process(t, LanguageWGSL, src, nil))

	src = "#ifndef FOG\nx\n#endif"
	assert.Equal(t, "", process(t, LanguageWGSL, src, defines.NewSet("FOG")))
}

func TestProcessIfElif(t *testing.T) {
	src := "#if NUM_BONE_INFLUENCERS > 3\nmany\n#elif NUM_BONE_INFLUENCERS > 0\nfew\n#else\nnone\n#endif"
	tests := map[string]string{"4": "many", "2": "few", "0": "none"}
	for value, want := range tests {
		set := defines.NewSet()
		set.SetValue("NUM_BONE_INFLUENCERS", value)
		assert.Equal(t, want, process(t, LanguageWGSL, src, set), value)
	}
}

func TestProcessNestedInactive(t *testing.T) {
	src := "#ifdef A\n#ifdef B\nx\n#else\ny\n#endif\n#endif\nz"
	assert.Equal(t, "z", process(t, LanguageWGSL, src, defines.NewSet("B")))
	assert.Equal(t, "y\nz", process(t, LanguageWGSL, src, defines.NewSet("A")))
}

func TestProcessErrors(t *testing.T) {
	pp := NewPreProcessor(LanguageWGSL, WithIncludes(mapIncludes{"loop": "#include<loop>", "bad": "ok\n#endif"}))
	tests := []struct {
		source string
		err    string
	}{
		{"#endif", "line 1: #endif without #if"},
		{"#ifdef A\nx", "line 2: unterminated conditional block"},
		{"#else", "line 1: #else without #if"},
		{"#if (A", "line 1: #if (A"},
		{"#ifdef A\n#else\n#else\n#endif", "line 3: duplicate #else"},
		{"#include<missing>", `line 1: unknown include "missing"`},
		{"#include<loop>", "nesting deeper"},
		{"#include<bad>", `include "bad": line 2: #endif without #if`},
		{"//@oxy:unknown", "line 1: unknown @oxy annotation type"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			_, err := pp.Process(Unit{Source: tt.source})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestProcessIncludes(t *testing.T) {
	assert.Equal(t, "clip 1\nclip 2", process(t, LanguageWGSL, "#include<clip>[1..2]", nil))
	assert.Equal(t, "clip {X}", process(t, LanguageWGSL, "//@oxy:include clip", nil))
}

func TestProcessGLSLHeader(t *testing.T) {
	set := defines.NewSet("FOG", "NUM 2")
	out := process(t, LanguageGLSL, "#version 100\nvoid main() {}", set)
	assert.Equal(t, "#version 300 es\nprecision highp float;\nprecision highp int;\n"+
		"#define FOG\n#define NUM 2\nvoid main() {}", out)
}

func TestProcessWGSLSubstitution(t *testing.T) {
	set := defines.NewSet("BonesPerMesh 5", "FOG")
	out := process(t, LanguageWGSL, "bones: array<mat4x4<f32>, BonesPerMesh>,\nlet BonesPerMeshX = FOG;", set)
	assert.Equal(t, "bones: array<mat4x4<f32>, 5>,\nlet BonesPerMeshX = FOG;", out)
}

func TestProcessLocalDefines(t *testing.T) {
	set := defines.NewSet()
	assert.Equal(t, "ok", process(t, LanguageWGSL, "#define LOCAL\n#ifdef LOCAL\nok\n#endif", set))
	assert.False(t, set.Has("LOCAL"), "source defines never leak into the caller's set")
}

func TestProcessDeclarations(t *testing.T) {
	pp := NewPreProcessor(LanguageWGSL)
	decls := &Declarations{Uniforms: Block{Name: "Material", Fields: []Field{{Name: "alpha", Type: TypeFloat}}}}
	block := "struct Material {\n    alpha: f32,\n};\n@group(0) @binding(0) var<uniform> uniforms: Material;\n"

	out, err := pp.Process(Unit{Stage: StageFragment, Source: "//@oxy:declarations\nfn f() {}", Declarations: decls})
	require.NoError(t, err)
	assert.Equal(t, block+"fn f() {}", out)

	out, err = pp.Process(Unit{Stage: StageFragment, Source: "fn f() {}", Declarations: decls})
	require.NoError(t, err)
	assert.Equal(t, block+"fn f() {}", out)
}
