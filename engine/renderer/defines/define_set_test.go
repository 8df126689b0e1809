package defines

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDefine(t *testing.T) {
	tests := []struct {
		line  string
		name  string
		value string
	}{
		{"#define FOG", "FOG", ""},
		{"FOG", "FOG", ""},
		{"  #define NUM_BONE_INFLUENCERS 4 ", "NUM_BONE_INFLUENCERS", "4"},
		{"MAX_LIGHTS 4", "MAX_LIGHTS", "4"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, value := ParseDefine(tt.line)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestSetReplacesInPlace(t *testing.T) {
	s := NewSet("A", "#define B 1", "C")
	s.Add("B 2")

	assert.Equal(t, []string{"#define A", "#define B 2", "#define C"}, s.Entries())
	assert.Equal(t, 3, s.Len())
}

func TestSetRemoveAndHas(t *testing.T) {
	s := NewSet("A", "B")
	assert.True(t, s.Remove("A"))
	assert.False(t, s.Remove("A"))
	assert.False(t, s.Has("A"))
	assert.True(t, s.Has("B"))

	var zero Set
	assert.False(t, zero.Remove("A"))
	assert.Equal(t, "", zero.Join())
}

func TestSetValueChangeChangesJoin(t *testing.T) {
	a := NewSet("#define NUM_BONE_INFLUENCERS 4")
	b := a.Clone()
	b.SetValue("NUM_BONE_INFLUENCERS", "5")

	assert.NotEqual(t, a.Join(), b.Join())
	assert.False(t, a.Equal(b))

	b.SetValue("NUM_BONE_INFLUENCERS", "4")
	assert.True(t, a.Equal(b))
}

func TestFallbacksReduceByRank(t *testing.T) {
	s := NewSet("FOG", "#define NUM_BONE_INFLUENCERS 4", "#define BonesPerMesh 3", "SPECULAR")
	f := NewFallbacks()
	f.Add(1, "SPECULAR")
	f.AddCPUSkinning(0, 4)
	f.Add(2, "MISSING")

	assert.True(t, f.Reduce(s))
	assert.Equal(t, []string{"#define FOG", "#define NUM_BONE_INFLUENCERS 0", "#define SPECULAR"}, s.Entries())

	assert.True(t, f.Reduce(s))
	assert.False(t, s.Has("SPECULAR"))

	assert.False(t, f.Reduce(s), "ranks that change nothing are skipped")
	assert.False(t, f.HasMore())
}

func TestFallbacksIgnoreUnskinned(t *testing.T) {
	f := NewFallbacks()
	f.AddCPUSkinning(0, 0)
	assert.False(t, f.HasMore())
}
