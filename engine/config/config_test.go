package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDecodeYAML(t *testing.T) {
	cfg, err := Decode(".yaml", []byte(`
backend: naga
language: glsl
workers: 2
caps:
  bone_textures: false
  max_draw_buffers: 4
profiler:
  enabled: true
  interval: 250ms
log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, BackendNaga, cfg.Backend)
	assert.Equal(t, shader.LanguageGLSL, cfg.Language)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 256, cfg.QueueSize, "defaults survive")
	assert.False(t, cfg.Caps.BoneTextures)
	assert.Equal(t, 4, cfg.Caps.MaxDrawBuffers)
	assert.True(t, cfg.Caps.TextureFloat, "unset caps keep their default")
	d, err := cfg.ProfilerInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestDecodeTOML(t *testing.T) {
	cfg, err := Decode(".toml", []byte(`
backend = "wgpu"
language = "wgsl"
parallel_compile = false
shader_dir = "shaders"
watch = true

[caps]
multiview = true
`))
	require.NoError(t, err)
	assert.Equal(t, BackendWGPU, cfg.Backend)
	assert.False(t, cfg.ParallelCompile)
	assert.True(t, cfg.Watch)
	assert.True(t, cfg.Caps.Multiview)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(".json", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Decode(".yaml", []byte("backend: vulkan\nworkers: -1\nwatch: true\nlog_level: loud\n"))
	require.Error(t, err)
	for _, want := range []string{`unknown backend "vulkan"`, "workers must not be negative", "watch requires shader_dir", `unknown log level "loud"`} {
		assert.Contains(t, err.Error(), want)
	}

	_, err = Decode(".yaml", []byte("language: hlsl\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxyfx.yml")
	require.NoError(t, os.WriteFile(path, []byte("backend: headless\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendHeadless, cfg.Backend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
