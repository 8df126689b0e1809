package renderer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/config"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/backend/headless"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(headless.NewCompiler(), options...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestParseBackendType(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want RendererBackendType
	}{
		{"headless", BackendTypeHeadless},
		{"", BackendTypeHeadless},
		{"NAGA", BackendTypeNaga},
		{"wgpu", BackendTypeWGPU},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBackendType(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	_, err := ParseBackendType("metal")
	assert.Error(t, err)
	assert.Equal(t, "naga", BackendTypeNaga.String())
}

func TestIndependentContexts(t *testing.T) {
	a := newTestRenderer(t)
	b := newTestRenderer(t)
	assert.NotSame(t, a.Cache(), b.Cache())
	assert.Equal(t, uint64(1), a.NextUniqueID())
	assert.Equal(t, uint64(2), a.NextUniqueID())
	assert.Equal(t, uint64(1), b.NextUniqueID())
	assert.Equal(t, shader.LanguageWGSL, a.Language())
}

func TestCachedMaterialAndMesh(t *testing.T) {
	r := newTestRenderer(t)
	r.SetCachedMaterial(7)
	r.SetCachedMesh(3, mgl32.Ident4())
	assert.Equal(t, uint64(7), r.CachedMaterial())
	assert.True(t, r.SameMeshWorld(3, mgl32.Ident4()))
	assert.False(t, r.SameMeshWorld(3, mgl32.Translate3D(1, 0, 0)))
	assert.False(t, r.SameMeshWorld(4, mgl32.Ident4()))

	r.BeginFrame()
	assert.Equal(t, uint64(0), r.CachedMaterial())
	assert.False(t, r.SameMeshWorld(3, mgl32.Ident4()))
	r.EndFrame()
	assert.Equal(t, uint64(1), r.Frame())
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendNaga
	cfg.Caps.MaxDrawBuffers = 2
	cfg.Profiler.Enabled = true
	r := newTestRenderer(t, WithConfig(cfg))
	assert.Equal(t, BackendTypeNaga, r.BackendType())
	assert.Equal(t, 2, r.Caps().MaxDrawBuffers)
	require.NotNil(t, r.Profiler())

	e := r.Cache().GetOrCreate(effect.Request{Shader: "default", Defines: defines.NewSet()})
	require.True(t, e.IsReady())
	assert.Equal(t, 1, r.Profiler().Current().Compiles)
}

func TestShaderDirHotReload(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.vertex.wgsl"), []byte(body), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.fragment.wgsl"), []byte("@fragment fn main() {}"), 0o644))
	}
	write("@vertex fn main() {}")

	r := newTestRenderer(t, WithShaderDir(dir, true))
	req := effect.Request{Shader: "flat", Defines: defines.NewSet()}
	first := r.Cache().GetOrCreate(req)
	require.True(t, first.IsReady())

	write("@vertex fn main() { }")
	require.Eventually(t, func() bool {
		r.BeginFrame()
		return first.Stale()
	}, 5*time.Second, 10*time.Millisecond)

	assert.NotZero(t, r.Generation())

	second := r.Cache().GetOrCreate(req)
	assert.NotSame(t, first, second)
	assert.True(t, second.IsReady())
}

func TestWatchRequiresDirectory(t *testing.T) {
	_, err := NewRenderer(headless.NewCompiler(), WithShaderDir(filepath.Join(t.TempDir(), "missing"), true))
	assert.Error(t, err)
}
