package effect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgram struct {
	mu       sync.Mutex
	applied  map[string]uniform.Value
	released bool
}

func (p *fakeProgram) Apply(name string, v uniform.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied[name] = v
}

func (p *fakeProgram) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
}

func (p *fakeProgram) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

type fakeCompiler struct {
	parallel bool
	gate     chan struct{}
	fail     func(c Compilation) error

	mu       sync.Mutex
	compiles []Compilation
	programs []*fakeProgram
}

func (f *fakeCompiler) Language() shader.Language { return shader.LanguageWGSL }
func (f *fakeCompiler) Parallel() bool            { return f.parallel }

func (f *fakeCompiler) Compile(_ context.Context, c Compilation) (Program, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compiles = append(f.compiles, c)
	if f.fail != nil {
		if err := f.fail(c); err != nil {
			return nil, err
		}
	}
	p := &fakeProgram{applied: make(map[string]uniform.Value)}
	f.programs = append(f.programs, p)
	return p, nil
}

func (f *fakeCompiler) compileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.compiles)
}

type countingObserver struct {
	mu       sync.Mutex
	compiles int
	hits     int
}

func (o *countingObserver) ObserveCompile(string, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compiles++
}

func (o *countingObserver) ObserveCacheHit(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits++
}

func newTestCache(t *testing.T, compiler *fakeCompiler, options ...CacheBuilderOption) Cache {
	t.Helper()
	store, err := shader.NewStore()
	require.NoError(t, err)
	store.SetShader("custom", shader.LanguageWGSL, shader.StageVertex, "//@oxy:declarations\n@vertex fn main() {}")
	store.SetShader("custom", shader.LanguageWGSL, shader.StageFragment, "//@oxy:declarations\n@fragment fn main() {}")
	c := NewCache(compiler, store, options...)
	t.Cleanup(c.Close)
	return c
}

func request(lines ...string) Request {
	return Request{
		Shader:  "custom",
		Defines: defines.NewSet(lines...),
		Uniforms: shader.Block{Name: "Material", Fields: []shader.Field{
			{Name: "worldViewProjection", Type: shader.TypeMat4},
		}},
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "custom@#define A\n#define B 2", Key("custom", defines.NewSet("A", "B 2")))
	assert.Equal(t, "custom@", Key("custom", nil))
}

func TestSameKeySameEffect(t *testing.T) {
	compiler := &fakeCompiler{}
	obs := &countingObserver{}
	c := newTestCache(t, compiler, WithObserver(obs))

	a := c.GetOrCreate(request("NUM_BONE_INFLUENCERS 0", "NUM_MORPH_INFLUENCERS 0"))
	b := c.GetOrCreate(request("NUM_BONE_INFLUENCERS 0", "NUM_MORPH_INFLUENCERS 0"))
	assert.Same(t, a, b)
	assert.Equal(t, 2, a.RefCount())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, compiler.compileCount())
	assert.Equal(t, 1, obs.compiles)
	assert.Equal(t, 1, obs.hits)
}

func TestDefineChangeCreatesNewEffect(t *testing.T) {
	compiler := &fakeCompiler{}
	c := newTestCache(t, compiler)

	four := c.GetOrCreate(request("NUM_BONE_INFLUENCERS 4"))
	five := c.GetOrCreate(request("NUM_BONE_INFLUENCERS 5"))
	assert.NotSame(t, four, five)
	assert.NotEqual(t, four.Key(), five.Key())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"custom@#define NUM_BONE_INFLUENCERS 4", "custom@#define NUM_BONE_INFLUENCERS 5"}, c.Keys())
}

func TestSynchronousCompileFiresCallbackOnce(t *testing.T) {
	c := newTestCache(t, &fakeCompiler{})
	calls := 0
	req := request("FOG")
	req.OnCompiled = func(Effect) { calls++ }

	e := c.GetOrCreate(req)
	assert.Equal(t, 0, calls, "callbacks wait for IsReady")
	assert.True(t, e.IsReady())
	assert.True(t, e.IsReady())
	assert.Equal(t, 1, calls)
	assert.True(t, e.Defines().Has("FOG"))
	assert.NoError(t, e.Err())
}

func TestParallelCompile(t *testing.T) {
	compiler := &fakeCompiler{parallel: true, gate: make(chan struct{})}
	c := newTestCache(t, compiler, WithWorkers(2, 8))
	compiled := make(chan Effect, 1)
	req := request("FOG")
	req.OnCompiled = func(e Effect) { compiled <- e }

	e := c.GetOrCreate(req)
	assert.False(t, e.IsReady())
	assert.Nil(t, e.Program())
	assert.Equal(t, 1, c.Pending())

	close(compiler.gate)
	require.Eventually(t, e.IsReady, 5*time.Second, 5*time.Millisecond)
	select {
	case got := <-compiled:
		assert.Same(t, e, got)
	default:
		t.Fatal("OnCompiled not fired by the IsReady call that observed completion")
	}
	assert.Equal(t, 0, c.Pending())
}

func TestParallelDisabledByOption(t *testing.T) {
	c := newTestCache(t, &fakeCompiler{parallel: true}, WithParallel(false))
	assert.True(t, c.GetOrCreate(request()).IsReady())
}

func TestFallbackReducesDefines(t *testing.T) {
	compiler := &fakeCompiler{fail: func(c Compilation) error {
		if c.Defines.Has("FOG") {
			return &StageError{Stage: shader.StageFragment, Err: errors.New("too many varyings")}
		}
		return nil
	}}
	c := newTestCache(t, compiler)
	req := request("FOG", "ALPHATEST")
	req.Fallbacks = defines.NewFallbacks()
	req.Fallbacks.Add(0, "FOG")
	var errs []error
	req.OnError = func(_ Effect, err error) { errs = append(errs, err) }

	e := c.GetOrCreate(req)
	require.True(t, e.IsReady())
	assert.False(t, e.Defines().Has("FOG"))
	assert.True(t, e.Defines().Has("ALPHATEST"))
	assert.Equal(t, 2, compiler.compileCount())
	assert.Empty(t, errs)
	assert.Equal(t, "custom@#define FOG\n#define ALPHATEST", e.Key(), "the key keeps the requested defines")
}

func TestExhaustedFallbacksReportError(t *testing.T) {
	cause := errors.New("syntax error")
	compiler := &fakeCompiler{fail: func(Compilation) error {
		return &StageError{Stage: shader.StageVertex, Err: cause}
	}}
	c := newTestCache(t, compiler)
	req := request("FOG")
	req.Fallbacks = defines.NewFallbacks()
	req.Fallbacks.Add(0, "FOG")
	var errs []error
	req.OnError = func(_ Effect, err error) { errs = append(errs, err) }

	e := c.GetOrCreate(req)
	assert.False(t, e.IsReady())
	assert.False(t, e.IsReady())
	require.Len(t, errs, 1)

	var ce *CompileError
	require.ErrorAs(t, e.Err(), &ce)
	assert.ErrorIs(t, e.Err(), cause)
	require.NotNil(t, ce.Stage)
	assert.Equal(t, shader.StageVertex, *ce.Stage)
	assert.Equal(t, "", ce.Defines)
	assert.Equal(t, 2, compiler.compileCount())
}

func TestUnknownShader(t *testing.T) {
	c := newTestCache(t, &fakeCompiler{})
	e := c.GetOrCreate(Request{Shader: "missing"})
	assert.False(t, e.IsReady())
	assert.ErrorIs(t, e.Err(), ErrUnknownShader)
}

func TestReleaseRefCounting(t *testing.T) {
	compiler := &fakeCompiler{}
	c := newTestCache(t, compiler)
	a := c.GetOrCreate(request())
	c.GetOrCreate(request())

	c.Release(a)
	assert.Equal(t, 1, a.RefCount())
	assert.Equal(t, 1, c.Len())

	c.Release(a)
	assert.Equal(t, 0, c.Len())
	assert.True(t, compiler.programs[0].isReleased())
	assert.Nil(t, a.Program())

	c.Release(a)
	assert.Equal(t, 0, a.RefCount())
}

func TestReleaseDuringCompileDiscardsProgram(t *testing.T) {
	compiler := &fakeCompiler{parallel: true, gate: make(chan struct{})}
	c := newTestCache(t, compiler)
	e := c.GetOrCreate(request())
	c.Release(e)
	assert.Equal(t, 0, c.Len())

	close(compiler.gate)
	require.Eventually(t, func() bool { return c.Pending() == 0 }, 5*time.Second, 5*time.Millisecond)
	compiler.mu.Lock()
	defer compiler.mu.Unlock()
	require.Len(t, compiler.programs, 1)
	assert.True(t, compiler.programs[0].isReleased())
	assert.Nil(t, e.Program())
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t, &fakeCompiler{})
	old := c.GetOrCreate(request("FOG"))
	assert.Equal(t, 0, c.Invalidate("other"))
	assert.False(t, old.Stale())

	assert.Equal(t, 1, c.Invalidate("custom"))
	assert.True(t, old.Stale())
	assert.Equal(t, 0, c.Len())

	fresh := c.GetOrCreate(request("FOG"))
	assert.NotSame(t, old, fresh)
	assert.False(t, fresh.Stale())
}

func TestApplyForwardsToProgram(t *testing.T) {
	compiler := &fakeCompiler{}
	c := newTestCache(t, compiler)
	e := c.GetOrCreate(request())
	require.True(t, e.IsReady())

	e.Apply("alpha", uniform.Float(0.5))
	assert.Equal(t, float32(0.5), compiler.programs[0].applied["alpha"].Float())
}

func TestCompilationCarriesProcessedSource(t *testing.T) {
	compiler := &fakeCompiler{}
	c := newTestCache(t, compiler)
	req := request("FOG")
	req.UniformBuffers = []string{"Scene"}
	c.GetOrCreate(req)

	require.Equal(t, 1, compiler.compileCount())
	comp := compiler.compiles[0]
	assert.Equal(t, "custom", comp.Name)
	assert.Contains(t, comp.Source.Vertex, "var<uniform> uniforms: Material;")
	assert.Contains(t, comp.Source.Fragment, "@fragment fn main() {}")
	assert.Equal(t, []string{"Scene"}, comp.UniformBuffers)
}
