package effect

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// Observer receives cache statistics. It may be called from worker goroutines.
type Observer interface {
	// ObserveCompile is called after every compile attempt.
	ObserveCompile(key string, elapsed time.Duration, err error)

	// ObserveCacheHit is called when GetOrCreate returns an existing effect.
	ObserveCacheHit(key string)
}

// cache is the implementation of the Cache interface.
type cache struct {
	compiler Compiler
	store    shader.Store
	pp       shader.PreProcessor
	logger   *slog.Logger
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc

	parallel   bool
	workers    int
	queueSize  int
	pool       worker.DynamicWorkerPool
	nextTaskID int

	effects  map[string]*effect
	inFlight atomic.Int64
}

// Cache maps (shader name, define set) keys to shared effects. All methods except Pending must
// be called from the main goroutine.
type Cache interface {
	// GetOrCreate returns the effect for the request's key, creating and compiling it when absent.
	// Either way the reference count is incremented and the request's callbacks are registered.
	// Compile failures are never returned here; they surface through OnError and Effect.Err.
	//
	// Parameters:
	//   - req: the shader, defines, declarations and callbacks
	//
	// Returns:
	//   - Effect: the shared effect, possibly still compiling
	GetOrCreate(req Request) Effect

	// Get returns the effect stored under key without touching its reference count.
	Get(key string) (Effect, bool)

	// Release drops one reference. The last release removes the effect and frees its program;
	// an in-flight compile of a released effect is discarded when it completes.
	Release(e Effect)

	// Invalidate marks the effects of a shader stale and removes them from the key map so the next
	// GetOrCreate recompiles from the current source. Holders keep their handle until they release it.
	//
	// Parameters:
	//   - name: the shader name, "" for every shader
	//
	// Returns:
	//   - int: the number of effects invalidated
	Invalidate(name string) int

	// Len returns the number of cached effects.
	Len() int

	// Keys returns the sorted cache keys.
	Keys() []string

	// Pending returns the number of compiles in flight. Safe from any goroutine.
	Pending() int

	// Language returns the language of the cache's compiler.
	Language() shader.Language

	// Clear releases every effect regardless of reference counts.
	Clear()

	// Close clears the cache, cancels in-flight compiles and stops the worker pool.
	Close()
}

var _ Cache = &cache{}

// NewCache creates a Cache compiling through compiler with sources from store.
//
// Parameters:
//   - compiler: the backend compiler
//   - store: the shader source store
//   - options: builder options
//
// Returns:
//   - Cache: the cache
func NewCache(compiler Compiler, store shader.Store, options ...CacheBuilderOption) Cache {
	c := &cache{
		compiler:  compiler,
		store:     store,
		logger:    slog.Default(),
		parallel:  compiler.Parallel(),
		workers:   4,
		queueSize: 256,
		effects:   make(map[string]*effect),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	for _, opt := range options {
		opt(c)
	}
	c.pp = shader.NewPreProcessor(compiler.Language(), shader.WithIncludes(store), shader.WithPreProcessorLogger(c.logger))
	c.parallel = c.parallel && compiler.Parallel()
	if c.parallel {
		c.pool = worker.NewDynamicWorkerPool(c.workers, c.queueSize, time.Second)
	}
	return c
}

func (c *cache) GetOrCreate(req Request) Effect {
	key := Key(req.Shader, req.Defines)
	if e, ok := c.effects[key]; ok {
		e.refs++
		e.addCallbacks(req)
		if c.observer != nil {
			c.observer.ObserveCacheHit(key)
		}
		return e
	}

	req.Defines = cloneSet(req.Defines)
	req.Fallbacks = req.Fallbacks.Clone()
	e := &effect{
		key:   key,
		name:  req.Shader,
		cache: c,
		req:   req,
		refs:  1,
	}
	e.addCallbacks(req)
	c.effects[key] = e
	c.logger.Debug("effect created", "key", key, "parallel", c.parallel)

	c.inFlight.Add(1)
	if c.parallel {
		id := c.nextTaskID
		c.nextTaskID++
		c.pool.SubmitTask(worker.Task{
			ID:      id,
			Payload: key,
			Do: func() (any, error) {
				c.compile(e)
				return nil, nil
			},
		})
	} else {
		c.compile(e)
	}
	return e
}

// compile builds the effect, reducing defines through the fallbacks until a variant compiles or
// no reduction is left.
func (c *cache) compile(e *effect) {
	defer c.inFlight.Add(-1)

	req := e.req
	set := cloneSet(req.Defines)
	fallbacks := req.Fallbacks.Clone()
	decls := shader.Declarations{
		Attributes:       req.Attributes,
		Uniforms:         req.Uniforms,
		Samplers:         req.Samplers,
		ExternalTextures: req.ExternalTextures,
	}

	for {
		start := time.Now()
		p, err := c.compileOnce(e, set, decls)
		if c.observer != nil {
			c.observer.ObserveCompile(e.key, time.Since(start), err)
		}
		if err == nil {
			c.logger.Debug("effect compiled", "key", e.key, "elapsed", time.Since(start))
			e.complete(p, set, nil)
			return
		}
		if !fallbacks.Reduce(set) {
			ce := newCompileError(e.key, set, err)
			c.logger.Error("effect compile failed", "key", e.key, "error", err)
			e.complete(nil, set, ce)
			return
		}
		c.logger.Warn("effect compile failed, retrying with fallback defines", "key", e.key, "defines", set.Join(), "error", err)
	}
}

func (c *cache) compileOnce(e *effect, set *defines.Set, decls shader.Declarations) (Program, error) {
	src, ok := c.store.Shader(e.name, c.compiler.Language())
	if !ok {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownShader, e.name, c.compiler.Language())
	}
	processed, err := shader.Compose(c.pp, src, shader.Unit{Defines: set, Declarations: &decls})
	if err != nil {
		return nil, err
	}
	return c.compiler.Compile(c.ctx, Compilation{
		Key:            e.key,
		Name:           e.name,
		Source:         processed,
		Defines:        set.Clone(),
		Declarations:   decls,
		UniformBuffers: e.req.UniformBuffers,
		StorageBuffers: e.req.StorageBuffers,
	})
}

func (c *cache) Get(key string) (Effect, bool) {
	e, ok := c.effects[key]
	if !ok {
		return nil, false
	}
	return e, true
}

func (c *cache) Release(eff Effect) {
	e, ok := eff.(*effect)
	if !ok || e == nil || e.cache != c || e.refs <= 0 {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	if cur, ok := c.effects[e.key]; ok && cur == e {
		delete(c.effects, e.key)
	}
	e.release()
	c.logger.Debug("effect released", "key", e.key)
}

func (c *cache) Invalidate(name string) int {
	n := 0
	for key, e := range c.effects {
		if name != "" && e.name != name {
			continue
		}
		e.stale.Store(true)
		delete(c.effects, key)
		n++
	}
	if n > 0 {
		c.logger.Info("effects invalidated", "shader", name, "count", n)
	}
	return n
}

func (c *cache) Len() int {
	return len(c.effects)
}

func (c *cache) Keys() []string {
	keys := make([]string, 0, len(c.effects))
	for k := range c.effects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *cache) Pending() int {
	return int(c.inFlight.Load())
}

func (c *cache) Language() shader.Language {
	return c.compiler.Language()
}

func (c *cache) Clear() {
	for key, e := range c.effects {
		e.refs = 0
		e.release()
		delete(c.effects, key)
	}
}

func (c *cache) Close() {
	c.Clear()
	c.cancel()
	if c.pool != nil {
		c.pool.Stop()
	}
}

func cloneSet(s *defines.Set) *defines.Set {
	if s == nil {
		return defines.NewSet()
	}
	return s.Clone()
}
