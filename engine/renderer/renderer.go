// Package renderer is the rendering context the material system runs in. A Renderer owns the
// effect cache, shader store, define collector and bind dispatcher of one context, together with
// the "last bound" state materials compare against. Nothing in the material system is global:
// independent contexts can coexist, which tests rely on.
package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// reloadQueueSize is the number of shader reloads buffered between two frames.
const reloadQueueSize = 64

// renderer is the implementation of the Renderer interface.
type renderer struct {
	logger      *slog.Logger
	caps        defines.Caps
	backendType RendererBackendType

	compiler   effect.Compiler
	store      shader.Store
	cache      effect.Cache
	collector  defines.Collector
	dispatcher bind.Dispatcher
	profiler   *profiler.Profiler

	// Pre-creation config collected from builder options
	parallel        bool
	workers         int
	queueSize       int
	shaderDir       string
	watch           bool
	profilerEnabled bool
	profilerOptions []profiler.ProfilerBuilderOption

	nextID atomic.Uint64

	cachedMaterial uint64
	cachedMesh     uint64
	cachedWorld    mgl32.Mat4

	// reloads carries shader names from the watcher goroutine to BeginFrame.
	reloads     chan string
	reloadAll   atomic.Bool
	cancelWatch context.CancelFunc
	frame       uint64
	generation  uint64
}

// Renderer is the rendering context of the material system.
//
// All methods must be called from the main goroutine.
type Renderer interface {
	// Caps returns the device capabilities defines are resolved against.
	Caps() defines.Caps

	// Language returns the shading language of the compiler.
	Language() shader.Language

	// BackendType returns the configured backend.
	BackendType() RendererBackendType

	Cache() effect.Cache
	Store() shader.Store
	Collector() defines.Collector
	Dispatcher() bind.Dispatcher

	// Profiler returns the statistics collector, nil when profiling is disabled.
	Profiler() *profiler.Profiler

	Logger() *slog.Logger

	// NextUniqueID returns a new id, unique within the context and never 0.
	NextUniqueID() uint64

	// CachedMaterial returns the id of the last fully bound material, 0 if none.
	CachedMaterial() uint64

	// SetCachedMaterial records the last fully bound material.
	SetCachedMaterial(id uint64)

	// ResetCachedMaterial forgets the last bound material and mesh so the next bind is a full one.
	ResetCachedMaterial()

	// SameMeshWorld reports whether the last bind used the same mesh and world matrix.
	//
	// Parameters:
	//   - meshID: the mesh about to be bound
	//   - world: its world matrix
	//
	// Returns:
	//   - bool: true if nothing per-object changed since the last bind
	SameMeshWorld(meshID uint64, world mgl32.Mat4) bool

	// SetCachedMesh records the mesh and world matrix of the last bind.
	SetCachedMesh(meshID uint64, world mgl32.Mat4)

	// BeginFrame applies pending shader reloads and resets the bind cache.
	BeginFrame()

	// EndFrame advances the frame counter and ticks the profiler.
	EndFrame()

	// Frame returns the number of completed frames.
	Frame() uint64

	// Generation returns a counter bumped every time BeginFrame applies shader reloads.
	Generation() uint64

	// Close stops the shader watcher and releases every effect.
	Close()
}

var _ Renderer = &renderer{}

// NewRenderer creates a rendering context compiling through compiler.
//
// Parameters:
//   - compiler: the backend compiler
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the rendering context
//   - error: an error if the shader directory cannot be loaded or watched
func NewRenderer(compiler effect.Compiler, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		logger:    slog.Default(),
		caps:      defines.DefaultCaps(),
		compiler:  compiler,
		parallel:  true,
		workers:   4,
		queueSize: 256,
		reloads:   make(chan string, reloadQueueSize),
	}
	for _, opt := range options {
		opt(r)
	}

	store, err := shader.NewStore(shader.WithStoreLogger(r.logger))
	if err != nil {
		return nil, err
	}
	r.store = store
	if r.shaderDir != "" {
		n, err := store.LoadDir(r.shaderDir)
		if err != nil {
			return nil, fmt.Errorf("load shaders: %w", err)
		}
		r.logger.Info("shaders loaded", "dir", r.shaderDir, "files", n)
	}

	cacheOptions := []effect.CacheBuilderOption{
		effect.WithLogger(r.logger),
		effect.WithParallel(r.parallel && r.caps.ParallelShaderCompile),
		effect.WithWorkers(r.workers, r.queueSize),
	}
	dispatcherOptions := []bind.DispatcherBuilderOption{bind.WithLogger(r.logger)}
	if r.profilerEnabled {
		r.profiler = profiler.NewProfiler(append([]profiler.ProfilerBuilderOption{profiler.WithLogger(r.logger)}, r.profilerOptions...)...)
		cacheOptions = append(cacheOptions, effect.WithObserver(r.profiler))
		dispatcherOptions = append(dispatcherOptions, bind.WithObserver(r.profiler))
	}
	r.cache = effect.NewCache(compiler, store, cacheOptions...)
	r.collector = defines.NewCollector(defines.WithLogger(r.logger))
	r.dispatcher = bind.NewDispatcher(dispatcherOptions...)

	if r.watch && r.shaderDir != "" {
		ctx, cancel := context.WithCancel(context.Background())
		if err := store.Watch(ctx, r.shaderDir, r.queueReload); err != nil {
			cancel()
			r.cache.Close()
			return nil, fmt.Errorf("watch shaders: %w", err)
		}
		r.cancelWatch = cancel
	}
	return r, nil
}

func (r *renderer) Caps() defines.Caps               { return r.caps }
func (r *renderer) Language() shader.Language        { return r.compiler.Language() }
func (r *renderer) BackendType() RendererBackendType { return r.backendType }
func (r *renderer) Cache() effect.Cache              { return r.cache }
func (r *renderer) Store() shader.Store              { return r.store }
func (r *renderer) Collector() defines.Collector     { return r.collector }
func (r *renderer) Dispatcher() bind.Dispatcher      { return r.dispatcher }
func (r *renderer) Profiler() *profiler.Profiler     { return r.profiler }
func (r *renderer) Logger() *slog.Logger             { return r.logger }
func (r *renderer) NextUniqueID() uint64             { return r.nextID.Add(1) }
func (r *renderer) CachedMaterial() uint64           { return r.cachedMaterial }
func (r *renderer) SetCachedMaterial(id uint64)      { r.cachedMaterial = id }
func (r *renderer) Frame() uint64                    { return r.frame }
func (r *renderer) Generation() uint64               { return r.generation }

func (r *renderer) ResetCachedMaterial() {
	r.cachedMaterial = 0
	r.cachedMesh = 0
}

func (r *renderer) SameMeshWorld(meshID uint64, world mgl32.Mat4) bool {
	return meshID != 0 && r.cachedMesh == meshID && r.cachedWorld == world
}

func (r *renderer) SetCachedMesh(meshID uint64, world mgl32.Mat4) {
	r.cachedMesh = meshID
	r.cachedWorld = world
}

// queueReload is called from the watcher goroutine.
func (r *renderer) queueReload(name string) {
	select {
	case r.reloads <- name:
	default:
		r.reloadAll.Store(true)
	}
}

func (r *renderer) BeginFrame() {
	if r.reloadAll.Swap(false) {
		r.drainReloads()
		n := r.cache.Invalidate("")
		r.generation++
		r.logger.Info("shaders reloaded", "effects", n)
	} else {
		reloaded := false
		for r.drainOne() {
			reloaded = true
		}
		if reloaded {
			r.generation++
		}
	}
	r.ResetCachedMaterial()
}

// drainOne invalidates one queued shader.
func (r *renderer) drainOne() bool {
	select {
	case name := <-r.reloads:
		n := r.cache.Invalidate(name)
		r.logger.Info("shader reloaded", "shader", name, "effects", n)
		return true
	default:
		return false
	}
}

func (r *renderer) drainReloads() {
	for {
		select {
		case <-r.reloads:
		default:
			return
		}
	}
}

func (r *renderer) EndFrame() {
	r.frame++
	if r.profiler != nil {
		r.profiler.Tick()
	}
}

func (r *renderer) Close() {
	if r.cancelWatch != nil {
		r.cancelWatch()
		r.cancelWatch = nil
	}
	r.cache.Close()
}
