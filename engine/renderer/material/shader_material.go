// Package material implements the shader material: a declarative set of options, defines and
// named values that is turned into a cached effect per mesh configuration and bound to it frame
// over frame with as few state changes as possible.
package material

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-fx/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrTextureNotReady is recorded when a material texture is not uploaded yet. The material
	// stays not ready and is checked again on the next IsReady call.
	ErrTextureNotReady = errors.New("texture not ready")

	// ErrLanguageMismatch is recorded when the material sources are written in a language the
	// rendering context cannot compile.
	ErrLanguageMismatch = errors.New("shader language mismatch")

	// ErrDisposed is recorded when a disposed material is used.
	ErrDisposed = errors.New("material disposed")
)

// shaderMaterial is the implementation of the ShaderMaterial interface.
type shaderMaterial struct {
	id     uint64
	name   string
	shader string

	renderer renderer.Renderer
	scene    *scene.Scene
	logger   *slog.Logger

	options Options
	values  uniform.Registry
	plugins []Plugin

	storeEffectOnSubMeshes bool
	logarithmicDepth       bool
	dualSourceBlending     bool
	outputCount            int

	onCompiled func(effect.Effect)
	onError    func(effect.Effect, error)

	wrapper     bind.DrawWrapper
	subWrappers map[*scene.SubMesh]bind.DrawWrapper

	// generation is the renderer reload generation failures were last cleared at.
	generation uint64

	frozen   bool
	disposed bool
	lastErr  error
}

// ShaderMaterial is a material rendering with a named shader from the context's store.
//
// A material is used in two steps per draw: IsReady (or IsReadyForSubMesh) resolves the defines
// for the mesh, requests the matching effect and reports whether it can be drawn; Bind (or
// BindForSubMesh) then pushes the values the bind dispatcher decides are needed. Neither panics
// nor returns an error: failures leave IsReady false and are available through LastError.
//
// All methods must be called from the main goroutine.
type ShaderMaterial interface {
	// ID returns the unique id of the material within its rendering context.
	ID() uint64

	Name() string

	// ShaderName returns the store name of the shader.
	ShaderName() string

	// ClassName returns "ShaderMaterial".
	ClassName() string

	// Options returns the live options of the material. Changes are picked up by the next IsReady.
	Options() *Options

	// Values returns the named values of the material.
	Values() uniform.Registry

	// Plugins returns the plugins in bind order.
	Plugins() []Plugin

	// Plugin returns the plugin with the given name.
	Plugin(name string) (Plugin, bool)

	// SetDefine adds, replaces or removes a define; see Options.SetDefine.
	SetDefine(name string, value any) bool

	// IsReady prepares the effect of the material-level draw wrapper.
	//
	// Parameters:
	//   - mesh: the mesh to draw, nil to check the material alone
	//   - useInstances: true when the mesh is drawn instanced
	//
	// Returns:
	//   - bool: true if the material can be bound and drawn
	IsReady(mesh *scene.Mesh, useInstances bool) bool

	// IsReadyForSubMesh prepares the effect of the submesh draw wrapper.
	IsReadyForSubMesh(mesh *scene.Mesh, subMesh *scene.SubMesh, useInstances bool) bool

	// Bind pushes the values of a draw using the material-level effect.
	//
	// Parameters:
	//   - world: the world matrix of the draw
	//   - mesh: the mesh being drawn, may be nil
	Bind(world mgl32.Mat4, mesh *scene.Mesh)

	// BindForSubMesh pushes the values of a draw using the submesh effect.
	BindForSubMesh(world mgl32.Mat4, mesh *scene.Mesh, subMesh *scene.SubMesh)

	// BindOnlyWorldMatrix applies the world derived matrices to the material-level effect.
	BindOnlyWorldMatrix(world mgl32.Mat4)

	// Effect returns the active material-level effect, nil if none.
	Effect() effect.Effect

	// EffectForSubMesh returns the active effect of a submesh, nil if none.
	EffectForSubMesh(subMesh *scene.SubMesh) effect.Effect

	// LastError returns the reason of the last failed readiness check, nil after a success.
	LastError() error

	Freeze()
	Unfreeze()
	IsFrozen() bool

	// NeedAlphaBlending and NeedAlphaTesting report the alpha options.
	NeedAlphaBlending() bool
	NeedAlphaTesting() bool

	// Set stores a value of any kind.
	//
	// Parameters:
	//   - name: the uniform, texture or buffer name
	//   - v: the value
	//
	// Returns:
	//   - bool: true if the stored value changed
	Set(name string, v uniform.Value) bool

	SetTexture(name string, t uniform.Texture)
	SetTextureArray(name string, t []uniform.Texture)
	SetExternalTexture(name string, t uniform.Texture)
	SetSampler(name string, s uniform.Sampler)
	SetUniformBuffer(name string, b uniform.Buffer)
	SetStorageBuffer(name string, b uniform.Buffer)
	SetInt(name string, v int32)
	SetInts(name string, v []int32)
	SetUint(name string, v uint32)
	SetFloat(name string, v float32)
	SetFloats(name string, v []float32)
	SetColor3(name string, c mgl32.Vec3)
	SetColor3Array(name string, c []mgl32.Vec3)
	SetColor4(name string, c mgl32.Vec4)
	SetColor4Array(name string, c []mgl32.Vec4)
	SetVector2(name string, v mgl32.Vec2)
	SetVector3(name string, v mgl32.Vec3)
	SetVector4(name string, v mgl32.Vec4)
	SetQuaternion(name string, q mgl32.Quat)
	SetMatrix(name string, m mgl32.Mat4)
	SetMatrices(name string, m []mgl32.Mat4)
	SetMatrix3x3(name string, m mgl32.Mat3)
	SetMatrix2x2(name string, m mgl32.Mat2)
	SetArray2(name string, v []mgl32.Vec2)
	SetArray3(name string, v []mgl32.Vec3)
	SetArray4(name string, v []mgl32.Vec4)
	SetQuaternionArray(name string, q []mgl32.Quat)

	// RemoveTexture removes a texture or texture array. Other kinds cannot be removed.
	RemoveTexture(name string) bool

	// ActiveTextures returns every texture referenced by the material.
	ActiveTextures() []uniform.Texture

	// HasTexture reports whether the material references t.
	HasTexture(t uniform.Texture) bool

	// Clone returns a copy of the material with its own id, options, values and plugins. Effects
	// are not shared until the copy requests them.
	Clone(name string) ShaderMaterial

	// Serialize returns the persisted form of the material.
	Serialize() Serialized

	// Dispose drops the draw wrappers. With forceDisposeEffect the effect references are released
	// through the cache; without it the compiled effects stay cached for reuse until the cache is
	// cleared.
	Dispose(forceDisposeEffect bool)
}

var _ ShaderMaterial = &shaderMaterial{}

// NewShaderMaterial creates a ShaderMaterial drawing with the shader stored under shaderName.
//
// Parameters:
//   - name: the material name
//   - r: the rendering context
//   - sc: the scene the material is drawn in
//   - shaderName: the store name of the shader
//   - options: variadic list of ShaderMaterialBuilderOption functions
//
// Returns:
//   - ShaderMaterial: the new material
func NewShaderMaterial(name string, r renderer.Renderer, sc *scene.Scene, shaderName string, options ...ShaderMaterialBuilderOption) ShaderMaterial {
	m := &shaderMaterial{
		id:                     r.NextUniqueID(),
		name:                   name,
		shader:                 shaderName,
		renderer:               r,
		scene:                  sc,
		logger:                 r.Logger(),
		options:                DefaultOptions(),
		storeEffectOnSubMeshes: true,
		outputCount:            1,
		wrapper:                bind.NewDrawWrapper(),
		subWrappers:            make(map[*scene.SubMesh]bind.DrawWrapper),
		generation:             r.Generation(),
	}
	m.options.ShaderLanguage = r.Language()
	for _, opt := range options {
		opt(m)
	}
	if m.scene == nil {
		m.scene = scene.NewScene(nil)
	}
	if m.values == nil {
		m.values = uniform.NewRegistry(&m.options)
	}
	return m
}

func (m *shaderMaterial) ID() uint64         { return m.id }
func (m *shaderMaterial) Name() string       { return m.name }
func (m *shaderMaterial) ShaderName() string { return m.shader }
func (m *shaderMaterial) ClassName() string  { return "ShaderMaterial" }

func (m *shaderMaterial) Options() *Options        { return &m.options }
func (m *shaderMaterial) Values() uniform.Registry { return m.values }
func (m *shaderMaterial) Plugins() []Plugin        { return m.plugins }

func (m *shaderMaterial) Plugin(name string) (Plugin, bool) {
	for _, p := range m.plugins {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

func (m *shaderMaterial) SetDefine(name string, value any) bool {
	return m.options.SetDefine(name, value)
}

func (m *shaderMaterial) LastError() error { return m.lastErr }

func (m *shaderMaterial) Freeze()        { m.frozen = true }
func (m *shaderMaterial) Unfreeze()      { m.frozen = false }
func (m *shaderMaterial) IsFrozen() bool { return m.frozen }

func (m *shaderMaterial) NeedAlphaBlending() bool { return m.options.NeedAlphaBlending }
func (m *shaderMaterial) NeedAlphaTesting() bool  { return m.options.NeedAlphaTesting }

func (m *shaderMaterial) Effect() effect.Effect {
	return m.wrapper.Effect()
}

func (m *shaderMaterial) EffectForSubMesh(subMesh *scene.SubMesh) effect.Effect {
	return m.wrapperFor(subMesh).Effect()
}

// wrapperFor returns the draw wrapper of subMesh, creating it on first use. Without per-submesh
// storage or without a submesh the material-level wrapper is used.
func (m *shaderMaterial) wrapperFor(subMesh *scene.SubMesh) bind.DrawWrapper {
	if subMesh == nil || !m.storeEffectOnSubMeshes {
		return m.wrapper
	}
	w, ok := m.subWrappers[subMesh]
	if !ok {
		w = bind.NewDrawWrapper()
		m.subWrappers[subMesh] = w
	}
	return w
}

func (m *shaderMaterial) IsReady(mesh *scene.Mesh, useInstances bool) bool {
	return m.isReady(mesh, useInstances, m.wrapper)
}

func (m *shaderMaterial) IsReadyForSubMesh(mesh *scene.Mesh, subMesh *scene.SubMesh, useInstances bool) bool {
	return m.isReady(mesh, useInstances, m.wrapperFor(subMesh))
}

func (m *shaderMaterial) isReady(mesh *scene.Mesh, useInstances bool, w bind.DrawWrapper) bool {
	if m.disposed {
		m.lastErr = ErrDisposed
		return false
	}
	m.syncGeneration()

	if m.frozen && w.Effect() != nil && w.Pending() == nil && w.PreviouslyReady() && w.PreviouslyUsingInstances() == useInstances {
		return true
	}

	if lang := m.renderer.Language(); m.options.ShaderLanguage != lang {
		m.lastErr = fmt.Errorf("%w: %s sources on a %s backend", ErrLanguageMismatch, m.options.ShaderLanguage, lang)
		return false
	}
	if err := m.texturesReady(); err != nil {
		m.lastErr = err
		return false
	}
	if errors.Is(m.lastErr, ErrTextureNotReady) || errors.Is(m.lastErr, ErrLanguageMismatch) {
		m.lastErr = nil
	}

	res := m.collect(mesh, useInstances)
	if m.needsRequest(w, res.Defines.Join()) {
		m.request(w, res)
	}
	w.SetPreviouslyUsingInstances(useInstances)

	cache := m.renderer.Cache()
	if p := w.Pending(); p != nil {
		switch {
		case p.IsReady():
			prev, changed := w.Promote()
			if prev != nil {
				cache.Release(prev)
			}
			if changed {
				m.renderer.ResetCachedMaterial()
			}
			m.lastErr = nil
		case p.Err() != nil:
			m.lastErr = p.Err()
			cache.Release(w.Fail())
			m.logger.Warn("material keeps its previous effect", "material", m.name, "error", m.lastErr)
		default:
			return false
		}
	}

	e := w.Effect()
	if e == nil || !e.IsReady() {
		return false
	}
	w.SetPreviouslyReady(true)
	return true
}

// syncGeneration clears remembered compile failures after shader sources were reloaded.
func (m *shaderMaterial) syncGeneration() {
	g := m.renderer.Generation()
	if g == m.generation {
		return
	}
	m.generation = g
	m.wrapper.ClearFailure()
	for _, w := range m.subWrappers {
		w.ClearFailure()
	}
}

func (m *shaderMaterial) texturesReady() error {
	for _, kind := range []uniform.Kind{uniform.KindTexture, uniform.KindTextureArray, uniform.KindExternalTexture} {
		for _, entry := range m.values.Entries(kind) {
			if !entry.Value.IsReady() {
				return fmt.Errorf("%w: %s", ErrTextureNotReady, entry.Name)
			}
		}
	}
	return nil
}

// collect resolves the define set, attributes and names of the variant needed for mesh.
func (m *shaderMaterial) collect(mesh *scene.Mesh, useInstances bool) defines.Result {
	in := defines.Input{
		Defines:            m.options.Defines,
		Attributes:         m.options.Attributes,
		Uniforms:           m.options.Uniforms,
		Samplers:           m.options.Samplers,
		Caps:               m.renderer.Caps(),
		Scene:              m.scene.DefinesScene(),
		UseInstances:       useInstances,
		UseClipPlane:       m.options.UseClipPlane,
		LogarithmicDepth:   m.logarithmicDepth,
		DualSourceBlending: m.dualSourceBlending,
		OutputCount:        m.outputCount,
	}
	if mesh != nil {
		in.Mesh = mesh.DefinesMesh()
		in.AlphaTest = m.options.NeedAlphaTesting
	}
	res := m.renderer.Collector().Collect(in)
	for _, p := range m.plugins {
		p.PrepareDefines(res.Defines)
	}
	return res
}

// needsRequest reports whether w has to request a new effect for the joined define set.
func (m *shaderMaterial) needsRequest(w bind.DrawWrapper, joined string) bool {
	if joined == w.FailedDefines() {
		return false
	}
	if cached := w.CachedDefines(); cached == nil || cached.Join() != joined {
		return true
	}
	active := w.Effect()
	return w.Pending() == nil && active != nil && active.Stale()
}

func (m *shaderMaterial) request(w bind.DrawWrapper, res defines.Result) {
	req := effect.Request{
		Shader:           m.shader,
		Defines:          res.Defines,
		Attributes:       res.Attributes,
		Uniforms:         buildBlock(m.logger, res.Uniforms, res, m.values, m.plugins),
		UniformBuffers:   slices.Clone(m.options.UniformBuffers),
		StorageBuffers:   slices.Clone(m.options.StorageBuffers),
		Samplers:         res.Samplers,
		ExternalTextures: slices.Clone(m.options.ExternalTextures),
		Fallbacks:        res.Fallbacks,
		OnCompiled:       m.onCompiled,
		OnError:          m.onError,
	}
	e := m.renderer.Cache().GetOrCreate(req)
	m.logger.Debug("material requested effect", "material", m.name, "key", e.Key())
	if prev := w.SetEffect(e, res.Defines); prev != nil {
		m.renderer.Cache().Release(prev)
	}
}

func (m *shaderMaterial) Bind(world mgl32.Mat4, mesh *scene.Mesh) {
	m.bind(world, mesh, m.wrapper)
}

func (m *shaderMaterial) BindForSubMesh(world mgl32.Mat4, mesh *scene.Mesh, subMesh *scene.SubMesh) {
	m.bind(world, mesh, m.wrapperFor(subMesh))
}

func (m *shaderMaterial) BindOnlyWorldMatrix(world mgl32.Mat4) {
	e := m.wrapper.Effect()
	if e == nil || !e.IsReady() {
		return
	}
	m.renderer.Dispatcher().BindMatrices(e, m.matrices(world), uniformNames(e))
}

func (m *shaderMaterial) bind(world mgl32.Mat4, mesh *scene.Mesh, w bind.DrawWrapper) {
	if m.disposed {
		return
	}
	r := m.renderer
	var meshID uint64
	if mesh != nil {
		meshID = mesh.ID()
	}
	d := r.Dispatcher()
	state := d.Decide(w, bind.Inputs{
		MaterialID:       m.id,
		CachedMaterialID: r.CachedMaterial(),
		Frozen:           m.frozen,
		SameMeshWorld:    r.SameMeshWorld(meshID, world),
	})
	if state == bind.NotReady {
		return
	}

	e := w.Effect()
	names := uniformNames(e)
	mats := m.matrices(world)
	switch state {
	case bind.ReadyFullBind:
		d.BindMatrices(e, mats, names)
		d.BindCamera(e, mats, names)
		m.bindScene(e, mesh, names)
		d.Flush(m.values, e)
		for _, p := range m.plugins {
			p.Bind(e)
		}
		r.SetCachedMaterial(m.id)
	case bind.ReadyMatrixOnlyBind:
		d.BindMatrices(e, mats, names)
	}

	if mesh != nil && (state == bind.ReadyFullBind || !m.frozen) {
		bindMorphTargets(e, mesh)
		bindBakedVertexAnimation(e, mesh, m.scene.Time, w.PreviouslyUsingInstances())
	}
	r.SetCachedMesh(meshID, world)
}

// matrices returns the transforms of a draw seen through the scene camera.
func (m *shaderMaterial) matrices(world mgl32.Mat4) bind.Matrices {
	out := bind.Matrices{World: world, View: mgl32.Ident4(), Projection: mgl32.Ident4()}
	if cam := m.scene.Camera; cam != nil {
		out.View = cam.View()
		out.Projection = cam.Projection()
	}
	return out
}

// bindScene applies the camera, skinning, clip plane, fog and depth values of a full bind.
func (m *shaderMaterial) bindScene(e effect.Effect, mesh *scene.Mesh, names []string) {
	set := e.Defines()
	if set == nil {
		set = defines.NewSet()
	}
	cam := m.scene.Camera

	if cam != nil {
		if cam.Multiview() && slices.Contains(names, "viewProjectionR") {
			e.Apply("viewProjectionR", uniform.Matrix(cam.ViewProjectionR()))
		}
		if slices.Contains(names, "cameraPosition") {
			e.Apply("cameraPosition", uniform.Vector3(cam.Position()))
		}
		if set.Has("LOGARITHMICDEPTH") {
			e.Apply("logarithmicDepthConstant", uniform.Float(cam.LogarithmicDepthConstant()))
		}
	}

	if mesh != nil {
		bindBones(e, mesh, set)
	}

	for i, plane := range m.scene.ClipPlanes {
		if plane == nil {
			continue
		}
		name := "vClipPlane"
		if i > 0 {
			name = fmt.Sprintf("vClipPlane%d", i+1)
		}
		e.Apply(name, uniform.Vector4(*plane))
	}

	if set.Has("FOG") && mesh != nil && mesh.ApplyFog {
		e.Apply("vFogInfos", uniform.Vector4(m.scene.Fog.Infos()))
		e.Apply("vFogColor", uniform.Color3(m.scene.Fog.Color))
	}
}

// uniformNames returns the block field names of e.
func uniformNames(e effect.Effect) []string {
	fields := e.Request().Uniforms.Fields
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func (m *shaderMaterial) Dispose(forceDisposeEffect bool) {
	if m.disposed {
		return
	}
	cache := m.renderer.Cache()
	drop := m.wrapper.Reset()
	for _, w := range m.subWrappers {
		drop = append(drop, w.Reset()...)
	}
	if forceDisposeEffect {
		for _, e := range drop {
			cache.Release(e)
		}
	}
	if m.renderer.CachedMaterial() == m.id {
		m.renderer.ResetCachedMaterial()
	}
	clear(m.subWrappers)
	m.disposed = true
	m.logger.Debug("material disposed", "material", m.name, "effects", len(drop), "force", forceDisposeEffect)
}

func (m *shaderMaterial) Clone(name string) ShaderMaterial {
	c := &shaderMaterial{
		id:                     m.renderer.NextUniqueID(),
		name:                   name,
		shader:                 m.shader,
		renderer:               m.renderer,
		scene:                  m.scene,
		logger:                 m.logger,
		options:                m.options.Clone(),
		storeEffectOnSubMeshes: m.storeEffectOnSubMeshes,
		logarithmicDepth:       m.logarithmicDepth,
		dualSourceBlending:     m.dualSourceBlending,
		outputCount:            m.outputCount,
		onCompiled:             m.onCompiled,
		onError:                m.onError,
		wrapper:                bind.NewDrawWrapper(),
		subWrappers:            make(map[*scene.SubMesh]bind.DrawWrapper),
		generation:             m.renderer.Generation(),
	}
	c.values = m.values.Clone(&c.options)
	for _, p := range m.plugins {
		c.plugins = append(c.plugins, p.Clone())
	}
	return c
}
