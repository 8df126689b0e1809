package webgpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
	"github.com/cogentcore/webgpu/wgpu"
)

// compiler is the implementation of the Compiler interface.
type compiler struct {
	logger *slog.Logger
	device Device

	depthTest  bool
	depthWrite bool
	cullMode   wgpu.CullMode
	frontFace  wgpu.FrontFace
	topology   wgpu.PrimitiveTopology
	writeMask  wgpu.ColorWriteMask
	blendState *wgpu.BlendState

	samplerOptions SamplerOptions
	defaultSampler *Sampler
}

// Compiler is an effect.Compiler building render pipelines on a Device. wgpu-native objects
// are created on the device goroutine, so compiles never run in parallel.
type Compiler interface {
	effect.Compiler

	// Release frees the default sampler. Programs must be released first.
	Release()
}

var _ Compiler = &compiler{}

// NewCompiler creates a Compiler for d. Pipelines default to depth tested triangle lists with
// back faces culled and no blending.
//
// Parameters:
//   - d: the device pipelines are created on
//   - options: variadic list of CompilerBuilderOption functions
//
// Returns:
//   - Compiler: the compiler
//   - error: an error if the default sampler could not be created
func NewCompiler(d Device, options ...CompilerBuilderOption) (Compiler, error) {
	c := &compiler{
		logger:     slog.Default(),
		device:     d,
		depthTest:  true,
		depthWrite: true,
		cullMode:   wgpu.CullModeBack,
		frontFace:  wgpu.FrontFaceCCW,
		topology:   wgpu.PrimitiveTopologyTriangleList,
		writeMask:  wgpu.ColorWriteMaskAll,
	}
	for _, opt := range options {
		opt(c)
	}
	samp, err := d.GPU().CreateSampler(samplerDescriptor("Default Sampler", c.samplerOptions))
	if err != nil {
		return nil, fmt.Errorf("create default sampler: %w", err)
	}
	c.defaultSampler = &Sampler{name: "default", sampler: samp}
	return c, nil
}

func (c *compiler) Language() shader.Language { return shader.LanguageWGSL }
func (c *compiler) Parallel() bool            { return false }

func (c *compiler) Release() {
	if c.defaultSampler != nil {
		c.defaultSampler.Release()
		c.defaultSampler = nil
	}
}

func (c *compiler) Compile(ctx context.Context, comp effect.Compilation) (effect.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	vr := reflectStage(comp.Source.Vertex, shader.StageVertex)
	fr := reflectStage(comp.Source.Fragment, shader.StageFragment)
	groups := mergeBindings(vr, fr)
	if err := checkBindings(groups); err != nil {
		return nil, err
	}

	gpu := c.device.GPU()
	vs, err := c.createModule(comp.Key, shader.StageVertex, comp.Source.Vertex)
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := c.createModule(comp.Key, shader.StageFragment, comp.Source.Fragment)
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	p := &program{
		key:            comp.Key,
		groups:         groups,
		layouts:        make([]*wgpu.BindGroupLayout, len(groups)),
		bindGroups:     make([]*wgpu.BindGroup, len(groups)),
		dirty:          make([]bool, len(groups)),
		materialGroup:  comp.Declarations.Group,
		staging:        shader.NewStaging(comp.Declarations.Uniforms, shader.LanguageWGSL),
		defaultSampler: c.defaultSampler,
		resources:      make(map[string]uniform.Value),
	}
	fail := func(err error) (effect.Program, error) {
		p.Release()
		return nil, err
	}

	for g, layout := range groups {
		l, err := gpu.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", comp.Key, g),
			Entries: layout.entries,
		})
		if err != nil {
			return fail(fmt.Errorf("bind group layout %d: %w", g, err))
		}
		p.layouts[g] = l
	}
	pipelineLayout, err := gpu.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            comp.Key,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		return fail(err)
	}
	defer pipelineLayout.Release()

	p.pipeline, err = gpu.CreateRenderPipeline(c.pipelineDescriptor(comp.Key, pipelineLayout, vs, fs, vr, fr))
	if err != nil {
		return fail(err)
	}

	if len(comp.Declarations.Uniforms.Fields) > 0 {
		size := uint64(len(p.staging.Bytes()))
		if g := p.materialGroup; g < len(groups) && len(groups[g].entries) > 0 && groups[g].entries[0].Binding == 0 {
			size = max(size, groups[g].entries[0].Buffer.MinBindingSize)
		}
		p.uniformBuffer, err = gpu.CreateBuffer(&wgpu.BufferDescriptor{
			Label: comp.Key + " Material Buffer",
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fail(err)
		}
	}

	c.logger.Debug("webgpu pipeline created", "key", comp.Key, "groups", len(groups), "elapsed", time.Since(start))
	return p, nil
}

// createModule creates the shader module of one stage.
func (c *compiler) createModule(key string, stage shader.Stage, source string) (*wgpu.ShaderModule, error) {
	if source == "" {
		return nil, &effect.StageError{Stage: stage, Err: errors.New("empty source")}
	}
	m, err := c.device.GPU().CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          key + " " + stage.String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, &effect.StageError{Stage: stage, Err: err}
	}
	return m, nil
}

func (c *compiler) pipelineDescriptor(label string, layout *wgpu.PipelineLayout, vs, fs *wgpu.ShaderModule, vr, fr reflection) *wgpu.RenderPipelineDescriptor {
	target := wgpu.ColorTargetState{
		Format:    c.device.Format(),
		WriteMask: c.writeMask,
		Blend:     c.blendState,
	}
	depthCompare := wgpu.CompareFunctionLess
	if !c.depthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}
	return &wgpu.RenderPipelineDescriptor{
		Label:  label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vr.entryPoint,
			Buffers:    vr.vertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fr.entryPoint,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  c.topology,
			FrontFace: c.frontFace,
			CullMode:  c.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: c.device.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: c.depthWrite,
			DepthCompare:      depthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	}
}

// checkBindings rejects declarations wgpu-native cannot bind, such as external textures.
func checkBindings(groups []groupLayout) error {
	for g, layout := range groups {
		for _, e := range layout.entries {
			if e.Buffer.Type == wgpu.BufferBindingTypeUndefined &&
				e.Texture.SampleType == wgpu.TextureSampleTypeUndefined &&
				e.Sampler.Type == wgpu.SamplerBindingTypeUndefined {
				return &effect.StageError{
					Stage: stageOf(e.Visibility),
					Err:   fmt.Errorf("binding %s (group %d, binding %d) has an unsupported type", layout.names[e.Binding], g, e.Binding),
				}
			}
		}
	}
	return nil
}

func stageOf(v wgpu.ShaderStage) shader.Stage {
	if v&wgpu.ShaderStageVertex != 0 {
		return shader.StageVertex
	}
	return shader.StageFragment
}
