package webgpu

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// CompilerBuilderOption is a functional option for configuring a Compiler.
type CompilerBuilderOption func(*compiler)

// WithLogger sets the logger, nil keeps slog.Default().
func WithLogger(logger *slog.Logger) CompilerBuilderOption {
	return func(c *compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDepth sets whether pipelines test against and write to the depth buffer.
//
// Parameters:
//   - test: compare fragments against the depth buffer
//   - write: write fragment depth
//
// Returns:
//   - CompilerBuilderOption: a function that applies the option to a compiler
func WithDepth(test, write bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.depthTest = test
		c.depthWrite = write
	}
}

// WithCullMode sets the face culling of every pipeline.
func WithCullMode(mode wgpu.CullMode) CompilerBuilderOption {
	return func(c *compiler) {
		c.cullMode = mode
	}
}

// WithFrontFace sets the winding order of front faces.
func WithFrontFace(frontFace wgpu.FrontFace) CompilerBuilderOption {
	return func(c *compiler) {
		c.frontFace = frontFace
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology wgpu.PrimitiveTopology) CompilerBuilderOption {
	return func(c *compiler) {
		c.topology = topology
	}
}

// WithWriteMask sets the color write mask.
func WithWriteMask(mask wgpu.ColorWriteMask) CompilerBuilderOption {
	return func(c *compiler) {
		c.writeMask = mask
	}
}

// WithBlendState enables blending with the given state, nil disables blending.
//
// Parameters:
//   - state: the blend state, e.g. AlphaBlend
//
// Returns:
//   - CompilerBuilderOption: a function that applies the option to a compiler
func WithBlendState(state *wgpu.BlendState) CompilerBuilderOption {
	return func(c *compiler) {
		c.blendState = state
	}
}

// WithDefaultSampler sets the options of the sampler bound to texture slots whose texture
// brings no sampler.
func WithDefaultSampler(o SamplerOptions) CompilerBuilderOption {
	return func(c *compiler) {
		c.samplerOptions = o
	}
}

// AlphaBlend is the straight alpha blend state used for materials needing alpha blending.
var AlphaBlend = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
	Alpha: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
}
