package material

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
)

// ShaderMaterialBuilderOption is a function that configures a shader material during construction.
type ShaderMaterialBuilderOption func(*shaderMaterial)

// WithOptions replaces the default options of the material. Start from DefaultOptions so the
// shader language matches the backend.
//
// Parameters:
//   - o: the options, copied
//
// Returns:
//   - ShaderMaterialBuilderOption: the option
func WithOptions(o Options) ShaderMaterialBuilderOption {
	return func(m *shaderMaterial) {
		m.options = o.Clone()
	}
}

// WithStoreEffectOnSubMeshes selects one draw wrapper per submesh (the default) or a single one
// for the whole material.
func WithStoreEffectOnSubMeshes(store bool) ShaderMaterialBuilderOption {
	return func(m *shaderMaterial) {
		m.storeEffectOnSubMeshes = store
	}
}

// WithPlugins appends plugins in bind order.
//
// Parameters:
//   - plugins: the plugins
//
// Returns:
//   - ShaderMaterialBuilderOption: the option
func WithPlugins(plugins ...Plugin) ShaderMaterialBuilderOption {
	return func(m *shaderMaterial) {
		m.plugins = append(m.plugins, plugins...)
	}
}

// WithLogarithmicDepth enables logarithmic depth output.
func WithLogarithmicDepth(enabled bool) ShaderMaterialBuilderOption {
	return func(m *shaderMaterial) {
		m.logarithmicDepth = enabled
	}
}

// WithDualSourceBlending requests dual-source blending, falling back to a define when the device
// lacks it.
func WithDualSourceBlending(enabled bool) ShaderMaterialBuilderOption {
	return func(m *shaderMaterial) {
		m.dualSourceBlending = enabled
	}
}

// WithOutputCount sets the number of render targets the shader writes.
//
// Parameters:
//   - n: the color attachment count, values below 1 are ignored
//
// Returns:
//   - ShaderMaterialBuilderOption: the option
func WithOutputCount(n int) ShaderMaterialBuilderOption {
	return func(m *shaderMaterial) {
		if n > 0 {
			m.outputCount = n
		}
	}
}

// WithCallbacks sets the functions called when a requested effect finishes compiling or fails
// after every fallback. They run inside the IsReady call that observes the outcome.
func WithCallbacks(onCompiled func(effect.Effect), onError func(effect.Effect, error)) ShaderMaterialBuilderOption {
	return func(m *shaderMaterial) {
		m.onCompiled = onCompiled
		m.onError = onError
	}
}
