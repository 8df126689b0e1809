package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/config"
)

// RendererBackendType identifies the effect compiler backend of a Renderer.
type RendererBackendType int

const (
	// BackendTypeHeadless records compiles and binds without a GPU.
	BackendTypeHeadless RendererBackendType = iota

	// BackendTypeNaga validates WGSL and translates it to SPIR-V and GLSL in pure Go.
	BackendTypeNaga

	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeHeadless:
		return config.BackendHeadless
	case BackendTypeNaga:
		return config.BackendNaga
	case BackendTypeWGPU:
		return config.BackendWGPU
	default:
		return fmt.Sprintf("backend(%d)", int(t))
	}
}

// ParseBackendType parses a backend name as written in configuration files.
//
// Parameters:
//   - s: headless, naga or wgpu
//
// Returns:
//   - RendererBackendType: the backend type
//   - error: an error if the name is unknown
func ParseBackendType(s string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.BackendHeadless, "":
		return BackendTypeHeadless, nil
	case config.BackendNaga:
		return BackendTypeNaga, nil
	case config.BackendWGPU:
		return BackendTypeWGPU, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", s)
	}
}
