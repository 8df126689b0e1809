package naga

import (
	"log/slog"

	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/spirv"
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

// WithValidation enables or disables IR validation before translation.
func WithValidation(validate bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.validate = validate
	}
}

// WithDebug includes debug names and line information in the SPIR-V output.
func WithDebug(debug bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.debug = debug
	}
}

// WithSPIRVVersion sets the SPIR-V version to target.
//
// Parameters:
//   - v: the version, e.g. spirv.Version1_3
//
// Returns:
//   - CompilerBuilderOption: a function that applies the option to a compiler
func WithSPIRVVersion(v spirv.Version) CompilerBuilderOption {
	return func(c *compiler) {
		c.spirv = v
	}
}

// WithGLSL additionally translates every stage to GLSL of the given version, for example
// glsl.VersionES300 for WebGL2-class targets.
//
// Parameters:
//   - v: the GLSL version
//
// Returns:
//   - CompilerBuilderOption: a function that applies the option to a compiler
func WithGLSL(v glsl.Version) CompilerBuilderOption {
	return func(c *compiler) {
		c.glslVersion = &v
	}
}
