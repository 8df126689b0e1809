// Package naga is an offline effect compiler built on the pure-Go naga shader translator. WGSL
// variants are parsed, lowered and validated, then translated to SPIR-V and optionally to GLSL,
// so a variant set can be checked and exported without a GPU or a native driver.
package naga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	gonaga "github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/spirv"
)

// ErrValidation is wrapped by compile errors caused by IR validation issues.
var ErrValidation = errors.New("shader validation failed")

// compiler is the implementation of the Compiler interface.
type compiler struct {
	logger   *slog.Logger
	validate bool
	debug    bool
	spirv    spirv.Version

	// glslVersion is the GLSL target, nil disables GLSL output.
	glslVersion *glsl.Version
}

// Compiler is an effect.Compiler producing SPIR-V (and optionally GLSL) from WGSL variants.
// Translation is pure Go and stateless, so compiles may run on the cache's worker pool.
type Compiler interface {
	effect.Compiler
}

var _ Compiler = &compiler{}

// NewCompiler creates a naga Compiler. Validation is enabled and SPIR-V 1.3 is targeted.
//
// Parameters:
//   - options: variadic list of CompilerBuilderOption functions
//
// Returns:
//   - Compiler: the compiler
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		logger:   slog.Default(),
		validate: true,
		spirv:    spirv.Version1_3,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Language() shader.Language { return shader.LanguageWGSL }
func (c *compiler) Parallel() bool            { return true }

func (c *compiler) Compile(ctx context.Context, comp effect.Compilation) (effect.Program, error) {
	start := time.Now()
	p := newProgram(comp)
	for _, stage := range []shader.Stage{shader.StageVertex, shader.StageFragment} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := c.compileStage(comp.Source.Stage(stage))
		if err != nil {
			return nil, &effect.StageError{Stage: stage, Err: err}
		}
		p.stages[stage] = out
	}
	c.logger.Debug("naga program translated", "key", comp.Key,
		"spirv_bytes", len(p.stages[shader.StageVertex].SPIRV)+len(p.stages[shader.StageFragment].SPIRV),
		"elapsed", time.Since(start))
	return p, nil
}

// compileStage translates the WGSL source of one stage.
func (c *compiler) compileStage(source string) (StageOutput, error) {
	var out StageOutput
	if source == "" {
		return out, errors.New("empty source")
	}

	ast, err := gonaga.Parse(source)
	if err != nil {
		return out, err
	}
	module, err := gonaga.LowerWithSource(ast, source)
	if err != nil {
		return out, fmt.Errorf("lower: %w", err)
	}
	if c.validate {
		issues, err := gonaga.Validate(module)
		if err != nil {
			return out, fmt.Errorf("validate: %w", err)
		}
		if len(issues) > 0 {
			errs := make([]error, 0, len(issues)+1)
			errs = append(errs, ErrValidation)
			for _, issue := range issues {
				errs = append(errs, issue)
			}
			return out, errors.Join(errs...)
		}
	}

	out.SPIRV, err = gonaga.GenerateSPIRV(module, spirv.Options{Version: c.spirv, Debug: c.debug})
	if err != nil {
		return out, err
	}
	if c.glslVersion != nil {
		out.GLSL, _, err = glsl.Compile(module, glsl.Options{
			LangVersion:        *c.glslVersion,
			ForceHighPrecision: true,
		})
		if err != nil {
			return out, err
		}
	}
	for _, ep := range module.EntryPoints {
		out.EntryPoints = append(out.EntryPoints, ep.Name)
	}
	return out, nil
}
