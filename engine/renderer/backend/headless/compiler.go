// Package headless is an effect compiler that needs no GPU. It checks that both stages were
// produced, records every compilation and returns programs that record the values applied to them.
package headless

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// ErrEmptyStage is returned when a stage source is empty after pre-processing.
var ErrEmptyStage = errors.New("empty shader stage")

// compiler is the implementation of the Compiler interface.
type compiler struct {
	mu sync.Mutex

	logger   *slog.Logger
	language shader.Language
	parallel bool
	delay    time.Duration
	gate     <-chan struct{}
	fail     func(c effect.Compilation) error

	compilations []effect.Compilation
	programs     []Program
}

// Compiler is an effect.Compiler that records its work for inspection.
type Compiler interface {
	effect.Compiler

	// Compilations returns every compilation received, failed ones included.
	Compilations() []effect.Compilation

	// Programs returns every program created, in creation order.
	Programs() []Program
}

var _ Compiler = &compiler{}

// NewCompiler creates a headless Compiler for WGSL sources compiling synchronously.
//
// Parameters:
//   - options: variadic list of CompilerBuilderOption functions
//
// Returns:
//   - Compiler: the compiler
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		logger:   slog.Default(),
		language: shader.LanguageWGSL,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Language() shader.Language { return c.language }
func (c *compiler) Parallel() bool            { return c.parallel }

func (c *compiler) Compile(ctx context.Context, comp effect.Compilation) (effect.Program, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	c.compilations = append(c.compilations, comp)
	fail := c.fail
	c.mu.Unlock()

	if comp.Source.Vertex == "" {
		return nil, &effect.StageError{Stage: shader.StageVertex, Err: ErrEmptyStage}
	}
	if comp.Source.Fragment == "" {
		return nil, &effect.StageError{Stage: shader.StageFragment, Err: ErrEmptyStage}
	}
	if fail != nil {
		if err := fail(comp); err != nil {
			return nil, err
		}
	}

	p := newProgram(comp)
	c.mu.Lock()
	c.programs = append(c.programs, p)
	c.mu.Unlock()
	c.logger.Debug("headless program created", "key", comp.Key, "uniforms", len(comp.Declarations.Uniforms.Fields))
	return p, nil
}

func (c *compiler) Compilations() []effect.Compilation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.compilations)
}

func (c *compiler) Programs() []Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.programs)
}
