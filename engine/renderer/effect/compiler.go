package effect

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
)

// Program is a compiled backend program. Apply ignores names the program does not declare.
type Program interface {
	uniform.Binder

	// Release frees the backend resources of the program. It is called at most once.
	Release()
}

// Compilation is everything a backend needs to build one program variant.
type Compilation struct {
	// Key is the cache key of the effect being compiled.
	Key string

	// Name is the shader name the sources were loaded from.
	Name string

	// Source holds the pre-processed stage sources.
	Source shader.Source

	// Defines is the define set the sources were processed with, after any fallback reduction.
	Defines *defines.Set

	// Declarations is the resource list the sources were emitted with.
	Declarations shader.Declarations

	// UniformBuffers and StorageBuffers are names of buffers the source declares itself.
	UniformBuffers []string
	StorageBuffers []string
}

// Compiler builds programs for one shading language.
type Compiler interface {
	// Language returns the language the compiler accepts.
	Language() shader.Language

	// Parallel reports whether Compile may run off the main goroutine.
	Parallel() bool

	// Compile builds a program.
	//
	// Parameters:
	//   - ctx: cancelled when the owning cache is closed
	//   - c: the program variant
	//
	// Returns:
	//   - Program: the compiled program
	//   - error: the backend error, ideally wrapped in a StageError
	Compile(ctx context.Context, c Compilation) (Program, error)
}

// StageError tags a backend error with the stage it occurred in.
type StageError struct {
	Stage shader.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
