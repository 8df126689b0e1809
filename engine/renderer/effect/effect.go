// Package effect caches compiled shader programs by shader name and resolved define set. Effects
// are shared between materials, reference counted, and compiled either synchronously or on a
// worker pool depending on the backend.
package effect

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/uniform"
)

// ErrUnknownShader is returned through OnError when the store has no source for the shader name.
var ErrUnknownShader = errors.New("unknown shader")

// CompileError is reported when every define reduction of an effect failed to compile.
type CompileError struct {
	Key string

	// Defines is the joined define set of the last attempt.
	Defines string

	// Stage is the failing stage when the backend reported one.
	Stage *shader.Stage

	Err error
}

func (e *CompileError) Error() string {
	if e.Stage != nil {
		return fmt.Sprintf("compile %s (%s): %v", e.Key, e.Stage, e.Err)
	}
	return fmt.Sprintf("compile %s: %v", e.Key, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// newCompileError wraps err, lifting the stage out of a StageError.
func newCompileError(key string, set *defines.Set, err error) *CompileError {
	ce := &CompileError{Key: key, Defines: set.Join(), Err: err}
	var se *StageError
	if errors.As(err, &se) {
		stage := se.Stage
		ce.Stage = &stage
	}
	return ce
}

// Request describes the effect a material needs.
type Request struct {
	// Shader is the store name of the shader.
	Shader string

	// Defines is the resolved define set. The cache keeps its own copy.
	Defines *defines.Set

	Attributes []string

	// Uniforms is the uniform block emitted for the program.
	Uniforms shader.Block

	UniformBuffers   []string
	StorageBuffers   []string
	Samplers         []string
	ExternalTextures []string

	// Fallbacks are tried in rank order when compilation fails. Nil disables retries.
	Fallbacks *defines.Fallbacks

	// OnCompiled and OnError are called from the IsReady call that observes completion.
	OnCompiled func(Effect)
	OnError    func(Effect, error)
}

// Key returns the cache key for a shader name and define set.
//
// Parameters:
//   - name: the shader name
//   - set: the resolved define set, nil for none
//
// Returns:
//   - string: name + "@" + the joined defines
func Key(name string, set *defines.Set) string {
	if set == nil {
		return name + "@"
	}
	return name + "@" + set.Join()
}

// compileState is the lifecycle of an effect's program.
type compileState int32

const (
	statePending compileState = iota
	stateReady
	stateFailed
)

// effect is the implementation of the Effect interface.
type effect struct {
	key   string
	name  string
	cache *cache
	req   Request

	// refs is only touched on the main goroutine.
	refs int

	mu       sync.Mutex
	state    compileState
	program  Program
	err      error
	compiled *defines.Set
	released bool

	// callbacks are drained on the main goroutine once the compile has finished.
	onCompiled []func(Effect)
	onError    []func(Effect, error)

	stale atomic.Bool
}

// Effect is a shared compiled program. Handles are obtained from a Cache and must be released
// through it. An effect is not usable until IsReady returns true.
type Effect interface {
	uniform.Binder

	// Key returns the cache key.
	Key() string

	// Name returns the shader name.
	Name() string

	// Defines returns the define set the program was built with. After a fallback this differs
	// from the requested set. Nil while the compile is pending.
	Defines() *defines.Set

	// IsReady reports whether the program is compiled. The first call after completion fires the
	// registered callbacks on the calling goroutine.
	IsReady() bool

	// Err returns the compile error once every fallback has failed.
	Err() error

	// RefCount returns the number of holders of the effect.
	RefCount() int

	// Program returns the compiled program, nil until ready.
	Program() Program

	// Request returns the request the effect was created from.
	Request() Request

	// Stale reports whether the shader source changed since the effect was created.
	Stale() bool
}

var _ Effect = &effect{}

func (e *effect) Key() string  { return e.key }
func (e *effect) Name() string { return e.name }

func (e *effect) Defines() *defines.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compiled
}

func (e *effect) IsReady() bool {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state == statePending {
		return false
	}
	e.notify(state)
	return state == stateReady
}

// notify fires and clears pending callbacks.
func (e *effect) notify(state compileState) {
	if len(e.onCompiled) == 0 && len(e.onError) == 0 {
		return
	}
	compiled, failed := e.onCompiled, e.onError
	e.onCompiled, e.onError = nil, nil
	if state == stateReady {
		for _, fn := range compiled {
			fn(e)
		}
		return
	}
	err := e.Err()
	for _, fn := range failed {
		fn(e, err)
	}
}

func (e *effect) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *effect) RefCount() int {
	return e.refs
}

func (e *effect) Program() Program {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.program
}

func (e *effect) Request() Request {
	return e.req
}

func (e *effect) Stale() bool {
	return e.stale.Load()
}

func (e *effect) Apply(name string, v uniform.Value) {
	if p := e.Program(); p != nil {
		p.Apply(name, v)
	}
}

// addCallbacks registers the callbacks of a request.
func (e *effect) addCallbacks(req Request) {
	if req.OnCompiled != nil {
		e.onCompiled = append(e.onCompiled, req.OnCompiled)
	}
	if req.OnError != nil {
		e.onError = append(e.onError, req.OnError)
	}
}

// complete records the outcome of a compile. A program finishing after the effect was released
// is released immediately.
func (e *effect) complete(p Program, compiled *defines.Set, err error) {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		if p != nil {
			p.Release()
		}
		return
	}
	e.compiled = compiled
	if err != nil {
		e.state = stateFailed
		e.err = err
	} else {
		e.state = stateReady
		e.program = p
	}
	e.mu.Unlock()
}

// release marks the effect released and frees the program if one exists.
func (e *effect) release() {
	e.mu.Lock()
	e.released = true
	p := e.program
	e.program = nil
	e.mu.Unlock()
	if p != nil {
		p.Release()
	}
}
