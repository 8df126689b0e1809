// Package window opens the desktop window the material preview renders into.
package window

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Key is a keyboard key. Printable keys use their ASCII code, matching GLFW.
type Key uint32

const (
	KeySpace  Key = 32
	Key1      Key = 49
	Key2      Key = 50
	Key3      Key = 51
	Key4      Key = 52
	KeyA      Key = 65
	KeyC      Key = 67
	KeyF      Key = 70
	KeyR      Key = 82
	KeyT      Key = 84
	KeyEscape Key = 256
)

// Window is a native window with a WebGPU-compatible surface.
//
// All methods must be called from the goroutine that created the window.
type Window interface {
	// SetResizeCallback sets the function called with the new framebuffer size in pixels.
	SetResizeCallback(callback func(width, height int))

	// SetKeyCallback sets the function called when a key is pressed or released.
	//
	// Parameters:
	//   - callback: receives the key and true on press or repeat, false on release
	SetKeyCallback(callback func(key Key, pressed bool))

	// SurfaceDescriptor returns the platform surface descriptor, nil once closed.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open.
	IsRunning() bool

	// Run polls window events and calls frame once per iteration until the window closes or
	// frame returns false.
	Run(frame func() bool)

	// Close destroys the window.
	Close() error

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	width     int
	height    int
	resizable bool

	// closeOnEscape closes the window when Escape is pressed.
	closeOnEscape bool

	platform *glfwWindow

	onResize func(width, height int)
	onKey    func(key Key, pressed bool)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window.
//
// Parameters:
//   - options: variadic list of WindowBuilderOption functions
//
// Returns:
//   - Window: the open window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:         "oxyfx",
		width:         1280,
		height:        720,
		resizable:     true,
		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key Key, pressed bool)) {
	w.onKey = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunning(w)
}

func (w *engineWindow) Close() error {
	return platformClose(w)
}

func (w *engineWindow) Run(frame func() bool) {
	for platformPollEvents(w) {
		if frame != nil && !frame() {
			return
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int  { return w.width }
func (w *engineWindow) Height() int { return w.height }

// resized records the framebuffer size and forwards it to the resize callback.
func (w *engineWindow) resized(width, height int) {
	if width == w.width && height == w.height {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
