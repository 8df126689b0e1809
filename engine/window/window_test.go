package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResizedNotifiesOnChange(t *testing.T) {
	w := &engineWindow{width: 640, height: 480}
	var got [][2]int
	w.SetResizeCallback(func(width, height int) {
		got = append(got, [2]int{width, height})
	})

	w.resized(640, 480)
	w.resized(1280, 720)
	w.resized(1280, 720)

	assert.Equal(t, [][2]int{{1280, 720}}, got)
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 720, w.Height())
}

func TestClosedWindow(t *testing.T) {
	w := &engineWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())

	calls := 0
	w.Run(func() bool {
		calls++
		return true
	})
	assert.Zero(t, calls)
}

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 1, height: 1, resizable: true, closeOnEscape: true}
	for _, opt := range []WindowBuilderOption{WithTitle("preview"), WithSize(800, 0), WithResizable(false), WithCloseOnEscape(false)} {
		opt(w)
	}
	assert.Equal(t, "preview", w.title)
	assert.Equal(t, 800, w.width)
	assert.Equal(t, 1, w.height)
	assert.False(t, w.resizable)
	assert.False(t, w.closeOnEscape)
}
