package profiler

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind"
	"github.com/stretchr/testify/assert"
)

func TestCountersAndInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))), WithInterval(time.Hour))

	p.ObserveCompile("a", 2*time.Millisecond, nil)
	p.ObserveCompile("b", 3*time.Millisecond, errors.New("bad"))
	p.ObserveCacheHit("a")
	p.ObserveBind(bind.ReadyFullBind)
	p.ObserveBind(bind.NotReady)
	p.ObserveBind(bind.NotReady)

	cur := p.Current()
	assert.Equal(t, 2, cur.Compiles)
	assert.Equal(t, 1, cur.CompileErrors)
	assert.Equal(t, 5*time.Millisecond, cur.CompileTime)
	assert.Equal(t, 1, cur.CacheHits)
	assert.Equal(t, 2, cur.SkippedDraws())

	assert.False(t, p.Tick())
	assert.Empty(t, buf.String())

	assert.True(t, p.tick(time.Now().Add(2*time.Hour)))
	assert.Contains(t, buf.String(), "compiles=2")
	assert.Contains(t, buf.String(), "full_binds=1")

	assert.Equal(t, 0, p.Current().Compiles)
	assert.Equal(t, 2, p.Last().Compiles)
	assert.Equal(t, 2, p.Last().Frames)
}
