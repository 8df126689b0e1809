// Package profiler aggregates per-frame statistics of the material system: effect compiles,
// cache hits and bind decisions, alongside the runtime memory figures.
package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind"
)

// Stats is a snapshot of the counters accumulated since the last interval.
type Stats struct {
	Frames        int
	Compiles      int
	CompileErrors int
	CompileTime   time.Duration
	CacheHits     int

	// Binds counts bind decisions by state.
	Binds map[bind.State]int
}

// SkippedDraws returns the number of draws that were not ready.
func (s Stats) SkippedDraws() int {
	return s.Binds[bind.NotReady]
}

// Profiler tracks frame rate, memory and material system statistics. It receives compile events
// from worker goroutines, so every counter is guarded by mu.
type Profiler struct {
	mu sync.Mutex

	logger         *slog.Logger
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stats Stats
	// last holds the counters of the previous completed interval.
	last Stats
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - options: builder options, the update interval defaults to 1 second
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         slog.Default(),
		lastTime:       time.Now(),
		updateInterval: time.Second,
		stats:          Stats{Binds: make(map[bind.State]int)},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// ObserveCompile records one compile attempt.
func (p *Profiler) ObserveCompile(key string, elapsed time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Compiles++
	p.stats.CompileTime += elapsed
	if err != nil {
		p.stats.CompileErrors++
	}
}

// ObserveCacheHit records an effect cache hit.
func (p *Profiler) ObserveCacheHit(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.CacheHits++
}

// ObserveBind records a bind decision.
func (p *Profiler) ObserveBind(state bind.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Binds[state]++
}

// Current returns a copy of the counters of the running interval.
func (p *Profiler) Current() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyStats(p.stats)
}

// Last returns the counters of the last completed interval.
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyStats(p.last)
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	return p.tick(time.Now())
}

func (p *Profiler) tick(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Frames++
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.stats.Frames) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	s := p.stats
	p.logger.Info("profiler",
		"fps", fps,
		"heap_mb", allocMB,
		"alloc_rate_mb", allocRateMB,
		"gc", p.memStats.NumGC-p.lastGCCount,
		"compiles", s.Compiles,
		"compile_errors", s.CompileErrors,
		"compile_time", s.CompileTime,
		"cache_hits", s.CacheHits,
		"full_binds", s.Binds[bind.ReadyFullBind],
		"matrix_binds", s.Binds[bind.ReadyMatrixOnlyBind],
		"skipped_binds", s.Binds[bind.ReadyNoBind],
		"not_ready", s.Binds[bind.NotReady],
	)

	p.last = s
	p.stats = Stats{Binds: make(map[bind.State]int)}
	p.lastTime = now
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

func copyStats(s Stats) Stats {
	out := s
	out.Binds = make(map[bind.State]int, len(s.Binds))
	for k, v := range s.Binds {
		out.Binds[k] = v
	}
	return out
}
