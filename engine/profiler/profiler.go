// Package profiler reports frame rate, memory and renderer resource counters at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-hal/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("profiler")

// Profiler tracks frame rate, memory statistics and renderer counters for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stats        func() renderer.Stats
	lastAttempts int
	now          func() time.Time

	// Last holds the most recent report.
	Last Report
}

// Report is one logged sample.
type Report struct {
	FPS             float64
	HeapMB          float64
	Renderer        renderer.Stats
	NewLinkAttempts int
}

// ProfilerOption is a functional option applied to a profiler during construction via NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often Tick logs. The default is 1 second.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithRendererStats adds the counters returned by stats to every report.
//
// Parameters:
//   - stats: the stats source, usually Renderer.Stats
//
// Returns:
//   - ProfilerOption: a function that applies the stats source to a profiler
func WithRendererStats(stats func() renderer.Stats) ProfilerOption {
	return func(p *Profiler) {
		p.stats = stats
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - options: variadic list of ProfilerOption functions to configure the Profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()
	gcCount := p.memStats.NumGC

	report := Report{FPS: fps, HeapMB: allocMB}
	if p.stats != nil {
		report.Renderer = p.stats()
		report.NewLinkAttempts = report.Renderer.LinkAttempts - p.lastAttempts
		p.lastAttempts = report.Renderer.LinkAttempts
	}

	logger.Infof("FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (+%d)",
		fps, allocMB, allocRateMB, gcCount, gcCount-p.lastGCCount)
	if p.stats != nil {
		s := report.Renderer
		logger.Infof("resources: %d tracked, %d live | programs: %d (%d links, +%d) | variants: %d | lost: %t",
			s.Tracked, s.Live, s.Programs, s.LinkAttempts, report.NewLinkAttempts, s.Variants, s.Lost)
	}

	p.Last = report
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
