package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Stats is one reporting window of frame and memory statistics.
type Stats struct {
	Frames       int
	Elapsed      time.Duration
	FPS          float64
	MaxFrameTime time.Duration
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	SysMB        float64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Logs stats through slog at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	now            func() time.Time
	updateInterval time.Duration

	frameCount     int
	lastTime       time.Time
	lastFrame      time.Time
	maxFrameTime   time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are reported. Defaults to 1 second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerOption: functional option to set the interval
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithLogger sets the logger stats are written to. Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerOption: functional option to set the logger
func WithLogger(logger *slog.Logger) ProfilerOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerOption: functional option to set the clock
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		logger:         slog.Default(),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	p.Reset()
	return p
}

// Reset starts a new reporting window, e.g. after the profiler was toggled back on.
func (p *Profiler) Reset() {
	now := p.now()
	p.frameCount = 0
	p.lastTime = now
	p.lastFrame = now
	p.maxFrameTime = 0
}

// Tick should be called once per presented frame.
// Logs performance statistics when the update interval has elapsed: FPS, worst frame time,
// heap usage, allocation rate, GC count and pause times, and total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	p.maxFrameTime = max(p.maxFrameTime, currentTime.Sub(p.lastFrame))
	p.lastFrame = currentTime

	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		Frames:       p.frameCount,
		Elapsed:      elapsed,
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		MaxFrameTime: p.maxFrameTime,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      p.memStats.NumGC,
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
	}
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		s.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("frame stats",
		"fps", s.FPS,
		"max_frame_ms", float64(s.MaxFrameTime.Microseconds())/1000,
		"heap_mb", s.HeapMB,
		"alloc_rate_mb_s", s.AllocRateMB,
		"gc", s.GCCount,
		"gc_last_pause_us", s.LastPauseUs,
		"gc_max_pause_us", s.MaxPauseUs,
		"sys_mb", s.SysMB)

	p.last = s
	p.frameCount = 0
	p.maxFrameTime = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics of the most recent reporting window.
//
// Returns:
//   - Stats: the last logged stats, zero before the first report
func (p *Profiler) Last() Stats {
	return p.last
}
