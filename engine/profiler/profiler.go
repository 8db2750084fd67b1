package profiler

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	logger         *zap.Logger
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	worstFrame     time.Duration
	lastFrame      time.Time
}

// Stats is one interval's worth of measurements.
type Stats struct {
	FPS         float64
	AvgFrame    time.Duration
	WorstFrame  time.Duration
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	LastPause   time.Duration
	MaxPause    time.Duration
	SysMB       float64
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         zap.NewNop(),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	p.lastFrame = p.lastTime
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	_, ok := p.tick()
	return ok
}

func (p *Profiler) tick() (Stats, bool) {
	p.frameCount++
	currentTime := p.now()
	if frame := currentTime.Sub(p.lastFrame); frame > p.worstFrame {
		p.worstFrame = frame
	}
	p.lastFrame = currentTime

	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	stats := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		AvgFrame:    elapsed / time.Duration(p.frameCount),
		WorstFrame:  p.worstFrame,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		stats.LastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			stats.MaxPause = max(stats.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	p.logger.Info("frame stats",
		zap.Float64("fps", stats.FPS),
		zap.Duration("avg_frame", stats.AvgFrame),
		zap.Duration("worst_frame", stats.WorstFrame),
		zap.Float64("heap_mb", stats.HeapMB),
		zap.Float64("alloc_rate_mb_s", stats.AllocRateMB),
		zap.Uint32("gc", stats.GCCount),
		zap.Duration("gc_last_pause", stats.LastPause),
		zap.Duration("gc_max_pause", stats.MaxPause),
		zap.Float64("sys_mb", stats.SysMB),
	)

	p.frameCount = 0
	p.worstFrame = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
