// Package profiler tracks frame pacing and submission-phase timings for the
// record-and-submit pipeline, plus Go heap statistics, and reports them at a
// configurable interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/strata-go/engine/logging"
)

// Phase identifies one stage of a frame submission.
type Phase int

const (
	// PhaseWait is the fence wait at the start of a frame.
	PhaseWait Phase = iota
	// PhaseRecord is command-graph traversal plus dynamic-data transfer.
	PhaseRecord
	// PhaseSubmit is the final queue submission.
	PhaseSubmit
	phaseCount
)

// phaseNames indexes by Phase for report output.
var phaseNames = [phaseCount]string{"wait", "record", "submit"}

// Profiler accumulates per-phase durations and frame counts, and logs a
// report when the update interval elapses. Not safe for concurrent use; each
// submitting thread owns its profiler.
type Profiler struct {
	frameCount     int
	idleFrames     int
	lastTime       time.Time
	updateInterval time.Duration

	phaseTotals [phaseCount]time.Duration
	phaseMax    [phaseCount]time.Duration

	memStats       runtime.MemStats
	lastTotalAlloc uint64
}

// NewProfiler creates a profiler with a one second report interval.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetUpdateInterval changes how often Tick emits a report.
//
// Parameters:
//   - interval: the report interval (ignored if not positive)
func (p *Profiler) SetUpdateInterval(interval time.Duration) {
	if interval > 0 {
		p.updateInterval = interval
	}
}

// Measure records the duration of one submission phase for the current frame.
//
// Parameters:
//   - phase: the phase measured
//   - d: the elapsed time
func (p *Profiler) Measure(phase Phase, d time.Duration) {
	if phase < 0 || phase >= phaseCount {
		return
	}
	p.phaseTotals[phase] += d
	if d > p.phaseMax[phase] {
		p.phaseMax[phase] = d
	}
}

// MarkIdle records a frame that recorded nothing and was skipped.
func (p *Profiler) MarkIdle() {
	p.idleFrames++
}

// Tick should be called once per frame. Logs frame rate, per-phase averages
// and maxima, and heap statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if a report was logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	fields := []any{
		"fps", fps,
		"frames", p.frameCount,
		"idle", p.idleFrames,
		"heapMB", allocMB,
		"allocMBps", allocRateMB,
		"gc", p.memStats.NumGC,
	}
	for phase := Phase(0); phase < phaseCount; phase++ {
		avg := time.Duration(0)
		if p.frameCount > 0 {
			avg = p.phaseTotals[phase] / time.Duration(p.frameCount)
		}
		fields = append(fields,
			phaseNames[phase]+"Avg", avg.String(),
			phaseNames[phase]+"Max", p.phaseMax[phase].String(),
		)
	}
	logging.Info("profiler: frame report", fields...)

	p.frameCount = 0
	p.idleFrames = 0
	p.lastTime = now
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.phaseTotals = [phaseCount]time.Duration{}
	p.phaseMax = [phaseCount]time.Duration{}
	return true
}
