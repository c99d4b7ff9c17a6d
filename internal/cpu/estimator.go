package cpu

import (
	"context"
	"sync"
)

// Snapshot holds cumulative CPU time counters read at one instant. Units are
// whatever the source reports (kernel ticks for procfs, seconds for
// gopsutil); only ratios between deltas matter.
type Snapshot struct {
	User    float64
	Nice    float64
	System  float64
	Idle    float64
	Iowait  float64
	Irq     float64
	Softirq float64

	// HasIowait is false when the source does not expose an iowait column.
	HasIowait bool
}

// Total is the sum of all seven counters.
func (s Snapshot) Total() float64 {
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.Irq + s.Softirq
}

// IdleTime is idle+iowait, or idle alone when iowait is unavailable.
func (s Snapshot) IdleTime() float64 {
	if !s.HasIowait {
		return s.Idle
	}

	return s.Idle + s.Iowait
}

// CounterSource reads the current cumulative counters.
type CounterSource interface {
	Read(ctx context.Context) (Snapshot, error)
}

// Estimator turns successive snapshots into a utilization percentage. Each
// consumer owns its own Estimator; baselines are never shared.
type Estimator struct {
	mu         sync.Mutex
	calibrated bool
	prevTotal  float64
	prevIdle   float64
	last       float64
}

func NewEstimator() *Estimator {
	return &Estimator{}
}

// Sample returns CPU utilization in [0,100] since the previous snapshot.
// The first call after construction or Reset only records the baseline and
// returns 0.
func (e *Estimator) Sample(s Snapshot) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	total, idle := s.Total(), s.IdleTime()
	defer func() {
		e.prevTotal, e.prevIdle = total, idle
	}()

	if !e.calibrated {
		e.calibrated = true
		e.last = 0
		return 0
	}

	totalDelta := total - e.prevTotal
	if totalDelta <= 0 {
		return e.last
	}

	idleDelta := idle - e.prevIdle
	e.last = clamp((totalDelta-idleDelta)/totalDelta*100, 0, 100)

	return e.last
}

// Read samples src. A failed read yields 0 for this tick and leaves the
// baseline untouched so the next good read is measured against the last
// good snapshot.
func (e *Estimator) Read(ctx context.Context, src CounterSource) (float64, error) {
	s, err := src.Read(ctx)
	if err != nil {
		return 0, err
	}

	return e.Sample(s), nil
}

// Calibrated reports whether a baseline has been recorded.
func (e *Estimator) Calibrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calibrated
}

// Reset discards the baseline; the next Sample recalibrates.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calibrated = false
	e.prevTotal, e.prevIdle, e.last = 0, 0, 0
}

func clamp(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
