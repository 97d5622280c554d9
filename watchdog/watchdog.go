// Package watchdog classifies control-loop iteration time against a
// budget and maintains running statistics, notifying on sustained
// violations. The watchdog is purely observational: it never returns an
// error and never takes corrective action itself.
package watchdog

import (
	"math"
	"sync/atomic"
	"time"
)

const defaultWarningRatio = 0.8

// Callback is invoked at most once per rising edge of a consecutive
// violation streak. It must return without suspending.
type Callback func(w *Watchdog)

// Config configures a Watchdog.
type Config struct {
	Budget                   time.Duration
	WarningRatio             float64 // (0, 1], default 0.8
	ConsecutiveMissThreshold uint32  // default 5
	ConsecutiveWarnThreshold uint32  // default 10
	CriticalCallback         Callback
	WarningCallback          Callback
}

// Watchdog tracks deadline compliance for a periodic task.
type Watchdog struct {
	budget           atomic.Int64 // nanoseconds
	warningThreshold atomic.Int64 // nanoseconds
	warningRatio     float64

	criticalThreshold uint32
	warningThresh     uint32
	criticalCB        Callback
	warningCB         Callback

	consecutiveMisses   atomic.Uint32
	consecutiveWarnings atomic.Uint32
	criticalLatched     atomic.Bool
	warningLatched      atomic.Bool
	tripped             atomic.Bool

	totalChecks     atomic.Uint64
	totalViolations atomic.Uint64
	totalWarnings   atomic.Uint64

	minExecNS atomic.Uint64
	maxExecNS atomic.Uint64
	sumExecNS atomic.Uint64
}

// New constructs a Watchdog from cfg, applying defaults for zero fields.
func New(cfg Config) *Watchdog {
	if cfg.WarningRatio <= 0 || cfg.WarningRatio > 1 {
		cfg.WarningRatio = defaultWarningRatio
	}
	if cfg.ConsecutiveMissThreshold == 0 {
		cfg.ConsecutiveMissThreshold = 5
	}
	if cfg.ConsecutiveWarnThreshold == 0 {
		cfg.ConsecutiveWarnThreshold = 10
	}
	w := &Watchdog{
		warningRatio:      cfg.WarningRatio,
		criticalThreshold: cfg.ConsecutiveMissThreshold,
		warningThresh:     cfg.ConsecutiveWarnThreshold,
		criticalCB:        cfg.CriticalCallback,
		warningCB:         cfg.WarningCallback,
	}
	w.minExecNS.Store(math.MaxUint64)
	w.SetBudget(cfg.Budget)
	return w
}

// Check computes d = end - start, classifies it against the budget and
// warning threshold, and updates all running statistics. It returns true
// if the deadline was missed.
func (w *Watchdog) Check(start, end time.Time) bool {
	d := end.Sub(start)
	ns := uint64(d.Nanoseconds())
	if d < 0 {
		ns = 0
	}

	w.totalChecks.Add(1)
	w.updateMinMax(ns)
	w.sumExecNS.Add(ns)

	miss := d > time.Duration(w.budget.Load())
	w.tripped.Store(miss)
	if miss {
		w.totalViolations.Add(1)
		consecutive := w.consecutiveMisses.Add(1)
		if consecutive >= w.criticalThreshold {
			if !w.criticalLatched.Swap(true) && w.criticalCB != nil {
				w.criticalCB(w)
			}
		}
	} else {
		w.consecutiveMisses.Store(0)
		w.criticalLatched.Store(false)
	}

	warn := d > time.Duration(w.warningThreshold.Load())
	if warn {
		w.totalWarnings.Add(1)
		consecutive := w.consecutiveWarnings.Add(1)
		if consecutive >= w.warningThresh {
			if !w.warningLatched.Swap(true) && w.warningCB != nil {
				w.warningCB(w)
			}
		}
	} else {
		w.consecutiveWarnings.Store(0)
		w.warningLatched.Store(false)
	}

	return miss
}

func (w *Watchdog) updateMinMax(ns uint64) {
	for {
		cur := w.minExecNS.Load()
		if ns >= cur || w.minExecNS.CompareAndSwap(cur, ns) {
			break
		}
	}
	for {
		cur := w.maxExecNS.Load()
		if ns <= cur || w.maxExecNS.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// ResetTripped clears only the per-cycle tripped flag. Check already
// self-manages the consecutive-violation streaks and callback latches
// on every call (incrementing on a miss, zeroing on a non-miss), so
// this is the only reset a caller driving Check once per iteration
// needs between iterations; it must never be confused with the
// broader Reset/ResetAll below, which would erase the streaks Check
// relies on to ever reach a callback threshold.
func (w *Watchdog) ResetTripped() {
	w.tripped.Store(false)
}

// Reset clears edge-trigger state (consecutive counters, the current
// tripped flag, and callback latches) but preserves cumulative
// statistics. This is an administrative reset for operations like
// recommissioning, not a per-cycle call.
func (w *Watchdog) Reset() {
	w.tripped.Store(false)
	w.consecutiveMisses.Store(0)
	w.consecutiveWarnings.Store(0)
	w.criticalLatched.Store(false)
	w.warningLatched.Store(false)
}

// ResetAll additionally clears cumulative counters and min/max.
func (w *Watchdog) ResetAll() {
	w.Reset()
	w.totalViolations.Store(0)
	w.totalChecks.Store(0)
	w.totalWarnings.Store(0)
	w.minExecNS.Store(math.MaxUint64)
	w.maxExecNS.Store(0)
	w.sumExecNS.Store(0)
}

// SetBudget atomically updates the budget and recomputes the warning
// threshold from the stored ratio.
func (w *Watchdog) SetBudget(budget time.Duration) {
	w.budget.Store(int64(budget))
	w.warningThreshold.Store(int64(float64(budget) * w.warningRatio))
}

// Budget returns the currently configured budget.
func (w *Watchdog) Budget() time.Duration {
	return time.Duration(w.budget.Load())
}

// IsTripped reports whether the most recent Check was a deadline miss.
func (w *Watchdog) IsTripped() bool {
	return w.tripped.Load()
}

// ConsecutiveMisses returns the current consecutive-miss streak length.
func (w *Watchdog) ConsecutiveMisses() uint32 {
	return w.consecutiveMisses.Load()
}

// ConsecutiveWarnings returns the current consecutive-warning streak length.
func (w *Watchdog) ConsecutiveWarnings() uint32 {
	return w.consecutiveWarnings.Load()
}

// Stats is a point-in-time snapshot of cumulative watchdog statistics.
type Stats struct {
	TotalChecks     uint64
	TotalViolations uint64
	TotalWarnings   uint64
	MinExecTime     time.Duration
	MaxExecTime     time.Duration
	MeanExecTime    time.Duration
}

// Snapshot returns the current cumulative statistics.
func (w *Watchdog) Snapshot() Stats {
	checks := w.totalChecks.Load()
	var mean time.Duration
	if checks > 0 {
		mean = time.Duration(w.sumExecNS.Load() / checks)
	}
	minNS := w.minExecNS.Load()
	if minNS == math.MaxUint64 {
		minNS = 0
	}
	return Stats{
		TotalChecks:     checks,
		TotalViolations: w.totalViolations.Load(),
		TotalWarnings:   w.totalWarnings.Load(),
		MinExecTime:     time.Duration(minNS),
		MaxExecTime:     time.Duration(w.maxExecNS.Load()),
		MeanExecTime:    mean,
	}
}
