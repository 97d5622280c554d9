// Package metrics exposes watchdog, MPS, and loop statistics as
// Prometheus collectors for out-of-band scraping. It is diagnostics
// only: nothing here is read by the hot path, and Update is expected to
// be called from a separate, lower-rate goroutine (e.g. on an HTTP
// scrape or a periodic ticker), never from the loop thread.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhi-jeet-kumar/beamline-rt-sim/control"
)

// Collectors groups the Prometheus metrics this package registers.
type Collectors struct {
	FrequencyHz      prometheus.Gauge
	CycleCount       prometheus.Gauge
	DeadlineMisses   prometheus.Gauge
	ControlEnabled   prometheus.Gauge
	EmergencyStop    prometheus.Gauge
	BeamPermit       prometheus.Gauge
	AbortCount       prometheus.Gauge
	PIDIntegrator    prometheus.Gauge
	WatchdogMeanExec prometheus.Gauge
	WatchdogMaxExec  prometheus.Gauge
	WatchdogMinExec  prometheus.Gauge
}

// NewCollectors constructs Collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		FrequencyHz: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "loop_frequency_hz",
			Help: "Control loop frequency currently in effect.",
		}),
		CycleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "loop_cycle_total",
			Help: "Monotonic iteration counter.",
		}),
		DeadlineMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "loop_deadline_misses_total",
			Help: "Cumulative count of iterations that exceeded the watchdog budget.",
		}),
		ControlEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "control_enabled",
			Help: "1 if PID control is enabled, 0 otherwise.",
		}),
		EmergencyStop: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "emergency_stop",
			Help: "1 if emergency stop is latched, 0 otherwise.",
		}),
		BeamPermit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "mps_beam_permit",
			Help: "1 if the MPS currently permits beam, 0 otherwise.",
		}),
		AbortCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "mps_abort_total",
			Help: "Cumulative count of MPS-triggered beam aborts.",
		}),
		PIDIntegrator: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "pid_integrator",
			Help: "Current PID integrator value.",
		}),
		WatchdogMeanExec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "watchdog_mean_exec_seconds",
			Help: "Running mean iteration execution time.",
		}),
		WatchdogMaxExec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "watchdog_max_exec_seconds",
			Help: "Running max iteration execution time.",
		}),
		WatchdogMinExec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beamline", Name: "watchdog_min_exec_seconds",
			Help: "Running min iteration execution time.",
		}),
	}
	reg.MustRegister(
		c.FrequencyHz, c.CycleCount, c.DeadlineMisses, c.ControlEnabled,
		c.EmergencyStop, c.BeamPermit, c.AbortCount, c.PIDIntegrator,
		c.WatchdogMeanExec, c.WatchdogMaxExec, c.WatchdogMinExec,
	)
	return c
}

// Update refreshes all gauges from a loop snapshot. Safe to call
// concurrently with the loop thread: it reads atomics, and briefly takes
// the PID's mutex (the same lock the loop thread takes in each PID step)
// to read gains, setpoint and integrator.
func (c *Collectors) Update(l *control.Loop) {
	snap := l.Snapshot()
	c.FrequencyHz.Set(snap.FrequencyHz)
	c.CycleCount.Set(float64(snap.Cycle))
	c.DeadlineMisses.Set(float64(snap.DeadlineMisses))
	c.ControlEnabled.Set(boolToFloat(snap.ControlEnabled))
	c.EmergencyStop.Set(boolToFloat(snap.EmergencyStop))
	c.BeamPermit.Set(boolToFloat(snap.BeamPermit))
	c.AbortCount.Set(float64(snap.AbortCount))
	c.PIDIntegrator.Set(snap.Integrator)

	stats := l.Watchdog().Snapshot()
	c.WatchdogMeanExec.Set(stats.MeanExecTime.Seconds())
	c.WatchdogMaxExec.Set(stats.MaxExecTime.Seconds())
	c.WatchdogMinExec.Set(stats.MinExecTime.Seconds())
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
