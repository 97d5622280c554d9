// Package safety implements the machine-protection state machine: a
// small aggregator over beam-loss monitors with abort authority over
// the control loop.
package safety

import (
	"fmt"
	"sync/atomic"

	"github.com/edaniels/golog"
)

// Level classifies the outcome of a CheckSafety call. The MPS never
// calls back into the control loop to apply a transition; it returns a
// Decision and the loop interprets it. This breaks the cyclic
// loop<->MPS callback ownership of the machine this package is modeled
// on: callbacks here are restricted to pure notification.
type Level int

const (
	// Ok means the beam is permitted and no BLM is above its warning
	// threshold.
	Ok Level = iota
	// Warn means the beam is still permitted, but at least one BLM is
	// above its warning threshold (not yet its abort threshold).
	Warn
	// Abort means a BLM exceeded its abort threshold on this call, or
	// the MPS was already latched from a prior abort.
	Abort
)

// Decision is the outcome of one CheckSafety call.
type Decision struct {
	Level             Level
	BLMID             string // the tripped/warning BLM, empty when Level == Ok
	LossRate          float64
	AlreadyWasAborted bool // true if the latch was already set on entry
}

// AlarmFunc receives a human-readable alarm string. It must return
// without suspending and must not call back into the MPS.
type AlarmFunc func(message string)

// Config configures an MPS instance.
type Config struct {
	BLMs      []BLMConfig // defaults to DefaultBLMConfigs() when nil
	AlarmFunc AlarmFunc
	Logger    golog.Logger
}

// MPS is the machine-protection system: it aggregates a fixed set of
// beam-loss monitors and exposes a beam permit / abort latch.
type MPS struct {
	blms      []*blm
	alarmFunc AlarmFunc
	logger    golog.Logger

	beamPermit   atomic.Bool
	abortLatched atomic.Bool
	totalAborts  atomic.Uint64
}

// New constructs an MPS with the default three-monitor layout unless
// cfg.BLMs overrides it.
func New(cfg Config) *MPS {
	cfgs := cfg.BLMs
	if cfgs == nil {
		cfgs = DefaultBLMConfigs()
	}
	m := &MPS{
		alarmFunc: cfg.AlarmFunc,
		logger:    cfg.Logger,
	}
	for _, c := range cfgs {
		m.blms = append(m.blms, newBLM(c))
	}
	m.beamPermit.Store(true)
	return m
}

// CheckSafety evaluates all BLMs against the current beam intensity and
// position and returns a Decision. It never blocks and never calls
// back into the loop.
func (m *MPS) CheckSafety(intensity, position float64) Decision {
	if m.abortLatched.Load() {
		return Decision{Level: Abort, AlreadyWasAborted: true}
	}

	worstLevel := Ok
	var worstID string
	var worstLoss float64

	for _, b := range m.blms {
		wasWarning := b.warningActive
		wasAbort := b.abortActive
		verdict := b.evaluate(intensity, position)

		switch verdict {
		case blmAbort:
			if !wasAbort {
				m.emitAlarm(fmt.Sprintf("BEAM ABORT: BLM_THRESHOLD_EXCEEDED (Source: %s, loss_rate=%g)", b.cfg.ID, b.lastLossRate))
			}
			worstLevel = Abort
			worstID = b.cfg.ID
			worstLoss = b.lastLossRate
		case blmWarn:
			if !wasWarning {
				m.emitAlarm(fmt.Sprintf("BLM WARNING: %s loss rate: %g", b.cfg.ID, b.lastLossRate))
			}
			if worstLevel == Ok {
				worstLevel = Warn
				worstID = b.cfg.ID
				worstLoss = b.lastLossRate
			}
		}
	}

	if worstLevel == Abort {
		m.abortLatched.Store(true)
		m.beamPermit.Store(false)
		m.totalAborts.Add(1)
	}

	return Decision{Level: worstLevel, BLMID: worstID, LossRate: worstLoss}
}

func (m *MPS) emitAlarm(msg string) {
	if m.alarmFunc != nil {
		m.alarmFunc(msg)
	}
	if m.logger != nil {
		m.logger.Warn(msg)
	}
}

// CheckSafetyOK reports true only when the beam is permitted and no
// abort is latched.
func (m *MPS) CheckSafetyOK() bool {
	return m.beamPermit.Load() && !m.abortLatched.Load()
}

// BeamPermit reports the current beam-permit flag.
func (m *MPS) BeamPermit() bool {
	return m.beamPermit.Load()
}

// AbortLatched reports whether an abort is currently latched.
func (m *MPS) AbortLatched() bool {
	return m.abortLatched.Load()
}

// TotalAborts returns the lifetime abort count.
func (m *MPS) TotalAborts() uint64 {
	return m.totalAborts.Load()
}

// Reset clears abort_latched and beam_permit back to the initial state
// and clears per-BLM edge flags, but does not touch thresholds or BLM
// identities.
func (m *MPS) Reset() {
	m.abortLatched.Store(false)
	m.beamPermit.Store(true)
	for _, b := range m.blms {
		b.warningActive = false
		b.abortActive = false
	}
}

// BLMStatistics returns a snapshot of every configured BLM.
func (m *MPS) BLMStatistics() []Statistics {
	stats := make([]Statistics, len(m.blms))
	for i, b := range m.blms {
		stats[i] = b.statistics()
	}
	return stats
}
