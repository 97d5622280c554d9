package control

import "github.com/abhi-jeet-kumar/beamline-rt-sim/mailbox"

// RuntimeSnapshot is a point-in-time, copy-safe view of the loop's
// runtime state, built from the loop's atomics and the PID's
// mutex-guarded accessors. It backs both get_status replies and external
// diagnostics (e.g. metrics collectors).
type RuntimeSnapshot struct {
	FrequencyHz    float64
	Cycle          uint64
	DeadlineMisses uint64
	ControlEnabled bool
	EmergencyStop  bool
	BeamPermit     bool
	AbortLatched   bool
	AbortCount     uint64

	Kp, Ki, Kd float64
	Setpoint   float64
	Integrator float64
}

// StatusPayload renders the snapshot into the mailbox's get_status
// reply shape.
func (s RuntimeSnapshot) StatusPayload() mailbox.StatusPayload {
	return mailbox.StatusPayload{
		Hz:             s.FrequencyHz,
		Cycle:          s.Cycle,
		DeadlineMisses: s.DeadlineMisses,
		ControlEnabled: s.ControlEnabled,
		EmergencyStop:  s.EmergencyStop,
		BeamPermit:     s.BeamPermit,
		AbortCount:     s.AbortCount,
		PIDGains:       mailbox.PIDGains{Kp: s.Kp, Ki: s.Ki, Kd: s.Kd},
		Setpoint:       s.Setpoint,
	}
}
