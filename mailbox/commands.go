package mailbox

// CmdName identifies a recognized command. Unrecognized values are
// rejected by the loop's dispatcher with a negative reply.
type CmdName string

const (
	CmdSetPID        CmdName = "set_pid"
	CmdSetFreq       CmdName = "set_freq"
	CmdSetSetpoint   CmdName = "set_setpoint"
	CmdRecommission  CmdName = "recommission"
	CmdEmergencyStop CmdName = "emergency_stop"
	CmdEnableControl CmdName = "enable_control"
	CmdGetStatus     CmdName = "get_status"
)

// Command is the typed payload for the control channel. Optional
// pointer fields distinguish "absent" (leave unchanged) from "present
// with a zero value", matching the "missing ⇒ unchanged" rule for
// set_pid and letting the dispatcher reject set_freq, set_setpoint and
// enable_control when their field is absent.
type Command struct {
	Cmd CmdName `json:"cmd"`

	Kp *float64 `json:"kp,omitempty"`
	Ki *float64 `json:"ki,omitempty"`
	Kd *float64 `json:"kd,omitempty"`

	Hz *float64 `json:"hz,omitempty"`
	Sp *float64 `json:"sp,omitempty"`

	Enable *bool `json:"enable,omitempty"`
}

// PIDGains is the gains block of a get_status reply.
type PIDGains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

// StatusPayload is the structured body of a successful get_status reply.
type StatusPayload struct {
	Hz             float64  `json:"hz"`
	Cycle          uint64   `json:"cycle"`
	DeadlineMisses uint64   `json:"deadline_misses"`
	ControlEnabled bool     `json:"control_enabled"`
	EmergencyStop  bool     `json:"emergency_stop"`
	BeamPermit     bool     `json:"beam_permit"`
	AbortCount     uint64   `json:"abort_count"`
	PIDGains       PIDGains `json:"pid_gains"`
	Setpoint       float64  `json:"setpoint"`
}

// Reply is the typed response to a Command. Status is populated only
// for a successful get_status; every other command replies with just
// OK (and Error on failure).
type Reply struct {
	OK     bool           `json:"ok"`
	Error  string         `json:"error,omitempty"`
	Status *StatusPayload `json:"status,omitempty"`
}

// OKReply is the literal {"ok":true} reply most commands return.
func OKReply() Reply { return Reply{OK: true} }

// ErrReply builds a negative reply with the given message.
func ErrReply(msg string) Reply { return Reply{OK: false, Error: msg} }
