// Package telemetry implements the fire-and-forget, one-way telemetry
// endpoint the control core publishes one record to per iteration.
// Publish must never block; if the transport is buffered and full, the
// record is dropped silently because deadline integrity takes
// precedence over delivery completeness.
package telemetry

import "encoding/json"

// Record is one iteration's telemetry, with the literal field names of
// the external interface contract.
type Record struct {
	T            float64 `json:"t"`
	Pos          float64 `json:"pos"`
	Intensity    float64 `json:"intensity"`
	Mag          float64 `json:"mag"`
	DeadlineMiss int     `json:"deadline_miss"`
	MPSSafe      bool    `json:"mps_safe"`
	MPSAbort     bool    `json:"mps_abort"`
}

// Emitter is the contract the control core consumes: Publish must not
// suspend the caller.
type Emitter interface {
	Publish(r Record)
}

// Channel is the default in-process Emitter: a bounded buffered
// channel with a non-blocking send that drops the record when full.
type Channel struct {
	records chan Record
	dropped uint64
}

// NewChannel constructs a Channel-backed Emitter with the given buffer
// capacity.
func NewChannel(capacity int) *Channel {
	return &Channel{records: make(chan Record, capacity)}
}

// Publish attempts a non-blocking send; on a full buffer the record is
// dropped and the drop counter increments.
func (c *Channel) Publish(r Record) {
	select {
	case c.records <- r:
	default:
		c.dropped++
	}
}

// Records exposes the receive side for a consumer (e.g.
// cmd/beamlinectl's stdout sink) to drain.
func (c *Channel) Records() <-chan Record {
	return c.records
}

// Dropped returns the number of records dropped due to a full buffer.
// Not safe for concurrent use with Publish from multiple goroutines;
// the control core is the only publisher.
func (c *Channel) Dropped() uint64 {
	return c.dropped
}

// JSONEncoder renders a Record into the literal JSON wire shape of the
// external interface contract, for any transport that speaks JSON.
type JSONEncoder struct{}

// Encode marshals r to JSON.
func (JSONEncoder) Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}
