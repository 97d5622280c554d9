package hwport

import "sync/atomic"

// SimBPM is a minimal simulated beam-position monitor. It is not part
// of the core's port contract, which only names the capability
// interfaces in ports.go; SimBPM exists so the loop has something to
// close the feedback loop against in tests and the demo binary. Reads
// and offset injection are lock-free via atomics so they can be called
// from the loop's hot path without suspension.
type SimBPM struct {
	base   atomic.Value // float64
	offset atomic.Value // float64
}

// NewSimBPM constructs a simulated BPM at the given base position with
// zero accumulated offset.
func NewSimBPM(base float64) *SimBPM {
	s := &SimBPM{}
	s.base.Store(base)
	s.offset.Store(0.0)
	return s
}

// Read returns base + offset.
func (s *SimBPM) Read() float64 {
	return s.base.Load().(float64) + s.offset.Load().(float64)
}

// InjectOffset adds delta to the running offset, visible on the next Read.
func (s *SimBPM) InjectOffset(delta float64) {
	s.offset.Store(s.offset.Load().(float64) + delta)
}

// SetBase overrides the base position directly (used by tests to place
// the beam, e.g. far off-axis for MPS scenarios). Recommission does not
// call it; it only clears the offset via ResetOffset.
func (s *SimBPM) SetBase(base float64) {
	s.base.Store(base)
}

// ResetOffset zeroes the accumulated offset without touching the base.
func (s *SimBPM) ResetOffset() {
	s.offset.Store(0.0)
}

// SimBIC is a minimal simulated beam-intensity counter: a settable
// scalar with no dynamics of its own, sufficient to drive MPS scenarios
// in tests.
type SimBIC struct {
	value atomic.Value // float64
}

// NewSimBIC constructs a simulated BIC reporting value.
func NewSimBIC(value float64) *SimBIC {
	s := &SimBIC{}
	s.value.Store(value)
	return s
}

// Read returns the current intensity value.
func (s *SimBIC) Read() float64 {
	return s.value.Load().(float64)
}

// Set overrides the intensity value, used by tests/demo to drive MPS
// scenarios.
func (s *SimBIC) Set(v float64) {
	s.value.Store(v)
}

// SimMagnet is a minimal simulated steering-magnet actuator: Set/Get of
// the most recently commanded current, with no saturation of its own
// (clamping to the magnet's output limits is the control core's job).
type SimMagnet struct {
	current atomic.Value // float64
}

// NewSimMagnet constructs a simulated magnet at zero current.
func NewSimMagnet() *SimMagnet {
	s := &SimMagnet{}
	s.current.Store(0.0)
	return s
}

// Set commands a new current.
func (s *SimMagnet) Set(value float64) {
	s.current.Store(value)
}

// Get returns the most recently commanded current.
func (s *SimMagnet) Get() float64 {
	return s.current.Load().(float64)
}
