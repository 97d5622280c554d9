// Package hwport defines the capability contract the control core
// consumes from hardware (or simulated hardware): a minimal two- or
// three-operation interface per role. It deliberately knows nothing
// about how the position/intensity values are produced; the physics
// beyond this contract is a collaborator's concern, not the core's.
package hwport

// Sensor reads a scalar measurement. Read must not suspend and has no
// failure mode visible to the core.
type Sensor interface {
	Read() float64
}

// PositionSensor is a Sensor that additionally accepts an offset
// injection, used to close the loop in a simulated plant: the control
// core adds -0.4*u to the position sensor's running offset after every
// actuator write (see the plant-coupling constant in the external
// interface contract). The offset is visible starting from the next
// Read.
type PositionSensor interface {
	Sensor
	InjectOffset(delta float64)
}

// Actuator accepts a commanded value and reports the most recent one
// set. Set must not suspend.
type Actuator interface {
	Set(value float64)
	Get() float64
}

// Ports groups the three capability contracts the control core borrows
// for the loop's lifetime: a position sensor (BPM), an intensity
// sensor (BIC), and a steering-magnet actuator.
type Ports struct {
	Position  PositionSensor
	Intensity Sensor
	Actuator  Actuator
}
