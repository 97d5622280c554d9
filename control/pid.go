package control

import "sync"

// pidController is a pure, stateful PID step function: conditional-
// integration anti-windup, derivative-on-error, and bumpless setpoint
// transfer. It performs no I/O and takes no lock beyond guarding its
// own fields against concurrent reads from get_status.
type pidController struct {
	mu sync.Mutex

	kp, ki, kd float64
	setpoint   float64

	integMin, integMax float64

	integrator float64
	prevError  float64

	lastP, lastI, lastD, lastError float64
}

func newPIDController(kp, ki, kd, setpoint, integMin, integMax float64) *pidController {
	return &pidController{
		kp: kp, ki: ki, kd: kd,
		setpoint: setpoint,
		integMin: integMin, integMax: integMax,
	}
}

// step executes one PID cycle against measurement y with time step dt
// (seconds), clamping the output to [uMin, uMax].
func (p *pidController) step(y, dt, uMin, uMax float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.setpoint - y
	p.lastError = e

	prop := p.kp * e
	p.lastP = prop

	if dt > 0 {
		tentativeInteg := clamp(p.integrator+e*dt, p.integMin, p.integMax)
		tentativeOutput := prop + p.ki*tentativeInteg

		if tentativeOutput >= uMin && tentativeOutput <= uMax {
			p.integrator = tentativeInteg
		} else {
			currentOutput := prop + p.ki*p.integrator
			if (tentativeOutput > uMax && currentOutput > tentativeOutput) ||
				(tentativeOutput < uMin && currentOutput < tentativeOutput) {
				p.integrator = tentativeInteg
			}
			// otherwise: freeze the integrator (anti-windup)
		}
	}

	integral := p.ki * p.integrator
	p.lastI = integral

	var derivative float64
	if dt > derivativeEpsilon && p.kd != 0 {
		derivative = p.kd * (e - p.prevError) / dt
	}
	p.lastD = derivative

	p.prevError = e

	return clamp(prop+integral+derivative, uMin, uMax)
}

// derivativeEpsilon guards the derivative term's division against a
// vanishingly small or zero dt.
const derivativeEpsilon = 1e-9

// reset clears the integrator and previous-error state, used on
// re-commission.
func (p *pidController) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.integrator = 0
	p.prevError = 0
	p.lastP, p.lastI, p.lastD, p.lastError = 0, 0, 0, 0
}

// setGains assigns new PID gains; a nil pointer leaves the
// corresponding gain unchanged, matching the "missing => unchanged"
// rule of the set_pid command.
func (p *pidController) setGains(kp, ki, kd *float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kp != nil {
		p.kp = *kp
	}
	if ki != nil {
		p.ki = *ki
	}
	if kd != nil {
		p.kd = *kd
	}
}

// gains returns the currently configured PID gains.
func (p *pidController) gains() (kp, ki, kd float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kp, p.ki, p.kd
}

// setSetpoint moves the setpoint from its current value to sp. When
// bumpless is true, prevError is repositioned so the first derivative
// evaluated after the change does not jump:
// prevError' = sp - (oldSetpoint - prevError).
func (p *pidController) setSetpoint(sp float64, bumpless bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bumpless {
		p.prevError = sp - (p.setpoint - p.prevError)
	}
	p.setpoint = sp
}

func (p *pidController) getSetpoint() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setpoint
}

// setIntegratorLimits updates the integrator window, clamping the
// current value into the new range.
func (p *pidController) setIntegratorLimits(min, max float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.integMin, p.integMax = min, max
	p.integrator = clamp(p.integrator, min, max)
}

// integratorValue returns the current integrator value, for
// diagnostics and tests.
func (p *pidController) integratorValue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.integrator
}

// contributions returns the last step's P/I/D terms and error, for
// diagnostics and tests.
func (p *pidController) contributions() (lastP, lastI, lastD, lastError float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastP, p.lastI, p.lastD, p.lastError
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
