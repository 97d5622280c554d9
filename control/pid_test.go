package control

import (
	"testing"

	"go.viam.com/test"
)

func TestZeroGainsDriveOutputToZero(t *testing.T) {
	p := newPIDController(0, 0, 0, 0, -10, 10)
	u := p.step(5.0, 0.001, -2.0, 2.0)
	test.That(t, u, test.ShouldEqual, 0.0)
}

func TestProportionalTerm(t *testing.T) {
	p := newPIDController(0.6, 0, 0, 0, -10, 10)
	u := p.step(1.0, 0.001, -2.0, 2.0)
	test.That(t, u, test.ShouldEqual, -0.6) // e = 0 - 1.0 = -1.0; P = 0.6 * -1.0
}

func TestIntegratorAccumulatesWithinWindow(t *testing.T) {
	p := newPIDController(0, 1.0, 0, 1.0, -10, 10)
	for i := 0; i < 5; i++ {
		p.step(0.0, 1.0, -100, 100)
	}
	// e = 1.0 each step, dt = 1s: integrator should reach 5.0
	test.That(t, p.integratorValue(), test.ShouldEqual, 5.0)
}

func TestAntiWindupFreezesIntegratorUnderSustainedSaturation(t *testing.T) {
	p := newPIDController(0, 1.0, 0, 100.0, -10, 10)
	// unachievable setpoint (100) with tight output limits: the
	// integrator must stop climbing the instant the output first
	// saturates, well short of its configured window, instead of
	// winding up all the way to the window bound.
	for i := 0; i < 1000; i++ {
		p.step(0.0, 0.01, -1.0, 1.0)
	}
	integ := p.integratorValue()
	test.That(t, integ, test.ShouldBeGreaterThanOrEqualTo, -10.0)
	test.That(t, integ, test.ShouldBeLessThanOrEqualTo, 10.0)
	test.That(t, integ, test.ShouldEqual, 1.0) // frozen where output first saturated
}

func TestConditionalIntegrationFreezesOnlyWhenWorsening(t *testing.T) {
	// error positive and output already saturated high: integrating
	// further would worsen saturation, so the integrator must freeze.
	p := newPIDController(0, 1.0, 0, 1.0, -1000, 1000)
	p.integrator = 100 // already saturating the output high
	p.step(0.0, 1.0, -1.0, 1.0)
	test.That(t, p.integratorValue(), test.ShouldEqual, 100.0) // frozen

	// error negative while saturated high: integrating would reduce
	// saturation, so it is allowed.
	q := newPIDController(0, 1.0, 0, 0.0, -1000, 1000)
	q.integrator = 100
	q.step(50.0, 1.0, -1.0, 1.0) // e = 0 - 50 = -50
	test.That(t, q.integratorValue(), test.ShouldBeLessThan, 100.0)
}

func TestDerivativeOnError(t *testing.T) {
	p := newPIDController(0, 0, 2.0, 0, -10, 10)
	p.step(1.0, 1.0, -100, 100) // e0 = -1.0, prevError starts at 0: D = 2*(−1−0)/1 = −2
	u := p.step(3.0, 1.0, -100, 100)
	// e1 = 0 - 3.0 = -3.0; D = kd*(e1-e0)/dt = 2*(-3 - -1)/1 = -4
	test.That(t, u, test.ShouldEqual, -4.0)
}

func TestBumplessSetpointChangeAvoidsDerivativeKick(t *testing.T) {
	p := newPIDController(0, 0, 1.0, 0, -10, 10)
	p.step(0.5, 1.0, -100, 100) // e = -0.5, prevError -> -0.5

	p.setSetpoint(1.0, true)
	// prevError' = newSP - (oldSP - prevError) = 1.0 - (0 - (-0.5)) = 0.5
	u := p.step(0.5, 1.0, -100, 100) // e = 1.0 - 0.5 = 0.5; D = kd*(0.5-0.5)/1 = 0
	test.That(t, u, test.ShouldEqual, 0.0)
}

func TestIntegratorLimitsClampCurrentValue(t *testing.T) {
	p := newPIDController(0, 1.0, 0, 1.0, -10, 10)
	for i := 0; i < 8; i++ {
		p.step(0.0, 1.0, -100, 100)
	}
	test.That(t, p.integratorValue(), test.ShouldEqual, 8.0)

	p.setIntegratorLimits(-5, 5)
	test.That(t, p.integratorValue(), test.ShouldEqual, 5.0)
}

func TestResetClearsIntegratorAndPrevError(t *testing.T) {
	p := newPIDController(1, 1, 1, 1.0, -10, 10)
	p.step(0.0, 1.0, -100, 100)
	p.reset()
	test.That(t, p.integratorValue(), test.ShouldEqual, 0.0)
	_, _, _, lastError := p.contributions()
	test.That(t, lastError, test.ShouldEqual, 0.0)
}

func TestSetGainsLeavesMissingFieldsUnchanged(t *testing.T) {
	p := newPIDController(0.1, 0.2, 0.3, 0, -10, 10)
	ki := 9.0
	p.setGains(nil, &ki, nil)
	kp, ki2, kd := p.gains()
	test.That(t, kp, test.ShouldEqual, 0.1)
	test.That(t, ki2, test.ShouldEqual, 9.0)
	test.That(t, kd, test.ShouldEqual, 0.3)
}
