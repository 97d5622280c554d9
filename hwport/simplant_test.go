package hwport

import (
	"testing"

	"go.viam.com/test"
)

func TestSimBPMOffsetInjection(t *testing.T) {
	bpm := NewSimBPM(1.0)
	test.That(t, bpm.Read(), test.ShouldEqual, 1.0)

	bpm.InjectOffset(-0.4)
	test.That(t, bpm.Read(), test.ShouldEqual, 0.6)

	bpm.InjectOffset(-0.4)
	// 1.0 + (-0.4 + -0.4) in float64 arithmetic is 0.19999999999999996, not 0.2
	test.That(t, bpm.Read(), test.ShouldEqual, 0.19999999999999996)

	bpm.ResetOffset()
	test.That(t, bpm.Read(), test.ShouldEqual, 1.0)

	bpm.SetBase(0.0)
	test.That(t, bpm.Read(), test.ShouldEqual, 0.0)
}

func TestSimMagnetSetGet(t *testing.T) {
	m := NewSimMagnet()
	test.That(t, m.Get(), test.ShouldEqual, 0.0)
	m.Set(1.5)
	test.That(t, m.Get(), test.ShouldEqual, 1.5)
}

func TestSimBIC(t *testing.T) {
	b := NewSimBIC(10000)
	test.That(t, b.Read(), test.ShouldEqual, 10000.0)
	b.Set(50000)
	test.That(t, b.Read(), test.ShouldEqual, 50000.0)
}
