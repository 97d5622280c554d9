package metrics

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.viam.com/test"

	"github.com/abhi-jeet-kumar/beamline-rt-sim/control"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/hwport"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/mailbox"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/safety"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/telemetry"
)

func TestUpdateReflectsLoopSnapshotBeforeRunning(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	bpm := hwport.NewSimBPM(0)
	bic := hwport.NewSimBIC(10000)
	magnet := hwport.NewSimMagnet()
	mps := safety.New(safety.Config{})

	cfg := control.DefaultConfig()
	loop, err := control.NewLoop(golog.NewTestLogger(t), cfg, hwport.Ports{
		Position: bpm, Intensity: bic, Actuator: magnet,
	}, mps)
	test.That(t, err, test.ShouldBeNil)

	c.Update(loop)

	test.That(t, testutil.ToFloat64(c.FrequencyHz), test.ShouldEqual, cfg.FrequencyHz)
	test.That(t, testutil.ToFloat64(c.ControlEnabled), test.ShouldEqual, 1.0)
	test.That(t, testutil.ToFloat64(c.EmergencyStop), test.ShouldEqual, 0.0)
	test.That(t, testutil.ToFloat64(c.BeamPermit), test.ShouldEqual, 1.0)
	test.That(t, testutil.ToFloat64(c.CycleCount), test.ShouldEqual, 0.0)
}

func TestUpdateTracksCycleCountWhileRunning(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	cfg := control.DefaultConfig()
	cfg.FrequencyHz = 2000 // shortest supported period, to bound the sleep below
	loop, err := control.NewLoop(golog.NewTestLogger(t), cfg, hwport.Ports{
		Position:  hwport.NewSimBPM(0),
		Intensity: hwport.NewSimBIC(10000),
		Actuator:  hwport.NewSimMagnet(),
	}, safety.New(safety.Config{}))
	test.That(t, err, test.ShouldBeNil)

	done := make(chan struct{})
	go func() {
		loop.Run(mailbox.NewChannel(), telemetry.NewChannel(8))
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	loop.Stop()
	<-done

	c.Update(loop)
	test.That(t, testutil.ToFloat64(c.CycleCount), test.ShouldBeGreaterThan, 0.0)
}
