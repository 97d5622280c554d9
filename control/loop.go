// Package control implements the PID regulator and the real-time
// control core that sequences it against the clock, watchdog, MPS,
// hardware ports, command mailbox, and telemetry emitter.
package control

import (
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/abhi-jeet-kumar/beamline-rt-sim/hwport"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/mailbox"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/rtclock"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/safety"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/telemetry"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/watchdog"
)

// plantCoupling is the feedback constant the loop injects into the
// position sensor after every actuator write, closing the loop against
// the simulated plant. Its sign and magnitude are part of the control
// core's contract: changing it alters the closed-loop poles.
const plantCoupling = -0.4

// autoReduceMissInterval is the number of accumulated deadline misses
// between automatic frequency reductions, when Config.AutoReduceOnMiss
// is enabled.
const autoReduceMissInterval = 10

// autoReduceFactor is the fraction of the current frequency retained
// after an automatic reduction (a 20% cut).
const autoReduceFactor = 0.8

// Loop is the real-time control core: the orchestrator that sequences
// the clock, watchdog, PID, MPS, hardware ports, command mailbox, and
// telemetry emitter per iteration. It owns the PID, clock, watchdog,
// and MPS outright; the hardware ports and the mailbox/telemetry
// endpoints are borrowed for the loop's lifetime.
type Loop struct {
	logger golog.Logger

	ports hwport.Ports
	pid   *pidController
	clk   *rtclock.Clock
	wd    *watchdog.Watchdog
	mps   *safety.MPS

	magnetMin, magnetMax float64

	freqBits atomic.Uint64 // math.Float64bits(currentFrequencyHz)

	running        atomic.Bool
	controlEnabled atomic.Bool
	emergencyStop  atomic.Bool

	cycle          atomic.Uint64
	deadlineMisses atomic.Uint64
	missesAtReduce atomic.Uint64

	startedAt time.Time

	autoReduceOnMiss bool
}

// NewLoop constructs a Loop from cfg against the given ports and MPS.
// The MPS's AlarmFunc (if any) must already be registered by the
// caller; callback registrations are not changed after Run is invoked.
func NewLoop(logger golog.Logger, cfg Config, ports hwport.Ports, mps *safety.MPS) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "control: invalid configuration")
	}
	if ports.Position == nil || ports.Intensity == nil || ports.Actuator == nil {
		return nil, errors.New("control: position sensor, intensity sensor, and actuator ports are all required")
	}
	if mps == nil {
		return nil, errors.New("control: an MPS instance is required")
	}

	period := periodFromHz(cfg.FrequencyHz)

	l := &Loop{
		logger:           logger,
		ports:            ports,
		pid:              newPIDController(cfg.PID.Kp, cfg.PID.Ki, cfg.PID.Kd, cfg.PID.Setpoint, cfg.PID.IntegMin, cfg.PID.IntegMax),
		clk:              rtclock.New(period),
		mps:              mps,
		magnetMin:        cfg.MagnetMin,
		magnetMax:        cfg.MagnetMax,
		autoReduceOnMiss: cfg.AutoReduceOnMiss,
	}
	l.wd = watchdog.New(watchdog.Config{
		Budget:                   period,
		WarningRatio:             cfg.Watchdog.WarningRatio,
		ConsecutiveMissThreshold: cfg.Watchdog.ConsecutiveMissThreshold,
		ConsecutiveWarnThreshold: cfg.Watchdog.ConsecutiveWarnThreshold,
	})
	l.freqBits.Store(math.Float64bits(cfg.FrequencyHz))
	l.controlEnabled.Store(true)
	return l, nil
}

func periodFromHz(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

// Stop clears the externally-settable running flag. Shutdown is
// cooperative: the current iteration completes, or if already
// suspended in WaitUntilNextTick, the next wake observes the flag and
// exits.
func (l *Loop) Stop() {
	l.running.Store(false)
}

// Run consumes the loop until Stop is called. It pins the calling
// goroutine to its OS thread for the duration of the call, matching the
// concurrency model's "single dedicated OS thread" requirement;
// real-time scheduling priority and CPU affinity, if any, must already
// have been acquired by the caller before invoking Run.
func (l *Loop) Run(cmds mailbox.Mailbox, telem telemetry.Emitter) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.running.Store(true)
	l.startedAt = l.clk.Now()

	for l.running.Load() {
		l.iterate(cmds, telem)
		l.clk.WaitUntilNextTick()
		l.wd.ResetTripped()
	}
}

// iterate executes phases 1-8 of one loop cycle; phase 9 (sleep to next
// tick, clearing the watchdog's per-cycle tripped flag) is performed by
// the caller so tests can drive iterate directly against a mock clock
// without sleeping. Check already advances consecutive-violation
// streaks on its own, so only the tripped flag needs clearing here —
// calling the broader administrative Reset would zero those streaks
// every iteration and callbacks would never fire.
func (l *Loop) iterate(cmds mailbox.Mailbox, telem telemetry.Emitter) {
	iterStart := l.clk.Now()

	position := l.ports.Position.Read()
	intensity := l.ports.Intensity.Read()

	decision := l.mps.CheckSafety(intensity, position)
	if decision.Level == safety.Abort && !decision.AlreadyWasAborted {
		l.emergencyStop.Store(true)
		l.controlEnabled.Store(false)
		l.ports.Actuator.Set(0)
	}

	var mag float64
	if l.controlEnabled.Load() && !l.emergencyStop.Load() && l.mps.CheckSafetyOK() {
		dt := l.clk.Period().Seconds()
		u := l.pid.step(position, dt, l.magnetMin, l.magnetMax)
		l.ports.Actuator.Set(u)
		l.ports.Position.InjectOffset(plantCoupling * u)
		mag = u
	} else {
		l.ports.Actuator.Set(0)
		mag = 0
	}

	iterEnd := l.clk.Now()
	miss := l.wd.Check(iterStart, iterEnd)
	if miss {
		total := l.deadlineMisses.Add(1)
		l.maybeAutoReduce(total)
	}

	l.cycle.Add(1)

	missFlag := 0
	if miss {
		missFlag = 1
	}
	telem.Publish(telemetry.Record{
		T:            iterStart.Sub(l.startedAt).Seconds(),
		Pos:          position,
		Intensity:    intensity,
		Mag:          mag,
		DeadlineMiss: missFlag,
		MPSSafe:      l.mps.CheckSafetyOK(),
		MPSAbort:     l.mps.AbortLatched(),
	})

	if cmds.HasPendingRequest() {
		cmd := cmds.ReceiveOne()
		reply := l.dispatch(cmd)
		cmds.SendReply(reply)
	}
}

// maybeAutoReduce implements the optional, disabled-by-default policy
// that reduces frequency by 20% through the set_freq path every 10
// accumulated deadline misses.
func (l *Loop) maybeAutoReduce(totalMisses uint64) {
	if !l.autoReduceOnMiss {
		return
	}
	if totalMisses-l.missesAtReduce.Load() < autoReduceMissInterval {
		return
	}
	l.missesAtReduce.Store(totalMisses)
	current := l.Frequency()
	reduced := ClampFrequency(current * autoReduceFactor)
	if reduced == current {
		return
	}
	l.logger.Warnw("auto-reducing frequency after sustained deadline misses",
		"old_hz", current, "new_hz", reduced, "total_misses", totalMisses)
	l.setFrequency(reduced)
}

// dispatch interprets one mailbox command and returns its reply.
// Command dispatch runs on the loop thread, between the telemetry and
// sleep phases, per the per-iteration sequence.
func (l *Loop) dispatch(cmd mailbox.Command) mailbox.Reply {
	switch cmd.Cmd {
	case mailbox.CmdSetPID:
		l.pid.setGains(cmd.Kp, cmd.Ki, cmd.Kd)
		return mailbox.OKReply()

	case mailbox.CmdSetFreq:
		if cmd.Hz == nil {
			return mailbox.ErrReply("set_freq requires hz")
		}
		l.setFrequency(ClampFrequency(*cmd.Hz))
		return mailbox.OKReply()

	case mailbox.CmdSetSetpoint:
		if cmd.Sp == nil {
			return mailbox.ErrReply("set_setpoint requires sp")
		}
		l.pid.setSetpoint(*cmd.Sp, false)
		return mailbox.OKReply()

	case mailbox.CmdRecommission:
		l.pid.reset()
		l.ports.Actuator.Set(0)
		if ps, ok := l.ports.Position.(interface{ ResetOffset() }); ok {
			ps.ResetOffset()
		}
		l.emergencyStop.Store(false)
		l.controlEnabled.Store(true)
		l.mps.Reset()
		return mailbox.OKReply()

	case mailbox.CmdEmergencyStop:
		l.emergencyStop.Store(true)
		l.controlEnabled.Store(false)
		l.ports.Actuator.Set(0)
		return mailbox.OKReply()

	case mailbox.CmdEnableControl:
		if cmd.Enable == nil {
			return mailbox.ErrReply("enable_control requires enable")
		}
		if l.emergencyStop.Load() {
			return mailbox.OKReply()
		}
		l.controlEnabled.Store(*cmd.Enable)
		if !*cmd.Enable {
			l.ports.Actuator.Set(0)
		}
		return mailbox.OKReply()

	case mailbox.CmdGetStatus:
		payload := l.Snapshot().StatusPayload()
		return mailbox.Reply{OK: true, Status: &payload}

	default:
		return mailbox.ErrReply("unknown cmd")
	}
}

// setFrequency recomputes the period from hz and applies it to the
// clock and watchdog budget, in that order, both on the loop thread.
// The new period is observed no later than the next iteration. A call
// with the frequency already in effect changes nothing, so the clock's
// tick schedule is not re-based.
func (l *Loop) setFrequency(hz float64) {
	if hz == l.Frequency() {
		return
	}
	l.freqBits.Store(math.Float64bits(hz))
	period := periodFromHz(hz)
	l.clk.SetPeriod(period)
	l.wd.SetBudget(period)
}

// Frequency returns the frequency currently in effect.
func (l *Loop) Frequency() float64 {
	return math.Float64frombits(l.freqBits.Load())
}

// Cycle returns the monotonic cycle counter.
func (l *Loop) Cycle() uint64 { return l.cycle.Load() }

// DeadlineMisses returns the cumulative deadline-miss counter.
func (l *Loop) DeadlineMisses() uint64 { return l.deadlineMisses.Load() }

// ControlEnabled reports the current control-enabled flag.
func (l *Loop) ControlEnabled() bool { return l.controlEnabled.Load() }

// EmergencyStop reports the current emergency-stop flag.
func (l *Loop) EmergencyStop() bool { return l.emergencyStop.Load() }

// Watchdog exposes the loop's watchdog for external diagnostics (e.g.
// the metrics package); it must not be used to mutate loop state.
func (l *Loop) Watchdog() *watchdog.Watchdog { return l.wd }

// MPS exposes the loop's MPS for external diagnostics.
func (l *Loop) MPS() *safety.MPS { return l.mps }

// Snapshot builds a point-in-time RuntimeSnapshot for get_status and
// external diagnostics.
func (l *Loop) Snapshot() RuntimeSnapshot {
	kp, ki, kd := l.pid.gains()
	return RuntimeSnapshot{
		FrequencyHz:    l.Frequency(),
		Cycle:          l.cycle.Load(),
		DeadlineMisses: l.deadlineMisses.Load(),
		ControlEnabled: l.controlEnabled.Load(),
		EmergencyStop:  l.emergencyStop.Load(),
		BeamPermit:     l.mps.BeamPermit(),
		AbortLatched:   l.mps.AbortLatched(),
		AbortCount:     l.mps.TotalAborts(),
		Kp:             kp,
		Ki:             ki,
		Kd:             kd,
		Setpoint:       l.pid.getSetpoint(),
		Integrator:     l.pid.integratorValue(),
	}
}
