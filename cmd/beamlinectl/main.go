// Command beamlinectl is the process bootstrap for the beamline
// real-time control core: argument parsing, signal installation, and
// wiring of the in-process mailbox/telemetry transports and the
// simulated plant. None of this is part of the control core's
// contract; the core compiles and runs against the hwport/mailbox/
// telemetry abstractions regardless of what wires them together.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/abhi-jeet-kumar/beamline-rt-sim/control"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/hwport"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/mailbox"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/metrics"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/rtpriority"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/safety"
	"github.com/abhi-jeet-kumar/beamline-rt-sim/telemetry"
)

func main() {
	app := &cli.App{
		Name:  "beamlinectl",
		Usage: "run the beamline real-time control core against a simulated plant",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "hz", Value: 1000, Usage: "loop frequency in Hz, clamped to [10, 2000]"},
			&cli.Float64Flag{Name: "kp", Value: -0.6, Usage: "PID proportional gain"},
			&cli.Float64Flag{Name: "ki", Value: 0.05, Usage: "PID integral gain"},
			&cli.Float64Flag{Name: "kd", Value: 0.0, Usage: "PID derivative gain"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load loop configuration from `FILE`"},
			&cli.StringFlag{Name: "metrics-addr", Value: ":9090", Usage: "address to serve Prometheus metrics on"},
			&cli.IntFlag{Name: "rt-cpu", Value: 0, Usage: "CPU to pin the loop thread to, best-effort"},
			&cli.IntFlag{Name: "rt-priority", Value: 80, Usage: "SCHED_FIFO priority to request, best-effort"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var logger golog.Logger
	if c.Bool("debug") {
		logger = golog.NewDebugLogger("beamlinectl")
	} else {
		logger = golog.NewLogger("beamlinectl")
	}

	cfg := control.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := control.LoadConfigFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.IsSet("hz") {
		cfg.FrequencyHz = c.Float64("hz")
	}
	if c.IsSet("kp") {
		cfg.PID.Kp = c.Float64("kp")
	}
	if c.IsSet("ki") {
		cfg.PID.Ki = c.Float64("ki")
	}
	if c.IsSet("kd") {
		cfg.PID.Kd = c.Float64("kd")
	}

	status := rtpriority.Acquire(c.Int("rt-cpu"), c.Int("rt-priority"))
	logger.Infow("real-time facilities", "priority", status.PriorityAcquired,
		"affinity", status.AffinityAcquired, "mlock", status.MemoryLocked)

	bpm := hwport.NewSimBPM(0)
	bic := hwport.NewSimBIC(10000)
	magnet := hwport.NewSimMagnet()

	mps := safety.New(safety.Config{
		BLMs:   cfg.BLMs,
		Logger: logger,
		AlarmFunc: func(msg string) {
			logger.Warn(msg)
		},
	})

	loop, err := control.NewLoop(logger, cfg, hwport.Ports{
		Position:  bpm,
		Intensity: bic,
		Actuator:  magnet,
	}, mps)
	if err != nil {
		return err
	}

	cmds := mailbox.NewChannel()
	telem := telemetry.NewChannel(64)

	registry := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: c.String("metrics-addr"), Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("metrics server exited", "error", err)
		}
	}()

	var backgroundWorkers sync.WaitGroup
	stop := make(chan struct{})

	backgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		drainTelemetry(telem, stop)
	}, backgroundWorkers.Done)

	backgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		pollMetrics(loop, collectors, stop)
	}, backgroundWorkers.Done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	backgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		<-sigCh
		logger.Info("shutdown signal received")
		loop.Stop()
	}, backgroundWorkers.Done)

	logger.Infow("starting control loop", "hz", cfg.FrequencyHz, "kp", cfg.PID.Kp, "ki", cfg.PID.Ki, "kd", cfg.PID.Kd)
	loop.Run(cmds, telem)

	close(stop)
	backgroundWorkers.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(ctx)
	logger.Infow("control loop stopped", "cycles", loop.Cycle(), "deadline_misses", loop.DeadlineMisses())
	return nil
}

// drainTelemetry consumes telemetry records off the channel and renders
// them to stdout as JSON lines, standing in for a real transport.
func drainTelemetry(telem *telemetry.Channel, stop <-chan struct{}) {
	enc := telemetry.JSONEncoder{}
	for {
		select {
		case rec := <-telem.Records():
			if b, err := enc.Encode(rec); err == nil {
				fmt.Println(string(b))
			}
		case <-stop:
			return
		}
	}
}

// pollMetrics refreshes the Prometheus collectors off the loop thread
// at a low, non-real-time rate. It reads the loop only through its
// published snapshot/watchdog accessors, never its internal state.
func pollMetrics(loop *control.Loop, collectors *metrics.Collectors, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			collectors.Update(loop)
		case <-stop:
			return
		}
	}
}
