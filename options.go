package frameloop

import (
	"log/slog"
	"time"

	"github.com/gogpu/frameloop/config"
	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/platform"
)

// Metrics receives orchestrator measurements. metrics.Collector implements
// it.
type Metrics interface {
	ObserveFrame(d time.Duration, aborted bool)
	ObservePhase(phase string, d time.Duration, cancelled bool)
	ObserveModuleFailure(module, phase string, critical, panicked bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveFrame(time.Duration, bool)                {}
func (nopMetrics) ObservePhase(string, time.Duration, bool)        {}
func (nopMetrics) ObserveModuleFailure(string, string, bool, bool) {}

// Option configures an Orchestrator during creation.
//
// Example:
//
//	orch, err := frameloop.New(sub,
//		frameloop.WithConfig(cfg),
//		frameloop.WithWindow(win),
//		frameloop.WithEventLoop(loop),
//	)
type Option func(*options)

// options holds optional configuration for Orchestrator creation.
type options struct {
	log       *slog.Logger
	cfg       config.Config
	metrics   Metrics
	loop      platform.EventLoop
	windows   []platform.Window
	observers []func(*FrameReport)
	clock     func() time.Time
	device    gpu.DeviceHandle
	scene     any
}

// defaultOptions returns the default orchestrator options.
func defaultOptions() options {
	return options{
		log:     Logger(),
		cfg:     config.Default(),
		metrics: nopMetrics{},
		clock:   time.Now,
		device:  gpu.NullDeviceHandle{},
	}
}

// WithLogger sets the orchestrator's logger. Nil keeps the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithConfig sets the configuration. FramesInFlight and FenceTimeout are
// properties of the Submitter and are read when building it; see
// config.Config.SubmitterOptions.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithEventLoop sets the host event loop Run polls once per tick.
func WithEventLoop(l platform.EventLoop) Option {
	return func(o *options) {
		o.loop = l
	}
}

// WithWindow adds a window whose close request stops Run.
func WithWindow(w platform.Window) Option {
	return func(o *options) {
		if w != nil {
			o.windows = append(o.windows, w)
		}
	}
}

// WithFrameObserver adds a callback run after every frame with its report.
// Observers run on the frame goroutine and must not block.
func WithFrameObserver(fn func(*FrameReport)) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithClock replaces time.Now for frame timing.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithDeviceProvider shares the host GPU device with render-pass modules
// through FrameContext.DeviceProvider.
func WithDeviceProvider(d gpu.DeviceHandle) Option {
	return func(o *options) {
		if d != nil {
			o.device = d
		}
	}
}

// WithScene sets the scene reference handed to modules. The orchestrator
// does not own it.
func WithScene(scene any) Option {
	return func(o *options) {
		o.scene = scene
	}
}
