// Package metrics exports frame loop instrumentation as Prometheus metrics.
//
// A Collector satisfies both the orchestrator's metrics sink and
// gpu.SubmitObserver, so one value instruments the whole loop:
//
//	m, err := metrics.NewCollector(prometheus.DefaultRegisterer, "")
//	sub, _ := gpu.NewSubmitter(b, gpu.SubmitterOptions{Observer: m})
//	orch, _ := frameloop.New(sub, frameloop.WithMetrics(m))
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/frameloop/gpu"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "frameloop"

// Collector holds the frame loop metrics.
type Collector struct {
	frames         *prometheus.CounterVec
	frameDuration  prometheus.Histogram
	phaseDuration  *prometheus.HistogramVec
	phaseCancelled *prometheus.CounterVec
	moduleFailures *prometheus.CounterVec
	modulePanics   *prometheus.CounterVec
	fenceWait      *prometheus.HistogramVec
	listsSubmitted prometheus.Counter
	releases       prometheus.Counter
}

// NewCollector creates the metrics and registers them on reg. An empty
// namespace means DefaultNamespace.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	frameBuckets := prometheus.ExponentialBuckets(0.0005, 2, 12) // 0.5ms .. ~1s

	c := &Collector{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames run, by outcome (completed or aborted).",
		}, []string{"outcome"}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "CPU time from BeginFrame to EndFrame.",
			Buckets:   frameBuckets,
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent dispatching one phase.",
			Buckets:   frameBuckets,
		}, []string{"phase"}),
		phaseCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_cancelled_total",
			Help:      "Async phases whose scope was cancelled.",
		}, []string{"phase"}),
		moduleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_failures_total",
			Help:      "Module handler failures.",
		}, []string{"module", "phase", "critical"}),
		modulePanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_panics_total",
			Help:      "Module handler panics recovered by the orchestrator.",
		}, []string{"module"}),
		fenceWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fence_wait_seconds",
			Help:      "Time BeginFrame waited for a frame slot's fence.",
			Buckets:   frameBuckets,
		}, []string{"slot"}),
		listsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_lists_submitted_total",
			Help:      "Command lists submitted to GPU queues.",
		}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_releases_total",
			Help:      "Deferred resource releases run after their fence completed.",
		}),
	}

	var errs []error
	for _, m := range []prometheus.Collector{
		c.frames, c.frameDuration, c.phaseDuration, c.phaseCancelled,
		c.moduleFailures, c.modulePanics, c.fenceWait, c.listsSubmitted, c.releases,
	} {
		if err := reg.Register(m); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("metrics: register: %w", err)
	}
	return c, nil
}

// ObserveFrame records one frame.
func (c *Collector) ObserveFrame(d time.Duration, aborted bool) {
	outcome := "completed"
	if aborted {
		outcome = "aborted"
	}
	c.frames.WithLabelValues(outcome).Inc()
	c.frameDuration.Observe(d.Seconds())
}

// ObservePhase records one phase dispatch.
func (c *Collector) ObservePhase(phase string, d time.Duration, cancelled bool) {
	c.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	if cancelled {
		c.phaseCancelled.WithLabelValues(phase).Inc()
	}
}

// ObserveModuleFailure records a failed handler.
func (c *Collector) ObserveModuleFailure(module, phase string, critical, panicked bool) {
	c.moduleFailures.WithLabelValues(module, phase, strconv.FormatBool(critical)).Inc()
	if panicked {
		c.modulePanics.WithLabelValues(module).Inc()
	}
}

// FenceWaited implements gpu.SubmitObserver.
func (c *Collector) FenceWaited(slot gpu.FrameSlot, waited time.Duration) {
	c.fenceWait.WithLabelValues(strconv.FormatUint(uint64(slot), 10)).Observe(waited.Seconds())
}

// CommandListsSubmitted implements gpu.SubmitObserver.
func (c *Collector) CommandListsSubmitted(n int) {
	c.listsSubmitted.Add(float64(n))
}

// ResourcesReleased implements gpu.SubmitObserver.
func (c *Collector) ResourcesReleased(n int) {
	c.releases.Add(float64(n))
}

var _ gpu.SubmitObserver = (*Collector)(nil)
