// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/internal/parallel"
)

// minimizedPoll bounds how long Run sleeps while every window has a zero
// framebuffer, so event loops that only deliver events from Poll still get
// drained.
const minimizedPoll = 50 * time.Millisecond

// Orchestrator drives the registered modules through the phases of every
// frame and brackets each frame with the Submitter's BeginFrame and
// EndFrame.
//
// RunFrame calls are serialized. Registry, Stop, State, Completed and Err
// are safe to call from any goroutine.
type Orchestrator struct {
	sub      *gpu.Submitter
	registry *Registry
	opts     options
	log      *slog.Logger

	frameMu   sync.Mutex
	lastStart time.Time
	seq       atomic.Uint64

	poolOnce sync.Once
	pool     *parallel.Pool

	state     atomic.Int32
	stopOnce  sync.Once
	stopCh    chan struct{}
	completed chan struct{}

	mu     sync.Mutex
	cancel context.CancelCauseFunc
	err    error
}

// New creates an orchestrator submitting through sub. The submitter stays
// owned by the caller, who closes it after the orchestrator has stopped.
func New(sub *gpu.Submitter, opts ...Option) (*Orchestrator, error) {
	if sub == nil {
		return nil, ErrNilSubmitter
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		sub:       sub,
		registry:  newRegistry(o.log),
		opts:      o,
		log:       o.log,
		stopCh:    make(chan struct{}),
		completed: make(chan struct{}),
	}, nil
}

// Registry returns the module registry.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Submitter returns the submitter frames are recorded on.
func (o *Orchestrator) Submitter() *gpu.Submitter { return o.sub }

// FrameCount returns the number of frames run so far.
func (o *Orchestrator) FrameCount() uint64 { return o.seq.Load() }

// State returns the lifecycle state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// Completed returns a channel closed once the orchestrator has stopped.
func (o *Orchestrator) Completed() <-chan struct{} { return o.completed }

// Err returns the reason Run ended: nil for Stop, MaxFrames or a window
// close request, the context cause on cancellation, and the failing
// frame's error otherwise. It is only meaningful after Completed.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Stop asks the orchestrator to stop. The asynchronous phase in progress is
// cancelled with cause ErrStopped and the remaining asynchronous phases of
// the frame are skipped; synchronous phases still run and the frame is
// still ended on the GPU. Stop does not wait; use Completed or Close.
// Stop is safe to call multiple times.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		o.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
		if o.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
			o.release()
			close(o.completed)
		}
		o.mu.Lock()
		if o.cancel != nil {
			o.cancel(ErrStopped)
		}
		o.mu.Unlock()
	})
}

// Close stops the orchestrator and waits until Run has returned or ctx is
// done.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.Stop()
	select {
	case <-o.completed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunFrame runs one frame and returns its report. A critical module failure
// returns an error wrapping ErrFrameAborted and the *ModuleError; the
// report is returned as well. A frame that could not begin returns a nil
// report.
func (o *Orchestrator) RunFrame(ctx context.Context) (*FrameReport, error) {
	return o.runFrame(ctx, o.log)
}

func (o *Orchestrator) runFrame(ctx context.Context, log *slog.Logger) (*FrameReport, error) {
	o.frameMu.Lock()
	defer o.frameMu.Unlock()
	if o.stopping() {
		return nil, ErrStopped
	}

	// The fence wait in BeginFrame is interruptible by Stop, so the frame
	// context exists before the frame does.
	frameCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()
	if o.stopping() {
		return nil, ErrStopped
	}

	seq := o.seq.Load()
	slot, err := o.sub.BeginFrame(frameCtx)
	if err != nil {
		if errors.Is(context.Cause(frameCtx), ErrStopped) {
			return nil, fmt.Errorf("frameloop: frame %d: %w", seq, ErrStopped)
		}
		return nil, fmt.Errorf("frameloop: frame %d: %w", seq, err)
	}

	start := o.opts.clock()
	var delta time.Duration
	if !o.lastStart.IsZero() {
		delta = start.Sub(o.lastStart)
	}
	o.lastStart = start

	flog := log.With("frame", seq)
	fc := &FrameContext{
		seq:    seq,
		start:  start,
		delta:  delta,
		slot:   slot,
		scene:  o.opts.scene,
		device: o.opts.device,
		sub:    o.sub,
		pool:   o.workerPool,
		log:    flog,
		views:  make(map[ViewID]ViewContext),
	}
	report := &FrameReport{Sequence: seq, Slot: slot, Start: start}

	var (
		abort   *ModuleError
		gpuErrs []error
	)
	snapshot := o.registry.Modules()
	for _, p := range Phases() {
		if dropped := fc.enterPhase(p); len(dropped) > 0 {
			flog.Warn("frameloop: surfaces expired", "phase", p.String(), "surfaces", dropped)
		}
		res := o.dispatch(frameCtx, fc, flog, p, snapshot)
		report.Phases = append(report.Phases, res)
		o.opts.metrics.ObservePhase(p.String(), res.Duration, res.Cancelled)
		if res.critical != nil {
			abort = res.critical
			break
		}
		if p == PhaseCommandRecord || p == PhaseCompositing {
			lists, err := o.sub.SubmitPending()
			if err != nil {
				gpuErrs = append(gpuErrs, err)
			}
			report.Submitted += len(lists)
			fc.markTargets(lists)
		}
	}

	if abort == nil {
		report.Presented = o.present(fc, flog)
	}

	value, err := o.sub.EndFrame()
	if err != nil {
		gpuErrs = append(gpuErrs, err)
	}
	report.FenceValue = value
	report.Aborted = abort != nil
	report.RemovedSurfaces = fc.RemovedSurfaces()
	report.Duration = o.opts.clock().Sub(start)
	o.seq.Add(1)

	o.opts.metrics.ObserveFrame(report.Duration, report.Aborted)
	for _, fn := range o.opts.observers {
		fn(report)
	}
	flog.Debug("frameloop: frame ended",
		"slot", slot, "fence", value, "submitted", report.Submitted,
		"presented", len(report.Presented), "duration", report.Duration)

	switch {
	case abort != nil:
		return report, fmt.Errorf("%w: %w", ErrFrameAborted, abort)
	case len(gpuErrs) > 0:
		err := errors.Join(gpuErrs...)
		flog.Error("frameloop: gpu submission failed", "error", err)
		return report, fmt.Errorf("frameloop: frame %d: %w", seq, err)
	}
	return report, nil
}

// present runs the single present pass over the presentable surfaces that
// are still alive.
func (o *Orchestrator) present(fc *FrameContext, log *slog.Logger) []gpu.SurfaceID {
	if dropped := fc.dropExpired(); len(dropped) > 0 {
		log.Warn("frameloop: surfaces expired before present", "surfaces", dropped)
	}
	var presented []gpu.SurfaceID
	for _, e := range fc.Surfaces() {
		if !e.Presentable {
			continue
		}
		if err := e.Surface.Present(); err != nil {
			log.Warn("frameloop: present failed", "surface", e.Surface.ID(), "error", err)
			continue
		}
		presented = append(presented, e.Surface.ID())
	}
	return presented
}

// Run runs frames until ctx is done, Stop is called, a window asks to
// close, Config.MaxFrames frames have run or a frame fails. A critical
// module failure ends Run only with Config.StopOnCriticalFailure. The event
// loop is polled once per tick. On exit the GPU is flushed and the state
// becomes StateStopped.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if o.State() == StateStopped {
			return ErrStopped
		}
		return ErrAlreadyRunning
	}

	log := o.log.With("run", uuid.NewString())
	log.Info("frameloop: run started",
		"backend", o.sub.Backend().Name(),
		"frames_in_flight", o.sub.FramesInFlight(),
		"modules", o.registry.Len())

	err := o.loop(ctx, log)
	return o.finish(ctx, log, err)
}

func (o *Orchestrator) loop(ctx context.Context, log *slog.Logger) error {
	interval := o.opts.cfg.FrameInterval()
	for {
		if stop, reason, err := o.shouldStop(ctx); stop {
			log.Info("frameloop: stopping", "reason", reason, "frames", o.seq.Load())
			return err
		}

		tick := time.Now()
		if o.opts.loop != nil {
			if err := o.opts.loop.Poll(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				return fmt.Errorf("frameloop: poll events: %w", err)
			}
		}
		if o.waitWhileMinimized(ctx) {
			continue
		}

		_, err := o.runFrame(ctx, log)
		switch {
		case err == nil:
		case errors.Is(err, ErrStopped):
			continue
		case errors.Is(err, ErrFrameAborted):
			if o.opts.cfg.StopOnCriticalFailure {
				log.Error("frameloop: stopping on critical failure", "error", err)
				return err
			}
		case ctx.Err() != nil:
			continue
		default:
			return err
		}

		if interval > 0 {
			o.sleep(ctx, interval-time.Since(tick))
		}
	}
}

func (o *Orchestrator) shouldStop(ctx context.Context) (bool, string, error) {
	select {
	case <-ctx.Done():
		return true, "context done", context.Cause(ctx)
	case <-o.stopCh:
		return true, "stop requested", nil
	default:
	}
	for _, w := range o.opts.windows {
		select {
		case <-w.CloseRequested():
			return true, "window close requested", nil
		default:
		}
	}
	if limit := o.opts.cfg.MaxFrames; limit > 0 && o.seq.Load() >= limit {
		return true, "max frames reached", nil
	}
	return false, "", nil
}

// waitWhileMinimized blocks until a window event, a stop or minimizedPoll
// when every window has a zero framebuffer. It reports whether it waited.
func (o *Orchestrator) waitWhileMinimized(ctx context.Context) bool {
	if len(o.opts.windows) == 0 {
		return false
	}
	changed := make([]<-chan struct{}, 0, len(o.opts.windows))
	for _, w := range o.opts.windows {
		changed = append(changed, w.Events().UntilChanged())
	}
	for _, w := range o.opts.windows {
		if wd, ht := w.Size(); wd > 0 && ht > 0 {
			return false
		}
	}

	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)
	for _, ch := range changed {
		go func() {
			select {
			case <-ch:
			case <-done:
				return
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		}()
	}

	timer := time.NewTimer(minimizedPoll)
	defer timer.Stop()
	select {
	case <-wake:
	case <-timer.C:
	case <-ctx.Done():
	case <-o.stopCh:
	}
	return true
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-o.stopCh:
	}
}

func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, err error) error {
	o.state.Store(int32(StateStopping))
	o.Stop()

	if ferr := o.sub.Flush(context.WithoutCancel(ctx)); ferr != nil && !errors.Is(ferr, gpu.ErrClosed) {
		log.Error("frameloop: flush failed", "error", ferr)
		err = errors.Join(err, ferr)
	}
	o.release()

	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
	o.state.Store(int32(StateStopped))
	close(o.completed)

	if err != nil {
		log.Error("frameloop: run ended", "frames", o.seq.Load(), "error", err)
	} else {
		log.Info("frameloop: run ended", "frames", o.seq.Load())
	}
	return err
}

func (o *Orchestrator) stopping() bool {
	select {
	case <-o.stopCh:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) workerPool() *parallel.Pool {
	o.poolOnce.Do(func() {
		o.pool = parallel.NewPool(o.opts.cfg.Workers)
	})
	return o.pool
}

// release closes the worker pool if it was started.
func (o *Orchestrator) release() {
	o.poolOnce.Do(func() {})
	if o.pool != nil {
		o.pool.Close()
	}
}
