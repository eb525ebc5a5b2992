package frameloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

type taskOutcome struct {
	ran         bool
	interrupted bool
	err         *ModuleError
}

// dispatch runs p for the modules of the frame snapshot that declared it.
func (o *Orchestrator) dispatch(ctx context.Context, fc *FrameContext, log *slog.Logger, p Phase, snapshot []ModuleInfo) PhaseResult {
	var mods []ModuleInfo
	for _, m := range snapshot {
		if m.Phases.Has(p) {
			mods = append(mods, m)
		}
	}

	start := o.opts.clock()
	var res PhaseResult
	if p.Synchronous() {
		res = o.runSync(ctx, fc, log, p, mods)
	} else {
		res = o.runAsync(ctx, fc, log, p, mods)
	}
	res.Phase = p
	res.Duration = o.opts.clock().Sub(start)
	return res
}

// runSync calls handlers one at a time in dispatch order. Stop does not
// interrupt a synchronous phase; a critical failure skips the rest of it.
func (o *Orchestrator) runSync(ctx context.Context, fc *FrameContext, log *slog.Logger, p Phase, mods []ModuleInfo) PhaseResult {
	ctx = context.WithoutCancel(ctx)

	var res PhaseResult
	for i, m := range mods {
		res.Dispatched = append(res.Dispatched, m.Name)
		me := o.invoke(ctx, fc, p, m)
		if me == nil {
			continue
		}
		o.recordFailure(log, &res, me)
		if me.Critical {
			res.critical = me
			res.Cancelled = true
			for _, rest := range mods[i+1:] {
				res.Interrupted = append(res.Interrupted, rest.Name)
			}
			break
		}
	}
	return res
}

// runAsync starts one task per module inside a nursery and joins them all.
// A critical failure cancels the nursery; tasks that have not started are
// skipped and tasks that return the cancellation are reported as
// interrupted.
func (o *Orchestrator) runAsync(ctx context.Context, fc *FrameContext, log *slog.Logger, p Phase, mods []ModuleInfo) PhaseResult {
	var res PhaseResult
	if ctx.Err() != nil {
		res.Cancelled = true
		for _, m := range mods {
			res.Interrupted = append(res.Interrupted, m.Name)
		}
		return res
	}
	if len(mods) == 0 {
		return res
	}

	g, gctx := errgroup.WithContext(ctx)
	if n := o.opts.cfg.MaxPhaseConcurrency; n > 0 {
		g.SetLimit(n)
	}

	outcomes := make([]taskOutcome, len(mods))
	for i, m := range mods {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			outcomes[i].ran = true
			me := o.invoke(gctx, fc, p, m)
			switch {
			case me == nil:
				return nil
			case !me.Panicked && gctx.Err() != nil && isCancellation(me.Err):
				outcomes[i].interrupted = true
				return nil
			}
			outcomes[i].err = me
			if me.Critical {
				return me
			}
			return nil
		})
	}
	err := g.Wait()

	var critical *ModuleError
	if errors.As(err, &critical) {
		res.critical = critical
	}
	res.Cancelled = critical != nil || ctx.Err() != nil

	for i, m := range mods {
		out := outcomes[i]
		switch {
		case !out.ran, out.interrupted:
			res.Interrupted = append(res.Interrupted, m.Name)
		default:
			res.Dispatched = append(res.Dispatched, m.Name)
			if out.err != nil {
				o.recordFailure(log, &res, out.err)
			}
		}
	}
	return res
}

// invoke calls the module's handler for p, recovering a panic into a
// *ModuleError.
func (o *Orchestrator) invoke(ctx context.Context, fc *FrameContext, p Phase, m ModuleInfo) (me *ModuleError) {
	h := handlerFor(m.Module, p)
	if h == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			me = &ModuleError{
				Module:   m.Name,
				Phase:    p,
				Critical: m.Critical(),
				Panicked: true,
				Err:      fmt.Errorf("panic: %v", r),
			}
		}
	}()
	if err := h(ctx, fc); err != nil {
		return &ModuleError{Module: m.Name, Phase: p, Critical: m.Critical(), Err: err}
	}
	return nil
}

func (o *Orchestrator) recordFailure(log *slog.Logger, res *PhaseResult, me *ModuleError) {
	res.Failures = append(res.Failures, me)
	o.opts.metrics.ObserveModuleFailure(me.Module, me.Phase.String(), me.Critical, me.Panicked)

	attrs := []any{"module", me.Module, "phase", me.Phase.String(), "panicked", me.Panicked, "error", me.Err}
	if me.Critical {
		log.Error("frameloop: critical module failed", attrs...)
		return
	}
	log.Warn("frameloop: module failed", attrs...)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrStopped)
}
