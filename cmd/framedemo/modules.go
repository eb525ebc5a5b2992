package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/backend/software"
	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/platform"
)

const mainView frameloop.ViewID = 1

// world is the demo scene: particles bouncing in a unit box.
type world struct {
	pos, vel []float64
	inputs   uint64
}

func newWorld(n int) *world {
	w := &world{pos: make([]float64, n), vel: make([]float64, n)}
	for i := range n {
		w.pos[i] = float64(i) / float64(n)
		w.vel[i] = 0.1 + float64(i%7)*0.05
	}
	return w
}

func sceneOf(fc *frameloop.FrameContext) *world {
	w, _ := fc.Scene().(*world)
	return w
}

// presenter owns the window surface and registers it every frame.
type presenter struct {
	backend gpu.Backend
	win     platform.Window
	surface gpu.Surface
}

func newPresenter(b gpu.Backend, win platform.Window) *presenter {
	return &presenter{backend: b, win: win}
}

func (p *presenter) Name() string { return "presenter" }

func (p *presenter) SupportedPhases() frameloop.PhaseMask {
	return frameloop.MaskOf(frameloop.PhaseFrameStart)
}

func (p *presenter) OnFrameStart(_ context.Context, fc *frameloop.FrameContext) error {
	if p.win.Closed() {
		return nil
	}
	if p.surface == nil {
		s, err := p.backend.CreateSurface(p.win)
		if err != nil {
			return fmt.Errorf("create surface: %w", err)
		}
		p.surface = s
	}
	fc.AddSurface(p.surface)
	w, h := p.win.Size()
	fc.SetView(mainView, frameloop.ViewContext{Surface: p.surface.ID(), Width: w, Height: h})
	return nil
}

// input counts ticks of the event loop. Work posted from the Input phase
// runs on the loop goroutine at the next tick.
type input struct {
	loop  *platform.Loop
	ticks atomic.Uint64
}

func newInput(loop *platform.Loop) *input { return &input{loop: loop} }

func (in *input) Name() string { return "input" }

func (in *input) SupportedPhases() frameloop.PhaseMask {
	return frameloop.MaskOf(frameloop.PhaseInput)
}

func (in *input) OnInput(_ context.Context, fc *frameloop.FrameContext) error {
	if w := sceneOf(fc); w != nil {
		w.inputs = in.ticks.Load()
	}
	in.loop.Post(func() { in.ticks.Add(1) })
	return nil
}

// physics integrates particle positions on the worker pool.
type physics struct{}

func (*physics) Name() string { return "physics" }

func (*physics) SupportedPhases() frameloop.PhaseMask {
	return frameloop.MaskOf(frameloop.PhaseSceneMutation)
}

func (*physics) OnSceneMutation(ctx context.Context, fc *frameloop.FrameContext) error {
	w := sceneOf(fc)
	if w == nil {
		return nil
	}
	dt := fc.Delta().Seconds()
	const chunk = 64
	var work []func()
	for start := 0; start < len(w.pos); start += chunk {
		end := min(start+chunk, len(w.pos))
		work = append(work, func() {
			for i := start; i < end; i++ {
				w.pos[i] += w.vel[i] * dt
				if w.pos[i] < 0 || w.pos[i] > 1 {
					w.vel[i] = -w.vel[i]
					w.pos[i] = min(max(w.pos[i], 0), 1)
				}
			}
		})
	}
	return fc.Parallel(ctx, work...)
}

// renderer records one command list per surface and a transient texture
// released once the GPU is done with the frame.
type renderer struct {
	backend gpu.Backend
}

func (*renderer) Name() string { return "renderer" }

func (*renderer) SupportedPhases() frameloop.PhaseMask {
	return frameloop.MaskOf(frameloop.PhaseCommandRecord)
}

func (r *renderer) OnCommandRecord(_ context.Context, fc *frameloop.FrameContext) error {
	w := sceneOf(fc)
	for _, e := range fc.Surfaces() {
		view, ok := fc.View(mainView)
		if !ok || view.Surface != e.Surface.ID() || view.Width == 0 || view.Height == 0 {
			continue
		}

		tex, err := r.backend.CreateTexture(gpu.DefaultTextureDescriptor(
			uint32(view.Width), uint32(view.Height), gputypes.TextureFormatRGBA8Unorm))
		if err != nil {
			return fmt.Errorf("create scratch texture: %w", err)
		}
		fc.DeferDestroy(tex)

		l, err := fc.AcquireCommandList(gpu.QueueGraphics, fmt.Sprintf("frame-%d", fc.Sequence()))
		if err != nil {
			return err
		}
		if err := l.Begin(); err != nil {
			return err
		}
		if enc, ok := l.Encoder().(*software.Encoder); ok && w != nil {
			if err := enc.Record(fmt.Sprintf("draw %d particles", len(w.pos))); err != nil {
				return err
			}
		}
		l.Target(e.Surface.ID())
		if err := l.End(); err != nil {
			return err
		}
	}
	return nil
}

// stats logs the frame rate.
type stats struct {
	every uint64
	since time.Time
}

func (*stats) Name() string { return "stats" }

func (*stats) SupportedPhases() frameloop.PhaseMask {
	return frameloop.MaskOf(frameloop.PhaseFrameEnd)
}

func (s *stats) OnFrameEnd(_ context.Context, fc *frameloop.FrameContext) error {
	if fc.Sequence()%s.every != 0 {
		return nil
	}
	if !s.since.IsZero() {
		elapsed := fc.StartTime().Sub(s.since)
		attrs := []any{"frame", fc.Sequence(), "fps", float64(s.every) / elapsed.Seconds()}
		if w := sceneOf(fc); w != nil {
			attrs = append(attrs, "inputs", w.inputs)
		}
		fc.Logger().Info("framedemo: stats", attrs...)
	}
	s.since = fc.StartTime()
	return nil
}
