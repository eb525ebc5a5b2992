package software

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/platform"
)

// Surface counts presents instead of displaying anything.
type Surface struct {
	id     gpu.SurfaceID
	win    platform.Window
	format gputypes.TextureFormat

	presents  atomic.Int64
	destroyed atomic.Bool
}

// ID returns the surface identifier.
func (s *Surface) ID() gpu.SurfaceID { return s.id }

// Window returns the bound window.
func (s *Surface) Window() platform.Window { return s.win }

// Format returns BGRA8Unorm.
func (s *Surface) Format() gputypes.TextureFormat { return s.format }

// Present counts a present. It fails once the surface or its window is gone.
func (s *Surface) Present() error {
	if s.destroyed.Load() || (s.win != nil && s.win.Closed()) {
		return ErrSurfaceLost
	}
	s.presents.Add(1)
	return nil
}

// Presents returns how many presents succeeded.
func (s *Surface) Presents() int { return int(s.presents.Load()) }

// Destroy marks the surface destroyed.
func (s *Surface) Destroy() { s.destroyed.Store(true) }

// Destroyed reports whether Destroy was called.
func (s *Surface) Destroyed() bool { return s.destroyed.Load() }

var _ gpu.Surface = (*Surface)(nil)

// Texture is a texture record without storage.
type Texture struct {
	desc      gpu.TextureDescriptor
	owner     *Backend
	destroyed atomic.Bool
}

// Width returns the texture width.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height returns the texture height.
func (t *Texture) Height() uint32 { return t.desc.Height }

// Format returns the texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Destroy releases the texture. Repeated calls are ignored.
func (t *Texture) Destroy() {
	if t.destroyed.CompareAndSwap(false, true) {
		t.owner.liveTex.Add(-1)
	}
}

// Destroyed reports whether Destroy was called.
func (t *Texture) Destroyed() bool { return t.destroyed.Load() }

var _ gpu.Texture = (*Texture)(nil)
