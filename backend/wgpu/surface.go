package wgpu

import (
	"errors"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/gpu"
	"github.com/gogpu/frameloop/platform"
)

// ErrSurfaceLost is returned by Present after the window closed.
var ErrSurfaceLost = errors.New("wgpu: surface lost")

// Texture wraps a HAL texture.
type Texture struct {
	device hal.Device
	raw    hal.Texture
	desc   gpu.TextureDescriptor

	once sync.Once
}

// Raw returns the HAL texture.
func (t *Texture) Raw() hal.Texture { return t.raw }

func (t *Texture) Width() uint32                  { return t.desc.Width }
func (t *Texture) Height() uint32                 { return t.desc.Height }
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Destroy releases the texture once.
func (t *Texture) Destroy() {
	t.once.Do(func() { t.device.DestroyTexture(t.raw) })
}

var _ gpu.Texture = (*Texture)(nil)

// Surface is an offscreen color target bound to a window.
type Surface struct {
	id     gpu.SurfaceID
	win    platform.Window
	target *Texture

	mu       sync.Mutex
	presents int
}

// ID returns the surface identifier.
func (s *Surface) ID() gpu.SurfaceID { return s.id }

// Window returns the bound window.
func (s *Surface) Window() platform.Window { return s.win }

// Format returns the target format.
func (s *Surface) Format() gputypes.TextureFormat { return s.target.Format() }

// Target returns the color target render passes draw into.
func (s *Surface) Target() *Texture { return s.target }

// Present marks the target image complete.
func (s *Surface) Present() error {
	if s.win != nil && s.win.Closed() {
		return ErrSurfaceLost
	}
	s.mu.Lock()
	s.presents++
	s.mu.Unlock()
	return nil
}

// Presents returns how many presents succeeded.
func (s *Surface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Destroy releases the target texture.
func (s *Surface) Destroy() { s.target.Destroy() }

var _ gpu.Surface = (*Surface)(nil)
