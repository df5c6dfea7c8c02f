package vulkantest

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// Surface is a window whose size tests change at will.
type Surface struct {
	mu      sync.Mutex
	extent  vk.Extent2D
	resized bool
	waits   int

	// OnWaitEvents runs on every WaitEvents call, standing in for the
	// platform delivering an event.
	OnWaitEvents func(s *Surface)
}

func NewSurface(width, height uint32) *Surface {
	return &Surface{extent: vk.Extent2D{Width: width, Height: height}}
}

func (s *Surface) Extent() vk.Extent2D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extent
}

// Resize changes the extent and raises the resized flag like a framebuffer
// size callback would.
func (s *Surface) Resize(width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extent = vk.Extent2D{Width: width, Height: height}
	s.resized = true
}

func (s *Surface) WasResized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resized
}

func (s *Surface) ResetResizedFlag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resized = false
}

func (s *Surface) WaitEvents() {
	s.mu.Lock()
	s.waits++
	hook := s.OnWaitEvents
	s.mu.Unlock()
	if hook != nil {
		hook(s)
	}
}

// Waits is the number of WaitEvents calls so far.
func (s *Surface) Waits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waits
}
