package framesync

import "sync"

// ResizeCoordinator buffers the latest surface geometry and applies it to
// every registered viewport at the start of the next safe window, so the
// renderer never sees a viewport change size mid-frame.
type ResizeCoordinator struct {
	window    Window
	viewports Registry[Viewport]

	mu      sync.Mutex
	dims    Dimensions
	sizeSet bool
	pending bool
	gen     uint64
}

// NewResizeCoordinator returns a coordinator whose flush is gated on window,
// normally the pump.
func NewResizeCoordinator(window Window) *ResizeCoordinator {
	return &ResizeCoordinator{window: window}
}

// OnSurfaceResized records new surface geometry. It is safe from any
// goroutine, typically a window-system callback, and never applies the size
// directly.
func (c *ResizeCoordinator) OnSurfaceResized(x, y, width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dims = Dimensions{X: x, Y: y, Width: width, Height: height}
	c.sizeSet = true
	c.pending = true
	c.gen++
}

// Dimensions returns the last known size and whether any size was set.
func (c *ResizeCoordinator) Dimensions() (Dimensions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dims, c.sizeSet
}

// Pending reports whether a resize awaits the next flush.
func (c *ResizeCoordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// FlushPendingResize applies a pending size to every registered viewport.
func (c *ResizeCoordinator) FlushPendingResize() error {
	if c.window == nil || !c.window.IsOpen() {
		return ErrWindowClosed
	}

	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return nil
	}
	dims, gen := c.dims, c.gen
	c.mu.Unlock()

	for _, v := range c.viewports.Snapshot() {
		v.SetDimensions(dims)
	}

	c.mu.Lock()
	// A resize that raced the flush stays pending for the next window.
	if c.gen == gen {
		c.pending = false
	}
	c.mu.Unlock()
	return nil
}

// Register adds v. If a size is already known v receives it immediately.
// Registering the same viewport twice is a no-op.
func (c *ResizeCoordinator) Register(v Viewport) bool {
	if !c.viewports.Register(v) {
		return false
	}
	if dims, ok := c.Dimensions(); ok {
		v.SetDimensions(dims)
	}
	return true
}

// Unregister removes v. Already applied dimensions are left alone.
func (c *ResizeCoordinator) Unregister(v Viewport) bool {
	return c.viewports.Unregister(v)
}

// Clear removes every viewport.
func (c *ResizeCoordinator) Clear() {
	c.viewports.Clear()
}

// Len returns the number of registered viewports.
func (c *ResizeCoordinator) Len() int {
	return c.viewports.Len()
}
