// Package surface provides a software raster framesync.Surface backed by
// gogpu/gg. It draws a scene.Graph into a back buffer and publishes it as the
// front image on SwapBuffers.
package surface

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"

	"github.com/comalice/framesync"
	"github.com/comalice/framesync/scene"
)

// ErrNoFrame is returned when presenting before any frame was swapped in.
var ErrNoFrame = errors.New("no frame to present")

// Option configures a Canvas.
type Option func(*Canvas)

// WithBackground sets the clear colour.
func WithBackground(c gg.RGBA) Option {
	return func(cv *Canvas) {
		cv.background = c
	}
}

// WithScaler selects the interpolator used by Snapshot.
func WithScaler(s draw.Scaler) Option {
	return func(cv *Canvas) {
		cv.scaler = s
	}
}

// Canvas implements framesync.Surface and framesync.Viewport.
//
// Sizes set through SetDimensions are staged and take effect at the start of
// the next RenderFrame, so a resize never tears a frame in progress.
type Canvas struct {
	graph      *scene.Graph
	background gg.RGBA
	scaler     draw.Scaler

	mu       sync.Mutex
	back     *gg.Context
	front    *image.RGBA
	staged   *framesync.Dimensions
	disposed bool
	rendered uint64
	presents uint64
}

var (
	_ framesync.Surface  = (*Canvas)(nil)
	_ framesync.Viewport = (*Canvas)(nil)
)

// New creates a width×height canvas drawing graph.
func New(graph *scene.Graph, width, height int, opts ...Option) *Canvas {
	c := &Canvas{
		graph:      graph,
		background: gg.White,
		scaler:     draw.BiLinear,
		back:       gg.NewContext(width, height),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RenderFrame draws every node of the graph into the back buffer.
func (c *Canvas) RenderFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return framesync.ErrSurfaceDisposed
	}
	if d := c.staged; d != nil {
		c.staged = nil
		if err := c.back.Resize(d.Width, d.Height); err != nil {
			return fmt.Errorf("resize back buffer: %w", err)
		}
	}

	c.back.ClearWithColor(c.background)
	for _, b := range c.graph.Nodes() {
		r := b.Rect()
		c.back.SetFillBrush(gg.Solid(b.Fill()))
		c.back.DrawRectangle(r.X, r.Y, r.W, r.H)
		if err := c.back.Fill(); err != nil {
			return fmt.Errorf("fill %s: %w", b, err)
		}
	}
	c.rendered++
	return nil
}

// SwapBuffers publishes the back buffer as the front image.
func (c *Canvas) SwapBuffers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	img := c.back.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		c.front = rgba
		return
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	c.front = rgba
}

// PresentLastFrame re-presents the front image without drawing.
func (c *Canvas) PresentLastFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return framesync.ErrSurfaceDisposed
	}
	if c.front == nil {
		return ErrNoFrame
	}
	c.presents++
	return nil
}

func (c *Canvas) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Dispose releases the drawing context. The front image stays readable.
func (c *Canvas) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil
	}
	c.disposed = true
	return c.back.Close()
}

// SetDimensions stages a new back buffer size. Only width and height are
// used; the origin is owned by the embedder's window.
func (c *Canvas) SetDimensions(d framesync.Dimensions) {
	if d.Width <= 0 || d.Height <= 0 {
		framesync.Logger().Warn("surface: ignoring invalid dimensions", "width", d.Width, "height", d.Height)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = &d
}

// Size returns the current back buffer size.
func (c *Canvas) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.back.Width(), c.back.Height()
}

// Counts returns the number of frames rendered and re-presented.
func (c *Canvas) Counts() (rendered, presented uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rendered, c.presents
}

// Front returns the last swapped image, or nil.
func (c *Canvas) Front() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.front
}

// Snapshot returns the front image scaled to width×height.
func (c *Canvas) Snapshot(width, height int) (*image.RGBA, error) {
	front := c.Front()
	if front == nil {
		return nil, ErrNoFrame
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid snapshot size %dx%d", width, height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	c.scaler.Scale(dst, dst.Bounds(), front, front.Bounds(), draw.Src, nil)
	return dst, nil
}

// EncodePNG writes the front image as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	front := c.Front()
	if front == nil {
		return ErrNoFrame
	}
	return png.Encode(w, front)
}
