// Package scene is a minimal 2D scene graph used to exercise the frame
// synchronization core end to end.
//
// A Box is a framesync.NodeHandle. Its translation is bounds-affecting and its
// fill is data-affecting. Setters require the notifier window to be open and
// mark every watching listener, so callbacks fire when the window closes.
package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gg"

	"github.com/comalice/framesync"
)

// Field names used as conglomeration keys for box mutations.
const (
	FieldTranslation = "translation"
	FieldFill        = "fill"
)

// Rect is an axis-aligned rectangle in surface coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Union returns the smallest rectangle containing r and o. An empty rect is
// the identity.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.W, o.X+o.W), max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Box is a filled rectangle node.
type Box struct {
	name string

	mu   sync.RWMutex
	rect Rect
	fill gg.RGBA

	bounds framesync.Registry[framesync.BoundsListener]
	data   framesync.Registry[framesync.DataListener]
}

// NewBox creates a box with no watchers.
func NewBox(name string, rect Rect, fill gg.RGBA) *Box {
	return &Box{name: name, rect: rect, fill: fill}
}

func (b *Box) Name() string { return b.name }

func (b *Box) String() string { return "box:" + b.name }

// Rect returns the current geometry.
func (b *Box) Rect() Rect {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rect
}

// Fill returns the current fill colour.
func (b *Box) Fill() gg.RGBA {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fill
}

// WatchBounds subscribes l to translation changes. Duplicate subscriptions
// are ignored.
func (b *Box) WatchBounds(l framesync.BoundsListener) bool { return b.bounds.Register(l) }

func (b *Box) UnwatchBounds(l framesync.BoundsListener) bool { return b.bounds.Unregister(l) }

// WatchData subscribes l to fill changes.
func (b *Box) WatchData(l framesync.DataListener) bool { return b.data.Register(l) }

func (b *Box) UnwatchData(l framesync.DataListener) bool { return b.data.Unregister(l) }

func (b *Box) NotifyBoundsChanged(l framesync.BoundsListener) { l.OnBoundsChange(b) }

func (b *Box) NotifyDataChanged(l framesync.DataListener) { l.OnDataChange(b) }

// SetTranslation moves the box to (x, y). It fails with
// framesync.ErrWindowClosed, leaving the box untouched, unless n is open.
func (b *Box) SetTranslation(n *framesync.Notifier, x, y float64) error {
	if !n.IsOpen() {
		return fmt.Errorf("%s: set translation: %w", b, framesync.ErrWindowClosed)
	}
	b.mu.Lock()
	b.rect.X, b.rect.Y = x, y
	b.mu.Unlock()

	var errs []error
	for _, l := range b.bounds.Snapshot() {
		errs = append(errs, n.MarkBoundsChanged(b, l))
	}
	return errors.Join(errs...)
}

// SetFill recolours the box under the same rules as SetTranslation.
func (b *Box) SetFill(n *framesync.Notifier, c gg.RGBA) error {
	if !n.IsOpen() {
		return fmt.Errorf("%s: set fill: %w", b, framesync.ErrWindowClosed)
	}
	b.mu.Lock()
	b.fill = c
	b.mu.Unlock()

	var errs []error
	for _, l := range b.data.Snapshot() {
		errs = append(errs, n.MarkDataChanged(b, l))
	}
	return errors.Join(errs...)
}

// MoveEvent returns a conglomerating update that translates the box. Only
// the most recent move per box survives until the next window.
func (b *Box) MoveEvent(n *framesync.Notifier, x, y float64) framesync.UpdateEvent {
	return framesync.Conglomerate(b, FieldTranslation, func() error {
		return b.SetTranslation(n, x, y)
	})
}

// FillEvent returns a conglomerating update that recolours the box.
func (b *Box) FillEvent(n *framesync.Notifier, c gg.RGBA) framesync.UpdateEvent {
	return framesync.Conglomerate(b, FieldFill, func() error {
		return b.SetFill(n, c)
	})
}
