// Package testutil provides scriptable collaborators for exercising the frame
// pump, notifier and queue without a real renderer.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/comalice/framesync"
)

// Recorder collects an ordered, goroutine-safe log of observations.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *Recorder) Add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of everything recorded so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
}

// Surface is a framesync.Surface whose failures and timing are scripted.
type Surface struct {
	Rec *Recorder

	mu          sync.Mutex
	renders     int
	presents    int
	swaps       int
	disposed    bool
	renderErr   error
	loseOnError bool
	onRender    func()
}

func NewSurface(rec *Recorder) *Surface {
	return &Surface{Rec: rec}
}

// FailRenders makes RenderFrame and PresentLastFrame return err. With lose
// set the surface reports itself disposed after the failure.
func (s *Surface) FailRenders(err error, lose bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderErr = err
	s.loseOnError = lose
}

// OnRender installs a hook run inside RenderFrame, e.g. to block a frame.
func (s *Surface) OnRender(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRender = fn
}

func (s *Surface) fail() error {
	if s.renderErr != nil && s.loseOnError {
		s.disposed = true
	}
	return s.renderErr
}

func (s *Surface) RenderFrame() error {
	s.mu.Lock()
	s.renders++
	hook := s.onRender
	err := s.fail()
	s.mu.Unlock()
	if s.Rec != nil {
		s.Rec.Add("render")
	}
	if hook != nil {
		hook()
	}
	return err
}

func (s *Surface) PresentLastFrame() error {
	s.mu.Lock()
	s.presents++
	err := s.fail()
	s.mu.Unlock()
	if s.Rec != nil {
		s.Rec.Add("present")
	}
	return err
}

func (s *Surface) SwapBuffers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++
}

func (s *Surface) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Surface) Dispose() error {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	if s.Rec != nil {
		s.Rec.Add("dispose")
	}
	return nil
}

// Counts returns how many renders, presents and swaps happened.
func (s *Surface) Counts() (renders, presents, swaps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders, s.presents, s.swaps
}

// Observer counts cycles and shutdowns and optionally delegates UpdateScene.
type Observer struct {
	Rec    *Recorder
	Update func(ctx context.Context) error

	updates   atomic.Int64
	shutdowns atomic.Int64
}

func (o *Observer) UpdateScene(ctx context.Context) error {
	o.updates.Add(1)
	if o.Rec != nil {
		o.Rec.Add("update")
	}
	if o.Update != nil {
		return o.Update(ctx)
	}
	return nil
}

func (o *Observer) AppShutdown() {
	o.shutdowns.Add(1)
	if o.Rec != nil {
		o.Rec.Add("shutdown")
	}
}

func (o *Observer) Updates() int64   { return o.updates.Load() }
func (o *Observer) Shutdowns() int64 { return o.shutdowns.Load() }

// Sink collects reported errors.
type Sink struct {
	mu   sync.Mutex
	errs []error
}

func (s *Sink) ReportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *Sink) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// Node is a NodeHandle that forwards callbacks to the listener and records
// them.
type Node struct {
	Name string
	Rec  *Recorder
}

func (n *Node) NotifyBoundsChanged(l framesync.BoundsListener) {
	l.OnBoundsChange(n)
}

func (n *Node) NotifyDataChanged(l framesync.DataListener) {
	l.OnDataChange(n)
}

// Listener records every callback it receives as "bounds:<listener>:<node>"
// or "data:<listener>:<node>" and then runs the optional hooks.
type Listener struct {
	Name    string
	Rec     *Recorder
	OnBound func(node framesync.NodeHandle)
	OnData  func(node framesync.NodeHandle)
}

func (l *Listener) OnBoundsChange(node framesync.NodeHandle) {
	l.Rec.Add("bounds:%s:%s", l.Name, nameOf(node))
	if l.OnBound != nil {
		l.OnBound(node)
	}
}

func (l *Listener) OnDataChange(node framesync.NodeHandle) {
	l.Rec.Add("data:%s:%s", l.Name, nameOf(node))
	if l.OnData != nil {
		l.OnData(node)
	}
}

func nameOf(node framesync.NodeHandle) string {
	if n, ok := node.(*Node); ok {
		return n.Name
	}
	return fmt.Sprintf("%T", node)
}

// Window is a manually toggled framesync.Window.
type Window struct {
	open atomic.Bool
}

func (w *Window) Set(open bool) { w.open.Store(open) }
func (w *Window) IsOpen() bool  { return w.open.Load() }

// Viewport records the dimensions it receives.
type Viewport struct {
	mu   sync.Mutex
	dims []framesync.Dimensions
}

func (v *Viewport) SetDimensions(d framesync.Dimensions) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dims = append(v.dims, d)
}

// Last returns the most recently applied dimensions.
func (v *Viewport) Last() (framesync.Dimensions, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.dims) == 0 {
		return framesync.Dimensions{}, false
	}
	return v.dims[len(v.dims)-1], true
}

// Applied returns how many times dimensions were set.
func (v *Viewport) Applied() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.dims)
}
