package framesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

type request int32

const (
	reqNone request = iota
	reqRender
	reqDisplay
)

// TransitionPublisher receives every pipeline transition taken by a pump.
// Publish is called while the pump holds its state lock and must not block.
type TransitionPublisher interface {
	Publish(ctx context.Context, t Transition) error
}

// Stats is a snapshot of pump counters.
type Stats struct {
	State     PipelineState `json:"state" yaml:"state"`
	Frames    uint64        `json:"frames" yaml:"frames"`
	Rendered  uint64        `json:"rendered" yaml:"rendered"`
	Presented uint64        `json:"presented" yaml:"presented"`
	Failed    uint64        `json:"failed" yaml:"failed"`
	Halts     uint64        `json:"halts" yaml:"halts"`
}

// Pump is the render driver. It alternates between running one
// observer-then-render cycle and waiting on a single-slot wake channel.
//
// Lifecycle: NewPump → Start (or Run) → RenderOnce/DisplayOnly/Halt →
// Shutdown. Control methods are safe from any goroutine.
type Pump struct {
	surface   Surface
	sink      ErrorSink
	logger    *slog.Logger
	rearm     bool
	publisher TransitionPublisher

	wake       chan struct{}
	request    atomic.Int32
	inWindow   atomic.Bool
	terminated atomic.Bool
	renderGID  atomic.Int64

	mu       sync.Mutex
	machine  *pipeline
	observer Observer
	running  bool
	haltAck  chan struct{}
	frame    uint64
	stats    Stats

	finishOnce sync.Once
	done       chan struct{}
}

// PumpOption configures a Pump.
type PumpOption func(*Pump)

// WithObserver sets the observer invoked before every render.
func WithObserver(o Observer) PumpOption {
	return func(p *Pump) {
		p.observer = o
	}
}

// WithErrorSink sets where frame, observer and surface failures go.
func WithErrorSink(s ErrorSink) PumpOption {
	return func(p *Pump) {
		p.sink = s
	}
}

// WithRearm makes the pump request the next frame as soon as one completes.
func WithRearm(rearm bool) PumpOption {
	return func(p *Pump) {
		p.rearm = rearm
	}
}

// WithTransitionPublisher receives every pipeline transition as it happens.
func WithTransitionPublisher(pb TransitionPublisher) PumpOption {
	return func(p *Pump) {
		p.publisher = pb
	}
}

// WithLogger overrides the package logger for this pump.
func WithLogger(l *slog.Logger) PumpOption {
	return func(p *Pump) {
		p.logger = l
	}
}

// NewPump creates an idle pump rendering to surface.
func NewPump(surface Surface, opts ...PumpOption) *Pump {
	p := &Pump{
		surface: surface,
		sink:    logSink{},
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.machine = newPipeline(p.entered)
	return p
}

func (p *Pump) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return Logger()
}

// entered is the entry action of every pipeline state. Runs under p.mu.
func (p *Pump) entered(from PipelineState, evt PipelineEvent, to PipelineState) {
	t := Transition{From: from, Event: evt, To: to, Frame: p.frame, At: time.Now()}
	p.log().Debug("framesync: transition", "from", from, "event", evt, "to", to, "frame", p.frame)
	if p.publisher != nil {
		if err := p.publisher.Publish(context.Background(), t); err != nil {
			p.log().Warn("framesync: publish transition", "err", err)
		}
	}
}

// send drives the pipeline. Must hold p.mu. Events arriving after
// termination are dropped silently.
func (p *Pump) send(evt PipelineEvent) error {
	if p.machine.State() == Terminated {
		return ErrTerminated
	}
	_, err := p.machine.Send(evt)
	return err
}

// SetObserver replaces the observer used from the next cycle on.
func (p *Pump) SetObserver(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = o
}

func (p *Pump) currentObserver() Observer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.observer
}

// State returns the current pipeline state.
func (p *Pump) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.State()
}

// Stats returns a snapshot of the frame counters.
func (p *Pump) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.State = p.machine.State()
	return s
}

// IsOpen reports whether the observer callback is running, which is the
// pump's safe window for scene mutation.
func (p *Pump) IsOpen() bool {
	return p.inWindow.Load()
}

// InWindow is IsOpen under the name render-side code tends to look for.
func (p *Pump) InWindow() bool { return p.IsOpen() }

// Done is closed once the pump has terminated and notified its observer.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

func (p *Pump) onRenderGoroutine() bool {
	return goid.Get() == p.renderGID.Load()
}

// begin moves Idle → Rendering for the initial cycle.
func (p *Pump) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated.Load() {
		return ErrTerminated
	}
	if p.running {
		return errors.New("pump already running")
	}
	if err := p.send(EventStart); err != nil {
		return err
	}
	p.running = true
	return nil
}

// Start spawns the render goroutine and performs the initial cycle on it.
func (p *Pump) Start(ctx context.Context) error {
	if err := p.begin(); err != nil {
		return err
	}
	go p.loop(ctx)
	return nil
}

// Run drives the pump on the calling goroutine until shutdown, surface loss
// or ctx cancellation. Use it for single-threaded embeddings.
func (p *Pump) Run(ctx context.Context) error {
	if err := p.begin(); err != nil {
		return err
	}
	p.loop(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (p *Pump) loop(ctx context.Context) {
	p.renderGID.Store(goid.Get())
	defer p.finish()
	p.log().Info("framesync: pump started")

	p.cycle(ctx, reqRender, true)
	for {
		if p.terminated.Load() {
			return
		}
		select {
		case <-ctx.Done():
			p.terminate(EventShutdownRequested)
			return
		case <-p.wake:
		}
		if p.terminated.Load() {
			return
		}
		req := request(p.request.Swap(int32(reqNone)))
		if req == reqNone {
			continue
		}
		p.cycle(ctx, req, false)
	}
}

// cycle runs one frame. started is true when begin already moved the
// pipeline into Rendering.
func (p *Pump) cycle(ctx context.Context, req request, started bool) {
	p.mu.Lock()
	var err error
	switch {
	case req == reqDisplay:
		err = p.send(EventDisplayOnlyRequested)
	case !started:
		err = p.send(EventRenderRequested)
	}
	p.frame++
	frame := p.frame
	p.stats.Frames++
	p.mu.Unlock()
	if err != nil {
		if !errors.Is(err, ErrTerminated) {
			p.sink.ReportError(&FrameError{Frame: frame, Op: "begin", Err: err})
		}
		return
	}

	if p.checkpoint(ctx) {
		return
	}

	if req == reqDisplay {
		if err := p.surface.PresentLastFrame(); err != nil {
			p.frameFailed(frame, "present", err)
			return
		}
		p.complete(func(s *Stats) { s.Presented++ })
		return
	}

	ok := p.runObserver(ctx)
	if p.checkpoint(ctx) {
		return
	}
	if !ok {
		p.complete(func(s *Stats) { s.Failed++ })
		return
	}

	if err := p.surface.RenderFrame(); err != nil {
		p.frameFailed(frame, "render", err)
		return
	}
	if p.checkpoint(ctx) {
		return
	}
	p.surface.SwapBuffers()
	p.complete(func(s *Stats) { s.Rendered++ })
}

func (p *Pump) runObserver(ctx context.Context) (ok bool) {
	obs := p.currentObserver()
	if obs == nil {
		return true
	}
	p.inWindow.Store(true)
	defer p.inWindow.Store(false)
	defer func() {
		if r := recover(); r != nil {
			p.sink.ReportError(fmt.Errorf("%w: %w", ErrObserverPanic, recovered(r)))
			ok = false
		}
	}()
	if err := obs.UpdateScene(ctx); err != nil {
		p.sink.ReportError(fmt.Errorf("update scene: %w", err))
	}
	return true
}

// checkpoint reports whether the current frame must be abandoned, either
// because the pump is terminating or because a halt was acknowledged.
func (p *Pump) checkpoint(ctx context.Context) bool {
	if ctx.Err() != nil {
		p.terminate(EventShutdownRequested)
	}
	if p.terminated.Load() {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.haltAck == nil {
		return false
	}
	p.acknowledgeHalt()
	return true
}

// acknowledgeHalt returns a halting pump to Idle and releases Halt callers.
// Pending wakes are discarded. Must hold p.mu.
func (p *Pump) acknowledgeHalt() {
	_ = p.send(EventHaltAcknowledged)
	close(p.haltAck)
	p.haltAck = nil
	p.stats.Halts++
	p.request.Store(int32(reqNone))
	select {
	case <-p.wake:
	default:
	}
}

// complete ends a frame that reached its last step.
func (p *Pump) complete(count func(*Stats)) {
	p.mu.Lock()
	count(&p.stats)
	halted := p.haltAck != nil
	if halted {
		p.acknowledgeHalt()
	} else {
		_ = p.send(EventFrameComplete)
	}
	p.mu.Unlock()

	if p.rearm && !halted && !p.terminated.Load() {
		if p.request.CompareAndSwap(int32(reqNone), int32(reqRender)) {
			p.signal()
		}
	}
}

// frameFailed classifies a surface failure: a disposed surface ends the
// pump, anything else leaves it waiting for the next request.
func (p *Pump) frameFailed(frame uint64, op string, err error) {
	if p.surface.IsDisposed() {
		p.sink.ReportError(&FrameError{Frame: frame, Op: op, Err: fmt.Errorf("%w: %w", ErrSurfaceDisposed, err)})
		p.log().Warn("framesync: surface lost", "frame", frame, "op", op)
		p.terminate(EventSurfaceLost)
		return
	}
	p.sink.ReportError(&FrameError{Frame: frame, Op: op, Err: err})
	p.mu.Lock()
	p.stats.Failed++
	if p.haltAck != nil {
		p.acknowledgeHalt()
	} else {
		_ = p.send(EventFrameComplete)
	}
	p.mu.Unlock()
}

// terminate marks the pump terminal via evt. Safe to call repeatedly.
func (p *Pump) terminate(evt PipelineEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated.Load() {
		return false
	}
	p.terminated.Store(true)
	_ = p.send(evt)
	return true
}

func (p *Pump) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pump) post(r request) {
	if p.terminated.Load() {
		return
	}
	p.request.Store(int32(r))
	p.signal()
}

// RenderOnce requests one observer-then-render cycle. Requests made while a
// frame is in flight coalesce into a single pending cycle.
func (p *Pump) RenderOnce() {
	p.post(reqRender)
}

// DisplayOnly makes the next wake present the previously rendered buffer
// without invoking the observer. The most recent request wins when requests
// coalesce.
func (p *Pump) DisplayOnly() {
	p.post(reqDisplay)
}

// Halt aborts the frame in flight and blocks until the pump acknowledges.
// It returns immediately if the pump is idle, terminated or not running.
// Called from the render goroutine it only flags the abort.
func (p *Pump) Halt(ctx context.Context) error {
	p.mu.Lock()
	st := p.machine.State()
	if !p.running || (st != Rendering && st != DisplayOnly && st != Halting) {
		p.mu.Unlock()
		return nil
	}
	if p.haltAck == nil {
		if err := p.send(EventHaltRequested); err != nil {
			p.mu.Unlock()
			return err
		}
		p.haltAck = make(chan struct{})
	}
	ack := p.haltAck
	p.mu.Unlock()

	if p.onRenderGoroutine() {
		return nil
	}
	select {
	case <-ack:
		return nil
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown irreversibly stops the pump. It marks the pipeline terminal,
// wakes the render loop and returns without waiting for the frame in flight.
// The loop then disposes the surface and notifies the observer; Done is
// closed once that has happened. Later calls are no-ops.
func (p *Pump) Shutdown() error {
	first := p.terminate(EventShutdownRequested)

	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running {
		p.finish()
		return nil
	}
	if first {
		p.signal()
	}
	return nil
}

// finish releases the surface, wakes pending Halt callers and notifies the
// observer. Runs once.
func (p *Pump) finish() {
	p.finishOnce.Do(func() {
		p.terminate(EventShutdownRequested)
		if !p.surface.IsDisposed() {
			if err := p.surface.Dispose(); err != nil {
				p.sink.ReportError(fmt.Errorf("dispose surface: %w", err))
			}
		}

		p.mu.Lock()
		if p.haltAck != nil {
			close(p.haltAck)
			p.haltAck = nil
		}
		obs := p.observer
		p.mu.Unlock()

		if obs != nil {
			if err := dispatch(obs.AppShutdown); err != nil {
				p.sink.ReportError(fmt.Errorf("app shutdown: %w", err))
			}
		}
		p.log().Info("framesync: pump terminated")
		close(p.done)
	})
}
