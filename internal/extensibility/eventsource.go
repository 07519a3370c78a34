// Package extensibility connects external producers such as scripting or
// network bindings to a framesync update queue.
package extensibility

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/framesync"
)

// Enqueuer accepts update events. *framesync.Queue satisfies it.
type Enqueuer interface {
	Enqueue(ev framesync.UpdateEvent) error
}

// ChannelSource forwards update events received on a channel into a queue.
// Events rejected by the guard or by the queue are counted and logged.
type ChannelSource struct {
	ch    <-chan framesync.UpdateEvent
	guard Guard

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// NewChannelSource creates a ChannelSource reading from ch. A nil guard
// admits every event.
func NewChannelSource(ch <-chan framesync.UpdateEvent, guard Guard) *ChannelSource {
	return &ChannelSource{ch: ch, guard: guard}
}

// Events returns the receive-only channel for events.
func (s *ChannelSource) Events() <-chan framesync.UpdateEvent {
	return s.ch
}

// Forward enqueues events until the channel closes (returning nil) or ctx
// ends (returning ctx.Err()).
func (s *ChannelSource) Forward(ctx context.Context, q Enqueuer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.ch:
			if !ok {
				return nil
			}
			s.forward(q, ev)
		}
	}
}

func (s *ChannelSource) forward(q Enqueuer, ev framesync.UpdateEvent) {
	if s.guard != nil && !s.guard(ev) {
		s.rejected.Add(1)
		framesync.Logger().Debug("extensibility: event rejected by guard", "field", ev.Field)
		return
	}
	if err := q.Enqueue(ev); err != nil {
		s.rejected.Add(1)
		framesync.Logger().Warn("extensibility: enqueue", "field", ev.Field, "err", err)
		return
	}
	s.accepted.Add(1)
}

// Counts returns how many events were enqueued and how many were rejected.
func (s *ChannelSource) Counts() (accepted, rejected uint64) {
	return s.accepted.Load(), s.rejected.Load()
}

// TimerSource generates an update event every period using time.Ticker.
// Useful for animations driven independently of the frame rate.
type TimerSource struct {
	ch     chan framesync.UpdateEvent
	gen    func(tick uint64) framesync.UpdateEvent
	ticker *time.Ticker

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTimerSource creates a TimerSource that emits gen(n) on the n-th tick.
func NewTimerSource(gen func(tick uint64) framesync.UpdateEvent, d time.Duration) *TimerSource {
	t := &TimerSource{
		ch:     make(chan framesync.UpdateEvent, 10),
		gen:    gen,
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerSource) run() {
	var n uint64
	for {
		select {
		case <-t.ticker.C:
			n++
			select {
			case t.ch <- t.gen(n):
			default:
				// drop if full
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Events returns the event channel. It is closed by Stop.
func (t *TimerSource) Events() <-chan framesync.UpdateEvent {
	return t.ch
}

// Stop stops the ticker and closes the channel. Safe to call more than once.
func (t *TimerSource) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}
