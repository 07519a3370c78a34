package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/comalice/framesync"
)

// ErrBatchFull is returned by Submit when a tick's batch is at capacity.
var ErrBatchFull = errors.New("event batch full")

// Target is woken once per tick. *framesync.Pump satisfies it.
type Target interface {
	RenderOnce()
	DisplayOnly()
}

// Enqueuer accepts update events. *framesync.Queue satisfies it.
type Enqueuer interface {
	Enqueue(ev framesync.UpdateEvent) error
}

// Config configures a Driver.
type Config struct {
	TickRate         time.Duration // Fixed tick rate (e.g., 16.67ms for 60 FPS)
	MaxEventsPerTick int           // Batch capacity (default: 1000)
	Logger           *slog.Logger  // Defaults to framesync.Logger()
}

// Driver is a fixed-rate wake source for a pump.
type Driver struct {
	target    Target
	queue     Enqueuer
	maxEvents int
	logger    *slog.Logger

	rateMu   sync.Mutex
	tickRate time.Duration
	ticker   *time.Ticker

	eventBatch  []EventWithMeta
	batchMu     sync.Mutex
	sequenceNum uint64
	tickNum     uint64
	paused      bool

	tickCtx    context.Context
	tickCancel context.CancelFunc
	started    bool
	stopOnce   sync.Once
	stopped    chan struct{}
}

// NewDriver creates a stopped driver waking target and feeding queue. queue
// may be nil if events are never submitted through the driver.
func NewDriver(target Target, queue Enqueuer, cfg Config) *Driver {
	if cfg.MaxEventsPerTick == 0 {
		cfg.MaxEventsPerTick = 1000
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = 16667 * time.Microsecond // Default 60 FPS
	}
	return &Driver{
		target:     target,
		queue:      queue,
		maxEvents:  cfg.MaxEventsPerTick,
		logger:     cfg.Logger,
		tickRate:   cfg.TickRate,
		eventBatch: make([]EventWithMeta, 0, cfg.MaxEventsPerTick),
		stopped:    make(chan struct{}),
	}
}

func (d *Driver) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return framesync.Logger()
}

// Start begins ticking. The driver stops when ctx ends or Stop is called.
func (d *Driver) Start(ctx context.Context) error {
	d.rateMu.Lock()
	defer d.rateMu.Unlock()
	if d.started {
		return errors.New("driver already started")
	}
	d.started = true
	d.tickCtx, d.tickCancel = context.WithCancel(ctx)
	d.ticker = time.NewTicker(d.tickRate)

	go d.tickLoop(d.tickCtx, d.ticker)
	return nil
}

// Stop halts ticking and waits for the tick loop to exit. Events submitted
// since the last tick are handed to the queue without waking the target.
// Events submitted after Stop are never delivered. Safe to call more than
// once, and before Start.
func (d *Driver) Stop() error {
	d.rateMu.Lock()
	started := d.started
	cancel := d.tickCancel
	d.rateMu.Unlock()
	if !started {
		d.flush()
		return nil
	}
	d.stopOnce.Do(cancel)
	<-d.stopped
	return nil
}

func (d *Driver) tickLoop(ctx context.Context, ticker *time.Ticker) {
	defer close(d.stopped)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case <-ticker.C:
			func() {
				defer d.recoverTick()
				d.processTick()
			}()

			d.batchMu.Lock()
			d.tickNum++
			d.batchMu.Unlock()
		}
	}
}

// SetTickRate changes the rate, taking effect from the next tick.
func (d *Driver) SetTickRate(rate time.Duration) error {
	if rate <= 0 {
		return errors.New("tick rate must be positive")
	}
	d.rateMu.Lock()
	defer d.rateMu.Unlock()
	d.tickRate = rate
	if d.ticker != nil {
		d.ticker.Reset(rate)
	}
	return nil
}

// TickRate returns the current rate.
func (d *Driver) TickRate() time.Duration {
	d.rateMu.Lock()
	defer d.rateMu.Unlock()
	return d.tickRate
}

// Pause makes ticks re-present the last frame instead of rendering.
// Submitted events keep flowing into the queue.
func (d *Driver) Pause() {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	d.paused = true
}

// Resume makes ticks render again.
func (d *Driver) Resume() {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	d.paused = false
}

// Paused reports whether the driver is paused.
func (d *Driver) Paused() bool {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	return d.paused
}

// Submit queues an event for the next tick (thread-safe).
func (d *Driver) Submit(ev framesync.UpdateEvent) error {
	return d.SubmitWithPriority(ev, 0)
}

// SubmitWithPriority queues an event with priority. Higher priorities reach
// the queue first within a tick.
func (d *Driver) SubmitWithPriority(ev framesync.UpdateEvent, priority int) error {
	if d.queue == nil {
		return errors.New("driver has no queue")
	}
	d.batchMu.Lock()
	defer d.batchMu.Unlock()

	if len(d.eventBatch) >= d.maxEvents {
		return ErrBatchFull
	}
	d.eventBatch = append(d.eventBatch, EventWithMeta{
		Event:       ev,
		SequenceNum: d.sequenceNum,
		Priority:    priority,
	})
	d.sequenceNum++
	return nil
}

// TickNumber returns the number of completed ticks.
func (d *Driver) TickNumber() uint64 {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	return d.tickNum
}
