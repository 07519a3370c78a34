package realtime

import "fmt"

// processTick runs one tick.
func (d *Driver) processTick() {
	// Phases 1-3: collect, order and enqueue
	d.flush()

	// Phase 4: wake the pump
	if d.Paused() {
		d.target.DisplayOnly()
	} else {
		d.target.RenderOnce()
	}
}

// flush moves the pending batch into the queue in priority order.
func (d *Driver) flush() {
	events := d.collectEvents()
	sortEvents(events)
	d.enqueueEvents(events)
}

// collectEvents atomically retrieves and clears the event batch.
func (d *Driver) collectEvents() []EventWithMeta {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()

	events := d.eventBatch
	d.eventBatch = make([]EventWithMeta, 0, d.maxEvents)
	return events
}

func (d *Driver) enqueueEvents(events []EventWithMeta) {
	for _, em := range events {
		if err := d.queue.Enqueue(em.Event); err != nil {
			d.log().Warn("realtime: enqueue", "seq", em.SequenceNum, "err", err)
		}
	}
}

func (d *Driver) recoverTick() {
	if r := recover(); r != nil {
		d.log().Error("realtime: tick panicked", "tick", d.TickNumber(), "panic", fmt.Sprint(r))
	}
}
