package framesync

import "sync"

// compactSlack is how many superseded entries may accumulate beyond the live
// count before the pending slice is compacted.
const compactSlack = 64

// Queue buffers UpdateEvents between frames.
//
// Enqueue is safe from any goroutine and never blocks beyond a short
// critical section. DrainAndApply is only legal while the gate window is
// open. It takes the whole pending batch in one swap, so events enqueued
// during a drain land in the next batch and are never interleaved with the
// one being applied.
type Queue struct {
	window Window
	sink   ErrorSink

	mu      sync.Mutex
	pending []*queuedEvent
	merge   map[mergeKey]*queuedEvent
	live    int
	seq     uint64
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueErrorSink sets where per-event failures are reported.
func WithQueueErrorSink(s ErrorSink) QueueOption {
	return func(q *Queue) {
		q.sink = s
	}
}

// NewQueue creates a queue gated on window, normally the Notifier so that
// applied events may mark nodes in the same frame.
func NewQueue(window Window, opts ...QueueOption) *Queue {
	q := &Queue{
		window: window,
		sink:   logSink{},
		merge:  make(map[mergeKey]*queuedEvent),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends ev, or merges it into the pending conglomerating event for
// the same target field. A merged event takes the arrival position of the
// newer event so ordering against one-shot events is preserved. Merging is
// constant time: the older entry is only marked superseded.
func (q *Queue) Enqueue(ev UpdateEvent) error {
	if err := ev.validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	qe := &queuedEvent{UpdateEvent: ev, seq: q.seq}
	if ev.Conglomerating {
		key := mergeKey{target: ev.Target, field: ev.Field}
		if old, ok := q.merge[key]; ok {
			old.superseded = true
			q.live--
		}
		q.merge[key] = qe
	}
	q.pending = append(q.pending, qe)
	q.live++
	if len(q.pending) > 2*q.live+compactSlack {
		q.compact()
	}
	return nil
}

// compact drops superseded entries in place. Amortised over the merges that
// produced them. Callers hold q.mu.
func (q *Queue) compact() {
	kept := q.pending[:0]
	for _, qe := range q.pending {
		if !qe.superseded {
			kept = append(kept, qe)
		}
	}
	clear(q.pending[len(kept):])
	q.pending = kept
}

// Len returns the number of pending events after merging.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.live
}

// take atomically retrieves and replaces the pending batch.
func (q *Queue) take() []*queuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.pending
	q.pending = nil
	q.merge = make(map[mergeKey]*queuedEvent)
	q.live = 0
	return events
}

// DrainAndApply applies every pending event in order and returns how many
// applied successfully. Individual failures are reported to the error sink
// and do not abort the batch. Outside the window it returns ErrWindowClosed
// and leaves the queue untouched.
func (q *Queue) DrainAndApply() (int, error) {
	if q.window == nil || !q.window.IsOpen() {
		return 0, ErrWindowClosed
	}

	applied := 0
	for _, ev := range q.take() {
		if ev.superseded {
			continue
		}
		if err := q.apply(ev); err != nil {
			q.sink.ReportError(&EventError{Seq: ev.seq, Field: ev.Field, Err: err})
			continue
		}
		applied++
	}
	return applied, nil
}

func (q *Queue) apply(ev *queuedEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return ev.Apply()
}
