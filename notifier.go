package framesync

import (
	"fmt"
	"reflect"
	"sync"

	"cogentcore.org/core/base/keylist"
)

// Phase is the notifier's position within a window.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpen
	PhaseBounds
	PhaseData
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpen:
		return "open"
	case PhaseBounds:
		return "bounds"
	case PhaseData:
		return "data"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// DefaultMaxCascade bounds how many times callbacks may re-mark nodes within
// one phase before the remainder is carried to the next window.
const DefaultMaxCascade = 16

type boundsKey struct {
	node     NodeHandle
	listener BoundsListener
}

type dataKey struct {
	node     NodeHandle
	listener DataListener
}

// Notifier hands listeners their once-per-frame chance to mutate nodes.
//
// Marks are collected while the window is open and dispatched on Close in two
// phases: every bounds callback completes before any data callback begins.
// A bounds mark issued during the data phase is carried to the next window.
type Notifier struct {
	parent     Window
	sink       ErrorSink
	maxCascade int

	mu     sync.Mutex
	phase  Phase
	bounds *keylist.List[boundsKey, boundsKey]
	data   *keylist.List[dataKey, dataKey]
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithParentWindow makes Open fail unless w is open, typically the pump's
// observer window.
func WithParentWindow(w Window) NotifierOption {
	return func(n *Notifier) {
		n.parent = w
	}
}

// WithNotifierErrorSink sets where callback failures are reported.
func WithNotifierErrorSink(s ErrorSink) NotifierOption {
	return func(n *Notifier) {
		n.sink = s
	}
}

// WithMaxCascade overrides DefaultMaxCascade.
func WithMaxCascade(rounds int) NotifierOption {
	return func(n *Notifier) {
		if rounds > 0 {
			n.maxCascade = rounds
		}
	}
}

// NewNotifier creates a closed notifier.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{
		sink:       logSink{},
		maxCascade: DefaultMaxCascade,
		bounds:     keylist.New[boundsKey, boundsKey](),
		data:       keylist.New[dataKey, dataKey](),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// IsOpen reports whether marks are currently accepted.
func (n *Notifier) IsOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.phase != PhaseClosed
}

// Phase returns the current phase.
func (n *Notifier) Phase() Phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.phase
}

// Pending returns the number of marks awaiting dispatch.
func (n *Notifier) Pending() (bounds, data int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bounds.Len(), n.data.Len()
}

// Open starts a mutation window.
func (n *Notifier) Open() error {
	if n.parent != nil && !n.parent.IsOpen() {
		return ErrWindowClosed
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.phase != PhaseClosed {
		return ErrWindowOpen
	}
	n.phase = PhaseOpen
	return nil
}

// MarkBoundsChanged schedules l.OnBoundsChange for node before bounds are
// next read by the renderer.
func (n *Notifier) MarkBoundsChanged(node NodeHandle, l BoundsListener) error {
	if err := checkComparable(node, l); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.phase == PhaseClosed {
		return ErrWindowClosed
	}
	if n.phase == PhaseData {
		Logger().Debug("framesync: bounds mark during data phase carried to next window", "node", fmt.Sprintf("%T", node))
	}
	_ = n.bounds.Add(boundsKey{node: node, listener: l}, boundsKey{node: node, listener: l})
	return nil
}

// MarkDataChanged schedules l.OnDataChange for node after every bounds
// callback of the window has run.
func (n *Notifier) MarkDataChanged(node NodeHandle, l DataListener) error {
	if err := checkComparable(node, l); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.phase == PhaseClosed {
		return ErrWindowClosed
	}
	_ = n.data.Add(dataKey{node: node, listener: l}, dataKey{node: node, listener: l})
	return nil
}

// Close dispatches pending marks, bounds phase first, then data phase, and
// closes the window. Callback failures are reported to the error sink.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.phase != PhaseOpen {
		defer n.mu.Unlock()
		if n.phase == PhaseClosed {
			return ErrWindowClosed
		}
		return fmt.Errorf("%w: close during %s phase", ErrWindowOpen, n.phase)
	}
	n.phase = PhaseBounds
	n.mu.Unlock()

	n.runBounds()

	n.mu.Lock()
	n.phase = PhaseData
	n.mu.Unlock()

	n.runData()

	n.mu.Lock()
	n.phase = PhaseClosed
	n.mu.Unlock()
	return nil
}

func (n *Notifier) runBounds() {
	for round := 0; ; round++ {
		n.mu.Lock()
		batch := n.bounds.Values
		if len(batch) == 0 {
			n.mu.Unlock()
			return
		}
		if round >= n.maxCascade {
			n.mu.Unlock()
			n.sink.ReportError(&CallbackError{Phase: PhaseBounds, Err: fmt.Errorf("cascade exceeded %d rounds, %d marks carried over", n.maxCascade, len(batch))})
			return
		}
		n.bounds = keylist.New[boundsKey, boundsKey]()
		n.mu.Unlock()

		for _, k := range batch {
			if err := dispatch(func() { k.node.NotifyBoundsChanged(k.listener) }); err != nil {
				n.sink.ReportError(&CallbackError{Phase: PhaseBounds, Err: err})
			}
		}
	}
}

func (n *Notifier) runData() {
	for round := 0; ; round++ {
		n.mu.Lock()
		batch := n.data.Values
		if len(batch) == 0 {
			n.mu.Unlock()
			return
		}
		if round >= n.maxCascade {
			n.mu.Unlock()
			n.sink.ReportError(&CallbackError{Phase: PhaseData, Err: fmt.Errorf("cascade exceeded %d rounds, %d marks carried over", n.maxCascade, len(batch))})
			return
		}
		n.data = keylist.New[dataKey, dataKey]()
		n.mu.Unlock()

		for _, k := range batch {
			if err := dispatch(func() { k.node.NotifyDataChanged(k.listener) }); err != nil {
				n.sink.ReportError(&CallbackError{Phase: PhaseData, Err: err})
			}
		}
	}
}

func dispatch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	fn()
	return nil
}

func checkComparable(node NodeHandle, l any) error {
	if node == nil || l == nil {
		return fmt.Errorf("%w: nil node or listener", ErrInvalidListener)
	}
	if !reflect.TypeOf(node).Comparable() {
		return fmt.Errorf("%w: node type %T is not comparable", ErrInvalidListener, node)
	}
	if !reflect.TypeOf(l).Comparable() {
		return fmt.Errorf("%w: listener type %T is not comparable", ErrInvalidListener, l)
	}
	return nil
}
