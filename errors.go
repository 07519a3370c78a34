package framesync

import (
	"errors"
	"fmt"
)

// Protocol violations are reported synchronously to the caller and never retried.
var (
	ErrWindowClosed      = errors.New("notifier window closed")
	ErrWindowOpen        = errors.New("notifier window already open")
	ErrInvalidEvent      = errors.New("invalid update event")
	ErrInvalidListener   = errors.New("invalid listener")
	ErrInvalidTransition = errors.New("invalid pipeline transition")
	ErrTerminated        = errors.New("pump terminated")
	ErrSurfaceDisposed   = errors.New("surface disposed")
	ErrObserverPanic     = errors.New("observer panicked")
)

// EventError reports a single queued mutation that failed to apply.
type EventError struct {
	Seq   uint64
	Field string
	Err   error
}

func (e *EventError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("update event #%d: %v", e.Seq, e.Err)
	}
	return fmt.Sprintf("update event #%d (%s): %v", e.Seq, e.Field, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// FrameError reports a failed render or present step of a single frame.
type FrameError struct {
	Frame uint64
	Op    string
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %s: %v", e.Frame, e.Op, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// CallbackError reports a listener callback that failed during dispatch.
type CallbackError struct {
	Phase Phase
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s callback: %v", e.Phase, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// ErrorSink receives failures that must not unwind across the render and
// application roles.
type ErrorSink interface {
	ReportError(err error)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(err error)

func (f ErrorSinkFunc) ReportError(err error) { f(err) }

// logSink is the default sink: failures go to the package logger.
type logSink struct{}

func (logSink) ReportError(err error) {
	Logger().Warn("framesync: reported failure", "err", err)
}

// recovered converts a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
