package extensibility

import (
	"log/slog"
	"time"

	"github.com/comalice/framesync"
)

// LoggingApply wraps apply with debug logs around its execution.
func LoggingApply(logger *slog.Logger, label string, apply func() error) func() error {
	if logger == nil {
		logger = framesync.Logger()
	}
	return func() error {
		logger.Debug("extensibility: applying event", "event", label)
		start := time.Now()
		err := apply()
		logger.Debug("extensibility: event applied", "event", label, "took", time.Since(start), "err", err)
		return err
	}
}

// Instrument returns ev with its Apply wrapped by LoggingApply. The event's
// identity (target, field, kind) is unchanged, so conglomeration still works.
func Instrument(logger *slog.Logger, ev framesync.UpdateEvent) framesync.UpdateEvent {
	if ev.Apply == nil {
		return ev
	}
	label := ev.Field
	if label == "" {
		label = "one-shot"
	}
	ev.Apply = LoggingApply(logger, label, ev.Apply)
	return ev
}
