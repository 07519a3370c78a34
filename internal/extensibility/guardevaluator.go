package extensibility

import (
	"github.com/comalice/framesync"
)

// Guard decides whether an externally produced event may reach the queue.
type Guard func(ev framesync.UpdateEvent) bool

// AllowFields admits conglomerating events for the named fields only.
// One-shot events are rejected: external producers may only overwrite
// properties, never run arbitrary one-off mutations.
func AllowFields(fields ...string) Guard {
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	return func(ev framesync.UpdateEvent) bool {
		return ev.Conglomerating && allowed[ev.Field]
	}
}

// AllowTargets admits events addressed to one of targets.
func AllowTargets(targets ...framesync.NodeHandle) Guard {
	allowed := make(map[framesync.NodeHandle]bool, len(targets))
	for _, t := range targets {
		allowed[t] = true
	}
	return func(ev framesync.UpdateEvent) (ok bool) {
		// Non-comparable targets panic on lookup; they are never allowed.
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		return ev.Target != nil && allowed[ev.Target]
	}
}

// All admits an event only if every guard does. Nil guards are skipped.
func All(guards ...Guard) Guard {
	return func(ev framesync.UpdateEvent) bool {
		for _, g := range guards {
			if g != nil && !g(ev) {
				return false
			}
		}
		return true
	}
}
