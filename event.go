package framesync

import (
	"fmt"
	"reflect"
)

// UpdateEvent is a buffered mutation request from an external binding
// (scripting, network reader). Apply runs exactly once, inside the next
// safe window that drains the queue.
type UpdateEvent struct {
	Target NodeHandle
	// Field names the logical field Apply writes. Conglomerating events for
	// the same Target and Field collapse to the most recent one.
	Field          string
	Conglomerating bool
	Apply          func() error
}

// Conglomerate returns an event that may be superseded by a later
// conglomerating event for the same target field.
func Conglomerate(target NodeHandle, field string, apply func() error) UpdateEvent {
	return UpdateEvent{Target: target, Field: field, Conglomerating: true, Apply: apply}
}

// OneShot returns an event that is never collapsed.
func OneShot(target NodeHandle, apply func() error) UpdateEvent {
	return UpdateEvent{Target: target, Apply: apply}
}

func (ev UpdateEvent) validate() error {
	if ev.Apply == nil {
		return fmt.Errorf("%w: nil apply", ErrInvalidEvent)
	}
	if ev.Target != nil && !reflect.TypeOf(ev.Target).Comparable() {
		return fmt.Errorf("%w: target type %T is not comparable", ErrInvalidEvent, ev.Target)
	}
	if ev.Conglomerating && (ev.Target == nil || ev.Field == "") {
		return fmt.Errorf("%w: conglomerating event needs a target and field", ErrInvalidEvent)
	}
	return nil
}

// mergeKey identifies the pending conglomerating event for a target field.
type mergeKey struct {
	target NodeHandle
	field  string
}

// queuedEvent adds sequencing metadata for diagnostics and ordering.
// superseded marks an entry replaced by a later conglomerating event.
type queuedEvent struct {
	UpdateEvent
	seq        uint64
	superseded bool
}
