package framesync

import (
	"fmt"
	"time"
)

// PipelineState is the frame pump's lifecycle state.
type PipelineState int

const (
	Idle PipelineState = iota
	Rendering
	DisplayOnly
	Halting
	Terminated
)

func (s PipelineState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Rendering:
		return "Rendering"
	case DisplayOnly:
		return "DisplayOnly"
	case Halting:
		return "Halting"
	case Terminated:
		return "Terminated"
	}
	return fmt.Sprintf("PipelineState(%d)", int(s))
}

// PipelineEvent is a named request that drives a pipeline transition.
type PipelineEvent int

const (
	EventStart PipelineEvent = iota + 1
	EventRenderRequested
	EventDisplayOnlyRequested
	EventFrameComplete
	EventHaltRequested
	EventHaltAcknowledged
	EventShutdownRequested
	EventSurfaceLost
)

func (e PipelineEvent) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventRenderRequested:
		return "renderRequested"
	case EventDisplayOnlyRequested:
		return "displayOnlyRequested"
	case EventFrameComplete:
		return "frameComplete"
	case EventHaltRequested:
		return "haltRequested"
	case EventHaltAcknowledged:
		return "haltAcknowledged"
	case EventShutdownRequested:
		return "shutdownRequested"
	case EventSurfaceLost:
		return "surfaceLost"
	}
	return fmt.Sprintf("PipelineEvent(%d)", int(e))
}

// Edge is one row of the pipeline transition table.
type Edge struct {
	From  PipelineState
	Event PipelineEvent
	To    PipelineState
}

// Transition records a transition taken by a running pump.
type Transition struct {
	From  PipelineState `json:"from" yaml:"from"`
	Event PipelineEvent `json:"event" yaml:"event"`
	To    PipelineState `json:"to" yaml:"to"`
	Frame uint64        `json:"frame" yaml:"frame"`
	At    time.Time     `json:"at" yaml:"at"`
}

func (t Transition) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", t.From, t.Event, t.To)
}

// PipelineEdges returns the allowed transitions in table order.
func PipelineEdges() []Edge {
	edges := []Edge{
		{Idle, EventStart, Rendering},
		{Idle, EventRenderRequested, Rendering},
		{Idle, EventDisplayOnlyRequested, DisplayOnly},
		{Rendering, EventFrameComplete, Idle},
		{DisplayOnly, EventFrameComplete, Idle},
		{Rendering, EventHaltRequested, Halting},
		{DisplayOnly, EventHaltRequested, Halting},
		{Halting, EventHaltAcknowledged, Idle},
	}
	for _, s := range []PipelineState{Idle, Rendering, DisplayOnly, Halting} {
		edges = append(edges,
			Edge{s, EventShutdownRequested, Terminated},
			Edge{s, EventSurfaceLost, Terminated},
		)
	}
	return edges
}

// Action runs when a state is entered or exited.
type Action func(from PipelineState, evt PipelineEvent, to PipelineState)

type stateNode struct {
	ID          PipelineState
	Transitions []*transition
	EntryAction Action
	ExitAction  Action
	Final       bool
}

type transition struct {
	Event  PipelineEvent
	Source *stateNode
	Target *stateNode
}

func (s *stateNode) on(evt PipelineEvent, target *stateNode) {
	s.Transitions = append(s.Transitions, &transition{Event: evt, Source: s, Target: target})
}

// pipeline validates every state change against the transition table.
// It is not safe for concurrent use; the pump serializes access.
type pipeline struct {
	states  map[PipelineState]*stateNode
	current *stateNode
}

func newPipeline(onEnter Action) *pipeline {
	m := &pipeline{states: map[PipelineState]*stateNode{}}
	for _, id := range []PipelineState{Idle, Rendering, DisplayOnly, Halting, Terminated} {
		m.states[id] = &stateNode{ID: id, EntryAction: onEnter, Final: id == Terminated}
	}
	for _, e := range PipelineEdges() {
		m.states[e.From].on(e.Event, m.states[e.To])
	}
	m.current = m.states[Idle]
	return m
}

func (m *pipeline) State() PipelineState {
	return m.current.ID
}

// Send applies evt and returns the resulting state. An event with no
// matching transition leaves the state unchanged and returns
// ErrInvalidTransition.
func (m *pipeline) Send(evt PipelineEvent) (PipelineState, error) {
	t := m.pickTransition(m.current, evt)
	if t == nil {
		return m.current.ID, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, evt, m.current.ID)
	}
	m.current = t.do(evt)
	return m.current.ID, nil
}

// pickTransition grabs the first matching transition in table order.
func (m *pipeline) pickTransition(s *stateNode, evt PipelineEvent) *transition {
	if s.Final {
		return nil
	}
	for _, t := range s.Transitions {
		if t.Event == evt {
			return t
		}
	}
	return nil
}

func (t *transition) do(evt PipelineEvent) *stateNode {
	if t.Source.ExitAction != nil {
		t.Source.ExitAction(t.Source.ID, evt, t.Target.ID)
	}
	if t.Target.EntryAction != nil {
		t.Target.EntryAction(t.Source.ID, evt, t.Target.ID)
	}
	return t.Target
}
