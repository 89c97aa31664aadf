package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventAnalysisStart EventType = "analysis_start"
	EventAnalysisEnd   EventType = "analysis_end"
	EventNodeEvaluated EventType = "node_evaluated"
)

// AnalysisKind names the operation an event belongs to.
type AnalysisKind string

const (
	AnalysisRollback    AnalysisKind = "rollback"
	AnalysisMarkov      AnalysisKind = "markov"
	AnalysisSensitivity AnalysisKind = "sensitivity"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// AnalysisEvent marks the start or end of an analysis.
// Duration and Err are only set on EventAnalysisEnd.
type AnalysisEvent struct {
	EventBase
	Kind     AnalysisKind  `json:"kind"`
	RootID   string        `json:"root_id"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// NodeEvent is emitted after a node has been evaluated during rollback.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeKind `json:"node_type"`
	Depth    int      `json:"depth"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnAnalysisStart func(context.Context, *AnalysisEvent)
	OnAnalysisEnd   func(context.Context, *AnalysisEvent)
	OnNodeEvaluated func(context.Context, *NodeEvent)
}
