package domain

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when a referenced node id is absent from the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrRootNotFound is returned when every node is the target of some edge.
var ErrRootNotFound = errors.New("no root node found")

// ErrAmbiguousRoot is returned in strict root mode when more than one node lacks incoming edges.
var ErrAmbiguousRoot = errors.New("ambiguous root node")

// ErrDepthExceeded is returned when tree evaluation goes deeper than the configured limit.
var ErrDepthExceeded = errors.New("maximum evaluation depth exceeded")

// ErrCycleDetected is returned when a node is reached again while it is still being evaluated.
var ErrCycleDetected = errors.New("cycle detected")

// ErrCacheMiss is returned by result caches when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// ErrModelNotFound is returned by model loaders when the model id is unknown.
var ErrModelNotFound = errors.New("model not found")

// ErrInvalidModel is matched by every strict validation failure.
var ErrInvalidModel = errors.New("invalid model")

// NodeError attaches the offending node id to an analysis error.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
