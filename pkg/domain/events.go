package domain

import (
	"context"
	"time"
)

// NodeEvent is emitted around every node execution.
// Loading mirrors the node's loading flag so hosts can drive spinners.
// Attempt is 0 on the finish event of a node that never ran, such as a node
// skipped by its condition.
type NodeEvent struct {
	Timestamp   time.Time     `json:"timestamp"`
	ExecutionID string        `json:"executionId"`
	NodeID      string        `json:"nodeId"`
	Kind        string        `json:"kind"`
	Loading     bool          `json:"loading"`
	Status      Status        `json:"status,omitempty"`
	ErrorKind   ErrorKind     `json:"errorKind,omitempty"`
	Attempt     int           `json:"attempt,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the executing goroutine; parallel children
// may call them concurrently.
type LifecycleHooks struct {
	OnNodeStart  func(context.Context, *NodeEvent)
	OnNodeFinish func(context.Context, *NodeEvent)
	OnRetry      func(context.Context, *NodeEvent)
	OnCancelled  func(context.Context, *NodeEvent)
}
