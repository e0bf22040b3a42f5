package ports

import (
	"context"

	"deepcae-backend/domain/core/valueobjects"
)

// NodeLock is one held per-node advisory lock. Release is safe to call
// more than once.
type NodeLock interface {
	Release()
}

// NodeLocker serializes mutating operations per node. Acquisition is
// fail-fast: a second mutating call on a locked node gets a
// ConcurrencyError instead of queuing. Reads never take locks.
type NodeLocker interface {
	// Acquire takes the node's lock for the named operation. The
	// returned lock must be released on every exit path.
	Acquire(ctx context.Context, nodeID valueobjects.NodeID, operation string) (NodeLock, error)

	// IsLocked reports whether the node is currently locked. The
	// scheduler uses this to skip busy nodes rather than block.
	IsLocked(nodeID valueobjects.NodeID) bool
}
