package ports

import (
	"context"

	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
)

// VersionStore owns the canonical per-node version histories. The
// engine holds versions by reference only; every write goes through
// UpdateNodeData and appends an immutable Version.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type VersionStore interface {
	// GetNode retrieves one node record with its full history. A
	// missing node returns (nil, nil); callers decide whether absence
	// is an error.
	GetNode(ctx context.Context, nodeID valueobjects.NodeID) (*entities.NodeRecord, error)

	// UpdateNodeData appends a new immutable version holding newData
	// and moves the node's current version to it, creating the node on
	// first write. The created version is returned.
	UpdateNodeData(ctx context.Context, nodeID valueobjects.NodeID, newData valueobjects.Document, description, author string) (*entities.Version, error)

	// GetAllNodes returns every node record. Used by the snapshot
	// scheduler's sweep.
	GetAllNodes(ctx context.Context) ([]*entities.NodeRecord, error)
}
