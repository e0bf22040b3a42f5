package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
)

// InMemoryVersionStore keeps every node history in process memory.
// It is the default store for development and tests. Reads hand out
// cloned records, so callers can never reach the canonical state.
type InMemoryVersionStore struct {
	mu    sync.RWMutex
	nodes map[string]*entities.NodeRecord
}

// NewInMemoryVersionStore creates an empty store.
func NewInMemoryVersionStore() *InMemoryVersionStore {
	return &InMemoryVersionStore{
		nodes: make(map[string]*entities.NodeRecord),
	}
}

// GetNode retrieves one node record. A missing node yields (nil, nil).
func (s *InMemoryVersionStore) GetNode(ctx context.Context, nodeID valueobjects.NodeID) (*entities.NodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.nodes[nodeID.String()]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

// UpdateNodeData appends a new immutable version holding newData,
// creating the node on first write. Timestamps are nudged forward when
// the clock has not moved since the previous version, so histories
// stay strictly descending.
func (s *InMemoryVersionStore) UpdateNodeData(ctx context.Context, nodeID valueobjects.NodeID, newData valueobjects.Document, description, author string) (*entities.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.nodes[nodeID.String()]
	if !ok {
		created, err := entities.NewNodeRecord(nodeID)
		if err != nil {
			return nil, err
		}
		record = created
		s.nodes[nodeID.String()] = record
	}

	id, err := valueobjects.NewVersionID(nodeID, record.NextSequence())
	if err != nil {
		return nil, err
	}

	timestamp := time.Now()
	if current := record.Current(); current != nil && !timestamp.After(current.Timestamp()) {
		timestamp = current.Timestamp().Add(time.Nanosecond)
	}

	v, err := entities.ReconstructVersion(id, newData, description, author, timestamp)
	if err != nil {
		return nil, err
	}
	if err := record.AppendVersion(v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetAllNodes returns every node record, ordered by node id for a
// deterministic sweep.
func (s *InMemoryVersionStore) GetAllNodes(ctx context.Context) ([]*entities.NodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.NodeRecord, 0, len(s.nodes))
	for _, record := range s.nodes {
		out = append(out, record.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().String() < out[j].ID().String()
	})
	return out, nil
}
