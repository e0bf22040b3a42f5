package entities

import (
	"fmt"
	"sort"

	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"
)

// NodeRecord is the aggregate for one data node: its identity plus the
// full ordered version history. The record keeps two invariants: the
// history is strictly ascending in both sequence and timestamp, and
// the current version is always the latest entry.
type NodeRecord struct {
	id       valueobjects.NodeID
	versions []*Version
}

// NewNodeRecord creates an empty record for a node with no history yet.
func NewNodeRecord(id valueobjects.NodeID) (*NodeRecord, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}
	return &NodeRecord{id: id, versions: []*Version{}}, nil
}

// ReconstructNodeRecord rebuilds a record from stored versions. The
// versions may arrive in any order; ownership and sequence uniqueness
// are verified.
func ReconstructNodeRecord(id valueobjects.NodeID, versions []*Version) (*NodeRecord, error) {
	record, err := NewNodeRecord(id)
	if err != nil {
		return nil, err
	}

	sorted := make([]*Version, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID().Sequence() < sorted[j].ID().Sequence()
	})

	for _, v := range sorted {
		if err := record.AppendVersion(v); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// ID returns the node's identifier
func (r *NodeRecord) ID() valueobjects.NodeID {
	return r.id
}

// AppendVersion adds a new version to the history. The version must
// belong to this node, carry the next sequence number, and be stamped
// after the current version.
func (r *NodeRecord) AppendVersion(v *Version) error {
	if v == nil {
		return pkgerrors.NewValidationError("version cannot be nil")
	}
	if !v.NodeID().Equals(r.id) {
		return pkgerrors.NewValidationError(fmt.Sprintf("version %s does not belong to node %s", v.ID().String(), r.id.String()))
	}
	if v.ID().Sequence() != r.NextSequence() {
		return pkgerrors.NewConflictError(fmt.Sprintf("version %s is out of sequence, expected sequence %d", v.ID().String(), r.NextSequence()))
	}
	if current := r.Current(); current != nil && !v.Timestamp().After(current.Timestamp()) {
		return pkgerrors.NewConflictError(fmt.Sprintf("version %s is not newer than the current version", v.ID().String()))
	}

	r.versions = append(r.versions, v)
	return nil
}

// NextSequence returns the sequence number the next version will take.
func (r *NodeRecord) NextSequence() int {
	if len(r.versions) == 0 {
		return 1
	}
	return r.versions[len(r.versions)-1].ID().Sequence() + 1
}

// Current returns the latest version, or nil for an empty record.
func (r *NodeRecord) Current() *Version {
	if len(r.versions) == 0 {
		return nil
	}
	return r.versions[len(r.versions)-1]
}

// CurrentData returns the latest payload, or an empty document for an
// empty record.
func (r *NodeRecord) CurrentData() valueobjects.Document {
	if current := r.Current(); current != nil {
		return current.Data()
	}
	return valueobjects.EmptyDocument()
}

// Version looks up one version by id.
func (r *NodeRecord) Version(id valueobjects.VersionID) (*Version, bool) {
	for _, v := range r.versions {
		if v.ID().Equals(id) {
			return v, true
		}
	}
	return nil, false
}

// HasVersion reports whether the id is part of this node's history.
func (r *NodeRecord) HasVersion(id valueobjects.VersionID) bool {
	_, ok := r.Version(id)
	return ok
}

// History returns the versions newest first.
func (r *NodeRecord) History() []*Version {
	out := make([]*Version, len(r.versions))
	for i, v := range r.versions {
		out[len(r.versions)-1-i] = v
	}
	return out
}

// VersionCount returns the number of stored versions.
func (r *NodeRecord) VersionCount() int {
	return len(r.versions)
}

// VersionIDs returns the ids of all stored versions, oldest first.
func (r *NodeRecord) VersionIDs() []valueobjects.VersionID {
	out := make([]valueobjects.VersionID, len(r.versions))
	for i, v := range r.versions {
		out[i] = v.ID()
	}
	return out
}

// Clone returns a record sharing the immutable versions but owning its
// own history slice.
func (r *NodeRecord) Clone() *NodeRecord {
	versions := make([]*Version, len(r.versions))
	copy(versions, r.versions)
	return &NodeRecord{id: r.id, versions: versions}
}
