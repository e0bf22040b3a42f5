package entities

import (
	"fmt"
	"strings"
	"time"

	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"
)

// Branch is a named line of development over one node's history. The
// head moves forward only: every new head must causally follow the
// previous one. A branch created without a base version is a root
// branch and binds to a node on its first advance.
type Branch struct {
	id            valueobjects.BranchID
	name          string
	nodeID        valueobjects.NodeID
	baseVersionID valueobjects.VersionID
	headVersionID valueobjects.VersionID
	description   string
	createdBy     string
	createdAt     time.Time
	isActive      bool
}

// NewBranch creates a branch. The head starts at the base version; the
// "main" branch is born active, every other branch inactive.
func NewBranch(id valueobjects.BranchID, description string, baseVersionID valueobjects.VersionID, createdBy string) (*Branch, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("branch id cannot be empty")
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, pkgerrors.NewValidationError("branch author cannot be empty")
	}

	return &Branch{
		id:            id,
		name:          id.String(),
		nodeID:        baseVersionID.NodeID(),
		baseVersionID: baseVersionID,
		headVersionID: baseVersionID,
		description:   description,
		createdBy:     createdBy,
		createdAt:     time.Now(),
		isActive:      id.IsMain(),
	}, nil
}

// ReconstructBranch rebuilds a branch from stored state.
func ReconstructBranch(
	id valueobjects.BranchID,
	name string,
	baseVersionID, headVersionID valueobjects.VersionID,
	description, createdBy string,
	createdAt time.Time,
	isActive bool,
) (*Branch, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("branch id cannot be empty")
	}
	if name == "" {
		name = id.String()
	}

	return &Branch{
		id:            id,
		name:          name,
		nodeID:        headVersionID.NodeID(),
		baseVersionID: baseVersionID,
		headVersionID: headVersionID,
		description:   description,
		createdBy:     createdBy,
		createdAt:     createdAt,
		isActive:      isActive,
	}, nil
}

// ID returns the branch's identifier
func (b *Branch) ID() valueobjects.BranchID {
	return b.id
}

// Name returns the display name
func (b *Branch) Name() string {
	return b.name
}

// NodeID returns the node this branch tracks; zero for an unbound root
// branch.
func (b *Branch) NodeID() valueobjects.NodeID {
	return b.nodeID
}

// BaseVersionID returns the version the branch forked from; zero for a
// root branch.
func (b *Branch) BaseVersionID() valueobjects.VersionID {
	return b.baseVersionID
}

// HeadVersionID returns the current head; zero for an unbound root
// branch.
func (b *Branch) HeadVersionID() valueobjects.VersionID {
	return b.headVersionID
}

// Description returns the branch description
func (b *Branch) Description() string {
	return b.description
}

// CreatedBy returns the author of the branch
func (b *Branch) CreatedBy() string {
	return b.createdBy
}

// CreatedAt returns when the branch was created
func (b *Branch) CreatedAt() time.Time {
	return b.createdAt
}

// IsActive reports whether this is the active branch.
func (b *Branch) IsActive() bool {
	return b.isActive
}

// IsRoot reports whether the branch was created without a base version.
func (b *Branch) IsRoot() bool {
	return b.baseVersionID.IsZero()
}

// HasHead reports whether the branch points at a version yet.
func (b *Branch) HasHead() bool {
	return !b.headVersionID.IsZero()
}

// AdvanceHead moves the head to a version that causally follows the
// current one. An unbound root branch binds to the version's node here.
func (b *Branch) AdvanceHead(newHead valueobjects.VersionID) error {
	if newHead.IsZero() {
		return pkgerrors.NewValidationError("branch head cannot be advanced to an empty version")
	}

	if b.headVersionID.IsZero() {
		b.nodeID = newHead.NodeID()
		b.headVersionID = newHead
		return nil
	}

	if !newHead.NodeID().Equals(b.nodeID) {
		return pkgerrors.NewValidationError(fmt.Sprintf("branch %s tracks node %s, not node %s", b.id.String(), b.nodeID.String(), newHead.NodeID().String()))
	}
	if !newHead.Follows(b.headVersionID) {
		return pkgerrors.NewConflictError(fmt.Sprintf("version %s does not follow branch head %s", newHead.String(), b.headVersionID.String()))
	}

	b.headVersionID = newHead
	return nil
}

// Activate marks the branch as the active one.
func (b *Branch) Activate() {
	b.isActive = true
}

// Deactivate clears the active mark.
func (b *Branch) Deactivate() {
	b.isActive = false
}
