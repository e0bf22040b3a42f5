package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/events"
	pkgerrors "deepcae-backend/pkg/errors"
	"go.uber.org/zap"
)

// BranchService owns the branch collection. Records live in one slice
// with an id index, so listings keep creation order and lookups stay
// O(1). Exactly one branch is active at a time.
type BranchService struct {
	store  ports.VersionStore
	bus    ports.EventBus
	logger *zap.Logger

	mu       sync.RWMutex
	branches []*entities.Branch
	index    map[string]int
	active   int // index into branches, -1 when nothing is active
}

// NewBranchService creates an empty branch collection.
func NewBranchService(store ports.VersionStore, bus ports.EventBus, logger *zap.Logger) *BranchService {
	return &BranchService{
		store:  store,
		bus:    bus,
		logger: logger,
		index:  make(map[string]int),
		active: -1,
	}
}

// CreateBranch registers a new branch. A non-zero base version must
// exist; a duplicate id is a conflict. The main branch activates
// itself on creation, every other branch starts inactive.
func (s *BranchService) CreateBranch(ctx context.Context, id valueobjects.BranchID, description string, baseVersionID valueobjects.VersionID, createdBy string) (*entities.Branch, error) {
	if !baseVersionID.IsZero() {
		if _, err := s.resolveVersion(ctx, baseVersionID); err != nil {
			return nil, s.failCreate(ctx, id.String(), err)
		}
	}

	branch, err := entities.NewBranch(id, description, baseVersionID, createdBy)
	if err != nil {
		return nil, s.failCreate(ctx, id.String(), err)
	}

	s.mu.Lock()
	if _, exists := s.index[id.String()]; exists {
		s.mu.Unlock()
		return nil, s.failCreate(ctx, id.String(), pkgerrors.NewConflictError(fmt.Sprintf("branch %s already exists", id)))
	}
	s.branches = append(s.branches, branch)
	s.index[id.String()] = len(s.branches) - 1
	if branch.IsActive() {
		if s.active >= 0 {
			s.branches[s.active].Deactivate()
		}
		s.active = len(s.branches) - 1
	}
	s.mu.Unlock()

	s.bus.Emit(ctx, events.NewBranchCreated(id, baseVersionID, createdBy, branch.CreatedAt()))
	s.logger.Info("Branch created",
		zap.String("branchID", id.String()),
		zap.String("baseVersionID", baseVersionID.String()),
		zap.Bool("active", branch.IsActive()),
	)
	return branch, nil
}

// EnsureMainBranch creates the main branch when it does not exist yet
// and returns it either way.
func (s *BranchService) EnsureMainBranch(ctx context.Context, createdBy string) (*entities.Branch, error) {
	if branch, err := s.GetBranch(ctx, valueobjects.MainBranchID); err == nil {
		return branch, nil
	}
	branch, err := s.CreateBranch(ctx, valueobjects.MainBranchID, "mainline", valueobjects.VersionID{}, createdBy)
	if err != nil {
		if pkgerrors.IsConflict(err) {
			return s.GetBranch(ctx, valueobjects.MainBranchID)
		}
		return nil, err
	}
	return branch, nil
}

// SwitchBranch makes the named branch the single active one. Switching
// to the already-active branch is a no-op.
func (s *BranchService) SwitchBranch(ctx context.Context, id valueobjects.BranchID) (*entities.Branch, error) {
	s.mu.Lock()
	idx, ok := s.index[id.String()]
	if !ok {
		s.mu.Unlock()
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("branch %s", id))
	}
	target := s.branches[idx]
	if s.active == idx {
		s.mu.Unlock()
		return target, nil
	}
	var from valueobjects.BranchID
	if s.active >= 0 {
		from = s.branches[s.active].ID()
		s.branches[s.active].Deactivate()
	}
	target.Activate()
	s.active = idx
	s.mu.Unlock()

	s.bus.Emit(ctx, events.NewBranchSwitched(from, id, target.NodeID(), time.Now()))
	s.logger.Info("Branch switched",
		zap.String("from", from.String()),
		zap.String("to", id.String()),
	)
	return target, nil
}

// AdvanceHead moves a branch head to a version that causally follows
// the current head. The version must already exist in the store.
func (s *BranchService) AdvanceHead(ctx context.Context, branchID valueobjects.BranchID, versionID valueobjects.VersionID) error {
	if _, err := s.resolveVersion(ctx, versionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index[branchID.String()]
	if !ok {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("branch %s", branchID))
	}
	if err := s.branches[idx].AdvanceHead(versionID); err != nil {
		return err
	}
	s.logger.Debug("Branch head advanced",
		zap.String("branchID", branchID.String()),
		zap.String("headVersionID", versionID.String()),
	)
	return nil
}

// GetBranch returns one branch by id.
func (s *BranchService) GetBranch(ctx context.Context, id valueobjects.BranchID) (*entities.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("branch %s", id))
	}
	return s.branches[idx], nil
}

// GetBranches returns every branch in creation order.
func (s *BranchService) GetBranches(ctx context.Context) []*entities.Branch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Branch, len(s.branches))
	copy(out, s.branches)
	return out
}

// ActiveBranch returns the currently active branch, if any.
func (s *BranchService) ActiveBranch(ctx context.Context) (*entities.Branch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active < 0 {
		return nil, false
	}
	return s.branches[s.active], true
}

// recordWrite moves the active branch head after a successful store
// write. A root branch is bound to the node of its first write; an
// active branch tracking a different node is left alone.
func (s *BranchService) recordWrite(v *entities.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active < 0 {
		return nil
	}
	branch := s.branches[s.active]
	if branch.HasHead() && !branch.NodeID().Equals(v.NodeID()) {
		return nil
	}
	return branch.AdvanceHead(v.ID())
}

// resolveVersion loads a version through its node record.
func (s *BranchService) resolveVersion(ctx context.Context, id valueobjects.VersionID) (*entities.Version, error) {
	record, err := s.store.GetNode(ctx, id.NodeID())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading node")
	}
	if record == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", id))
	}
	v, ok := record.Version(id)
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", id))
	}
	return v, nil
}

// failCreate emits the failure event and returns err unchanged.
func (s *BranchService) failCreate(ctx context.Context, branchID string, err error) error {
	s.bus.Emit(ctx, events.NewBranchCreateFailed(branchID, err.Error(), time.Now()))
	s.logger.Warn("Branch creation failed",
		zap.String("branchID", branchID),
		zap.Error(err),
	)
	return err
}
