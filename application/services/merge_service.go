package services

import (
	"context"
	"fmt"
	"time"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/events"
	"deepcae-backend/domain/versioning"
	pkgerrors "deepcae-backend/pkg/errors"
	"go.uber.org/zap"
)

// MergeResult reports a merge analysis or execution.
type MergeResult struct {
	// Conflicts holds every detected conflict, resolved or not.
	Conflicts []versioning.MergeConflict
	// AutoResolved counts the conflicts settled automatically.
	AutoResolved int
	// RequiresManualResolution is true when unresolved conflicts
	// remain and nothing was written.
	RequiresManualResolution bool
	// MergedVersion is the version written by the merge, nil for a
	// pure analysis or when manual resolution is required.
	MergedVersion *entities.Version
}

// MergeService coordinates branch merges: conflict detection,
// auto-resolution, and the merge write.
type MergeService struct {
	store    ports.VersionStore
	branches *BranchService
	merger   *versioning.Merger
	locker   ports.NodeLocker
	bus      ports.EventBus
	logger   *zap.Logger
}

// NewMergeService creates a merge service.
func NewMergeService(
	store ports.VersionStore,
	branches *BranchService,
	merger *versioning.Merger,
	locker ports.NodeLocker,
	bus ports.EventBus,
	logger *zap.Logger,
) *MergeService {
	return &MergeService{
		store:    store,
		branches: branches,
		merger:   merger,
		locker:   locker,
		bus:      bus,
		logger:   logger,
	}
}

// AnalyzeMerge detects and auto-resolves conflicts between two branch
// tips without touching any state.
func (s *MergeService) AnalyzeMerge(ctx context.Context, sourceID, targetID valueobjects.BranchID) (*MergeResult, error) {
	input, err := s.resolve(ctx, sourceID, targetID)
	if err != nil {
		return nil, s.fail(ctx, sourceID, targetID, err)
	}

	result := s.analyze(input)
	s.emitAnalysis(ctx, input, result)
	return result, nil
}

// MergeBranch merges the source branch into the target branch. With
// unresolved conflicts the conflict list comes back and nothing is
// written; otherwise the field-wise union becomes a new version and
// the target head advances to it.
func (s *MergeService) MergeBranch(ctx context.Context, sourceID, targetID valueobjects.BranchID, author string) (*MergeResult, error) {
	// first pass only locates the node to lock
	pre, err := s.resolve(ctx, sourceID, targetID)
	if err != nil {
		return nil, s.fail(ctx, sourceID, targetID, err)
	}

	lock, err := s.locker.Acquire(ctx, pre.nodeID, "merge")
	if err != nil {
		return nil, s.fail(ctx, sourceID, targetID, err)
	}
	defer lock.Release()

	// authoritative read under the lock
	input, err := s.resolve(ctx, sourceID, targetID)
	if err != nil {
		return nil, s.fail(ctx, sourceID, targetID, err)
	}

	result := s.analyze(input)
	s.emitAnalysis(ctx, input, result)
	if result.RequiresManualResolution {
		s.logger.Info("Merge requires manual resolution",
			zap.String("source", sourceID.String()),
			zap.String("target", targetID.String()),
			zap.Int("conflicts", len(result.Conflicts)),
			zap.Int("autoResolved", result.AutoResolved),
		)
		return result, nil
	}

	merged, err := s.merger.Merge(input.base, input.current, input.incoming, result.Conflicts)
	if err != nil {
		return nil, s.fail(ctx, sourceID, targetID, err)
	}

	if err := checkDeadline(ctx, "merge"); err != nil {
		return nil, s.fail(ctx, sourceID, targetID, err)
	}

	description := fmt.Sprintf("merge %s into %s", sourceID, targetID)
	v, err := s.store.UpdateNodeData(ctx, input.nodeID, merged, description, author)
	if err != nil {
		return nil, s.fail(ctx, sourceID, targetID, pkgerrors.Wrap(err, "writing merge version"))
	}

	if err := s.branches.AdvanceHead(ctx, targetID, v.ID()); err != nil {
		return nil, s.fail(ctx, sourceID, targetID, err)
	}
	result.MergedVersion = v

	s.logger.Info("Merge completed",
		zap.String("source", sourceID.String()),
		zap.String("target", targetID.String()),
		zap.String("versionID", v.ID().String()),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("autoResolved", result.AutoResolved),
	)
	return result, nil
}

// mergeInput is everything a merge needs resolved up front: both
// branches, the node they track, and the three documents of the
// three-way comparison.
type mergeInput struct {
	source, target *entities.Branch
	nodeID         valueobjects.NodeID
	base           valueobjects.Document
	current        valueobjects.Document
	incoming       valueobjects.Document
}

// resolve loads both branches and the documents behind their tips. The
// common base is the source branch's base version, the point where its
// line diverged; a root source branch merges against the empty
// document.
func (s *MergeService) resolve(ctx context.Context, sourceID, targetID valueobjects.BranchID) (*mergeInput, error) {
	source, err := s.branches.GetBranch(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.branches.GetBranch(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !source.HasHead() {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("branch %s has no versions to merge", sourceID))
	}
	if !target.HasHead() {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("branch %s has no versions to merge into", targetID))
	}
	if !source.NodeID().Equals(target.NodeID()) {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("branches %s and %s track different nodes", sourceID, targetID))
	}

	record, err := s.store.GetNode(ctx, source.NodeID())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading node")
	}
	if record == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", source.NodeID()))
	}

	sourceTip, ok := record.Version(source.HeadVersionID())
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", source.HeadVersionID()))
	}
	targetTip, ok := record.Version(target.HeadVersionID())
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", target.HeadVersionID()))
	}

	base := valueobjects.EmptyDocument()
	if !source.BaseVersionID().IsZero() {
		baseVersion, ok := record.Version(source.BaseVersionID())
		if !ok {
			return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", source.BaseVersionID()))
		}
		base = baseVersion.Data()
	}

	return &mergeInput{
		source:   source,
		target:   target,
		nodeID:   record.ID(),
		base:     base,
		current:  targetTip.Data(),
		incoming: sourceTip.Data(),
	}, nil
}

func (s *MergeService) analyze(in *mergeInput) *MergeResult {
	conflicts := s.merger.DetectConflicts(in.base, in.current, in.incoming)
	conflicts, autoResolved := s.merger.AutoResolve(conflicts)
	return &MergeResult{
		Conflicts:                conflicts,
		AutoResolved:             autoResolved,
		RequiresManualResolution: versioning.UnresolvedCount(conflicts) > 0,
	}
}

func (s *MergeService) emitAnalysis(ctx context.Context, in *mergeInput, result *MergeResult) {
	s.bus.Emit(ctx, events.NewMergeAnalysisCompleted(
		in.source.ID(), in.target.ID(), in.nodeID,
		len(result.Conflicts), result.AutoResolved, result.RequiresManualResolution,
		time.Now(),
	))
}

// fail emits the failure event and returns err unchanged.
func (s *MergeService) fail(ctx context.Context, sourceID, targetID valueobjects.BranchID, err error) error {
	s.bus.Emit(ctx, events.NewMergeFailed(sourceID.String(), targetID.String(), err.Error(), time.Now()))
	s.logger.Warn("Merge failed",
		zap.String("source", sourceID.String()),
		zap.String("target", targetID.String()),
		zap.Error(err),
	)
	return err
}
