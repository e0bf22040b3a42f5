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

// MinRollbackCompatibility is the compatibility score below which a
// validated rollback is refused.
const MinRollbackCompatibility = 0.8

// RollbackOptions steers one rollback call.
type RollbackOptions struct {
	// TargetVersionID names the version to restore.
	TargetVersionID valueobjects.VersionID
	// PreserveCurrentAsSnapshot checkpoints the pre-rollback state
	// before the node's data changes.
	PreserveCurrentAsSnapshot bool
	// ApplySelectively restores only the named paths from the target;
	// everything else keeps its current value. Empty means wholesale.
	ApplySelectively []string
	// ValidateBeforeRollback refuses the rollback when the target is
	// too incompatible with the current state.
	ValidateBeforeRollback bool
	// CreateBackup tags the preserved snapshot as a backup, creating
	// the snapshot if PreserveCurrentAsSnapshot was not set.
	CreateBackup bool
}

// RollbackResult reports what a completed rollback produced.
type RollbackResult struct {
	// NewVersion is the version written by the rollback.
	NewVersion *entities.Version
	// BackupVersion is the preserved pre-rollback snapshot, nil when
	// none was requested.
	BackupVersion *entities.Version
	// Validation is the compatibility diff, nil when validation was
	// not requested.
	Validation *versioning.Diff
}

// RollbackService restores nodes to earlier versions, wholesale or per
// path. A rollback writes a new version; history is never rewritten.
type RollbackService struct {
	store     ports.VersionStore
	differ    *versioning.DiffEngine
	snapshots *SnapshotService
	tags      *TagService
	branches  *BranchService
	locker    ports.NodeLocker
	bus       ports.EventBus
	logger    *zap.Logger
}

// NewRollbackService creates a rollback service.
func NewRollbackService(
	store ports.VersionStore,
	differ *versioning.DiffEngine,
	snapshots *SnapshotService,
	tags *TagService,
	branches *BranchService,
	locker ports.NodeLocker,
	bus ports.EventBus,
	logger *zap.Logger,
) *RollbackService {
	return &RollbackService{
		store:     store,
		differ:    differ,
		snapshots: snapshots,
		tags:      tags,
		branches:  branches,
		locker:    locker,
		bus:       bus,
		logger:    logger,
	}
}

// Rollback restores nodeID to the target version named in opts.
// Validation and the restored document are computed before anything is
// written, so a failure leaves the node's data and version list as
// they were. A requested pre-rollback snapshot is written only once
// the rollback is guaranteed applicable, right before the commit.
func (s *RollbackService) Rollback(ctx context.Context, nodeID valueobjects.NodeID, author string, opts RollbackOptions) (*RollbackResult, error) {
	lock, err := s.locker.Acquire(ctx, nodeID, "rollback")
	if err != nil {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), err)
	}
	defer lock.Release()

	if opts.TargetVersionID.IsZero() {
		return nil, s.fail(ctx, nodeID, "", pkgerrors.NewValidationError("rollback target version is required"))
	}
	if !opts.TargetVersionID.NodeID().Equals(nodeID) {
		err := pkgerrors.NewValidationError(fmt.Sprintf("version %s does not belong to node %s", opts.TargetVersionID, nodeID))
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), err)
	}

	record, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), pkgerrors.Wrap(err, "loading node"))
	}
	if record == nil {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", nodeID)))
	}
	target, ok := record.Version(opts.TargetVersionID)
	if !ok {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", opts.TargetVersionID)))
	}
	current := record.Current()
	if current == nil {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), pkgerrors.NewValidationError(fmt.Sprintf("node %s has no versions to roll back", nodeID)))
	}

	result := &RollbackResult{}

	if opts.ValidateBeforeRollback {
		d := s.differ.Compare(current.Data(), target.Data())
		result.Validation = d
		if d.Statistics.CompatibilityScore < MinRollbackCompatibility {
			err := pkgerrors.NewValidationError("version compatibility too low").
				WithDetails(map[string]interface{}{
					"compatibility_score": d.Statistics.CompatibilityScore,
					"threshold":           MinRollbackCompatibility,
					"significant_changes": d.Statistics.SignificantChanges,
				})
			return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), err)
		}
	}

	applied, err := s.applyTarget(current.Data(), target.Data(), opts.ApplySelectively)
	if err != nil {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), err)
	}

	if opts.PreserveCurrentAsSnapshot || opts.CreateBackup {
		preserved, err := s.snapshots.createSnapshotLocked(ctx, nodeID, "pre-rollback snapshot", author)
		if err != nil {
			return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), err)
		}
		result.BackupVersion = preserved
		if opts.CreateBackup {
			desc := fmt.Sprintf("state before rollback to %s", target.ID())
			if _, err := s.tags.CreateTag(ctx, preserved.ID(), "rollback backup", valueobjects.TagTypeBackup, desc, author); err != nil {
				return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), err)
			}
		}
	}

	if err := checkDeadline(ctx, "rollback"); err != nil {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), err)
	}

	v, err := s.store.UpdateNodeData(ctx, nodeID, applied, "rollback to "+target.Description(), author)
	if err != nil {
		return nil, s.fail(ctx, nodeID, opts.TargetVersionID.String(), pkgerrors.Wrap(err, "writing rollback version"))
	}
	result.NewVersion = v

	if s.branches != nil {
		if err := s.branches.recordWrite(v); err != nil {
			s.logger.Warn("Branch head not advanced after rollback",
				zap.String("nodeID", nodeID.String()),
				zap.Error(err),
			)
		}
	}

	var backupID valueobjects.VersionID
	if result.BackupVersion != nil {
		backupID = result.BackupVersion.ID()
	}
	s.bus.Emit(ctx, events.NewRollbackCompleted(target.ID(), v.ID(), backupID, opts.ApplySelectively, v.Timestamp()))
	s.logger.Info("Rollback completed",
		zap.String("nodeID", nodeID.String()),
		zap.String("targetVersionID", target.ID().String()),
		zap.String("newVersionID", v.ID().String()),
		zap.Int("selectivePaths", len(opts.ApplySelectively)),
	)
	return result, nil
}

// applyTarget computes the restored document. With no selective paths
// the target data replaces the current data wholesale; otherwise only
// the named paths are copied from the target onto the current data,
// and a named path absent from the target is removed.
func (s *RollbackService) applyTarget(current, target valueobjects.Document, paths []string) (valueobjects.Document, error) {
	if len(paths) == 0 {
		return target, nil
	}

	applied := current
	for _, path := range paths {
		value, ok := target.ValueAt(path)
		if ok {
			next, err := applied.WithValueAt(path, value)
			if err != nil {
				return valueobjects.Document{}, pkgerrors.Wrap(err, fmt.Sprintf("restoring path %q", path))
			}
			applied = next
			continue
		}
		if _, exists := applied.ValueAt(path); !exists {
			continue
		}
		next, err := applied.WithoutValueAt(path)
		if err != nil {
			return valueobjects.Document{}, pkgerrors.Wrap(err, fmt.Sprintf("removing path %q", path))
		}
		applied = next
	}
	return applied, nil
}

// fail emits the failure event and returns err unchanged.
func (s *RollbackService) fail(ctx context.Context, nodeID valueobjects.NodeID, targetID string, err error) error {
	s.bus.Emit(ctx, events.NewRollbackFailed(nodeID, targetID, err.Error(), time.Now()))
	s.logger.Warn("Rollback failed",
		zap.String("nodeID", nodeID.String()),
		zap.String("targetVersionID", targetID),
		zap.Error(err),
	)
	return err
}

// checkDeadline maps an expired caller deadline to the timeout error
// type before any state is committed.
func checkDeadline(ctx context.Context, operation string) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return pkgerrors.NewTimeoutError(operation)
	case context.Canceled:
		return pkgerrors.Wrap(ctx.Err(), operation+" aborted")
	}
	return nil
}
