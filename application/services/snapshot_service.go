package services

import (
	"context"
	"fmt"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/events"
	pkgerrors "deepcae-backend/pkg/errors"
	"go.uber.org/zap"
)

// SnapshotService checkpoints node state as explicit versions with
// checkpoint tags attached.
type SnapshotService struct {
	store    ports.VersionStore
	tags     *TagService
	branches *BranchService
	locker   ports.NodeLocker
	bus      ports.EventBus
	logger   *zap.Logger
}

// NewSnapshotService creates a snapshot service.
func NewSnapshotService(
	store ports.VersionStore,
	tags *TagService,
	branches *BranchService,
	locker ports.NodeLocker,
	bus ports.EventBus,
	logger *zap.Logger,
) *SnapshotService {
	return &SnapshotService{
		store:    store,
		tags:     tags,
		branches: branches,
		locker:   locker,
		bus:      bus,
		logger:   logger,
	}
}

// CreateSnapshot writes a deep copy of the node's current data as a
// new version and tags it as a checkpoint. A new version is created
// even when the data is unchanged; the point is the checkpoint.
func (s *SnapshotService) CreateSnapshot(ctx context.Context, nodeID valueobjects.NodeID, description, author string) (*entities.Version, error) {
	lock, err := s.locker.Acquire(ctx, nodeID, "snapshot")
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	return s.createSnapshotLocked(ctx, nodeID, description, author)
}

// createSnapshotLocked is the snapshot core without lock handling; the
// caller must hold the node's lock.
func (s *SnapshotService) createSnapshotLocked(ctx context.Context, nodeID valueobjects.NodeID, description, author string) (*entities.Version, error) {
	record, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading node")
	}
	if record == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", nodeID))
	}

	v, err := s.store.UpdateNodeData(ctx, nodeID, record.CurrentData(), description, author)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "writing snapshot")
	}

	if _, err := s.tags.CreateTag(ctx, v.ID(), description, valueobjects.TagTypeCheckpoint, fmt.Sprintf("checkpoint at %s", v.ID()), author); err != nil {
		s.logger.Error("Snapshot checkpoint tag failed",
			zap.String("versionID", v.ID().String()),
			zap.Error(err),
		)
		return nil, err
	}

	if s.branches != nil {
		if err := s.branches.recordWrite(v); err != nil {
			s.logger.Warn("Branch head not advanced after snapshot",
				zap.String("nodeID", nodeID.String()),
				zap.Error(err),
			)
		}
	}

	s.bus.Emit(ctx, events.NewSnapshotCreated(v.ID(), description, author, v.SizeBytes(), v.Timestamp()))
	s.logger.Info("Snapshot created",
		zap.String("nodeID", nodeID.String()),
		zap.String("versionID", v.ID().String()),
		zap.Int("sizeBytes", v.SizeBytes()),
	)
	return v, nil
}
