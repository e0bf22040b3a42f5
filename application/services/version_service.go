package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/versioning"
	pkgerrors "deepcae-backend/pkg/errors"
	"go.uber.org/zap"
)

// defaultDiffCacheTTL bounds how long a computed comparison stays
// cached. Versions are immutable, so cached diffs never go stale; the
// TTL only bounds memory.
const defaultDiffCacheTTL = 10 * time.Minute

// VersionService reads node histories, compares versions, and performs
// working-data writes. Reads never take the node lock.
type VersionService struct {
	store        ports.VersionStore
	differ       *versioning.DiffEngine
	locker       ports.NodeLocker
	branches     *BranchService
	cache        ports.Cache
	diffCacheTTL atomic.Int64
	logger       *zap.Logger
}

// NewVersionService creates a version service. The cache is optional;
// passing nil disables diff result reuse.
func NewVersionService(
	store ports.VersionStore,
	differ *versioning.DiffEngine,
	locker ports.NodeLocker,
	branches *BranchService,
	cache ports.Cache,
	logger *zap.Logger,
) *VersionService {
	s := &VersionService{
		store:    store,
		differ:   differ,
		locker:   locker,
		branches: branches,
		cache:    cache,
		logger:   logger,
	}
	s.diffCacheTTL.Store(int64(defaultDiffCacheTTL))
	return s
}

// SetDiffCacheTTL overrides how long cached comparisons are kept.
// Non-positive values restore the default.
func (s *VersionService) SetDiffCacheTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultDiffCacheTTL
	}
	s.diffCacheTTL.Store(int64(ttl))
}

// ListNodes returns every node record known to the store.
func (s *VersionService) ListNodes(ctx context.Context) ([]*entities.NodeRecord, error) {
	nodes, err := s.store.GetAllNodes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing nodes")
	}
	return nodes, nil
}

// GetNode loads one node record with its full history.
func (s *VersionService) GetNode(ctx context.Context, nodeID valueobjects.NodeID) (*entities.NodeRecord, error) {
	record, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading node")
	}
	if record == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("node %s", nodeID))
	}
	return record, nil
}

// GetVersionHistory returns a node's versions newest first, strictly
// descending by timestamp.
func (s *VersionService) GetVersionHistory(ctx context.Context, nodeID valueobjects.NodeID) ([]*entities.Version, error) {
	record, err := s.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return record.History(), nil
}

// GetVersion resolves one version by its qualified id.
func (s *VersionService) GetVersion(ctx context.Context, versionID valueobjects.VersionID) (*entities.Version, error) {
	if versionID.IsZero() {
		return nil, pkgerrors.NewValidationError("version id is required")
	}
	record, err := s.GetNode(ctx, versionID.NodeID())
	if err != nil {
		return nil, err
	}
	v, ok := record.Version(versionID)
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", versionID))
	}
	return v, nil
}

// CompareVersions diffs two stored versions. Results are cached when a
// cache is configured; a cache failure falls back to recomputing.
func (s *VersionService) CompareVersions(ctx context.Context, fromID, toID valueobjects.VersionID) (*versioning.Diff, error) {
	if d, ok := s.cachedDiff(ctx, fromID, toID); ok {
		return d, nil
	}

	from, err := s.GetVersion(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.GetVersion(ctx, toID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	d := s.differ.Compare(from.Data(), to.Data())
	s.logger.Debug("Compared versions",
		zap.String("from", fromID.String()),
		zap.String("to", toID.String()),
		zap.Int("changes", d.Statistics.TotalChanges),
		zap.Duration("took", time.Since(started)),
	)

	s.storeDiff(ctx, fromID, toID, d)
	return d, nil
}

// UpdateNodeData appends a new working version for the node and moves
// the active branch head along. Writes take the node lock and fail
// fast when another mutating operation holds it.
func (s *VersionService) UpdateNodeData(ctx context.Context, nodeID valueobjects.NodeID, data map[string]interface{}, description, author string) (*entities.Version, error) {
	doc, err := valueobjects.NewDocument(data)
	if err != nil {
		return nil, err
	}

	lock, err := s.locker.Acquire(ctx, nodeID, "update")
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	v, err := s.store.UpdateNodeData(ctx, nodeID, doc, description, author)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "writing node data")
	}

	if s.branches != nil {
		if err := s.branches.recordWrite(v); err != nil {
			s.logger.Warn("Branch head not advanced after write",
				zap.String("nodeID", nodeID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Node data updated",
		zap.String("nodeID", nodeID.String()),
		zap.String("versionID", v.ID().String()),
		zap.Int("sizeBytes", v.SizeBytes()),
	)
	return v, nil
}

func diffCacheKey(fromID, toID valueobjects.VersionID) string {
	return "diff:" + fromID.String() + ":" + toID.String()
}

func (s *VersionService) cachedDiff(ctx context.Context, fromID, toID valueobjects.VersionID) (*versioning.Diff, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, diffCacheKey(fromID, toID))
	if err != nil || !ok {
		return nil, false
	}
	var d versioning.Diff
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}
	return &d, true
}

func (s *VersionService) storeDiff(ctx context.Context, fromID, toID valueobjects.VersionID, d *versioning.Diff) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, diffCacheKey(fromID, toID), raw, time.Duration(s.diffCacheTTL.Load())); err != nil {
		s.logger.Debug("Diff cache write failed", zap.Error(err))
	}
}
