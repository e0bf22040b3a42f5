package services

import (
	"context"
	"fmt"
	"sync"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/events"
	pkgerrors "deepcae-backend/pkg/errors"
	"go.uber.org/zap"
)

// TagService owns the tag collection, arena-backed like the branch
// set. Tags are immutable once created.
type TagService struct {
	store  ports.VersionStore
	bus    ports.EventBus
	logger *zap.Logger

	mu    sync.RWMutex
	tags  []*entities.Tag
	index map[string]int
}

// NewTagService creates an empty tag collection.
func NewTagService(store ports.VersionStore, bus ports.EventBus, logger *zap.Logger) *TagService {
	return &TagService{
		store:  store,
		bus:    bus,
		logger: logger,
		index:  make(map[string]int),
	}
}

// CreateTag attaches an immutable tag to an existing version. The
// version must be known to its node or the call fails.
func (s *TagService) CreateTag(ctx context.Context, versionID valueobjects.VersionID, name string, tagType valueobjects.TagType, description, createdBy string) (*entities.Tag, error) {
	if versionID.IsZero() {
		return nil, pkgerrors.NewValidationError("tag version id is required")
	}

	record, err := s.store.GetNode(ctx, versionID.NodeID())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading node")
	}
	if record == nil || !record.HasVersion(versionID) {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("version %s", versionID))
	}

	tag, err := entities.NewTag(versionID, name, tagType, description, createdBy)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tags = append(s.tags, tag)
	s.index[tag.ID().String()] = len(s.tags) - 1
	s.mu.Unlock()

	s.bus.Emit(ctx, events.NewTagCreated(tag.ID(), versionID, tag.Name(), tagType, createdBy, tag.CreatedAt()))
	s.logger.Info("Tag created",
		zap.String("tagID", tag.ID().String()),
		zap.String("versionID", versionID.String()),
		zap.String("type", tagType.String()),
		zap.String("name", tag.Name()),
	)
	return tag, nil
}

// GetTag returns one tag by id.
func (s *TagService) GetTag(ctx context.Context, id valueobjects.TagID) (*entities.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("tag %s", id))
	}
	return s.tags[idx], nil
}

// GetTags returns every tag in creation order.
func (s *TagService) GetTags(ctx context.Context) []*entities.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Tag, len(s.tags))
	copy(out, s.tags)
	return out
}

// GetTagsForNode returns the tags whose version belongs to the node's
// history. Version ids are node-qualified, so intersecting with the
// node's version set reduces to a lineage match; an unknown node
// yields an empty result.
func (s *TagService) GetTagsForNode(ctx context.Context, nodeID valueobjects.NodeID) []*entities.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*entities.Tag{}
	for _, t := range s.tags {
		if t.NodeID().Equals(nodeID) {
			out = append(out, t)
		}
	}
	return out
}
