package entities

import (
	"strings"
	"time"

	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"
)

// Tag is an immutable label on one version: a release, a milestone, a
// backup taken before a rollback, or an automatic checkpoint.
type Tag struct {
	id          valueobjects.TagID
	versionID   valueobjects.VersionID
	name        string
	tagType     valueobjects.TagType
	description string
	createdBy   string
	createdAt   time.Time
}

const maxTagNameLength = 128

// NewTag creates a tag on the given version.
func NewTag(versionID valueobjects.VersionID, name string, tagType valueobjects.TagType, description, createdBy string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if versionID.IsZero() {
		return nil, pkgerrors.NewValidationError("tag requires a version id")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("tag name cannot be empty")
	}
	if len(name) > maxTagNameLength {
		return nil, pkgerrors.NewValidationError("tag name is too long")
	}
	if !tagType.IsValid() {
		return nil, pkgerrors.NewValidationError("unknown tag type " + string(tagType))
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, pkgerrors.NewValidationError("tag author cannot be empty")
	}

	return &Tag{
		id:          valueobjects.NewTagID(),
		versionID:   versionID,
		name:        name,
		tagType:     tagType,
		description: description,
		createdBy:   createdBy,
		createdAt:   time.Now(),
	}, nil
}

// ReconstructTag rebuilds a tag from stored state.
func ReconstructTag(
	id valueobjects.TagID,
	versionID valueobjects.VersionID,
	name string,
	tagType valueobjects.TagType,
	description, createdBy string,
	createdAt time.Time,
) (*Tag, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("tag id cannot be empty")
	}
	if versionID.IsZero() {
		return nil, pkgerrors.NewValidationError("tag requires a version id")
	}

	return &Tag{
		id:          id,
		versionID:   versionID,
		name:        name,
		tagType:     tagType,
		description: description,
		createdBy:   createdBy,
		createdAt:   createdAt,
	}, nil
}

// ID returns the tag's identifier
func (t *Tag) ID() valueobjects.TagID {
	return t.id
}

// VersionID returns the tagged version
func (t *Tag) VersionID() valueobjects.VersionID {
	return t.versionID
}

// NodeID returns the node owning the tagged version
func (t *Tag) NodeID() valueobjects.NodeID {
	return t.versionID.NodeID()
}

// Name returns the tag name
func (t *Tag) Name() string {
	return t.name
}

// Type returns the tag type
func (t *Tag) Type() valueobjects.TagType {
	return t.tagType
}

// Description returns the tag description
func (t *Tag) Description() string {
	return t.description
}

// CreatedBy returns the author of the tag
func (t *Tag) CreatedBy() string {
	return t.createdBy
}

// CreatedAt returns when the tag was created
func (t *Tag) CreatedAt() time.Time {
	return t.createdAt
}
