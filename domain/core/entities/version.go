package entities

import (
	"strings"
	"time"

	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"
)

// Version is one immutable entry in a node's history. Once written it
// never changes; corrections are new versions.
type Version struct {
	id          valueobjects.VersionID
	data        valueobjects.Document
	description string
	createdBy   string
	timestamp   time.Time
}

// NewVersion creates a version stamped with the current time.
func NewVersion(id valueobjects.VersionID, data valueobjects.Document, description, createdBy string) (*Version, error) {
	return ReconstructVersion(id, data, description, createdBy, time.Now())
}

// ReconstructVersion rebuilds a version with an explicit timestamp,
// as stores do when hydrating history or adjusting write times.
func ReconstructVersion(id valueobjects.VersionID, data valueobjects.Document, description, createdBy string, timestamp time.Time) (*Version, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("version id cannot be empty")
	}
	if data.IsZero() {
		return nil, pkgerrors.NewValidationError("version data cannot be empty")
	}
	if strings.TrimSpace(description) == "" {
		return nil, pkgerrors.NewValidationError("version description cannot be empty")
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, pkgerrors.NewValidationError("version author cannot be empty")
	}
	if timestamp.IsZero() {
		return nil, pkgerrors.NewValidationError("version timestamp cannot be zero")
	}

	return &Version{
		id:          id,
		data:        data,
		description: description,
		createdBy:   createdBy,
		timestamp:   timestamp,
	}, nil
}

// ID returns the version's unique identifier
func (v *Version) ID() valueobjects.VersionID {
	return v.id
}

// NodeID returns the node this version belongs to
func (v *Version) NodeID() valueobjects.NodeID {
	return v.id.NodeID()
}

// Data returns the version's payload
func (v *Version) Data() valueobjects.Document {
	return v.data
}

// Description returns the change description
func (v *Version) Description() string {
	return v.description
}

// CreatedBy returns the author of the change
func (v *Version) CreatedBy() string {
	return v.createdBy
}

// Timestamp returns when the version was written
func (v *Version) Timestamp() time.Time {
	return v.timestamp
}

// SizeBytes returns the canonical payload size
func (v *Version) SizeBytes() int {
	return v.data.SizeBytes()
}

// Checksum returns the payload checksum
func (v *Version) Checksum() string {
	return v.data.Checksum()
}
