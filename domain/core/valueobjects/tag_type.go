package valueobjects

import (
	"fmt"

	pkgerrors "deepcae-backend/pkg/errors"
)

// TagType categorizes a tag on a version.
type TagType string

const (
	// TagTypeRelease marks a version delivered to a customer or
	// submitted for review.
	TagTypeRelease TagType = "release"
	// TagTypeMilestone marks a notable design stage.
	TagTypeMilestone TagType = "milestone"
	// TagTypeBackup marks a safety copy, such as the state preserved
	// before a rollback.
	TagTypeBackup TagType = "backup"
	// TagTypeCheckpoint marks an automatic snapshot.
	TagTypeCheckpoint TagType = "checkpoint"
)

// ParseTagType validates a caller-supplied tag type string.
func ParseTagType(s string) (TagType, error) {
	switch TagType(s) {
	case TagTypeRelease, TagTypeMilestone, TagTypeBackup, TagTypeCheckpoint:
		return TagType(s), nil
	default:
		return "", pkgerrors.NewValidationError(fmt.Sprintf("unknown tag type %q", s))
	}
}

// String returns the string representation of the TagType
func (t TagType) String() string {
	return string(t)
}

// IsValid reports whether the value is one of the known tag types.
func (t TagType) IsValid() bool {
	_, err := ParseTagType(string(t))
	return err == nil
}
