package versioning

import (
	"time"

	"deepcae-backend/domain/core/entities"
)

// SnapshotPolicy decides when the scheduler checkpoints a node
type SnapshotPolicy struct {
	// Interval is both the sweep period and the minimum age of the
	// current version before another automatic snapshot.
	Interval time.Duration `json:"interval"`
	// SizeThreshold is the payload size above which a node counts as
	// changed enough to checkpoint.
	SizeThreshold int `json:"size_threshold"`
}

// DefaultSnapshotPolicy returns the default snapshot policy
func DefaultSnapshotPolicy() SnapshotPolicy {
	return SnapshotPolicy{
		Interval:      5 * time.Minute,
		SizeThreshold: 1024,
	}
}

// ShouldSnapshot determines if a node is due for an automatic
// snapshot. A node without any version yet gets its first checkpoint
// unconditionally.
func (p SnapshotPolicy) ShouldSnapshot(current *entities.Version, now time.Time) bool {
	if current == nil {
		return true
	}

	elapsed := now.Sub(current.Timestamp())
	if elapsed <= p.Interval {
		return false
	}

	return current.SizeBytes() > p.SizeThreshold
}
