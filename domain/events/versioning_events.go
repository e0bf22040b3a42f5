package events

import (
	"time"

	"deepcae-backend/domain/core/valueobjects"
)

// Branch events

// BranchCreated is raised when a new branch is created
type BranchCreated struct {
	BaseEvent
	BranchID      string `json:"branch_id"`
	NodeID        string `json:"node_id,omitempty"`
	BaseVersionID string `json:"base_version_id,omitempty"`
	CreatedBy     string `json:"created_by"`
}

// NewBranchCreated creates a BranchCreated event
func NewBranchCreated(branchID valueobjects.BranchID, baseVersionID valueobjects.VersionID, createdBy string, timestamp time.Time) BranchCreated {
	return BranchCreated{
		BaseEvent: BaseEvent{
			AggregateID: branchID.String(),
			EventType:   TypeBranchCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID:      branchID.String(),
		NodeID:        baseVersionID.NodeID().String(),
		BaseVersionID: baseVersionID.String(),
		CreatedBy:     createdBy,
	}
}

// BranchCreateFailed is raised when branch creation is rejected
type BranchCreateFailed struct {
	BaseEvent
	BranchID string `json:"branch_id"`
	Reason   string `json:"reason"`
}

// NewBranchCreateFailed creates a BranchCreateFailed event
func NewBranchCreateFailed(branchID string, reason string, timestamp time.Time) BranchCreateFailed {
	return BranchCreateFailed{
		BaseEvent: BaseEvent{
			AggregateID: branchID,
			EventType:   TypeBranchCreateFailed,
			Timestamp:   timestamp,
			Version:     1,
		},
		BranchID: branchID,
		Reason:   reason,
	}
}

// BranchSwitched is raised when the active branch changes
type BranchSwitched struct {
	BaseEvent
	FromBranchID string `json:"from_branch_id,omitempty"`
	ToBranchID   string `json:"to_branch_id"`
	NodeID       string `json:"node_id,omitempty"`
}

// NewBranchSwitched creates a BranchSwitched event
func NewBranchSwitched(fromBranchID, toBranchID valueobjects.BranchID, nodeID valueobjects.NodeID, timestamp time.Time) BranchSwitched {
	return BranchSwitched{
		BaseEvent: BaseEvent{
			AggregateID: toBranchID.String(),
			EventType:   TypeBranchSwitched,
			Timestamp:   timestamp,
			Version:     1,
		},
		FromBranchID: fromBranchID.String(),
		ToBranchID:   toBranchID.String(),
		NodeID:       nodeID.String(),
	}
}

// Tag events

// TagCreated is raised when a version is tagged
type TagCreated struct {
	BaseEvent
	TagID     string `json:"tag_id"`
	VersionID string `json:"version_id"`
	NodeID    string `json:"node_id"`
	Name      string `json:"name"`
	TagType   string `json:"tag_type"`
	CreatedBy string `json:"created_by"`
}

// NewTagCreated creates a TagCreated event
func NewTagCreated(tagID valueobjects.TagID, versionID valueobjects.VersionID, name string, tagType valueobjects.TagType, createdBy string, timestamp time.Time) TagCreated {
	return TagCreated{
		BaseEvent: BaseEvent{
			AggregateID: versionID.NodeID().String(),
			EventType:   TypeTagCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		TagID:     tagID.String(),
		VersionID: versionID.String(),
		NodeID:    versionID.NodeID().String(),
		Name:      name,
		TagType:   tagType.String(),
		CreatedBy: createdBy,
	}
}

// Snapshot events

// SnapshotCreated is raised when a snapshot version is written
type SnapshotCreated struct {
	BaseEvent
	NodeID      string `json:"node_id"`
	VersionID   string `json:"version_id"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	SizeBytes   int    `json:"size_bytes"`
}

// NewSnapshotCreated creates a SnapshotCreated event
func NewSnapshotCreated(versionID valueobjects.VersionID, description, createdBy string, sizeBytes int, timestamp time.Time) SnapshotCreated {
	return SnapshotCreated{
		BaseEvent: BaseEvent{
			AggregateID: versionID.NodeID().String(),
			EventType:   TypeSnapshotCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:      versionID.NodeID().String(),
		VersionID:   versionID.String(),
		Description: description,
		CreatedBy:   createdBy,
		SizeBytes:   sizeBytes,
	}
}

// Rollback events

// RollbackCompleted is raised after a node is restored to an earlier version
type RollbackCompleted struct {
	BaseEvent
	NodeID          string   `json:"node_id"`
	TargetVersionID string   `json:"target_version_id"`
	NewVersionID    string   `json:"new_version_id"`
	BackupVersionID string   `json:"backup_version_id,omitempty"`
	SelectivePaths  []string `json:"selective_paths,omitempty"`
}

// NewRollbackCompleted creates a RollbackCompleted event
func NewRollbackCompleted(targetVersionID, newVersionID, backupVersionID valueobjects.VersionID, selectivePaths []string, timestamp time.Time) RollbackCompleted {
	return RollbackCompleted{
		BaseEvent: BaseEvent{
			AggregateID: targetVersionID.NodeID().String(),
			EventType:   TypeRollbackCompleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:          targetVersionID.NodeID().String(),
		TargetVersionID: targetVersionID.String(),
		NewVersionID:    newVersionID.String(),
		BackupVersionID: backupVersionID.String(),
		SelectivePaths:  selectivePaths,
	}
}

// RollbackFailed is raised when a rollback is rejected or aborted
type RollbackFailed struct {
	BaseEvent
	NodeID          string `json:"node_id"`
	TargetVersionID string `json:"target_version_id,omitempty"`
	Reason          string `json:"reason"`
}

// NewRollbackFailed creates a RollbackFailed event
func NewRollbackFailed(nodeID valueobjects.NodeID, targetVersionID string, reason string, timestamp time.Time) RollbackFailed {
	return RollbackFailed{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   TypeRollbackFailed,
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:          nodeID.String(),
		TargetVersionID: targetVersionID,
		Reason:          reason,
	}
}

// Merge events

// MergeAnalysisCompleted is raised after conflict detection between two
// branches finishes
type MergeAnalysisCompleted struct {
	BaseEvent
	SourceBranchID           string `json:"source_branch_id"`
	TargetBranchID           string `json:"target_branch_id"`
	NodeID                   string `json:"node_id,omitempty"`
	ConflictCount            int    `json:"conflict_count"`
	AutoResolvedCount        int    `json:"auto_resolved_count"`
	RequiresManualResolution bool   `json:"requires_manual_resolution"`
}

// NewMergeAnalysisCompleted creates a MergeAnalysisCompleted event
func NewMergeAnalysisCompleted(sourceBranchID, targetBranchID valueobjects.BranchID, nodeID valueobjects.NodeID, conflictCount, autoResolvedCount int, requiresManual bool, timestamp time.Time) MergeAnalysisCompleted {
	return MergeAnalysisCompleted{
		BaseEvent: BaseEvent{
			AggregateID: targetBranchID.String(),
			EventType:   TypeMergeAnalysisCompleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		SourceBranchID:           sourceBranchID.String(),
		TargetBranchID:           targetBranchID.String(),
		NodeID:                   nodeID.String(),
		ConflictCount:            conflictCount,
		AutoResolvedCount:        autoResolvedCount,
		RequiresManualResolution: requiresManual,
	}
}

// MergeFailed is raised when a merge is rejected or aborted
type MergeFailed struct {
	BaseEvent
	SourceBranchID string `json:"source_branch_id"`
	TargetBranchID string `json:"target_branch_id"`
	Reason         string `json:"reason"`
}

// NewMergeFailed creates a MergeFailed event
func NewMergeFailed(sourceBranchID, targetBranchID string, reason string, timestamp time.Time) MergeFailed {
	return MergeFailed{
		BaseEvent: BaseEvent{
			AggregateID: targetBranchID,
			EventType:   TypeMergeFailed,
			Timestamp:   timestamp,
			Version:     1,
		},
		SourceBranchID: sourceBranchID,
		TargetBranchID: targetBranchID,
		Reason:         reason,
	}
}
