package events

// Event sources - These define where events originate from
const (
	// SourceBackend is the primary backend service source
	SourceBackend = "deepcae.backend"

	// SourceScheduler is the snapshot scheduler source
	SourceScheduler = "deepcae.scheduler"

	// SourceNotify is the WebSocket notify Lambda source
	SourceNotify = "deepcae.notify"
)

// Event types - These define the types of events in the system
const (
	// Branch events
	TypeBranchCreated      = "branch_created"
	TypeBranchCreateFailed = "branch_create_failed"
	TypeBranchSwitched     = "branch_switched"

	// Tag events
	TypeTagCreated = "tag_created"

	// Snapshot events
	TypeSnapshotCreated = "snapshot_created"

	// Rollback events
	TypeRollbackCompleted = "rollback_completed"
	TypeRollbackFailed    = "rollback_failed"

	// Merge events
	TypeMergeAnalysisCompleted = "merge_analysis_completed"
	TypeMergeFailed            = "merge_failed"
)

// Event detail keys - Common keys used in event details
const (
	DetailNodeID    = "nodeId"
	DetailVersionID = "versionId"
	DetailBranchID  = "branchId"
	DetailTagID     = "tagId"
	DetailReason    = "reason"
)

// AllTypes returns every event type the engine emits. Handlers that
// observe the whole stream register with this list.
func AllTypes() []string {
	return []string{
		TypeBranchCreated,
		TypeBranchCreateFailed,
		TypeBranchSwitched,
		TypeTagCreated,
		TypeSnapshotCreated,
		TypeRollbackCompleted,
		TypeRollbackFailed,
		TypeMergeAnalysisCompleted,
		TypeMergeFailed,
	}
}
