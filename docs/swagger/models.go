package docs

import "time"

// UpdateNodeDataRequest represents the request payload for a working
// data update
// @Description Request body writing a new version of a node's working data
type UpdateNodeDataRequest struct {
	// Complete working data snapshot (required)
	Data map[string]interface{} `json:"data" binding:"required"`

	// Description of the change (optional, max 500 characters)
	// @example "raised strut preload after monitoring review"
	Description string `json:"description,omitempty" example:"raised strut preload after monitoring review"`
}

// VersionSummary represents one version without its data payload
// @Description Version metadata: identity, provenance and payload size
type VersionSummary struct {
	// Version identifier
	// @example "pit-12:v3"
	ID string `json:"id" example:"pit-12:v3"`

	// Node the version belongs to
	// @example "pit-12"
	NodeID string `json:"node_id" example:"pit-12"`

	// Per-node monotonic sequence number
	// @example 3
	Sequence int `json:"sequence" example:"3"`

	// Description recorded with the write
	// @example "stage 2 excavation"
	Description string `json:"description" example:"stage 2 excavation"`

	// Author of the write
	// @example "lead-engineer"
	CreatedBy string `json:"created_by" example:"lead-engineer"`

	// Creation timestamp
	// @example "2025-03-10T08:30:00Z"
	Timestamp time.Time `json:"timestamp" example:"2025-03-10T08:30:00Z"`

	// Serialized payload size
	// @example 2048
	SizeBytes int `json:"size_bytes" example:"2048"`

	// Payload checksum
	// @example "9f86d081884c7d65"
	Checksum string `json:"checksum" example:"9f86d081884c7d65"`
}

// VersionDetail represents one version with its data payload
type VersionDetail struct {
	VersionSummary

	// Complete working data snapshot
	Data map[string]interface{} `json:"data"`
}

// NodeSummary represents a node in listings
type NodeSummary struct {
	// Node identifier
	// @example "pit-12"
	ID string `json:"id" example:"pit-12"`

	// Number of versions in the chain
	// @example 14
	VersionCount int `json:"version_count" example:"14"`

	// Current version metadata, absent for an empty node
	CurrentVersion *VersionSummary `json:"current_version,omitempty"`
}

// NodeDetail represents a node with its current working data
type NodeDetail struct {
	// Node identifier
	// @example "pit-12"
	ID string `json:"id" example:"pit-12"`

	// Number of versions in the chain
	// @example 14
	VersionCount int `json:"version_count" example:"14"`

	// Current version including data, absent for an empty node
	CurrentVersion *VersionDetail `json:"current_version,omitempty"`
}

// CreateSnapshotRequest represents the request payload for a manual
// snapshot
type CreateSnapshotRequest struct {
	// Snapshot label, also used as the checkpoint tag name (optional)
	// @example "pre-dewatering state"
	Description string `json:"description,omitempty" example:"pre-dewatering state"`
}

// RollbackRequest represents the request payload for a rollback
// @Description Request body restoring a node to an earlier version
type RollbackRequest struct {
	// Version to restore, bare sequence or full id (required)
	// @example "pit-12:v3"
	TargetVersionID string `json:"target_version_id" binding:"required" example:"pit-12:v3"`

	// Checkpoint the pre-rollback state first
	PreserveCurrentAsSnapshot bool `json:"preserve_current_as_snapshot,omitempty"`

	// Restore only these dot paths, everything else keeps its value
	// @example ["struts", "wall.toe_level"]
	ApplySelectively []string `json:"apply_selectively,omitempty"`

	// Refuse the rollback when target and current are too incompatible
	ValidateBeforeRollback bool `json:"validate_before_rollback,omitempty"`

	// Tag the preserved snapshot as a backup
	CreateBackup bool `json:"create_backup,omitempty"`
}

// RollbackResponse represents the outcome of a rollback
type RollbackResponse struct {
	// Version written by the rollback
	NewVersion VersionSummary `json:"new_version"`

	// Preserved pre-rollback snapshot, when requested
	BackupVersion *VersionSummary `json:"backup_version,omitempty"`

	// Compatibility diff, when validation was requested
	Validation *Diff `json:"validation,omitempty"`
}

// FieldChange represents one modified path in a diff
type FieldChange struct {
	// Dot path of the change
	// @example "wall.toe_level"
	Path string `json:"path" example:"wall.toe_level"`

	// Value on the from side
	OldValue interface{} `json:"old_value,omitempty"`

	// Value on the to side
	NewValue interface{} `json:"new_value,omitempty"`

	// Kind of change
	// @example "modified"
	ChangeType string `json:"change_type" example:"modified"`
}

// DiffStatistics summarizes a comparison
type DiffStatistics struct {
	// All changed paths
	// @example 7
	TotalChanges int `json:"total_changes" example:"7"`

	// Changes above the significance threshold
	// @example 5
	SignificantChanges int `json:"significant_changes" example:"5"`

	// Paths visited by the comparison
	// @example 120
	TotalFieldsCompared int `json:"total_fields_compared" example:"120"`

	// Share of compared fields left untouched
	// @example 0.94
	CompatibilityScore float64 `json:"compatibility_score" example:"0.94"`
}

// Diff represents the structural comparison of two versions
// @Description Added, removed and modified paths between two snapshots
type Diff struct {
	// Paths present only on the to side
	// @example ["struts.1"]
	Added []string `json:"added" example:"struts.1"`

	// Paths present only on the from side
	Removed []string `json:"removed"`

	// Paths changed between the sides
	Modified []FieldChange `json:"modified"`

	// Summary statistics
	Statistics DiffStatistics `json:"statistics"`
}

// DiffResponse represents a version comparison
type DiffResponse struct {
	// Resolved from version id
	// @example "pit-12:v1"
	From string `json:"from" example:"pit-12:v1"`

	// Resolved to version id
	// @example "pit-12:v3"
	To string `json:"to" example:"pit-12:v3"`

	// Structural comparison
	Diff Diff `json:"diff"`
}

// CreateBranchRequest represents the request payload for a new branch
type CreateBranchRequest struct {
	// Branch identifier (required, max 64 characters)
	// @example "steel-struts"
	BranchID string `json:"branch_id" binding:"required" example:"steel-struts"`

	// Branch description (optional)
	// @example "steel strut variant for stage 3"
	Description string `json:"description,omitempty" example:"steel strut variant for stage 3"`

	// Version the branch diverges from (required)
	// @example "pit-12:v3"
	BaseVersionID string `json:"base_version_id" binding:"required" example:"pit-12:v3"`
}

// AdvanceHeadRequest represents the request payload advancing a branch
// head
type AdvanceHeadRequest struct {
	// Version to move the head to (required)
	// @example "pit-12:v4"
	VersionID string `json:"version_id" binding:"required" example:"pit-12:v4"`
}

// BranchResponse represents a branch
// @Description Branch identity, lineage and activation state
type BranchResponse struct {
	// Branch identifier
	// @example "steel-struts"
	ID string `json:"id" example:"steel-struts"`

	// Branch name
	// @example "steel-struts"
	Name string `json:"name" example:"steel-struts"`

	// Node the branch tracks
	// @example "pit-12"
	NodeID string `json:"node_id,omitempty" example:"pit-12"`

	// Version the branch diverged from, absent for a root branch
	// @example "pit-12:v3"
	BaseVersionID string `json:"base_version_id,omitempty" example:"pit-12:v3"`

	// Latest version on the branch line
	// @example "pit-12:v5"
	HeadVersionID string `json:"head_version_id,omitempty" example:"pit-12:v5"`

	// Branch description
	Description string `json:"description,omitempty"`

	// Whether writes currently land on this branch
	IsActive bool `json:"is_active"`

	// Whether the branch has no base version
	IsRoot bool `json:"is_root"`

	// Branch author
	// @example "strut-engineer"
	CreatedBy string `json:"created_by" example:"strut-engineer"`

	// Creation timestamp
	// @example "2025-03-10T09:00:00Z"
	CreatedAt time.Time `json:"created_at" example:"2025-03-10T09:00:00Z"`
}

// CreateTagRequest represents the request payload for a new tag
type CreateTagRequest struct {
	// Version to tag (required)
	// @example "pit-12:v3"
	VersionID string `json:"version_id" binding:"required" example:"pit-12:v3"`

	// Tag name (required, max 100 characters)
	// @example "design-freeze"
	Name string `json:"name" binding:"required" example:"design-freeze"`

	// Tag type (release, milestone, backup, checkpoint)
	// @example "milestone"
	Type string `json:"type" binding:"required" example:"milestone" enums:"release,milestone,backup,checkpoint"`

	// Tag description (optional)
	Description string `json:"description,omitempty"`
}

// TagResponse represents a tag
type TagResponse struct {
	// Tag identifier
	// @example "3f1c9a52-9f6b-4d0e-8a4e-2f7b6d9c1a30"
	ID string `json:"id" example:"3f1c9a52-9f6b-4d0e-8a4e-2f7b6d9c1a30"`

	// Tag name
	// @example "design-freeze"
	Name string `json:"name" example:"design-freeze"`

	// Tag type
	// @example "milestone"
	Type string `json:"type" example:"milestone"`

	// Tagged version
	// @example "pit-12:v3"
	VersionID string `json:"version_id" example:"pit-12:v3"`

	// Node of the tagged version
	// @example "pit-12"
	NodeID string `json:"node_id" example:"pit-12"`

	// Tag description
	Description string `json:"description,omitempty"`

	// Tag author
	// @example "lead-engineer"
	CreatedBy string `json:"created_by" example:"lead-engineer"`

	// Creation timestamp
	// @example "2025-03-10T09:30:00Z"
	CreatedAt time.Time `json:"created_at" example:"2025-03-10T09:30:00Z"`
}

// MergeRequest represents the request payload for merge analysis and
// execution
type MergeRequest struct {
	// Branch contributing changes (required)
	// @example "steel-struts"
	SourceBranchID string `json:"source_branch_id" binding:"required" example:"steel-struts"`

	// Branch receiving the merge (required)
	// @example "main"
	TargetBranchID string `json:"target_branch_id" binding:"required" example:"main"`
}

// MergeConflict represents one path changed on both branches
type MergeConflict struct {
	// Conflicted dot path
	// @example "struts.0.preload"
	Path string `json:"path" example:"struts.0.preload"`

	// Value on the target branch
	CurrentValue interface{} `json:"current_value,omitempty"`

	// Value on the source branch
	IncomingValue interface{} `json:"incoming_value,omitempty"`

	// Value at the common base
	BaseValue interface{} `json:"base_value,omitempty"`

	// How the conflict was settled, empty while open
	// @example "incoming"
	Resolution string `json:"resolution,omitempty" example:"incoming"`
}

// MergeResponse represents the outcome of a merge analysis or merge
type MergeResponse struct {
	// Every detected conflict, resolved or not
	Conflicts []MergeConflict `json:"conflicts"`

	// Conflicts settled automatically
	// @example 1
	AutoResolved int `json:"auto_resolved" example:"1"`

	// Whether unresolved conflicts block the merge
	RequiresManualResolution bool `json:"requires_manual_resolution"`

	// Version written by the merge, absent for analysis or a blocked
	// merge
	MergedVersion *VersionSummary `json:"merged_version,omitempty"`
}

// APIError represents the error half of the response envelope
type APIError struct {
	// Machine readable error code
	// @example "VALIDATION"
	Code string `json:"code" example:"VALIDATION"`

	// Human readable message
	// @example "data is required"
	Message string `json:"message" example:"data is required"`

	// Structured error context
	Details map[string]interface{} `json:"details,omitempty"`
}

// APIResponse represents the uniform response envelope
// @Description Every endpoint wraps its payload in this envelope
type APIResponse struct {
	// Whether the request succeeded
	Success bool `json:"success"`

	// Response payload, shape depends on the endpoint
	Data interface{} `json:"data,omitempty"`

	// Error details on failure
	Error *APIError `json:"error,omitempty"`

	// Response metadata
	Meta *MetaInfo `json:"meta,omitempty"`
}

// HealthResponse represents the liveness probe payload
type HealthResponse struct {
	// Service status
	// @example "healthy"
	Status string `json:"status" example:"healthy"`
}
