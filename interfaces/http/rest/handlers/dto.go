package handlers

import (
	"time"

	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/versioning"
)

// VersionSummary is version metadata without the payload. History
// listings use it so clients don't pull every document at once.
type VersionSummary struct {
	ID          string    `json:"id"`
	NodeID      string    `json:"node_id"`
	Sequence    int       `json:"sequence"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	Timestamp   time.Time `json:"timestamp"`
	SizeBytes   int       `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
}

// VersionDetail is a version with its document payload.
type VersionDetail struct {
	VersionSummary
	Data map[string]interface{} `json:"data"`
}

func toVersionSummary(v *entities.Version) VersionSummary {
	return VersionSummary{
		ID:          v.ID().String(),
		NodeID:      v.NodeID().String(),
		Sequence:    v.ID().Sequence(),
		Description: v.Description(),
		CreatedBy:   v.CreatedBy(),
		Timestamp:   v.Timestamp(),
		SizeBytes:   v.SizeBytes(),
		Checksum:    v.Checksum(),
	}
}

func toVersionDetail(v *entities.Version) VersionDetail {
	return VersionDetail{
		VersionSummary: toVersionSummary(v),
		Data:           v.Data().Raw(),
	}
}

func toVersionSummaries(versions []*entities.Version) []VersionSummary {
	out := make([]VersionSummary, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionSummary(v))
	}
	return out
}

// NodeSummary describes a tracked node without its payload.
type NodeSummary struct {
	ID             string          `json:"id"`
	VersionCount   int             `json:"version_count"`
	CurrentVersion *VersionSummary `json:"current_version,omitempty"`
}

// NodeDetail includes the current document.
type NodeDetail struct {
	ID             string         `json:"id"`
	VersionCount   int            `json:"version_count"`
	CurrentVersion *VersionDetail `json:"current_version,omitempty"`
}

func toNodeSummary(record *entities.NodeRecord) NodeSummary {
	out := NodeSummary{
		ID:           record.ID().String(),
		VersionCount: record.VersionCount(),
	}
	if current := record.Current(); current != nil {
		summary := toVersionSummary(current)
		out.CurrentVersion = &summary
	}
	return out
}

func toNodeSummaries(records []*entities.NodeRecord) []NodeSummary {
	out := make([]NodeSummary, 0, len(records))
	for _, record := range records {
		out = append(out, toNodeSummary(record))
	}
	return out
}

func toNodeDetail(record *entities.NodeRecord) NodeDetail {
	out := NodeDetail{
		ID:           record.ID().String(),
		VersionCount: record.VersionCount(),
	}
	if current := record.Current(); current != nil {
		detail := toVersionDetail(current)
		out.CurrentVersion = &detail
	}
	return out
}

// BranchDTO is the wire shape of a branch.
type BranchDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	NodeID        string    `json:"node_id,omitempty"`
	BaseVersionID string    `json:"base_version_id,omitempty"`
	HeadVersionID string    `json:"head_version_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	IsActive      bool      `json:"is_active"`
	IsRoot        bool      `json:"is_root"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func toBranchDTO(b *entities.Branch) BranchDTO {
	out := BranchDTO{
		ID:          b.ID().String(),
		Name:        b.Name(),
		Description: b.Description(),
		IsActive:    b.IsActive(),
		IsRoot:      b.IsRoot(),
		CreatedBy:   b.CreatedBy(),
		CreatedAt:   b.CreatedAt(),
	}
	if !b.NodeID().IsZero() {
		out.NodeID = b.NodeID().String()
	}
	if !b.BaseVersionID().IsZero() {
		out.BaseVersionID = b.BaseVersionID().String()
	}
	if b.HasHead() {
		out.HeadVersionID = b.HeadVersionID().String()
	}
	return out
}

func toBranchDTOs(branches []*entities.Branch) []BranchDTO {
	out := make([]BranchDTO, 0, len(branches))
	for _, b := range branches {
		out = append(out, toBranchDTO(b))
	}
	return out
}

// TagDTO is the wire shape of a tag.
type TagDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	VersionID   string    `json:"version_id"`
	NodeID      string    `json:"node_id"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTagDTO(t *entities.Tag) TagDTO {
	return TagDTO{
		ID:          t.ID().String(),
		Name:        t.Name(),
		Type:        t.Type().String(),
		VersionID:   t.VersionID().String(),
		NodeID:      t.NodeID().String(),
		Description: t.Description(),
		CreatedBy:   t.CreatedBy(),
		CreatedAt:   t.CreatedAt(),
	}
}

func toTagDTOs(tags []*entities.Tag) []TagDTO {
	out := make([]TagDTO, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagDTO(t))
	}
	return out
}

// DiffResponse pairs a diff with the versions it compares.
type DiffResponse struct {
	From string           `json:"from"`
	To   string           `json:"to"`
	Diff *versioning.Diff `json:"diff"`
}

// RollbackResponse reports the outcome of a rollback.
type RollbackResponse struct {
	NewVersion    VersionSummary   `json:"new_version"`
	BackupVersion *VersionSummary  `json:"backup_version,omitempty"`
	Validation    *versioning.Diff `json:"validation,omitempty"`
}

// MergeResponse reports a merge analysis or execution.
type MergeResponse struct {
	Conflicts                []versioning.MergeConflict `json:"conflicts"`
	AutoResolved             int                        `json:"auto_resolved"`
	RequiresManualResolution bool                       `json:"requires_manual_resolution"`
	MergedVersion            *VersionSummary            `json:"merged_version,omitempty"`
}
