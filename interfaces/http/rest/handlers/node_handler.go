// Package handlers holds the REST request handlers. Each handler
// decodes the request, delegates to an application service and maps
// the result onto the response envelope.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"deepcae-backend/application/services"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/pkg/common"
	pkgerrors "deepcae-backend/pkg/errors"
)

const (
	defaultUpdateDescription   = "working data update"
	defaultSnapshotDescription = "manual snapshot"
)

// NodeHandler serves the node, version, diff, snapshot and rollback
// endpoints.
type NodeHandler struct {
	versions        *services.VersionService
	snapshots       *services.SnapshotService
	rollbacks       *services.RollbackService
	maxPayloadBytes int64
	observeDiff     func(time.Duration)
	logger          *zap.Logger
}

// NewNodeHandler creates a new node handler. observeDiff may be nil
// when metrics are disabled.
func NewNodeHandler(
	versions *services.VersionService,
	snapshots *services.SnapshotService,
	rollbacks *services.RollbackService,
	maxPayloadBytes int64,
	observeDiff func(time.Duration),
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		versions:        versions,
		snapshots:       snapshots,
		rollbacks:       rollbacks,
		maxPayloadBytes: maxPayloadBytes,
		observeDiff:     observeDiff,
		logger:          logger,
	}
}

// UpdateNodeDataRequest is the request body for updating working data.
type UpdateNodeDataRequest struct {
	Data        map[string]interface{} `json:"data" validate:"required"`
	Description string                 `json:"description,omitempty" validate:"omitempty,max=500"`
}

// CreateSnapshotRequest is the request body for creating a snapshot.
// The body may be omitted entirely.
type CreateSnapshotRequest struct {
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// RollbackRequest is the request body for rolling a node back.
type RollbackRequest struct {
	TargetVersionID           string   `json:"target_version_id" validate:"required"`
	PreserveCurrentAsSnapshot bool     `json:"preserve_current_as_snapshot,omitempty"`
	ApplySelectively          []string `json:"apply_selectively,omitempty"`
	ValidateBeforeRollback    bool     `json:"validate_before_rollback,omitempty"`
	CreateBackup              bool     `json:"create_backup,omitempty"`
}

// ListNodes handles GET /nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	records, err := h.versions.ListNodes(r.Context())
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toNodeSummaries(records))
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := nodeIDParam(r)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	record, err := h.versions.GetNode(r.Context(), nodeID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toNodeDetail(record))
}

// UpdateNodeData handles PUT /nodes/{nodeID}/data
func (h *NodeHandler) UpdateNodeData(w http.ResponseWriter, r *http.Request) {
	nodeID, err := nodeIDParam(r)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	var req UpdateNodeDataRequest
	if err := decodeBody(w, r, &req, h.maxPayloadBytes, false); err != nil {
		common.RespondError(w, r, err)
		return
	}
	if req.Description == "" {
		req.Description = defaultUpdateDescription
	}

	version, err := h.versions.UpdateNodeData(r.Context(), nodeID, req.Data, req.Description, common.AuthorFromContext(r.Context()))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toVersionSummary(version))
}

// GetVersionHistory handles GET /nodes/{nodeID}/versions
func (h *NodeHandler) GetVersionHistory(w http.ResponseWriter, r *http.Request) {
	nodeID, err := nodeIDParam(r)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	history, err := h.versions.GetVersionHistory(r.Context(), nodeID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toVersionSummaries(history))
}

// GetVersion handles GET /nodes/{nodeID}/versions/{versionID}
func (h *NodeHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	nodeID, err := nodeIDParam(r)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	versionID, err := parseVersionRef(nodeID, chi.URLParam(r, "versionID"))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	version, err := h.versions.GetVersion(r.Context(), versionID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toVersionDetail(version))
}

// CompareVersions handles GET /nodes/{nodeID}/diff
func (h *NodeHandler) CompareVersions(w http.ResponseWriter, r *http.Request) {
	nodeID, err := nodeIDParam(r)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	fromID, err := parseVersionRef(nodeID, r.URL.Query().Get("from"))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	toID, err := parseVersionRef(nodeID, r.URL.Query().Get("to"))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	start := time.Now()
	diff, err := h.versions.CompareVersions(r.Context(), fromID, toID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	if h.observeDiff != nil {
		h.observeDiff(time.Since(start))
	}

	common.RespondJSON(w, r, http.StatusOK, DiffResponse{
		From: fromID.String(),
		To:   toID.String(),
		Diff: diff,
	})
}

// CreateSnapshot handles POST /nodes/{nodeID}/snapshots
func (h *NodeHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	nodeID, err := nodeIDParam(r)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	var req CreateSnapshotRequest
	if err := decodeBody(w, r, &req, h.maxPayloadBytes, true); err != nil {
		common.RespondError(w, r, err)
		return
	}
	if req.Description == "" {
		req.Description = defaultSnapshotDescription
	}

	version, err := h.snapshots.CreateSnapshot(r.Context(), nodeID, req.Description, common.AuthorFromContext(r.Context()))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusCreated, toVersionSummary(version))
}

// Rollback handles POST /nodes/{nodeID}/rollback
func (h *NodeHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	nodeID, err := nodeIDParam(r)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	var req RollbackRequest
	if err := decodeBody(w, r, &req, h.maxPayloadBytes, false); err != nil {
		common.RespondError(w, r, err)
		return
	}

	targetID, err := parseVersionRef(nodeID, req.TargetVersionID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	result, err := h.rollbacks.Rollback(r.Context(), nodeID, common.AuthorFromContext(r.Context()), services.RollbackOptions{
		TargetVersionID:           targetID,
		PreserveCurrentAsSnapshot: req.PreserveCurrentAsSnapshot,
		ApplySelectively:          req.ApplySelectively,
		ValidateBeforeRollback:    req.ValidateBeforeRollback,
		CreateBackup:              req.CreateBackup,
	})
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	h.logger.Info("Rollback served",
		zap.String("nodeID", nodeID.String()),
		zap.String("targetVersionID", targetID.String()),
	)
	common.RespondJSON(w, r, http.StatusOK, toRollbackResponse(result))
}

func toRollbackResponse(result *services.RollbackResult) RollbackResponse {
	out := RollbackResponse{
		NewVersion: toVersionSummary(result.NewVersion),
		Validation: result.Validation,
	}
	if result.BackupVersion != nil {
		backup := toVersionSummary(result.BackupVersion)
		out.BackupVersion = &backup
	}
	return out
}

// nodeIDParam reads and validates the nodeID path parameter.
func nodeIDParam(r *http.Request) (valueobjects.NodeID, error) {
	return valueobjects.NewNodeID(chi.URLParam(r, "nodeID"))
}

// parseVersionRef resolves a version reference against a node. A bare
// sequence number ("3") and a full id ("meshA:v3") are both accepted;
// a full id must belong to the node in the path.
func parseVersionRef(nodeID valueobjects.NodeID, ref string) (valueobjects.VersionID, error) {
	if ref == "" {
		return valueobjects.VersionID{}, pkgerrors.NewValidationError("version reference is required")
	}
	if seq, err := strconv.Atoi(ref); err == nil {
		return valueobjects.NewVersionID(nodeID, seq)
	}

	versionID, err := valueobjects.ParseVersionID(ref)
	if err != nil {
		return valueobjects.VersionID{}, err
	}
	if !versionID.NodeID().Equals(nodeID) {
		return valueobjects.VersionID{}, pkgerrors.NewValidationError(
			fmt.Sprintf("version %s does not belong to node %s", versionID, nodeID))
	}
	return versionID, nil
}

// decodeBody parses and validates a JSON request body. An empty body
// passes when optional is true.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64, optional bool) error {
	err := common.ParseJSONBody(w, r, v, maxBytes)
	switch {
	case err == nil:
	case optional && errors.Is(err, io.EOF):
		return nil
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return pkgerrors.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		return pkgerrors.NewValidationError("invalid request body: " + err.Error())
	}

	if err := common.ValidateStruct(v); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}
