package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"deepcae-backend/application/services"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/domain/versioning"
	"deepcae-backend/pkg/common"
)

// MergeHandler serves the merge endpoints.
type MergeHandler struct {
	merges  *services.MergeService
	maxBody int64
	logger  *zap.Logger
}

// NewMergeHandler creates a new merge handler.
func NewMergeHandler(merges *services.MergeService, maxBody int64, logger *zap.Logger) *MergeHandler {
	return &MergeHandler{
		merges:  merges,
		maxBody: maxBody,
		logger:  logger,
	}
}

// MergeRequest names the branches to merge.
type MergeRequest struct {
	SourceBranchID string `json:"source_branch_id" validate:"required"`
	TargetBranchID string `json:"target_branch_id" validate:"required"`
}

// AnalyzeMerge handles POST /merge/analyze
func (h *MergeHandler) AnalyzeMerge(w http.ResponseWriter, r *http.Request) {
	sourceID, targetID, ok := h.branchPair(w, r)
	if !ok {
		return
	}

	result, err := h.merges.AnalyzeMerge(r.Context(), sourceID, targetID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toMergeResponse(result))
}

// Merge handles POST /merge
func (h *MergeHandler) Merge(w http.ResponseWriter, r *http.Request) {
	sourceID, targetID, ok := h.branchPair(w, r)
	if !ok {
		return
	}

	result, err := h.merges.MergeBranch(r.Context(), sourceID, targetID, common.AuthorFromContext(r.Context()))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	if result.MergedVersion != nil {
		h.logger.Info("Merge served",
			zap.String("sourceBranchID", sourceID.String()),
			zap.String("targetBranchID", targetID.String()),
			zap.String("mergedVersionID", result.MergedVersion.ID().String()),
		)
	}
	common.RespondJSON(w, r, http.StatusOK, toMergeResponse(result))
}

func (h *MergeHandler) branchPair(w http.ResponseWriter, r *http.Request) (valueobjects.BranchID, valueobjects.BranchID, bool) {
	var req MergeRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		common.RespondError(w, r, err)
		return valueobjects.BranchID{}, valueobjects.BranchID{}, false
	}

	sourceID, err := valueobjects.NewBranchID(req.SourceBranchID)
	if err != nil {
		common.RespondError(w, r, err)
		return valueobjects.BranchID{}, valueobjects.BranchID{}, false
	}
	targetID, err := valueobjects.NewBranchID(req.TargetBranchID)
	if err != nil {
		common.RespondError(w, r, err)
		return valueobjects.BranchID{}, valueobjects.BranchID{}, false
	}
	return sourceID, targetID, true
}

func toMergeResponse(result *services.MergeResult) MergeResponse {
	out := MergeResponse{
		Conflicts:                result.Conflicts,
		AutoResolved:             result.AutoResolved,
		RequiresManualResolution: result.RequiresManualResolution,
	}
	if out.Conflicts == nil {
		out.Conflicts = []versioning.MergeConflict{}
	}
	if result.MergedVersion != nil {
		merged := toVersionSummary(result.MergedVersion)
		out.MergedVersion = &merged
	}
	return out
}
