package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"deepcae-backend/application/services"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/pkg/common"
)

// BranchHandler serves the branch endpoints.
type BranchHandler struct {
	branches *services.BranchService
	maxBody  int64
	logger   *zap.Logger
}

// NewBranchHandler creates a new branch handler.
func NewBranchHandler(branches *services.BranchService, maxBody int64, logger *zap.Logger) *BranchHandler {
	return &BranchHandler{
		branches: branches,
		maxBody:  maxBody,
		logger:   logger,
	}
}

// CreateBranchRequest is the request body for creating a branch.
type CreateBranchRequest struct {
	BranchID      string `json:"branch_id" validate:"required,max=64"`
	Description   string `json:"description,omitempty" validate:"omitempty,max=500"`
	BaseVersionID string `json:"base_version_id" validate:"required"`
}

// AdvanceHeadRequest is the request body for advancing a branch head.
type AdvanceHeadRequest struct {
	VersionID string `json:"version_id" validate:"required"`
}

// CreateBranch handles POST /branches
func (h *BranchHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req CreateBranchRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		common.RespondError(w, r, err)
		return
	}

	branchID, err := valueobjects.NewBranchID(req.BranchID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	baseVersionID, err := valueobjects.ParseVersionID(req.BaseVersionID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	branch, err := h.branches.CreateBranch(r.Context(), branchID, req.Description, baseVersionID, common.AuthorFromContext(r.Context()))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	h.logger.Info("Branch created via API",
		zap.String("branchID", branchID.String()),
		zap.String("baseVersionID", baseVersionID.String()),
	)
	common.RespondJSON(w, r, http.StatusCreated, toBranchDTO(branch))
}

// ListBranches handles GET /branches
func (h *BranchHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, r, http.StatusOK, toBranchDTOs(h.branches.GetBranches(r.Context())))
}

// GetActiveBranch handles GET /branches/active
func (h *BranchHandler) GetActiveBranch(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branches.ActiveBranch(r.Context())
	if !ok {
		common.RespondErrorStatus(w, r, http.StatusNotFound, "NOT_FOUND", "no active branch")
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toBranchDTO(branch))
}

// SwitchBranch handles POST /branches/{branchID}/switch
func (h *BranchHandler) SwitchBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := valueobjects.NewBranchID(chi.URLParam(r, "branchID"))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	branch, err := h.branches.SwitchBranch(r.Context(), branchID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toBranchDTO(branch))
}

// AdvanceHead handles POST /branches/{branchID}/advance
func (h *BranchHandler) AdvanceHead(w http.ResponseWriter, r *http.Request) {
	branchID, err := valueobjects.NewBranchID(chi.URLParam(r, "branchID"))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	var req AdvanceHeadRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		common.RespondError(w, r, err)
		return
	}
	versionID, err := valueobjects.ParseVersionID(req.VersionID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	if err := h.branches.AdvanceHead(r.Context(), branchID, versionID); err != nil {
		common.RespondError(w, r, err)
		return
	}

	branch, err := h.branches.GetBranch(r.Context(), branchID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toBranchDTO(branch))
}
