package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"deepcae-backend/application/services"
	"deepcae-backend/domain/core/valueobjects"
	"deepcae-backend/pkg/common"
)

// TagHandler serves the tag endpoints.
type TagHandler struct {
	tags    *services.TagService
	maxBody int64
	logger  *zap.Logger
}

// NewTagHandler creates a new tag handler.
func NewTagHandler(tags *services.TagService, maxBody int64, logger *zap.Logger) *TagHandler {
	return &TagHandler{
		tags:    tags,
		maxBody: maxBody,
		logger:  logger,
	}
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	VersionID   string `json:"version_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=100"`
	Type        string `json:"type" validate:"required"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// CreateTag handles POST /tags
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		common.RespondError(w, r, err)
		return
	}

	versionID, err := valueobjects.ParseVersionID(req.VersionID)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}
	tagType, err := valueobjects.ParseTagType(req.Type)
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	tag, err := h.tags.CreateTag(r.Context(), versionID, req.Name, tagType, req.Description, common.AuthorFromContext(r.Context()))
	if err != nil {
		common.RespondError(w, r, err)
		return
	}

	h.logger.Info("Tag created via API",
		zap.String("tagID", tag.ID().String()),
		zap.String("versionID", versionID.String()),
	)
	common.RespondJSON(w, r, http.StatusCreated, toTagDTO(tag))
}

// ListTags handles GET /tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	if rawNodeID := r.URL.Query().Get("node_id"); rawNodeID != "" {
		nodeID, err := valueobjects.NewNodeID(rawNodeID)
		if err != nil {
			common.RespondError(w, r, err)
			return
		}
		common.RespondJSON(w, r, http.StatusOK, toTagDTOs(h.tags.GetTagsForNode(r.Context(), nodeID)))
		return
	}
	common.RespondJSON(w, r, http.StatusOK, toTagDTOs(h.tags.GetTags(r.Context())))
}
