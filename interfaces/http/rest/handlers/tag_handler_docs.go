package handlers

// This file contains OpenAPI/Swagger documentation for TagHandler endpoints

// CreateTag labels a version
// @Summary Create a tag
// @Description Attaches a named label of type release, milestone, backup or checkpoint to a version
// @Tags tags
// @Accept json
// @Produce json
// @Param request body handlers.CreateTagRequest true "Tag creation request"
// @Success 201 {object} handlers.TagDTO "Created tag"
// @Failure 400 {object} common.APIResponse "Invalid request"
// @Failure 404 {object} common.APIResponse "Version not found"
// @Failure 409 {object} common.APIResponse "Duplicate tag name on this node"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /tags [post]

// ListTags lists tags, optionally scoped to one node
// @Summary List tags
// @Description Returns all tags, or only those on the node named by the node_id query parameter
// @Tags tags
// @Produce json
// @Param node_id query string false "Node ID filter"
// @Success 200 {array} handlers.TagDTO "Tags"
// @Failure 400 {object} common.APIResponse "Invalid node id"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Security BearerAuth
// @Router /tags [get]
