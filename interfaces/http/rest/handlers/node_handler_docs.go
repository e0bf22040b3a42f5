package handlers

// This file contains OpenAPI/Swagger documentation for NodeHandler endpoints

// ListNodes lists every tracked node
// @Summary List tracked nodes
// @Description Returns every node under version control with its current version metadata
// @Tags nodes
// @Produce json
// @Success 200 {array} handlers.NodeSummary "Tracked nodes"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes [get]

// GetNode retrieves a node by ID
// @Summary Get node by ID
// @Description Returns the node with its current version and document payload
// @Tags nodes
// @Produce json
// @Param nodeID path string true "Node ID" example:"meshA"
// @Success 200 {object} handlers.NodeDetail "Node details"
// @Failure 404 {object} common.APIResponse "Node not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes/{nodeID} [get]

// UpdateNodeData replaces a node's working data
// @Summary Update node working data
// @Description Writes a new version holding the supplied document; the previous version stays in history
// @Tags nodes
// @Accept json
// @Produce json
// @Param nodeID path string true "Node ID"
// @Param request body handlers.UpdateNodeDataRequest true "New document payload"
// @Success 200 {object} handlers.VersionSummary "Created version"
// @Failure 400 {object} common.APIResponse "Invalid request"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 409 {object} common.APIResponse "Concurrent write conflict"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes/{nodeID}/data [put]

// GetVersionHistory lists a node's versions
// @Summary Get version history
// @Description Returns version metadata newest first, without document payloads
// @Tags versions
// @Produce json
// @Param nodeID path string true "Node ID"
// @Success 200 {array} handlers.VersionSummary "Version history"
// @Failure 404 {object} common.APIResponse "Node not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes/{nodeID}/versions [get]

// GetVersion retrieves one version with its payload
// @Summary Get a specific version
// @Description Accepts a bare sequence number or a full version id
// @Tags versions
// @Produce json
// @Param nodeID path string true "Node ID"
// @Param versionID path string true "Version reference" example:"3"
// @Success 200 {object} handlers.VersionDetail "Version with payload"
// @Failure 400 {object} common.APIResponse "Invalid version reference"
// @Failure 404 {object} common.APIResponse "Version not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes/{nodeID}/versions/{versionID} [get]

// CompareVersions diffs two versions of a node
// @Summary Compare two versions
// @Description Computes the field-level diff between two versions of the same node
// @Tags versions
// @Produce json
// @Param nodeID path string true "Node ID"
// @Param from query string true "Source version reference" example:"2"
// @Param to query string true "Target version reference" example:"5"
// @Success 200 {object} handlers.DiffResponse "Field-level diff"
// @Failure 400 {object} common.APIResponse "Invalid version reference"
// @Failure 404 {object} common.APIResponse "Version not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes/{nodeID}/diff [get]

// CreateSnapshot checkpoints a node's current data
// @Summary Create a snapshot
// @Description Writes the current data as a new version and tags it as a checkpoint
// @Tags snapshots
// @Accept json
// @Produce json
// @Param nodeID path string true "Node ID"
// @Param request body handlers.CreateSnapshotRequest false "Snapshot description"
// @Success 201 {object} handlers.VersionSummary "Snapshot version"
// @Failure 404 {object} common.APIResponse "Node not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes/{nodeID}/snapshots [post]

// Rollback restores a node to an earlier version
// @Summary Roll a node back
// @Description Writes a new version holding the target version's data; history is never rewritten
// @Tags rollback
// @Accept json
// @Produce json
// @Param nodeID path string true "Node ID"
// @Param request body handlers.RollbackRequest true "Rollback options"
// @Success 200 {object} handlers.RollbackResponse "Rollback outcome"
// @Failure 400 {object} common.APIResponse "Invalid request or incompatible target"
// @Failure 404 {object} common.APIResponse "Node or version not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /nodes/{nodeID}/rollback [post]
