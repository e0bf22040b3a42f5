package handlers

// This file contains OpenAPI/Swagger documentation for BranchHandler endpoints

// CreateBranch creates a branch from a base version
// @Summary Create a branch
// @Description Creates a design alternative rooted at the given base version
// @Tags branches
// @Accept json
// @Produce json
// @Param request body handlers.CreateBranchRequest true "Branch creation request"
// @Success 201 {object} handlers.BranchDTO "Created branch"
// @Failure 400 {object} common.APIResponse "Invalid request"
// @Failure 404 {object} common.APIResponse "Base version not found"
// @Failure 409 {object} common.APIResponse "Branch already exists"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /branches [post]

// ListBranches lists all branches
// @Summary List branches
// @Description Returns every branch including the main branch
// @Tags branches
// @Produce json
// @Success 200 {array} handlers.BranchDTO "Branches"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Security BearerAuth
// @Router /branches [get]

// GetActiveBranch returns the branch new versions land on
// @Summary Get the active branch
// @Tags branches
// @Produce json
// @Success 200 {object} handlers.BranchDTO "Active branch"
// @Failure 404 {object} common.APIResponse "No active branch"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Security BearerAuth
// @Router /branches/active [get]

// SwitchBranch makes a branch the active one
// @Summary Switch the active branch
// @Description Deactivates the current branch and activates the named one
// @Tags branches
// @Produce json
// @Param branchID path string true "Branch ID"
// @Success 200 {object} handlers.BranchDTO "Now-active branch"
// @Failure 404 {object} common.APIResponse "Branch not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /branches/{branchID}/switch [post]

// AdvanceHead moves a branch head forward
// @Summary Advance a branch head
// @Description Moves the head to a version that follows the current head on the same node
// @Tags branches
// @Accept json
// @Produce json
// @Param branchID path string true "Branch ID"
// @Param request body handlers.AdvanceHeadRequest true "Target version"
// @Success 200 {object} handlers.BranchDTO "Updated branch"
// @Failure 400 {object} common.APIResponse "Invalid version id"
// @Failure 404 {object} common.APIResponse "Branch not found"
// @Failure 409 {object} common.APIResponse "Version does not follow the head"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /branches/{branchID}/advance [post]
