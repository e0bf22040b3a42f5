package handlers

// This file contains OpenAPI/Swagger documentation for MergeHandler endpoints

// AnalyzeMerge previews a merge without writing anything
// @Summary Analyze a merge
// @Description Runs the three-way conflict analysis between two branches and reports what a merge would do
// @Tags merge
// @Accept json
// @Produce json
// @Param request body handlers.MergeRequest true "Branches to analyze"
// @Success 200 {object} handlers.MergeResponse "Conflict analysis"
// @Failure 400 {object} common.APIResponse "Invalid request"
// @Failure 404 {object} common.APIResponse "Branch not found"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /merge/analyze [post]

// Merge merges one branch into another
// @Summary Merge branches
// @Description Merges the source branch into the target; auto-resolvable changes are applied, unresolved conflicts abort the write
// @Tags merge
// @Accept json
// @Produce json
// @Param request body handlers.MergeRequest true "Branches to merge"
// @Success 200 {object} handlers.MergeResponse "Merge outcome"
// @Failure 400 {object} common.APIResponse "Invalid request"
// @Failure 404 {object} common.APIResponse "Branch not found"
// @Failure 409 {object} common.APIResponse "Unresolved conflicts"
// @Failure 401 {object} common.APIResponse "Unauthorized"
// @Failure 500 {object} common.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /merge [post]
