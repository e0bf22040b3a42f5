//go:build swagger
// +build swagger

// ⚠️ DOCUMENTATION GENERATION ONLY - NOT RUNTIME CODE
// This file is used solely for OpenAPI spec generation

// Package docs provides OpenAPI/Swagger documentation for the DeepCAE
// versioning API
package docs

// @title DeepCAE Versioning API
// @version 1.0
// @description Version control for deep-excavation CAE working data: immutable per-node version chains, snapshots, diffs, rollback, branches, tags and three-way merges

// @contact.name Engineering Platform Team
// @contact.email platform@deepcae.io

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token

// @schemes http https
