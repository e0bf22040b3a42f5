// Package rest wires the versioning services into the HTTP API.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"deepcae-backend/application/services"
	"deepcae-backend/infrastructure/config"
	"deepcae-backend/infrastructure/observability"
	"deepcae-backend/interfaces/http/rest/handlers"
	"deepcae-backend/interfaces/http/rest/middleware"
)

const readinessTimeout = 2 * time.Second

// Services bundles the application services the API exposes.
type Services struct {
	Versions  *services.VersionService
	Snapshots *services.SnapshotService
	Rollbacks *services.RollbackService
	Branches  *services.BranchService
	Tags      *services.TagService
	Merges    *services.MergeService
}

// Router builds the HTTP handler tree.
type Router struct {
	cfg       *config.Config
	services  Services
	collector *observability.Collector
	auth      *middleware.AuthConfig
	logger    *zap.Logger
}

// NewRouter creates a new router. A nil collector disables the metrics
// endpoint and instrumentation; a nil auth config leaves the API open.
func NewRouter(
	cfg *config.Config,
	svc Services,
	collector *observability.Collector,
	auth *middleware.AuthConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:       cfg,
		services:  svc,
		collector: collector,
		auth:      auth,
		logger:    logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestContext())
	router.Use(middleware.Logger(rt.logger))
	router.Use(chimiddleware.Recoverer)
	if rt.collector != nil {
		router.Use(observability.MetricsMiddleware(rt.collector))
	}

	if rt.cfg.Features.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Handle("/metrics", rt.collector.Handler())
	}

	maxBody := rt.cfg.Server.MaxRequestBytes
	maxPayload := int64(rt.cfg.Versioning.MaxPayloadBytes)
	var observeDiff func(time.Duration)
	if rt.collector != nil {
		observeDiff = rt.collector.ObserveDiffDuration
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.auth != nil {
			r.Use(middleware.Authenticate(*rt.auth, rt.logger))
		}

		r.Route("/nodes", func(r chi.Router) {
			nodeHandler := handlers.NewNodeHandler(
				rt.services.Versions,
				rt.services.Snapshots,
				rt.services.Rollbacks,
				maxPayload,
				observeDiff,
				rt.logger,
			)
			r.Get("/", nodeHandler.ListNodes)
			r.Get("/{nodeID}", nodeHandler.GetNode)
			r.Put("/{nodeID}/data", nodeHandler.UpdateNodeData)
			r.Get("/{nodeID}/versions", nodeHandler.GetVersionHistory)
			r.Get("/{nodeID}/versions/{versionID}", nodeHandler.GetVersion)
			r.Get("/{nodeID}/diff", nodeHandler.CompareVersions)
			r.Post("/{nodeID}/snapshots", nodeHandler.CreateSnapshot)
			r.Post("/{nodeID}/rollback", nodeHandler.Rollback)
		})

		r.Route("/branches", func(r chi.Router) {
			branchHandler := handlers.NewBranchHandler(rt.services.Branches, maxBody, rt.logger)
			r.Post("/", branchHandler.CreateBranch)
			r.Get("/", branchHandler.ListBranches)
			r.Get("/active", branchHandler.GetActiveBranch)
			r.Post("/{branchID}/switch", branchHandler.SwitchBranch)
			r.Post("/{branchID}/advance", branchHandler.AdvanceHead)
		})

		r.Route("/tags", func(r chi.Router) {
			tagHandler := handlers.NewTagHandler(rt.services.Tags, maxBody, rt.logger)
			r.Post("/", tagHandler.CreateTag)
			r.Get("/", tagHandler.ListTags)
		})

		mergeHandler := handlers.NewMergeHandler(rt.services.Merges, maxBody, rt.logger)
		r.Post("/merge/analyze", mergeHandler.AnalyzeMerge)
		r.Post("/merge", mergeHandler.Merge)
	})

	return router
}

// healthCheck handles health check requests.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once the version store answers.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if _, err := rt.services.Versions.ListNodes(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
