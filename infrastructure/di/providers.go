// Package di assembles the version engine. NewContainer is the manual
// construction path used by the entrypoints; the wire provider set in
// wire.go covers the same graph for generated initializers.
package di

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appevents "deepcae-backend/application/events"
	"deepcae-backend/application/ports"
	"deepcae-backend/application/services"
	"deepcae-backend/domain/events"
	"deepcae-backend/domain/versioning"
	"deepcae-backend/infrastructure/cache"
	"deepcae-backend/infrastructure/concurrency"
	"deepcae-backend/infrastructure/config"
	"deepcae-backend/infrastructure/messaging"
	"deepcae-backend/infrastructure/messaging/eventbridge"
	"deepcae-backend/infrastructure/observability"
	"deepcae-backend/infrastructure/persistence/dynamodb"
	"deepcae-backend/infrastructure/persistence/memory"
	"deepcae-backend/infrastructure/resilience"
	"deepcae-backend/interfaces/http/rest"
	restmiddleware "deepcae-backend/interfaces/http/rest/middleware"
	"deepcae-backend/pkg/auth"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "deepcae"

// serviceName identifies this process in traces.
const serviceName = "deepcae-backend"

// ProvideLogger builds the zap logger for the configured environment
// and log level.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideAWSConfig loads the shared AWS client configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
}

// ProvideDynamoDBClient creates the DynamoDB client, honoring the
// local-endpoint override used in development.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		o.RetryMaxAttempts = 3
		o.RetryMode = aws.RetryModeAdaptive
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
}

// ProvideEventBridgeClient creates the EventBridge client.
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg, func(o *awseventbridge.Options) {
		o.RetryMaxAttempts = 3
	})
}

// ProvideCollector builds the Prometheus collector, or nil when
// metrics are disabled.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.Features.EnableMetrics {
		return nil
	}
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracerProvider initializes OTLP tracing, or returns nil when
// tracing is disabled. The endpoint comes from
// OTEL_EXPORTER_OTLP_ENDPOINT with a local collector fallback.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.Features.EnableTracing {
		return nil, nil
	}
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	return observability.InitTracing(ctx, serviceName, string(cfg.Environment), endpoint)
}

// ProvideVersionStore selects the configured store backend. The
// DynamoDB store runs behind the circuit breaker; the in-memory store
// does not, since its failures are the process's own. Tracing wraps
// whichever store came out.
func ProvideVersionStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	tracing *observability.TracerProvider,
	logger *zap.Logger,
) (ports.VersionStore, error) {
	var store ports.VersionStore
	switch cfg.Storage.Backend {
	case "dynamodb":
		if cfg.AWS.DynamoDBTable == "" {
			return nil, fmt.Errorf("storage backend dynamodb requires aws.dynamodb_table")
		}
		store = dynamodb.NewVersionStore(client, cfg.AWS.DynamoDBTable, logger)
		store = resilience.NewBreakerStore(store, resilience.DefaultBreakerConfig("version-store"), logger)
	case "memory":
		store = memory.NewInMemoryVersionStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if tracing != nil {
		store = observability.TraceVersionStore(store, tracing.Tracer(serviceName+"/store"))
	}
	return store, nil
}

// ProvideLocker creates the node locker, feeding lock contention into
// the collector when metrics are on.
func ProvideLocker(collector *observability.Collector, logger *zap.Logger) ports.NodeLocker {
	locker := concurrency.NewMemoryNodeLocker(logger)
	if collector != nil {
		locker.SetContentionHook(collector.LockContentionHook())
	}
	return locker
}

// ProvideEventBus builds the event path: the in-process registry,
// wrapped in the EventBridge dispatcher when a bus name is
// configured. The metrics handler observes the whole stream.
func ProvideEventBus(
	cfg *config.Config,
	ebClient *awseventbridge.Client,
	collector *observability.Collector,
	logger *zap.Logger,
) (ports.EventBus, error) {
	registry := appevents.NewHandlerRegistry(logger)

	var bus ports.EventBus = registry
	if cfg.AWS.EventBusName != "" {
		publisher := eventbridge.NewPublisher(ebClient, cfg.AWS.EventBusName, logger)
		bus = messaging.NewEventDispatcher(registry, publisher, logger)
	}

	if collector != nil {
		if err := bus.Register(events.AllTypes(), observability.NewEventMetricsHandler(collector)); err != nil {
			return nil, fmt.Errorf("registering metrics event handler: %w", err)
		}
	}
	return bus, nil
}

// ProvideCache creates the diff cache, or nil when caching is off.
func ProvideCache(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *cache.MemoryCache {
	if !cfg.Features.EnableCaching {
		return nil
	}

	memCache := cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Cache.MaxBytes, logger)
	if collector != nil {
		collector.RegisterCacheStats(metricsNamespace, func() observability.CacheStats {
			stats := memCache.Stats()
			return observability.CacheStats{
				Hits:      stats.Hits,
				Misses:    stats.Misses,
				Evictions: stats.Evictions,
				Entries:   stats.Entries,
				UsedBytes: stats.UsedBytes,
				HitRate:   stats.HitRate,
			}
		})
	}
	return memCache
}

// ProvideDiffCache adapts the memory cache to the port consumed by the
// version service. A disabled cache must surface as a nil interface,
// not a typed nil pointer.
func ProvideDiffCache(memCache *cache.MemoryCache) ports.Cache {
	if memCache == nil {
		return nil
	}
	return memCache
}

// ProvideDiffEngine builds the differ with the configured numeric
// tolerance.
func ProvideDiffEngine(cfg *config.Config) *versioning.DiffEngine {
	return versioning.NewDiffEngine(cfg.Versioning.SignificanceEpsilon)
}

// ProvideMerger builds the merge resolver over the differ.
func ProvideMerger(differ *versioning.DiffEngine) *versioning.Merger {
	return versioning.NewMerger(differ)
}

// ProvideSnapshotPolicy maps the versioning config onto the scheduler
// policy.
func ProvideSnapshotPolicy(cfg *config.Config) versioning.SnapshotPolicy {
	return versioning.SnapshotPolicy{
		Interval:      cfg.Versioning.SnapshotInterval.Std(),
		SizeThreshold: cfg.Versioning.SnapshotSizeThreshold,
	}
}

// ProvideBranchService builds the branch service.
func ProvideBranchService(store ports.VersionStore, bus ports.EventBus, logger *zap.Logger) *services.BranchService {
	return services.NewBranchService(store, bus, logger)
}

// ProvideTagService builds the tag service.
func ProvideTagService(store ports.VersionStore, bus ports.EventBus, logger *zap.Logger) *services.TagService {
	return services.NewTagService(store, bus, logger)
}

// ProvideSnapshotService builds the snapshot service.
func ProvideSnapshotService(
	store ports.VersionStore,
	tags *services.TagService,
	branches *services.BranchService,
	locker ports.NodeLocker,
	bus ports.EventBus,
	logger *zap.Logger,
) *services.SnapshotService {
	return services.NewSnapshotService(store, tags, branches, locker, bus, logger)
}

// ProvideVersionService builds the version service with the diff cache
// TTL taken from configuration.
func ProvideVersionService(
	cfg *config.Config,
	store ports.VersionStore,
	differ *versioning.DiffEngine,
	locker ports.NodeLocker,
	branches *services.BranchService,
	diffCache ports.Cache,
	logger *zap.Logger,
) *services.VersionService {
	svc := services.NewVersionService(store, differ, locker, branches, diffCache, logger)
	if diffCache != nil {
		svc.SetDiffCacheTTL(cfg.Cache.TTL.Std())
	}
	return svc
}

// ProvideRollbackService builds the rollback service.
func ProvideRollbackService(
	store ports.VersionStore,
	differ *versioning.DiffEngine,
	snapshots *services.SnapshotService,
	tags *services.TagService,
	branches *services.BranchService,
	locker ports.NodeLocker,
	bus ports.EventBus,
	logger *zap.Logger,
) *services.RollbackService {
	return services.NewRollbackService(store, differ, snapshots, tags, branches, locker, bus, logger)
}

// ProvideMergeService builds the merge service.
func ProvideMergeService(
	store ports.VersionStore,
	branches *services.BranchService,
	merger *versioning.Merger,
	locker ports.NodeLocker,
	bus ports.EventBus,
	logger *zap.Logger,
) *services.MergeService {
	return services.NewMergeService(store, branches, merger, locker, bus, logger)
}

// ProvideSnapshotScheduler builds the periodic snapshot sweeper,
// reporting sweep outcomes to the collector when metrics are on.
func ProvideSnapshotScheduler(
	store ports.VersionStore,
	snapshots *services.SnapshotService,
	locker ports.NodeLocker,
	policy versioning.SnapshotPolicy,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.SnapshotScheduler {
	scheduler := services.NewSnapshotScheduler(store, snapshots, locker, policy, logger)
	if collector != nil {
		scheduler.SetSweepHook(collector.SweepHook())
	}
	return scheduler
}

// ProvideRESTServices bundles the application services for the router.
func ProvideRESTServices(
	versions *services.VersionService,
	snapshots *services.SnapshotService,
	rollbacks *services.RollbackService,
	branches *services.BranchService,
	tags *services.TagService,
	merges *services.MergeService,
) rest.Services {
	return rest.Services{
		Versions:  versions,
		Snapshots: snapshots,
		Rollbacks: rollbacks,
		Branches:  branches,
		Tags:      tags,
		Merges:    merges,
	}
}

// ProvideAuthMiddleware builds the API authentication configuration,
// or nil when auth is disabled.
func ProvideAuthMiddleware(cfg *config.Config) (*restmiddleware.AuthConfig, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth is enabled but auth.jwt_secret is empty")
	}

	validator, err := auth.NewValidator(auth.ValidatorConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.Auth.JWTSecret,
		Issuer:        cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("building token validator: %w", err)
	}

	authCfg := &restmiddleware.AuthConfig{Validator: validator}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		cleanup := cfg.RateLimit.CleanupInterval.Std()
		authCfg.IPLimiter = auth.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, cleanup)
		authCfg.UserLimiter = auth.NewUserRateLimiter(cfg.RateLimit.RequestsPerMinute*2, cfg.RateLimit.Burst*2, cleanup)
	}
	return authCfg, nil
}

// ProvideRouter assembles the HTTP handler tree.
func ProvideRouter(
	cfg *config.Config,
	svc rest.Services,
	collector *observability.Collector,
	authCfg *restmiddleware.AuthConfig,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(cfg, svc, collector, authCfg, logger).Setup()
}

// ensureMainBranch seeds the main branch so the first write lands on
// a head. Failure is fatal at startup since every write path assumes
// the branch exists.
func ensureMainBranch(ctx context.Context, branches *services.BranchService) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := branches.EnsureMainBranch(ctx, "system")
	return err
}
