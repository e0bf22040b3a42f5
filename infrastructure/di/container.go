//go:build !wireinject
// +build !wireinject

package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deepcae-backend/infrastructure/config"
)

const tracingShutdownTimeout = 5 * time.Second

// NewContainer loads configuration from the default sources and builds
// the full dependency graph.
func NewContainer(ctx context.Context) (*Container, error) {
	loader := config.NewDefaultLoader()
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return NewContainerWithConfig(ctx, loader, cfg)
}

// NewContainerWithConfig builds the dependency graph from an already
// loaded configuration. A nil loader disables hot reload, which is what
// tests and the Lambda entrypoints want.
func NewContainerWithConfig(ctx context.Context, loader *config.Loader, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config:            cfg,
		loader:            loader,
		shutdownFunctions: make([]func() error, 0),
	}

	if err := c.initialize(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		_ = c.Shutdown(shutdownCtx)
		return nil, err
	}
	return c, nil
}

// initialize wires the components in dependency order.
func (c *Container) initialize(ctx context.Context) error {
	cfg := c.Config

	// 1. Logging
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	c.Logger = logger
	c.addShutdownFunction(func() error {
		_ = logger.Sync()
		return nil
	})

	// 2. Observability
	c.Collector = ProvideCollector(cfg)
	tracing, err := ProvideTracerProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	c.Tracing = tracing
	if tracing != nil {
		c.addShutdownFunction(func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
			defer cancel()
			return tracing.Shutdown(shutdownCtx)
		})
	}

	// 3. AWS clients, only when a component actually talks to AWS
	if cfg.Storage.Backend == "dynamodb" || cfg.AWS.EventBusName != "" {
		awsCfg, err := ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("loading AWS configuration: %w", err)
		}
		if cfg.Storage.Backend == "dynamodb" {
			c.DynamoDBClient = ProvideDynamoDBClient(awsCfg, cfg)
		}
		if cfg.AWS.EventBusName != "" {
			c.EventBridgeClient = ProvideEventBridgeClient(awsCfg)
		}
	}

	// 4. Storage
	store, err := ProvideVersionStore(cfg, c.DynamoDBClient, c.Tracing, logger)
	if err != nil {
		return fmt.Errorf("initializing version store: %w", err)
	}
	c.Store = store

	// 5. Locking, eventing and the diff cache
	c.Locker = ProvideLocker(c.Collector, logger)
	bus, err := ProvideEventBus(cfg, c.EventBridgeClient, c.Collector, logger)
	if err != nil {
		return fmt.Errorf("initializing event bus: %w", err)
	}
	c.Bus = bus

	c.Cache = ProvideCache(cfg, c.Collector, logger)
	if c.Cache != nil && cfg.Cache.TTL.Std() > 0 {
		c.Cache.StartJanitor(cfg.Cache.TTL.Std())
		c.addShutdownFunction(func() error {
			c.Cache.StopJanitor()
			return nil
		})
	}

	// 6. Domain engines
	c.Differ = ProvideDiffEngine(cfg)
	c.Merger = ProvideMerger(c.Differ)

	// 7. Application services
	c.Branches = ProvideBranchService(c.Store, c.Bus, logger)
	c.Tags = ProvideTagService(c.Store, c.Bus, logger)
	c.Snapshots = ProvideSnapshotService(c.Store, c.Tags, c.Branches, c.Locker, c.Bus, logger)
	c.Versions = ProvideVersionService(cfg, c.Store, c.Differ, c.Locker, c.Branches, ProvideDiffCache(c.Cache), logger)
	c.Rollbacks = ProvideRollbackService(c.Store, c.Differ, c.Snapshots, c.Tags, c.Branches, c.Locker, c.Bus, logger)
	c.Merges = ProvideMergeService(c.Store, c.Branches, c.Merger, c.Locker, c.Bus, logger)
	c.Scheduler = ProvideSnapshotScheduler(c.Store, c.Snapshots, c.Locker, ProvideSnapshotPolicy(cfg), c.Collector, logger)

	// 8. Main branch seeding
	if err := ensureMainBranch(ctx, c.Branches); err != nil {
		return fmt.Errorf("seeding main branch: %w", err)
	}

	// 9. HTTP surface
	auth, err := ProvideAuthMiddleware(cfg)
	if err != nil {
		return fmt.Errorf("initializing authentication: %w", err)
	}
	c.Auth = auth
	if auth != nil {
		if auth.IPLimiter != nil {
			c.addShutdownFunction(func() error {
				auth.IPLimiter.Stop()
				return nil
			})
		}
		if auth.UserLimiter != nil {
			c.addShutdownFunction(func() error {
				auth.UserLimiter.Stop()
				return nil
			})
		}
	}
	restServices := ProvideRESTServices(c.Versions, c.Snapshots, c.Rollbacks, c.Branches, c.Tags, c.Merges)
	c.Router = ProvideRouter(cfg, restServices, c.Collector, auth, logger)

	// 10. Dynamic reconfiguration
	if c.loader != nil {
		manager, err := config.NewConfigManager(c.loader, cfg, logger)
		if err != nil {
			return fmt.Errorf("initializing config manager: %w", err)
		}
		c.ConfigManager = manager
		c.registerReloadableComponents(manager)
		c.addShutdownFunction(func() error {
			manager.Stop()
			return nil
		})
	}

	logger.Info("Container initialized",
		zap.String("environment", string(cfg.Environment)),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("metrics", c.Collector != nil),
		zap.Bool("tracing", c.Tracing != nil),
		zap.Bool("caching", c.Cache != nil),
		zap.Bool("auth", c.Auth != nil),
	)
	return nil
}
