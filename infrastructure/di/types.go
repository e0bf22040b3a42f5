package di

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"

	"deepcae-backend/application/ports"
	"deepcae-backend/application/services"
	"deepcae-backend/domain/versioning"
	"deepcae-backend/infrastructure/cache"
	"deepcae-backend/infrastructure/config"
	"deepcae-backend/infrastructure/observability"
	restmiddleware "deepcae-backend/interfaces/http/rest/middleware"
)

// Container holds every long-lived component of the version engine.
// Entrypoints construct one container at startup and pull what they
// need from it; Shutdown tears the pieces down in reverse order.
//
// The type lives outside the build-tagged files so both the manual
// constructor and the wire injector can return it.
type Container struct {
	Config        *config.Config
	ConfigManager *config.ConfigManager
	Logger        *zap.Logger

	Collector *observability.Collector
	Tracing   *observability.TracerProvider

	DynamoDBClient    *awsdynamodb.Client
	EventBridgeClient *awseventbridge.Client

	Store  ports.VersionStore
	Locker ports.NodeLocker
	Bus    ports.EventBus
	Cache  *cache.MemoryCache

	Differ *versioning.DiffEngine
	Merger *versioning.Merger

	Versions  *services.VersionService
	Snapshots *services.SnapshotService
	Rollbacks *services.RollbackService
	Branches  *services.BranchService
	Tags      *services.TagService
	Merges    *services.MergeService
	Scheduler *services.SnapshotScheduler

	Auth   *restmiddleware.AuthConfig
	Router http.Handler

	loader            *config.Loader
	shutdownFunctions []func() error
}

// registerReloadableComponents subscribes the tunable components to
// configuration reloads. Only settings that are safe to change on a
// running process are wired here.
func (c *Container) registerReloadableComponents(manager *config.ConfigManager) {
	manager.RegisterComponent("snapshot-scheduler", func(next *config.Config) error {
		c.Scheduler.SetPolicy(ProvideSnapshotPolicy(next))
		return nil
	})
	if c.Cache != nil {
		manager.RegisterComponent("diff-cache", func(next *config.Config) error {
			c.Versions.SetDiffCacheTTL(next.Cache.TTL.Std())
			return nil
		})
	}
}

// addShutdownFunction records a cleanup step. Steps run in reverse
// registration order during Shutdown.
func (c *Container) addShutdownFunction(fn func() error) {
	c.shutdownFunctions = append(c.shutdownFunctions, fn)
}

// AddShutdownFunction lets entrypoints hook their own cleanup into the
// container's shutdown sequence.
func (c *Container) AddShutdownFunction(fn func() error) {
	c.shutdownFunctions = append(c.shutdownFunctions, fn)
}

// Shutdown tears down the container components in reverse order of
// construction. All steps run even when some fail.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(c.shutdownFunctions) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shutdown aborted: %w", ctx.Err())
		default:
		}
		if err := c.shutdownFunctions[i](); err != nil {
			errs = append(errs, err)
			if c.Logger != nil {
				c.Logger.Error("Shutdown step failed", zap.Error(err))
			}
		}
	}
	c.shutdownFunctions = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors", len(errs))
	}
	return nil
}
