package di

import (
	"context"

	"lattice/application/commands/bus"
	"lattice/application/ports"
	querybus "lattice/application/queries/bus"
	domaincfg "lattice/domain/config"
	"lattice/infrastructure/cache"
	"lattice/infrastructure/config"
	"lattice/infrastructure/persistence/dynamodb"
	"lattice/infrastructure/persistence/schema"
	"lattice/pkg/auth"
	"lattice/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domaincfg.DomainConfig
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer // nil when tracing is disabled

	WorkspaceRepo ports.WorkspaceRepository
	SchemaRepo    ports.SchemaRepository
	EntityRepo    ports.EntityRepository
	EdgeRepo      ports.EdgeRepository
	GraphRepo     ports.GraphRepository
	EventStore    ports.EventStore
	UnitOfWork    ports.UnitOfWork

	EventBus    ports.EventBus
	Cache       ports.Cache
	RateLimiter auth.RateLimiter

	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus

	Seeder *schema.Seeder
	Outbox *dynamodb.OutboxProcessor // nil when running without AWS
}

// NewContainer wires the container for the configured storage backend
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg.StorageBackend == config.BackendMemory {
		return initializeMemoryContainer(ctx, cfg)
	}
	return initializeDynamoContainer(ctx, cfg)
}

// Shutdown releases background resources. Call it after the servers have
// drained.
func (c *Container) Shutdown(ctx context.Context) {
	if c.Outbox != nil {
		c.Outbox.Stop()
	}
	if redisCache, ok := c.Cache.(*cache.RedisCache); ok {
		if err := redisCache.Close(); err != nil {
			c.Logger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}
	if c.Metrics != nil {
		if err := c.Metrics.Close(); err != nil {
			c.Logger.Warn("Failed to flush metrics", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}
