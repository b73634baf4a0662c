//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"lattice/infrastructure/config"

	"github.com/google/wire"
)

// commonSet holds the providers shared by every storage backend
var commonSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideTraversalPolicy,
	ProvideSchemaValidator,
	ProvideTracer,
	ProvideCache,
	ProvideRateLimiter,
	ProvideAuthorizationService,
	ProvideSchemaService,
	ProvideSeeder,
	ProvideTransactionManager,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// dynamoSet wires persistence and messaging against AWS
var dynamoSet = wire.NewSet(
	commonSet,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideMetrics,
	ProvideWorkspaceRepository,
	ProvideSchemaRepository,
	ProvideEntityRepository,
	ProvideEdgeRepository,
	ProvideGraphRepository,
	ProvideEventStore,
	ProvideEventStorePort,
	ProvideDistributedLock,
	ProvideOutboxProcessor,
	ProvideEventBus,
	ProvideDynamoUnitOfWork,
)

// memorySet wires the in-process backend used for development and tests
var memorySet = wire.NewSet(
	commonSet,
	ProvideLocalMetrics,
	ProvideMemoryStore,
	ProvideMemoryWorkspaceRepository,
	ProvideMemorySchemaRepository,
	ProvideMemoryEntityRepository,
	ProvideMemoryEdgeRepository,
	ProvideMemoryGraphRepository,
	ProvideMemoryUnitOfWork,
	ProvideMemoryEventStore,
	ProvideMemoryEventStorePort,
	ProvideLocalEventBus,
	ProvideNoOutbox,
)

func initializeDynamoContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(dynamoSet)
	return nil, nil // replaced by the generated injector
}

func initializeMemoryContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(memorySet)
	return nil, nil // replaced by the generated injector
}
