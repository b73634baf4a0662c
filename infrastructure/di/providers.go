package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lattice/application/commands"
	"lattice/application/commands/bus"
	cmdhandlers "lattice/application/commands/handlers"
	"lattice/application/ports"
	"lattice/application/queries"
	querybus "lattice/application/queries/bus"
	qryhandlers "lattice/application/queries/handlers"
	"lattice/application/services"
	domaincfg "lattice/domain/config"
	"lattice/domain/core/policies"
	"lattice/domain/core/validators"
	"lattice/domain/events"
	"lattice/infrastructure/cache"
	"lattice/infrastructure/config"
	"lattice/infrastructure/messaging"
	"lattice/infrastructure/messaging/eventbridge"
	"lattice/infrastructure/persistence/dynamodb"
	"lattice/infrastructure/persistence/memory"
	"lattice/infrastructure/persistence/schema"
	"lattice/pkg/auth"
	"lattice/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates the logger. Production gets JSON output, everything
// else the development console encoder.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideDomainConfig creates the domain rule set, with feature flags
// carried over from the environment
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	domainCfg := domaincfg.DefaultDomainConfig()
	domainCfg.EnableQueryCaching = cfg.EnableQueryCaching
	domainCfg.EnableSchemaSeeding = cfg.SchemaSeedFile != ""
	return domainCfg
}

// ProvideTraversalPolicy creates the traversal bounds policy
func ProvideTraversalPolicy(domainCfg *domaincfg.DomainConfig) *policies.TraversalPolicy {
	return policies.NewTraversalPolicy(domainCfg)
}

// ProvideSchemaValidator creates the schema definition validator
func ProvideSchemaValidator(domainCfg *domaincfg.DomainConfig) *validators.SchemaValidator {
	return validators.NewSchemaValidator(domainCfg)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics publisher. With metrics disabled the
// client is dropped and every recording becomes a no-op.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(metricsNamespace(cfg), nil)
	}
	return observability.NewMetrics(metricsNamespace(cfg), client)
}

// ProvideLocalMetrics creates a no-op metrics publisher for profiles that
// run without AWS
func ProvideLocalMetrics(cfg *config.Config) *observability.Metrics {
	return observability.NewMetrics(metricsNamespace(cfg), nil)
}

func metricsNamespace(cfg *config.Config) string {
	return fmt.Sprintf("Lattice/%s", cfg.Environment)
}

// ProvideTracer creates the X-Ray tracer. Returns nil when tracing is
// disabled; consumers treat a nil tracer as a pass-through.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("lattice-api")
}

// ProvideWorkspaceRepository creates the DynamoDB workspace repository
func ProvideWorkspaceRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.WorkspaceRepository {
	return dynamodb.NewWorkspaceRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
}

// ProvideSchemaRepository creates the DynamoDB schema version repository
func ProvideSchemaRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SchemaRepository {
	return dynamodb.NewSchemaRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEntityRepository creates the DynamoDB entity repository
func ProvideEntityRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EntityRepository {
	return dynamodb.NewEntityRepository(client, cfg.DynamoDBTable, cfg.IndexName, cfg.GSI2IndexName, logger)
}

// ProvideEdgeRepository creates the DynamoDB edge repository
func ProvideEdgeRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EdgeRepository {
	return dynamodb.NewEdgeRepository(client, cfg.DynamoDBTable, cfg.IndexName, cfg.GSI2IndexName, logger)
}

// ProvideGraphRepository creates the DynamoDB traversal repository
func ProvideGraphRepository(
	client *awsdynamodb.Client,
	cfg *config.Config,
	policy *policies.TraversalPolicy,
	tracer *observability.Tracer,
	logger *zap.Logger,
) ports.GraphRepository {
	return dynamodb.NewGraphRepository(client, cfg.DynamoDBTable, cfg.IndexName, cfg.GSI2IndexName, policy, tracer, logger)
}

// ProvideEventStore creates the DynamoDB event store
func ProvideEventStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.EventStore {
	return dynamodb.NewEventStore(client, cfg.DynamoDBTable, cfg.IndexName, cfg.GSI2IndexName, logger)
}

// ProvideEventStorePort exposes the event store behind its port
func ProvideEventStorePort(eventStore *dynamodb.EventStore) ports.EventStore {
	return eventStore
}

// ProvideDistributedLock creates a distributed lock instance
func ProvideDistributedLock(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.DistributedLock {
	return dynamodb.NewDistributedLock(client, cfg.DynamoDBTable, logger)
}

// ProvideOutboxProcessor creates the background relay that delivers staged
// events to EventBridge
func ProvideOutboxProcessor(
	eventStore *dynamodb.EventStore,
	lock *dynamodb.DistributedLock,
	ebClient *awseventbridge.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *dynamodb.OutboxProcessor {
	publisher := eventbridge.NewEventBridgePublisher(ebClient, cfg.EventBusName, logger)
	return dynamodb.NewOutboxProcessor(eventStore, publisher, lock, logger)
}

// ProvideEventBus creates the event bus command handlers publish to.
// Events are staged in the outbox, not sent to AWS on the request path.
func ProvideEventBus(eventStore *dynamodb.EventStore, logger *zap.Logger) ports.EventBus {
	return messaging.NewOutboxPublisher(eventStore, logger)
}

// ProvideDynamoUnitOfWork returns nil: DynamoDB writes are individually
// conditional and TransactWriteItems covers the multi-item cases, so there
// is no session for the command bus to span.
func ProvideDynamoUnitOfWork() ports.UnitOfWork {
	return nil
}

// ProvideNoOutbox returns nil for profiles that publish synchronously and
// have nothing to relay
func ProvideNoOutbox() *dynamodb.OutboxProcessor {
	return nil
}

// ProvideMemoryStore creates the in-process store backing every repository
// port in the memory profile
func ProvideMemoryStore(policy *policies.TraversalPolicy, logger *zap.Logger) *memory.Store {
	return memory.NewStore(policy, logger)
}

// ProvideMemoryWorkspaceRepository exposes the store's workspace view
func ProvideMemoryWorkspaceRepository(store *memory.Store) ports.WorkspaceRepository {
	return store.WorkspaceRepository()
}

// ProvideMemorySchemaRepository exposes the store's schema view
func ProvideMemorySchemaRepository(store *memory.Store) ports.SchemaRepository {
	return store.SchemaRepository()
}

// ProvideMemoryEntityRepository exposes the store's entity view
func ProvideMemoryEntityRepository(store *memory.Store) ports.EntityRepository {
	return store.EntityRepository()
}

// ProvideMemoryEdgeRepository exposes the store's edge view
func ProvideMemoryEdgeRepository(store *memory.Store) ports.EdgeRepository {
	return store.EdgeRepository()
}

// ProvideMemoryGraphRepository exposes the store's traversal view
func ProvideMemoryGraphRepository(store *memory.Store) ports.GraphRepository {
	return store.GraphRepository()
}

// ProvideMemoryUnitOfWork exposes the store's snapshot transaction
func ProvideMemoryUnitOfWork(store *memory.Store) ports.UnitOfWork {
	return store
}

// ProvideMemoryEventStore creates the in-process event store
func ProvideMemoryEventStore() *memory.EventStore {
	return memory.NewEventStore()
}

// ProvideMemoryEventStorePort exposes the event store behind its port
func ProvideMemoryEventStorePort(eventStore *memory.EventStore) ports.EventStore {
	return eventStore
}

// ProvideLocalEventBus creates the in-process event bus with the standard
// local subscriptions: every event is recorded for auditing, and deleting
// a workspace sweeps its event feed.
func ProvideLocalEventBus(eventStore *memory.EventStore, logger *zap.Logger) (ports.EventBus, error) {
	localBus := messaging.NewLocalEventBus(logger)

	if err := localBus.Subscribe(messaging.WildcardEventType, messaging.NewEventStoreSink(eventStore, logger)); err != nil {
		return nil, err
	}
	if err := localBus.Subscribe(events.TypeWorkspaceDeleted, messaging.NewWorkspacePurgeHandler(eventStore, logger)); err != nil {
		return nil, err
	}

	return localBus, nil
}

// ProvideCache creates the application cache. Redis when REDIS_URL is set,
// an in-process map otherwise.
func ProvideCache(cfg *config.Config, logger *zap.Logger) (ports.Cache, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Info("REDIS_URL not set, using in-process cache")
		return NewInMemoryCache(), nil
	}
	return cache.NewRedisCache(cfg.RedisURL, logger)
}

// ProvideRateLimiter creates the API rate limiter. It shares the Redis
// connection with the cache when one is configured so limits hold across
// instances; otherwise limits are per-process.
func ProvideRateLimiter(cfg *config.Config, appCache ports.Cache) auth.RateLimiter {
	if redisCache, ok := appCache.(*cache.RedisCache); ok {
		return auth.NewDistributedRateLimiter(redisCache.Client(), cfg.RateLimitPerMinute, time.Minute, "api")
	}
	return auth.NewSlidingWindowLimiter(cfg.RateLimitPerMinute, time.Minute)
}

// ProvideAuthorizationService creates the workspace authorization service
func ProvideAuthorizationService(workspaceRepo ports.WorkspaceRepository, logger *zap.Logger) *services.AuthorizationService {
	return services.NewAuthorizationService(workspaceRepo, logger)
}

// ProvideSchemaService creates the schema read service
func ProvideSchemaService(
	schemaRepo ports.SchemaRepository,
	appCache ports.Cache,
	cfg *config.Config,
	logger *zap.Logger,
) *services.SchemaService {
	return services.NewSchemaService(schemaRepo, appCache, cfg.SchemaCacheTTL, logger)
}

// ProvideSeeder creates the schema seed loader
func ProvideSeeder(
	workspaceRepo ports.WorkspaceRepository,
	schemaRepo ports.SchemaRepository,
	schemaValidator *validators.SchemaValidator,
	logger *zap.Logger,
) *schema.Seeder {
	return schema.NewSeeder(workspaceRepo, schemaRepo, schemaValidator, logger)
}

// ProvideTransactionManager adapts the unit of work to the command bus
// middleware. A nil unit of work disables the transaction middleware.
func ProvideTransactionManager(uow ports.UnitOfWork) bus.TransactionManager {
	if uow == nil {
		return nil
	}
	return &uowTransactionManager{uow: uow}
}

// ProvideCommandBus creates the command bus with every write operation
// registered
func ProvideCommandBus(
	authService *services.AuthorizationService,
	schemaService *services.SchemaService,
	schemaValidator *validators.SchemaValidator,
	workspaceRepo ports.WorkspaceRepository,
	schemaRepo ports.SchemaRepository,
	entityRepo ports.EntityRepository,
	edgeRepo ports.EdgeRepository,
	eventBus ports.EventBus,
	txManager bus.TransactionManager,
	metrics *observability.Metrics,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBusWithDependencies(
		&zapLoggerAdapter{logger: logger},
		txManager,
		&commandMetricsAdapter{metrics: metrics},
	)

	var regErr error
	register := func(cmdType bus.Command, handler bus.CommandHandler) {
		if regErr == nil {
			regErr = commandBus.Register(cmdType, handler)
		}
	}

	createWorkspace := cmdhandlers.NewCreateWorkspaceHandler(workspaceRepo, eventBus, domainCfg, logger)
	register(commands.CreateWorkspaceCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.CreateWorkspaceCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return createWorkspace.Handle(ctx, typed)
	}))

	deleteWorkspace := cmdhandlers.NewDeleteWorkspaceHandler(authService, workspaceRepo, eventBus, logger)
	register(commands.DeleteWorkspaceCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.DeleteWorkspaceCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return deleteWorkspace.Handle(ctx, typed)
	}))

	addMember := cmdhandlers.NewAddMemberHandler(authService, workspaceRepo, eventBus, domainCfg, logger)
	register(commands.AddMemberCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.AddMemberCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return addMember.Handle(ctx, typed)
	}))

	removeMember := cmdhandlers.NewRemoveMemberHandler(authService, workspaceRepo, eventBus, logger)
	register(commands.RemoveMemberCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.RemoveMemberCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return removeMember.Handle(ctx, typed)
	}))

	changeMemberRole := cmdhandlers.NewChangeMemberRoleHandler(authService, workspaceRepo, eventBus, logger)
	register(commands.ChangeMemberRoleCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.ChangeMemberRoleCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return changeMemberRole.Handle(ctx, typed)
	}))

	publishSchema := cmdhandlers.NewPublishSchemaHandler(authService, schemaRepo, workspaceRepo, schemaValidator, eventBus, logger)
	register(commands.PublishSchemaCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.PublishSchemaCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return publishSchema.Handle(ctx, typed)
	}))

	createEntity := cmdhandlers.NewCreateEntityHandler(authService, schemaService, schemaValidator, workspaceRepo, entityRepo, eventBus, domainCfg, logger)
	register(commands.CreateEntityCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.CreateEntityCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return createEntity.Handle(ctx, typed)
	}))

	updateEntity := cmdhandlers.NewUpdateEntityHandler(authService, schemaService, schemaValidator, entityRepo, eventBus, domainCfg, logger)
	register(commands.UpdateEntityCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.UpdateEntityCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return updateEntity.Handle(ctx, typed)
	}))

	deleteEntity := cmdhandlers.NewDeleteEntityHandler(authService, entityRepo, eventBus, logger)
	register(commands.DeleteEntityCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.DeleteEntityCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return deleteEntity.Handle(ctx, typed)
	}))

	createEdge := cmdhandlers.NewCreateEdgeHandler(authService, schemaService, schemaValidator, workspaceRepo, entityRepo, edgeRepo, eventBus, domainCfg, logger)
	register(commands.CreateEdgeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.CreateEdgeCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return createEdge.Handle(ctx, typed)
	}))

	deleteEdge := cmdhandlers.NewDeleteEdgeHandler(authService, edgeRepo, eventBus, logger)
	register(commands.DeleteEdgeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(commands.DeleteEdgeCommand)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return deleteEdge.Handle(ctx, typed)
	}))

	if regErr != nil {
		return nil, regErr
	}

	return commandBus, nil
}

// ProvideQueryBus creates the query bus with every read operation
// registered
func ProvideQueryBus(
	authService *services.AuthorizationService,
	schemaService *services.SchemaService,
	workspaceRepo ports.WorkspaceRepository,
	schemaRepo ports.SchemaRepository,
	entityRepo ports.EntityRepository,
	edgeRepo ports.EdgeRepository,
	graphRepo ports.GraphRepository,
	policy *policies.TraversalPolicy,
	appCache ports.Cache,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	metricsMW := querybus.NewMetricsMiddleware(&queryMetricsAdapter{metrics: metrics})

	var regErr error
	register := func(queryType querybus.Query, handler querybus.QueryHandler) {
		if regErr == nil {
			regErr = queryBus.Register(queryType, metricsMW.Wrap(handler))
		}
	}

	getWorkspace := qryhandlers.NewGetWorkspaceHandler(authService, workspaceRepo, logger)
	register(queries.GetWorkspaceQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.GetWorkspaceQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return getWorkspace.Handle(ctx, typed)
	}))

	listWorkspaces := qryhandlers.NewListWorkspacesHandler(workspaceRepo, logger)
	register(queries.ListWorkspacesQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.ListWorkspacesQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return listWorkspaces.Handle(ctx, typed)
	}))

	listMembers := qryhandlers.NewListMembersHandler(authService, logger)
	register(queries.ListMembersQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.ListMembersQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return listMembers.Handle(ctx, typed)
	}))

	getSchema := qryhandlers.NewGetSchemaHandler(authService, schemaService, logger)
	var getSchemaHandler querybus.QueryHandler = querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.GetSchemaQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return getSchema.Handle(ctx, typed)
	})
	// Result caching holds decoded Go values, which only survive the
	// in-process cache; Redis round-trips through JSON and loses the types.
	if cfg.EnableQueryCaching && cfg.RedisURL == "" {
		getSchemaHandler = querybus.NewCachingMiddleware(appCache, cfg.CacheTTL).Wrap(getSchemaHandler)
	}
	register(queries.GetSchemaQuery{}, getSchemaHandler)

	listSchemaVersions := qryhandlers.NewListSchemaVersionsHandler(authService, schemaRepo, logger)
	register(queries.ListSchemaVersionsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.ListSchemaVersionsQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return listSchemaVersions.Handle(ctx, typed)
	}))

	getEntity := qryhandlers.NewGetEntityHandler(authService, entityRepo, logger)
	register(queries.GetEntityQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.GetEntityQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return getEntity.Handle(ctx, typed)
	}))

	listEntities := qryhandlers.NewListEntitiesHandler(authService, entityRepo, logger)
	register(queries.ListEntitiesQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.ListEntitiesQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return listEntities.Handle(ctx, typed)
	}))

	getEdge := qryhandlers.NewGetEdgeHandler(authService, edgeRepo, logger)
	register(queries.GetEdgeQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.GetEdgeQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return getEdge.Handle(ctx, typed)
	}))

	listEdges := qryhandlers.NewListEdgesHandler(authService, edgeRepo, logger)
	register(queries.ListEdgesQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.ListEdgesQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return listEdges.Handle(ctx, typed)
	}))

	getNeighbors := qryhandlers.NewGetNeighborsHandler(authService, graphRepo, policy, logger)
	register(queries.GetNeighborsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.GetNeighborsQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return getNeighbors.Handle(ctx, typed)
	}))

	findPath := qryhandlers.NewFindPathHandler(authService, graphRepo, policy, logger)
	register(queries.FindPathQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.FindPathQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return findPath.Handle(ctx, typed)
	}))

	traverseGraph := qryhandlers.NewTraverseGraphHandler(authService, graphRepo, policy, logger)
	register(queries.TraverseGraphQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(queries.TraverseGraphQuery)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		return traverseGraph.Handle(ctx, typed)
	}))

	if regErr != nil {
		return nil, regErr
	}

	return queryBus, nil
}

// uowTransactionManager adapts ports.UnitOfWork to the command bus
type uowTransactionManager struct {
	uow ports.UnitOfWork
}

func (m *uowTransactionManager) Begin(ctx context.Context) (bus.Transaction, error) {
	if err := m.uow.Begin(ctx); err != nil {
		return nil, err
	}
	return &uowTransaction{uow: m.uow, ctx: ctx}, nil
}

type uowTransaction struct {
	uow ports.UnitOfWork
	ctx context.Context
}

func (t *uowTransaction) Commit() error {
	return t.uow.Commit(t.ctx)
}

func (t *uowTransaction) Rollback() error {
	return t.uow.Rollback()
}

// commandMetricsAdapter exposes the metrics publisher behind the command
// bus interface
type commandMetricsAdapter struct {
	metrics *observability.Metrics
}

func (a *commandMetricsAdapter) StartTimer(metric, label string) bus.Timer {
	return a.metrics.StartTimer(metric, label)
}

func (a *commandMetricsAdapter) Increment(metric, label string) {
	a.metrics.Increment(metric, label)
}

// queryMetricsAdapter exposes the metrics publisher behind the query bus
// interface
type queryMetricsAdapter struct {
	metrics *observability.Metrics
}

func (a *queryMetricsAdapter) StartTimer(metric, label string) querybus.Timer {
	return a.metrics.StartTimer(metric, label)
}

func (a *queryMetricsAdapter) Increment(metric, label string) {
	a.metrics.Increment(metric, label)
}

// zapLoggerAdapter exposes zap behind the command bus logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, fieldsToZap(keysAndValues)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, fieldsToZap(keysAndValues)...)
}

func fieldsToZap(fields []interface{}) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}
