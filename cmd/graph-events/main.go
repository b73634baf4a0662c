// Package main consumes domain events from EventBridge. It maintains the
// per-workspace entity and edge counters and sweeps a deleted workspace's
// event history, keeping the write path free of read-model bookkeeping.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"lattice/application/ports"
	"lattice/domain/core/valueobjects"
	"lattice/domain/events"
	"lattice/infrastructure/config"
	"lattice/infrastructure/di"

	"go.uber.org/zap"
)

var (
	workspaces ports.WorkspaceRepository
	eventStore ports.EventStore
	logger     *zap.Logger
)

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.NewContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	workspaces = container.WorkspaceRepo
	eventStore = container.EventStore
	logger = container.Logger
}

// eventDetail is the slice of the published payload this consumer reads.
// Counter deltas derive from the event type, not the payload.
type eventDetail struct {
	AggregateID  string `json:"aggregate_id"`
	WorkspaceID  string `json:"workspace_id"`
	RemovedEdges int    `json:"removed_edges"`
}

func handler(ctx context.Context, event awsevents.CloudWatchEvent) error {
	var detail eventDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("failed to parse %s event detail: %w", event.DetailType, err)
	}
	if detail.WorkspaceID == "" {
		return fmt.Errorf("%s event carries no workspace ID", event.DetailType)
	}

	logger.Info("Processing event",
		zap.String("detailType", event.DetailType),
		zap.String("workspaceID", detail.WorkspaceID),
		zap.String("aggregateID", detail.AggregateID),
	)

	switch event.DetailType {
	case events.TypeEntityCreated:
		return adjustCounts(ctx, detail.WorkspaceID, 1, 0)
	case events.TypeEntityDeleted:
		// Entity deletion removes its edges in the same transaction
		return adjustCounts(ctx, detail.WorkspaceID, -1, -int64(detail.RemovedEdges))
	case events.TypeEdgeCreated:
		return adjustCounts(ctx, detail.WorkspaceID, 0, 1)
	case events.TypeEdgeDeleted:
		return adjustCounts(ctx, detail.WorkspaceID, 0, -1)
	case events.TypeWorkspaceDeleted:
		return purgeWorkspaceEvents(ctx, detail.WorkspaceID)
	default:
		// Membership and schema events need no read-model maintenance
		return nil
	}
}

func adjustCounts(ctx context.Context, workspaceID string, entityDelta, edgeDelta int64) error {
	id, err := valueobjects.NewWorkspaceIDFromString(workspaceID)
	if err != nil {
		return fmt.Errorf("invalid workspace ID %q: %w", workspaceID, err)
	}

	if err := workspaces.AdjustCounts(ctx, id, entityDelta, edgeDelta); err != nil {
		logger.Error("Failed to adjust workspace counts",
			zap.String("workspaceID", workspaceID),
			zap.Int64("entityDelta", entityDelta),
			zap.Int64("edgeDelta", edgeDelta),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// purgeWorkspaceEvents drops the deleted workspace's event feed. The
// workspace ID keys every event raised inside the tenant, so one sweep
// removes the full history.
func purgeWorkspaceEvents(ctx context.Context, workspaceID string) error {
	if err := eventStore.DeleteEvents(ctx, workspaceID); err != nil {
		logger.Error("Failed to purge workspace events",
			zap.String("workspaceID", workspaceID),
			zap.Error(err),
		)
		return err
	}

	logger.Info("Workspace event history purged", zap.String("workspaceID", workspaceID))
	return nil
}

func main() {
	lambda.Start(handler)
}
