package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lattice/application/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// outboxLockResource is the lock key that keeps concurrent deployments from
// double-publishing the same outbox rows
const outboxLockResource = "outbox-processor"

// OutboxProcessor drains pending event rows to the event publisher. Exactly
// one instance works at a time: each batch runs under the distributed lock,
// so scale-out never causes duplicate deliveries within a lock window.
type OutboxProcessor struct {
	eventStore     *EventStore
	eventPublisher ports.EventPublisher
	locks          *DistributedLock
	logger         *zap.Logger

	ownerID            string
	batchSize          int32
	processingInterval time.Duration
	lockDuration       time.Duration

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	eventStore *EventStore,
	eventPublisher ports.EventPublisher,
	locks *DistributedLock,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		eventStore:         eventStore,
		eventPublisher:     eventPublisher,
		locks:              locks,
		logger:             logger,
		ownerID:            uuid.New().String(),
		batchSize:          50,
		processingInterval: 5 * time.Second,
		lockDuration:       30 * time.Second,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins the background processing of outbox events
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.processingInterval),
	)

	go op.processLoop(ctx)
}

// Stop gracefully stops the outbox processor
func (op *OutboxProcessor) Stop() {
	op.logger.Info("Stopping outbox processor")
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("Outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			op.logger.Info("Context cancelled, stopping outbox processor")
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if err := op.processBatch(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// processBatch publishes one batch of pending events under the processor
// lock. Losing the lock mid-batch stops the batch; unprocessed rows stay
// pending and the next holder picks them up.
func (op *OutboxProcessor) processBatch(ctx context.Context) error {
	lock, err := op.locks.AcquireLock(ctx, outboxLockResource, op.ownerID, op.lockDuration)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			op.logger.Debug("Outbox lock held elsewhere, skipping batch")
			return nil
		}
		return fmt.Errorf("failed to acquire outbox lock: %w", err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			op.logger.Warn("Failed to release outbox lock", zap.Error(err))
		}
	}()

	pendingEvents, err := op.eventStore.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(pendingEvents) == 0 {
		return nil
	}

	op.logger.Debug("Processing outbox batch", zap.Int("eventCount", len(pendingEvents)))

	successCount := 0
	failureCount := 0
	for _, eventRecord := range pendingEvents {
		if lock.TimeUntilExpiry() < op.processingInterval {
			if err := lock.Extend(ctx, op.lockDuration); err != nil {
				op.logger.Warn("Lost outbox lock mid-batch", zap.Error(err))
				break
			}
		}

		if err := op.processEvent(ctx, eventRecord); err != nil {
			op.logger.Error("Failed to process event",
				zap.String("eventID", eventRecord.EventID),
				zap.String("eventType", eventRecord.EventType),
				zap.Error(err),
			)
			failureCount++
		} else {
			successCount++
		}
	}

	op.logger.Debug("Completed outbox batch",
		zap.Int("successCount", successCount),
		zap.Int("failureCount", failureCount),
	)

	return nil
}

func (op *OutboxProcessor) processEvent(ctx context.Context, eventRecord *EventRecord) error {
	domainEvent, err := op.eventStore.recordToEvent(*eventRecord)
	if err != nil {
		// Malformed rows can never publish; burn an attempt so they park
		// as failed instead of looping forever
		return op.markEventFailed(ctx, eventRecord, fmt.Sprintf("failed to rebuild domain event: %v", err))
	}

	if err := op.eventPublisher.Publish(ctx, domainEvent); err != nil {
		return op.markEventFailed(ctx, eventRecord, fmt.Sprintf("publish failed: %v", err))
	}

	return op.markEventPublished(ctx, eventRecord)
}

func (op *OutboxProcessor) markEventPublished(ctx context.Context, eventRecord *EventRecord) error {
	if err := op.eventStore.MarkEventAsPublished(ctx, eventRecord.PK, eventRecord.SK); err != nil {
		op.logger.Error("Failed to mark event as published",
			zap.String("eventID", eventRecord.EventID),
			zap.Error(err),
		)
		return err
	}

	op.logger.Debug("Event published",
		zap.String("eventID", eventRecord.EventID),
		zap.String("eventType", eventRecord.EventType),
	)
	return nil
}

func (op *OutboxProcessor) markEventFailed(ctx context.Context, eventRecord *EventRecord, errorMsg string) error {
	newAttempts := eventRecord.PublishAttempts + 1

	if err := op.eventStore.MarkEventAsFailed(ctx, eventRecord.PK, eventRecord.SK, errorMsg, newAttempts); err != nil {
		op.logger.Error("Failed to mark event as failed",
			zap.String("eventID", eventRecord.EventID),
			zap.Error(err),
		)
		return err
	}

	if newAttempts >= maxPublishAttempts {
		op.logger.Warn("Event permanently failed",
			zap.String("eventID", eventRecord.EventID),
			zap.String("eventType", eventRecord.EventType),
			zap.Int("attempts", newAttempts),
			zap.String("error", errorMsg),
		)
	} else {
		op.logger.Debug("Event marked for retry",
			zap.String("eventID", eventRecord.EventID),
			zap.Int("attempts", newAttempts),
		)
	}

	return fmt.Errorf("event processing failed: %s", errorMsg)
}

// GetStats reports whether the outbox currently has a backlog
func (op *OutboxProcessor) GetStats(ctx context.Context) (map[string]interface{}, error) {
	pendingEvents, err := op.eventStore.GetPendingEvents(ctx, 1)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"hasPendingEvents":   len(pendingEvents) > 0,
		"batchSize":          op.batchSize,
		"processingInterval": op.processingInterval.String(),
		"maxAttempts":        maxPublishAttempts,
	}, nil
}
