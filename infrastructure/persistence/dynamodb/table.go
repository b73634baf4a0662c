package dynamodb

import (
	"errors"
	"fmt"

	"lattice/domain/core/valueobjects"
	pkgerrors "lattice/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Single-table layout. Every workspace owns one partition keyed WS#<id>;
// the sort key discriminates the row kind.
//
//	WS#<ws> / METADATA              workspace aggregate
//	WS#<ws> / STATS                 entity and edge counters
//	WS#<ws> / MEMBER#<user>         membership index row (GSI1: USER#<user>)
//	WS#<ws> / SCHEMA#<%08d>         published schema version
//	WS#<ws> / ENTITY#<id>           entity (GSI2: WS#<ws>#TYPE#<type>)
//	WS#<ws> / EDGE#<id>             edge (GSI1: source adjacency, GSI2: target adjacency)
//	EVENTS#<aggregate> / EVENT#...  outbox event log
//	LOCK#<resource> / LOCK          distributed lock
//
// GSI1 resolves user memberships and outbound edge adjacency; GSI2 resolves
// inbound edge adjacency and per-type entity listings.

const (
	skMetadata     = "METADATA"
	skStats        = "STATS"
	skLock         = "LOCK"
	lockPrefix     = "LOCK#"
	memberPrefix   = "MEMBER#"
	schemaPrefix   = "SCHEMA#"
	entityPrefix   = "ENTITY#"
	edgePrefix     = "EDGE#"
	edgeOutPrefix  = "EDGEOUT#"
	edgeInPrefix   = "EDGEIN#"
	eventsPrefix   = "EVENTS#"
	userPrefix     = "USER#"
	eventTypPrefix = "EVENTTYPE#"
)

func workspacePK(id valueobjects.WorkspaceID) string {
	return fmt.Sprintf("WS#%s", id.String())
}

func memberSK(userID string) string {
	return memberPrefix + userID
}

func schemaSK(version int) string {
	// Zero-padded so lexicographic order matches numeric order
	return fmt.Sprintf("%s%08d", schemaPrefix, version)
}

func entitySK(id valueobjects.EntityID) string {
	return entityPrefix + id.String()
}

func edgeSK(id valueobjects.EdgeID) string {
	return edgePrefix + id.String()
}

func entityAdjacencyKey(workspaceID valueobjects.WorkspaceID, entityID valueobjects.EntityID) string {
	return fmt.Sprintf("WS#%s#ENT#%s", workspaceID.String(), entityID.String())
}

func entityTypeKey(workspaceID valueobjects.WorkspaceID, entityType string) string {
	return fmt.Sprintf("WS#%s#TYPE#%s", workspaceID.String(), entityType)
}

func userGSIKey(userID string) string {
	return userPrefix + userID
}

func eventsPK(aggregateID string) string {
	return eventsPrefix + aggregateID
}

func lockPK(resource string) string {
	return lockPrefix + resource
}

func stringAttr(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

func numberAttr(value int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", value)}
}

// isConditionalCheckFailed reports whether the error is a failed condition,
// either on a single write or buried in a cancelled transaction.
func isConditionalCheckFailed(err error) bool {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return true
	}

	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for _, reason := range cancelled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// concurrentModification wraps a failed conditional write as the retryable
// conflict the application layer expects.
func concurrentModification(err error) error {
	return pkgerrors.NewDomainError(pkgerrors.DomainConflictError, "CONCURRENT_MODIFICATION",
		"The resource was modified by another process").
		WithRetryable(true).
		WithCause(err)
}
