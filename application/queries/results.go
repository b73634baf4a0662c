package queries

import (
	"time"

	"lattice/domain/core/aggregates"
	"lattice/domain/core/entities"
)

// EntityResult is the read-side representation of an entity
type EntityResult struct {
	ID            string                 `json:"id"`
	WorkspaceID   string                 `json:"workspace_id"`
	EntityType    string                 `json:"entity_type"`
	Name          string                 `json:"name"`
	Properties    map[string]interface{} `json:"properties"`
	SchemaVersion int                    `json:"schema_version"`
	CreatedBy     string                 `json:"created_by"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at"`
	Version       int                    `json:"version"`
}

// NewEntityResult maps an entity aggregate onto its read model
func NewEntityResult(entity *entities.Entity) EntityResult {
	return EntityResult{
		ID:            entity.ID().String(),
		WorkspaceID:   entity.WorkspaceID().String(),
		EntityType:    entity.EntityType(),
		Name:          entity.Name(),
		Properties:    entity.Properties().ToMap(),
		SchemaVersion: entity.SchemaVersion(),
		CreatedBy:     entity.CreatedBy(),
		CreatedAt:     entity.CreatedAt().Format(time.RFC3339),
		UpdatedAt:     entity.UpdatedAt().Format(time.RFC3339),
		Version:       entity.Version(),
	}
}

// EdgeResult is the read-side representation of an edge
type EdgeResult struct {
	ID          string                 `json:"id"`
	WorkspaceID string                 `json:"workspace_id"`
	EdgeType    string                 `json:"edge_type"`
	SourceID    string                 `json:"source_id"`
	TargetID    string                 `json:"target_id"`
	Properties  map[string]interface{} `json:"properties"`
	CreatedBy   string                 `json:"created_by"`
	CreatedAt   string                 `json:"created_at"`
}

// NewEdgeResult maps an edge aggregate onto its read model
func NewEdgeResult(edge *entities.Edge) EdgeResult {
	return EdgeResult{
		ID:          edge.ID().String(),
		WorkspaceID: edge.WorkspaceID().String(),
		EdgeType:    edge.EdgeType(),
		SourceID:    edge.SourceID().String(),
		TargetID:    edge.TargetID().String(),
		Properties:  edge.Properties().ToMap(),
		CreatedBy:   edge.CreatedBy(),
		CreatedAt:   edge.CreatedAt().Format(time.RFC3339),
	}
}

// MemberResult is the read-side representation of a workspace member
type MemberResult struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	AddedBy string `json:"added_by"`
	AddedAt string `json:"added_at"`
}

// NewMemberResult maps a workspace member onto its read model
func NewMemberResult(member entities.Member) MemberResult {
	return MemberResult{
		UserID:  member.UserID,
		Role:    string(member.Role),
		AddedBy: member.AddedBy,
		AddedAt: member.AddedAt.Format(time.RFC3339),
	}
}

// WorkspaceResult is the read-side representation of a workspace, seen
// from the calling user's perspective.
type WorkspaceResult struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	OwnerID             string `json:"owner_id"`
	Role                string `json:"role"`
	MemberCount         int    `json:"member_count"`
	ActiveSchemaVersion int    `json:"active_schema_version"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// NewWorkspaceResult maps a workspace onto its read model for one user
func NewWorkspaceResult(workspace *entities.Workspace, userID string) WorkspaceResult {
	role, _ := workspace.RoleOf(userID)
	return WorkspaceResult{
		ID:                  workspace.ID().String(),
		Name:                workspace.Name(),
		OwnerID:             workspace.OwnerID(),
		Role:                string(role),
		MemberCount:         workspace.MemberCount(),
		ActiveSchemaVersion: workspace.ActiveSchemaVersion(),
		CreatedAt:           workspace.CreatedAt().Format(time.RFC3339),
		UpdatedAt:           workspace.UpdatedAt().Format(time.RFC3339),
	}
}

// NeighborResult pairs an adjacent entity with the edge that connects it
type NeighborResult struct {
	Entity EntityResult `json:"entity"`
	Edge   EdgeResult   `json:"edge"`
}

// NewNeighborResult maps a graph neighbor onto its read model
func NewNeighborResult(neighbor aggregates.Neighbor) NeighborResult {
	return NeighborResult{
		Entity: NewEntityResult(neighbor.Entity),
		Edge:   NewEdgeResult(neighbor.Edge),
	}
}

// PathStepResult is one hop of a path. The first step has no edge.
type PathStepResult struct {
	Entity EntityResult `json:"entity"`
	Edge   *EdgeResult  `json:"edge,omitempty"`
}

// NewPathStepResult maps a path step onto its read model
func NewPathStepResult(step aggregates.PathStep) PathStepResult {
	result := PathStepResult{Entity: NewEntityResult(step.Entity)}
	if step.Edge != nil {
		edge := NewEdgeResult(step.Edge)
		result.Edge = &edge
	}
	return result
}

// TraversalNodeResult is an entity visited during traversal, annotated with
// its BFS depth from the start entity.
type TraversalNodeResult struct {
	Entity EntityResult `json:"entity"`
	Depth  int          `json:"depth"`
}

// NewTraversalNodeResult maps a traversal node onto its read model
func NewTraversalNodeResult(node aggregates.TraversalNode) TraversalNodeResult {
	return TraversalNodeResult{
		Entity: NewEntityResult(node.Entity),
		Depth:  node.Depth,
	}
}
