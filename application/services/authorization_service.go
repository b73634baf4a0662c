package services

import (
	"context"

	"lattice/application/ports"
	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/valueobjects"
	"go.uber.org/zap"
)

// AuthorizationService resolves a user's role inside a workspace and checks
// it against the action being attempted. Every command and query handler
// goes through here before touching workspace data.
type AuthorizationService struct {
	workspaceRepo ports.WorkspaceRepository
	logger        *zap.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(
	workspaceRepo ports.WorkspaceRepository,
	logger *zap.Logger,
) *AuthorizationService {
	return &AuthorizationService{
		workspaceRepo: workspaceRepo,
		logger:        logger,
	}
}

// RequireAction loads the workspace and verifies the user may perform the
// action in it. The loaded workspace is returned so callers don't fetch it
// twice.
func (s *AuthorizationService) RequireAction(
	ctx context.Context,
	workspaceID valueobjects.WorkspaceID,
	userID string,
	action policies.Action,
) (*entities.Workspace, error) {
	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if err := workspace.Authorize(userID, action); err != nil {
		role, _ := workspace.RoleOf(userID)
		s.logger.Warn("Authorization denied",
			zap.String("workspaceID", workspaceID.String()),
			zap.String("userID", userID),
			zap.String("role", string(role)),
			zap.String("action", string(action)),
		)
		return nil, err
	}

	return workspace, nil
}
