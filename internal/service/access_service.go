package service

import (
	"context"
	"errors"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

var (
	ErrWorkspaceNotFound     = errors.New("workspace not found")
	ErrWorkspaceAccessDenied = errors.New("access denied to workspace")
)

// AccessService answers whether a user may participate in a workspace.
// A participant is the workspace owner or any member.
type AccessService struct {
	workspaceRepo repository.WorkspaceRepository
}

func NewAccessService(workspaceRepo repository.WorkspaceRepository) *AccessService {
	return &AccessService{workspaceRepo: workspaceRepo}
}

// AuthorizeWorkspace returns the workspace when userID may participate in it,
// ErrWorkspaceNotFound when it does not exist, and ErrWorkspaceAccessDenied otherwise.
func (s *AccessService) AuthorizeWorkspace(ctx context.Context, userID, workspaceID int64) (*domain.Workspace, error) {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}
	if ws.OwnerID == userID {
		return ws, nil
	}

	member, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrWorkspaceAccessDenied
	}
	return ws, nil
}

// AuthorizeOwner is AuthorizeWorkspace restricted to the workspace owner.
func (s *AccessService) AuthorizeOwner(ctx context.Context, userID, workspaceID int64) (*domain.Workspace, error) {
	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}
	if ws.OwnerID != userID {
		return nil, ErrNotWorkspaceOwner
	}
	return ws, nil
}

// IsParticipant reports whether userID is the owner or a member of ws.
func (s *AccessService) IsParticipant(ctx context.Context, ws *domain.Workspace, userID int64) (bool, error) {
	if ws.OwnerID == userID {
		return true, nil
	}
	member, err := s.workspaceRepo.GetMember(ctx, ws.ID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}
