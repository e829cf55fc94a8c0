package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

var (
	ErrNotWorkspaceOwner = errors.New("only workspace owner can perform this action")
	ErrAlreadyMember     = errors.New("user is already a member")
	ErrNotMember         = errors.New("user is not a member of this workspace")
	ErrOwnerCannotLeave  = errors.New("workspace owner cannot leave or be removed")
	ErrInvalidRole       = errors.New("invalid role")
	ErrOwnerRoleFixed    = errors.New("the owner's role cannot be changed")
)

type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
	access        *AccessService
}

func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, userRepo repository.UserRepository, access *AccessService) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		access:        access,
	}
}

type CreateWorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateWorkspaceInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ChangeRoleInput struct {
	Role string `json:"role"`
}

type AddMemberInput struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (s *WorkspaceService) Create(ctx context.Context, userID int64, input CreateWorkspaceInput) (*domain.Workspace, error) {
	var desc *string
	if d := strings.TrimSpace(input.Description); d != "" {
		desc = &d
	}

	ws := &domain.Workspace{
		Name:        strings.TrimSpace(input.Name),
		Description: desc,
		OwnerID:     userID,
	}

	// The repository records the owner as a member in the same transaction.
	if err := s.workspaceRepo.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	return ws, nil
}

func (s *WorkspaceService) GetByID(ctx context.Context, userID, workspaceID int64) (*domain.Workspace, error) {
	return s.access.AuthorizeWorkspace(ctx, userID, workspaceID)
}

func (s *WorkspaceService) ListByUser(ctx context.Context, userID int64) ([]domain.Workspace, error) {
	workspaces, err := s.workspaceRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if workspaces == nil {
		workspaces = []domain.Workspace{}
	}
	return workspaces, nil
}

func (s *WorkspaceService) Update(ctx context.Context, userID, workspaceID int64, input UpdateWorkspaceInput) (*domain.Workspace, error) {
	ws, err := s.access.AuthorizeOwner(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		ws.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		ws.Description = input.Description
	}

	if err := s.workspaceRepo.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("updating workspace: %w", err)
	}

	return ws, nil
}

func (s *WorkspaceService) Delete(ctx context.Context, userID, workspaceID int64) error {
	if _, err := s.access.AuthorizeOwner(ctx, userID, workspaceID); err != nil {
		return err
	}

	return s.workspaceRepo.Delete(ctx, workspaceID)
}

func (s *WorkspaceService) AddMember(ctx context.Context, requesterID, workspaceID int64, input AddMemberInput) (*domain.WorkspaceMember, error) {
	ws, err := s.access.AuthorizeOwner(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleReader
	}
	if role != domain.RoleEditor && role != domain.RoleReader {
		return nil, ErrInvalidRole
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	ok, err := s.access.IsParticipant(ctx, ws, user.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrAlreadyMember
	}

	member := &domain.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      user.ID,
		Role:        role,
		Email:       user.Email,
		Name:        user.Name,
		Avatar:      user.Avatar,
	}
	if err := s.workspaceRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}
	return member, nil
}

func (s *WorkspaceService) RemoveMember(ctx context.Context, requesterID, workspaceID, userID int64) error {
	ws, err := s.access.AuthorizeOwner(ctx, requesterID, workspaceID)
	if err != nil {
		return err
	}
	if userID == ws.OwnerID {
		return ErrOwnerCannotLeave
	}

	return s.removeMember(ctx, workspaceID, userID)
}

// ChangeRole sets a member's role. Only the owner may change roles, and the
// owner's own role is fixed.
func (s *WorkspaceService) ChangeRole(ctx context.Context, requesterID, workspaceID, userID int64, input ChangeRoleInput) (*domain.WorkspaceMember, error) {
	ws, err := s.access.AuthorizeOwner(ctx, requesterID, workspaceID)
	if err != nil {
		return nil, err
	}
	if userID == ws.OwnerID {
		return nil, ErrOwnerRoleFixed
	}
	if input.Role != domain.RoleEditor && input.Role != domain.RoleReader {
		return nil, ErrInvalidRole
	}

	member, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotMember
	}

	if err := s.workspaceRepo.UpdateMemberRole(ctx, workspaceID, userID, input.Role); err != nil {
		return nil, fmt.Errorf("updating member role: %w", err)
	}
	member.Role = input.Role
	return member, nil
}

// Leave removes the caller's own membership.
func (s *WorkspaceService) Leave(ctx context.Context, userID, workspaceID int64) error {
	ws, err := s.access.AuthorizeWorkspace(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if userID == ws.OwnerID {
		return ErrOwnerCannotLeave
	}

	return s.removeMember(ctx, workspaceID, userID)
}

func (s *WorkspaceService) ListMembers(ctx context.Context, userID, workspaceID int64) ([]domain.WorkspaceMember, error) {
	if _, err := s.access.AuthorizeWorkspace(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	members, err := s.workspaceRepo.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []domain.WorkspaceMember{}
	}
	return members, nil
}

func (s *WorkspaceService) removeMember(ctx context.Context, workspaceID, userID int64) error {
	member, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotMember
	}
	return s.workspaceRepo.RemoveMember(ctx, workspaceID, userID)
}
