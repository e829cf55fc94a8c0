package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

var (
	ErrInviteNotFound   = errors.New("invite not found")
	ErrInviteNotActive  = errors.New("invite is not active")
	ErrInviteExpired    = errors.New("invite has expired")
	ErrInvalidInviteTTL = errors.New("expires_hours must be between 1 and 168")
)

const (
	DefaultInviteHours = 24
	MaxInviteHours     = 7 * 24
)

type InviteService struct {
	inviteRepo    repository.InviteRepository
	workspaceRepo repository.WorkspaceRepository
	access        *AccessService
	baseURL       string
	now           func() time.Time
}

func NewInviteService(inviteRepo repository.InviteRepository, workspaceRepo repository.WorkspaceRepository, access *AccessService, baseURL string) *InviteService {
	return &InviteService{
		inviteRepo:    inviteRepo,
		workspaceRepo: workspaceRepo,
		access:        access,
		baseURL:       baseURL,
		now:           time.Now,
	}
}

type InviteLink struct {
	InviteURL   string    `json:"invite_url"`
	InviteToken string    `json:"invite_token"`
	WorkspaceID int64     `json:"workspace_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type InviteInfo struct {
	WorkspaceID   int64  `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	InviterName   string `json:"inviter_name"`
	Role          string `json:"role"`
}

// Create issues a shareable link invite. Only the owner may invite.
func (s *InviteService) Create(ctx context.Context, userID, workspaceID int64, expiresHours int) (*InviteLink, error) {
	if expiresHours < 1 || expiresHours > MaxInviteHours {
		return nil, ErrInvalidInviteTTL
	}
	if _, err := s.access.AuthorizeOwner(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	inv := &domain.Invite{
		Token:       uuid.NewString(),
		WorkspaceID: workspaceID,
		InviterID:   userID,
		Role:        domain.RoleReader,
		Status:      domain.InviteStatusPending,
		ExpiresAt:   s.now().UTC().Add(time.Duration(expiresHours) * time.Hour),
	}
	if err := s.inviteRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invite: %w", err)
	}

	return &InviteLink{
		InviteURL:   s.baseURL + "/" + inv.Token,
		InviteToken: inv.Token,
		WorkspaceID: workspaceID,
		ExpiresAt:   inv.ExpiresAt,
	}, nil
}

func (s *InviteService) List(ctx context.Context, userID, workspaceID int64) ([]domain.Invite, error) {
	if _, err := s.access.AuthorizeOwner(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	invites, err := s.inviteRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if invites == nil {
		invites = []domain.Invite{}
	}
	return invites, nil
}

// Validate describes a pending, unexpired invite without consuming it.
func (s *InviteService) Validate(ctx context.Context, token string) (*InviteInfo, error) {
	inv, err := s.activeInvite(ctx, token)
	if err != nil {
		return nil, err
	}
	return &InviteInfo{
		WorkspaceID:   inv.WorkspaceID,
		WorkspaceName: inv.WorkspaceName,
		InviterName:   inv.InviterName,
		Role:          inv.Role,
	}, nil
}

// Join consumes an invite and makes the caller a member of its workspace.
func (s *InviteService) Join(ctx context.Context, userID int64, token string) (int64, error) {
	inv, err := s.activeInvite(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInviteExpired) {
			if serr := s.inviteRepo.SetStatus(ctx, inv.ID, domain.InviteStatusExpired); serr != nil {
				return 0, fmt.Errorf("expiring invite: %w", serr)
			}
		}
		return 0, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, inv.WorkspaceID)
	if err != nil {
		return 0, err
	}
	if ws == nil {
		return 0, ErrWorkspaceNotFound
	}
	ok, err := s.access.IsParticipant(ctx, ws, userID)
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, ErrAlreadyMember
	}

	member := &domain.WorkspaceMember{WorkspaceID: inv.WorkspaceID, UserID: userID, Role: inv.Role}
	if err := s.workspaceRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, ErrAlreadyMember
		}
		return 0, fmt.Errorf("adding member: %w", err)
	}
	if err := s.inviteRepo.MarkAccepted(ctx, inv.ID, userID, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("accepting invite: %w", err)
	}
	return inv.WorkspaceID, nil
}

// Revoke expires an invite. Only the workspace owner may revoke.
func (s *InviteService) Revoke(ctx context.Context, userID int64, token string) error {
	inv, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv == nil {
		return ErrInviteNotFound
	}
	if _, err := s.access.AuthorizeOwner(ctx, userID, inv.WorkspaceID); err != nil {
		return err
	}
	return s.inviteRepo.SetStatus(ctx, inv.ID, domain.InviteStatusExpired)
}

// activeInvite returns the invite with ErrInviteExpired when its deadline passed,
// so callers may persist the expiry.
func (s *InviteService) activeInvite(ctx context.Context, token string) (*domain.Invite, error) {
	inv, err := s.inviteRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInviteNotFound
	}
	if inv.Status != domain.InviteStatusPending {
		return nil, ErrInviteNotActive
	}
	if !s.now().Before(inv.ExpiresAt) {
		return inv, ErrInviteExpired
	}
	return inv, nil
}
