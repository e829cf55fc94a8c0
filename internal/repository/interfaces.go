package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vedran77/nexttask/internal/domain"
)

// Getters return (nil, nil) when the row does not exist.

var (
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflicting row already exists")
	// ErrMissingReference is returned when a write references a row that does not exist.
	ErrMissingReference = errors.New("referenced row does not exist")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *domain.Workspace) error
	GetByID(ctx context.Context, id int64) (*domain.Workspace, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Workspace, error)
	Update(ctx context.Context, workspace *domain.Workspace) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, member *domain.WorkspaceMember) error
	RemoveMember(ctx context.Context, workspaceID, userID int64) error
	UpdateMemberRole(ctx context.Context, workspaceID, userID int64, role string) error
	GetMember(ctx context.Context, workspaceID, userID int64) (*domain.WorkspaceMember, error)
	ListMembers(ctx context.Context, workspaceID int64) ([]domain.WorkspaceMember, error)
}

type InviteRepository interface {
	Create(ctx context.Context, invite *domain.Invite) error
	GetByToken(ctx context.Context, token string) (*domain.Invite, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Invite, error)
	MarkAccepted(ctx context.Context, id, userID int64, at time.Time) error
	SetStatus(ctx context.Context, id int64, status string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id int64) error
	SetAssignees(ctx context.Context, taskID int64, userIDs []int64) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	ListByTask(ctx context.Context, taskID int64, limit, offset int, ascending bool) ([]domain.Comment, error)
	CountByTask(ctx context.Context, taskID int64) (int, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error
}

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *domain.ChatMessage) error
	GetMessageByID(ctx context.Context, id int64) (*domain.ChatMessage, error)
	ListConversation(ctx context.Context, userID, otherUserID int64, limit, offset int) ([]domain.ChatMessage, error)
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]domain.ChatMessage, error)
	MarkRead(ctx context.Context, id int64, at time.Time) error
	CountUnread(ctx context.Context, userID int64) (int, error)

	CreateWorkspaceMessage(ctx context.Context, msg *domain.WorkspaceChatMessage) error
	ListWorkspaceMessages(ctx context.Context, workspaceID int64, limit, offset int) ([]domain.WorkspaceChatMessage, error)
	LastWorkspaceActivity(ctx context.Context, workspaceID int64) (*time.Time, error)
}
