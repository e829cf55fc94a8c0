package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

var (
	ErrEmptyMessage       = errors.New("message content is required")
	ErrInvalidReceiver    = errors.New("receiver_id must be a positive integer")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotMessageReceiver = errors.New("only the receiver can mark a message as read")
)

const (
	recentPersonalScan = 10
	recentChatsLimit   = 20
)

type ChatService struct {
	chatRepo      repository.ChatRepository
	userRepo      repository.UserRepository
	workspaceRepo repository.WorkspaceRepository
	access        *AccessService
	now           func() time.Time
}

func NewChatService(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	workspaceRepo repository.WorkspaceRepository,
	access *AccessService,
) *ChatService {
	return &ChatService{
		chatRepo:      chatRepo,
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
		access:        access,
		now:           time.Now,
	}
}

// SendPersonalMessage persists a one-to-one message. The receiver must exist.
func (s *ChatService) SendPersonalMessage(ctx context.Context, senderID, receiverID int64, content string) (*domain.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if receiverID <= 0 {
		return nil, ErrInvalidReceiver
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("loading receiver: %w", err)
	}
	if receiver == nil {
		return nil, ErrUserNotFound
	}

	msg := &domain.ChatMessage{
		Content:    content,
		SenderID:   senderID,
		ReceiverID: receiverID,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return msg, nil
}

// SendWorkspaceMessage persists a group message. Access is checked on every
// call so a revoked member can no longer post.
func (s *ChatService) SendWorkspaceMessage(ctx context.Context, senderID, workspaceID int64, content string) (*domain.WorkspaceChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.access.AuthorizeWorkspace(ctx, senderID, workspaceID); err != nil {
		return nil, err
	}

	msg := &domain.WorkspaceChatMessage{
		Content:     content,
		WorkspaceID: workspaceID,
		SenderID:    senderID,
	}
	if err := s.chatRepo.CreateWorkspaceMessage(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("creating workspace message: %w", err)
	}
	return msg, nil
}

// History returns the conversation between two users, newest first.
func (s *ChatService) History(ctx context.Context, userID, otherUserID int64, limit, offset int) ([]domain.ChatMessage, error) {
	limit, offset = clampPage(limit, offset)
	messages, err := s.chatRepo.ListConversation(ctx, userID, otherUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return messages, nil
}

func (s *ChatService) MarkRead(ctx context.Context, userID, messageID int64) (*domain.ChatMessage, error) {
	msg, err := s.chatRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.ReceiverID != userID {
		return nil, ErrNotMessageReceiver
	}
	if msg.IsRead {
		return msg, nil
	}

	at := s.now().UTC()
	if err := s.chatRepo.MarkRead(ctx, messageID, at); err != nil {
		return nil, fmt.Errorf("marking message read: %w", err)
	}
	msg.IsRead = true
	msg.ReadAt = &at
	return msg, nil
}

func (s *ChatService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.chatRepo.CountUnread(ctx, userID)
}

func (s *ChatService) WorkspaceHistory(ctx context.Context, userID, workspaceID int64, limit, offset int) ([]domain.WorkspaceChatMessage, error) {
	if _, err := s.access.AuthorizeWorkspace(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	limit, offset = clampPage(limit, offset)
	messages, err := s.chatRepo.ListWorkspaceMessages(ctx, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.WorkspaceChatMessage{}
	}
	return messages, nil
}

// RecentChats merges recent personal partners with the user's workspaces,
// most recent activity first. Workspaces without messages sort last.
func (s *ChatService) RecentChats(ctx context.Context, userID int64) ([]domain.RecentChat, error) {
	messages, err := s.chatRepo.ListRecentByUser(ctx, userID, recentPersonalScan)
	if err != nil {
		return nil, fmt.Errorf("listing recent messages: %w", err)
	}

	var chats []domain.RecentChat
	seen := make(map[int64]struct{})
	for _, m := range messages {
		partnerID := m.SenderID
		if partnerID == userID {
			partnerID = m.ReceiverID
		}
		// Messages arrive newest first, so the first hit per partner wins.
		if _, ok := seen[partnerID]; ok {
			continue
		}
		seen[partnerID] = struct{}{}

		partner, err := s.userRepo.GetByID(ctx, partnerID)
		if err != nil {
			return nil, fmt.Errorf("loading chat partner: %w", err)
		}
		if partner == nil {
			continue
		}

		id := partner.ID
		at := m.CreatedAt
		chats = append(chats, domain.RecentChat{
			ID:             "personal_" + strconv.FormatInt(id, 10),
			Type:           domain.RecentChatPersonal,
			UserID:         &id,
			Name:           partner.DisplayName(),
			Avatar:         partner.Avatar,
			LastActivityAt: &at,
		})
	}

	workspaces, err := s.workspaceRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	for _, ws := range workspaces {
		last, err := s.chatRepo.LastWorkspaceActivity(ctx, ws.ID)
		if err != nil {
			return nil, fmt.Errorf("loading workspace activity: %w", err)
		}
		id := ws.ID
		chats = append(chats, domain.RecentChat{
			ID:             "workspace_" + strconv.FormatInt(id, 10),
			Type:           domain.RecentChatWorkspace,
			WorkspaceID:    &id,
			Name:           ws.Name,
			LastActivityAt: last,
		})
	}

	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i].LastActivityAt, chats[j].LastActivityAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	if len(chats) > recentChatsLimit {
		chats = chats[:recentChatsLimit]
	}
	if chats == nil {
		chats = []domain.RecentChat{}
	}
	return chats, nil
}
