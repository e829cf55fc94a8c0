package domain

import (
	"time"
)

// ChatMessage is a personal (one-to-one) message.
type ChatMessage struct {
	ID         int64      `json:"id"`
	Content    string     `json:"content"`
	SenderID   int64      `json:"sender_id"`
	ReceiverID int64      `json:"receiver_id"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at"`
}

type WorkspaceChatMessage struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	WorkspaceID int64     `json:"workspace_id"`
	SenderID    int64     `json:"sender_id"`
	CreatedAt   time.Time `json:"created_at"`
	// Joined fields
	Sender *UserSummary `json:"sender,omitempty"`
}

const (
	RecentChatPersonal  = "personal"
	RecentChatWorkspace = "workspace"
)

type RecentChat struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	UserID         *int64     `json:"userId,omitempty"`
	WorkspaceID    *int64     `json:"workspaceId,omitempty"`
	Name           string     `json:"name"`
	Avatar         *string    `json:"avatar,omitempty"`
	LastActivityAt *time.Time `json:"lastActivityAt"`
}
