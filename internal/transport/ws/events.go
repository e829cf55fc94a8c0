package ws

import (
	"encoding/json"
	"time"

	"github.com/vedran77/nexttask/internal/domain"
)

// Error codes sent back to the frame's sender.
const (
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodeReceiverNotFound = "RECEIVER_NOT_FOUND"
	CodeStoreFailed      = "STORE_FAILED"
)

// Close reasons for policy violations.
const (
	ReasonInvalidToken     = "Invalid token"
	ReasonUserNotFound     = "User not found"
	ReasonInactiveUser     = "Inactive user"
	ReasonWorkspaceMissing = "Workspace not found"
	ReasonAccessDenied     = "Access denied to workspace"
	ReasonShutdown         = "Server shutting down"
)

// --- Client → Server frames ---

type PersonalMessageIn struct {
	Content    string `json:"content"`
	ReceiverID int64  `json:"receiver_id"`
}

type WorkspaceMessageIn struct {
	Content string `json:"content"`
}

// --- Server → Client frames ---

type PersonalMessageOut struct {
	ID         int64              `json:"id"`
	Content    string             `json:"content"`
	SenderID   int64              `json:"sender_id"`
	ReceiverID int64              `json:"receiver_id"`
	IsRead     bool               `json:"is_read"`
	CreatedAt  time.Time          `json:"created_at"`
	Sender     domain.UserSummary `json:"sender"`
}

type WorkspaceMessageOut struct {
	ID          int64              `json:"id"`
	Content     string             `json:"content"`
	WorkspaceID int64              `json:"workspace_id"`
	SenderID    int64              `json:"sender_id"`
	CreatedAt   time.Time          `json:"created_at"`
	Sender      domain.UserSummary `json:"sender"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorFrame struct {
	Error ErrorPayload `json:"error"`
}

func newPersonalMessageOut(msg *domain.ChatMessage, sender *domain.User) PersonalMessageOut {
	return PersonalMessageOut{
		ID:         msg.ID,
		Content:    msg.Content,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		IsRead:     msg.IsRead,
		CreatedAt:  msg.CreatedAt,
		Sender:     sender.Summary(),
	}
}

func newWorkspaceMessageOut(msg *domain.WorkspaceChatMessage, sender *domain.User) WorkspaceMessageOut {
	return WorkspaceMessageOut{
		ID:          msg.ID,
		Content:     msg.Content,
		WorkspaceID: msg.WorkspaceID,
		SenderID:    msg.SenderID,
		CreatedAt:   msg.CreatedAt,
		Sender:      sender.Summary(),
	}
}

func encodeError(code, message string) []byte {
	// Two plain strings always marshal.
	data, _ := json.Marshal(errorFrame{Error: ErrorPayload{Code: code, Message: message}})
	return data
}
