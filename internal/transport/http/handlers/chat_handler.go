package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/internal/transport/http/middleware"
)

// ChatHandler serves chat history and read receipts. Live delivery goes
// through the WebSocket endpoints.
type ChatHandler struct {
	chatService *service.ChatService
	log         *slog.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, log: logger}
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, ok := pathID(w, r, "user_id", "user")
	if !ok {
		return
	}
	p, ok := parsePage(w, r)
	if !ok {
		return
	}

	messages, err := h.chatService.History(r.Context(), userID, otherID, p.limit, p.offset)
	if err != nil {
		writeServiceError(w, h.log, "chat history", err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, ok := pathID(w, r, "id", "message")
	if !ok {
		return
	}

	msg, err := h.chatService.MarkRead(r.Context(), userID, messageID)
	if err != nil {
		writeServiceError(w, h.log, "mark read", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.chatService.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "unread count", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *ChatHandler) WorkspaceHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "workspace_id", "workspace")
	if !ok {
		return
	}
	p, ok := parsePage(w, r)
	if !ok {
		return
	}

	messages, err := h.chatService.WorkspaceHistory(r.Context(), userID, workspaceID, p.limit, p.offset)
	if err != nil {
		writeServiceError(w, h.log, "workspace chat history", err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) Recent(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatService.RecentChats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "recent chats", err)
		return
	}

	writeJSON(w, http.StatusOK, chats)
}
