package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/internal/transport/http/middleware"
)

type InviteHandler struct {
	inviteService *service.InviteService
	log           *slog.Logger
}

func NewInviteHandler(inviteService *service.InviteService, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{inviteService: inviteService, log: logger}
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	hours, err := queryInt(r, "expires_hours", service.DefaultInviteHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EXPIRY", "expires_hours must be an integer")
		return
	}

	link, err := h.inviteService.Create(r.Context(), userID, workspaceID, hours)
	if err != nil {
		writeServiceError(w, h.log, "create invite", err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	invites, err := h.inviteService.List(r.Context(), userID, workspaceID)
	if err != nil {
		writeServiceError(w, h.log, "list invites", err)
		return
	}

	writeJSON(w, http.StatusOK, invites)
}

// Validate is public so the invite page can render before login.
func (h *InviteHandler) Validate(w http.ResponseWriter, r *http.Request) {
	info, err := h.inviteService.Validate(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, h.log, "validate invite", err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *InviteHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	workspaceID, err := h.inviteService.Join(r.Context(), userID, r.PathValue("token"))
	if err != nil {
		writeServiceError(w, h.log, "join invite", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"workspace_id": workspaceID})
}

func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.inviteService.Revoke(r.Context(), userID, r.PathValue("token")); err != nil {
		writeServiceError(w, h.log, "revoke invite", err)
		return
	}

	writeMessage(w, "Invite revoked successfully")
}
