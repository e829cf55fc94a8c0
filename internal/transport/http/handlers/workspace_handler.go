package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/internal/transport/http/middleware"
	"github.com/vedran77/nexttask/pkg/validator"
)

type WorkspaceHandler struct {
	workspaceService *service.WorkspaceService
	log              *slog.Logger
}

func NewWorkspaceHandler(workspaceService *service.WorkspaceService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService, log: logger}
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateWorkspaceInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateWorkspace(&input.Name, true); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ws, err := h.workspaceService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, "create workspace", err)
		return
	}

	writeJSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	workspaces, err := h.workspaceService.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list workspaces", err)
		return
	}

	if workspaces == nil {
		workspaces = []domain.Workspace{}
	}

	writeJSON(w, http.StatusOK, workspaces)
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	ws, err := h.workspaceService.GetByID(r.Context(), userID, workspaceID)
	if err != nil {
		writeServiceError(w, h.log, "get workspace", err)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	var input service.UpdateWorkspaceInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateWorkspace(input.Name, false); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ws, err := h.workspaceService.Update(r.Context(), userID, workspaceID, input)
	if err != nil {
		writeServiceError(w, h.log, "update workspace", err)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	if err := h.workspaceService.Delete(r.Context(), userID, workspaceID); err != nil {
		writeServiceError(w, h.log, "delete workspace", err)
		return
	}

	writeMessage(w, "Workspace deleted successfully")
}

func (h *WorkspaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	var input service.AddMemberInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	member, err := h.workspaceService.AddMember(r.Context(), requesterID, workspaceID, input)
	if err != nil {
		writeServiceError(w, h.log, "add member", err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "uid", "user")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(r.Context(), requesterID, workspaceID, userID); err != nil {
		writeServiceError(w, h.log, "remove member", err)
		return
	}

	writeMessage(w, "User removed from workspace successfully")
}

func (h *WorkspaceHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "uid", "user")
	if !ok {
		return
	}

	var input service.ChangeRoleInput
	if !decodeJSON(w, r, &input) {
		return
	}

	member, err := h.workspaceService.ChangeRole(r.Context(), requesterID, workspaceID, userID, input)
	if err != nil {
		writeServiceError(w, h.log, "change role", err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *WorkspaceHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	if err := h.workspaceService.Leave(r.Context(), userID, workspaceID); err != nil {
		writeServiceError(w, h.log, "leave workspace", err)
		return
	}

	writeMessage(w, "Left workspace successfully")
}

func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	members, err := h.workspaceService.ListMembers(r.Context(), userID, workspaceID)
	if err != nil {
		writeServiceError(w, h.log, "list members", err)
		return
	}

	if members == nil {
		members = []domain.WorkspaceMember{}
	}

	writeJSON(w, http.StatusOK, members)
}
