package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/internal/transport/http/middleware"
	"github.com/vedran77/nexttask/pkg/validator"
)

type TaskHandler struct {
	taskService *service.TaskService
	log         *slog.Logger
}

func NewTaskHandler(taskService *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, log: logger}
}

func (h *TaskHandler) ListByWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}

	resp, err := h.taskService.ListByWorkspace(r.Context(), userID, workspaceID)
	if err != nil {
		writeServiceError(w, h.log, "list tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	errs := validator.ValidateTask(&input.Title, &input.Status, &input.Priority, true)
	if input.WorkspaceID <= 0 {
		errs.Add("workspace_id", "Workspace is required")
	}
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	task, err := h.taskService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, "create task", err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	taskID, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), userID, taskID)
	if err != nil {
		writeServiceError(w, h.log, "get task", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	taskID, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	var input service.UpdateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateTask(input.Title, input.Status, input.Priority, false); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	task, err := h.taskService.Update(r.Context(), userID, taskID, input)
	if err != nil {
		writeServiceError(w, h.log, "update task", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	taskID, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), userID, taskID); err != nil {
		writeServiceError(w, h.log, "delete task", err)
		return
	}

	writeMessage(w, "Task deleted successfully")
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, ok := pathID(w, r, "id", "workspace")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "tid", "task")
	if !ok {
		return
	}

	task, err := h.taskService.Toggle(r.Context(), userID, workspaceID, taskID)
	if err != nil {
		writeServiceError(w, h.log, "toggle task", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) SetAssignees(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	taskID, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	var input service.AssigneesInput
	if !decodeJSON(w, r, &input) {
		return
	}

	task, err := h.taskService.SetAssignees(r.Context(), userID, taskID, input)
	if err != nil {
		writeServiceError(w, h.log, "set assignees", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}
