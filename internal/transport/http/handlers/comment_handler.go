package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/internal/transport/http/middleware"
	"github.com/vedran77/nexttask/pkg/validator"
)

type CommentHandler struct {
	commentService *service.CommentService
	log            *slog.Logger
}

func NewCommentHandler(commentService *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{commentService: commentService, log: logger}
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	taskID, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	q, ok := parsePage(w, r)
	if !ok {
		return
	}

	var query service.ListCommentsQuery
	query.Limit, query.Offset = q.limit, q.offset
	switch r.URL.Query().Get("order") {
	case "", "desc":
	case "asc":
		query.Ascending = true
	default:
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "order must be asc or desc")
		return
	}

	comments, err := h.commentService.List(r.Context(), userID, taskID, query)
	if err != nil {
		writeServiceError(w, h.log, "list comments", err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	taskID, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	n, err := h.commentService.Count(r.Context(), userID, taskID)
	if err != nil {
		writeServiceError(w, h.log, "count comments", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	taskID, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	var input service.CommentInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateComment(input.Content); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	comment, err := h.commentService.Create(r.Context(), userID, taskID, input)
	if err != nil {
		writeServiceError(w, h.log, "create comment", err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	commentID, ok := pathID(w, r, "id", "comment")
	if !ok {
		return
	}

	var input service.CommentInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateComment(input.Content); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	comment, err := h.commentService.Update(r.Context(), userID, commentID, input)
	if err != nil {
		writeServiceError(w, h.log, "update comment", err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	commentID, ok := pathID(w, r, "id", "comment")
	if !ok {
		return
	}

	if err := h.commentService.Delete(r.Context(), userID, commentID); err != nil {
		writeServiceError(w, h.log, "delete comment", err)
		return
	}

	writeMessage(w, "Comment deleted successfully")
}
