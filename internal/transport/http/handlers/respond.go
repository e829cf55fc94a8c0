package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/pkg/validator"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

// pathID parses a positive integer path value, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, returning fallback when absent.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

type page struct {
	limit  int
	offset int
}

// parsePage reads limit and offset. Range clamping is left to the services.
func parsePage(w http.ResponseWriter, r *http.Request) (page, bool) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be an integer")
		return page{}, false
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "offset must be a non-negative integer")
		return page{}, false
	}
	return page{limit: limit, offset: offset}, true
}

// writeServiceError maps service sentinels to status codes. Anything
// unrecognised is logged and reported as INTERNAL.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered")
	case errors.Is(err, service.ErrInvalidCreds):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrInactiveUser):
		writeError(w, http.StatusForbidden, "INACTIVE_USER", "Inactive user")
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "INVALID_PASSWORD", "Current password is incorrect")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")

	case errors.Is(err, service.ErrWorkspaceNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Workspace not found")
	case errors.Is(err, service.ErrWorkspaceAccessDenied):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Access denied to workspace")
	case errors.Is(err, service.ErrNotWorkspaceOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the workspace owner can perform this action")
	case errors.Is(err, service.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "ALREADY_MEMBER", "User is already a member of this workspace")
	case errors.Is(err, service.ErrNotMember):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found in workspace")
	case errors.Is(err, service.ErrOwnerCannotLeave):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "The workspace owner cannot leave or be removed")
	case errors.Is(err, service.ErrOwnerRoleFixed):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Cannot change owner role")
	case errors.Is(err, service.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Role must be editor or reader")

	case errors.Is(err, service.ErrInviteNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Invite not found")
	case errors.Is(err, service.ErrInviteNotActive):
		writeError(w, http.StatusBadRequest, "INVITE_NOT_ACTIVE", "Invite is not active")
	case errors.Is(err, service.ErrInviteExpired):
		writeError(w, http.StatusBadRequest, "INVITE_EXPIRED", "Invite has expired")
	case errors.Is(err, service.ErrInvalidInviteTTL):
		writeError(w, http.StatusBadRequest, "INVALID_EXPIRY", "expires_hours must be between 1 and 168")

	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Task not found")
	case errors.Is(err, service.ErrTaskWrongWorkspace):
		writeError(w, http.StatusBadRequest, "WRONG_WORKSPACE", "Task does not belong to this workspace")
	case errors.Is(err, service.ErrNotTaskOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only workspace owner or task creator can delete task")

	case errors.Is(err, service.ErrCommentNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Comment not found")
	case errors.Is(err, service.ErrNotCommentOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the author can perform this action")

	case errors.Is(err, service.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
	case errors.Is(err, service.ErrNotMessageReceiver):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only receiver can mark message as read")
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrInvalidReceiver):
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())

	default:
		log.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
