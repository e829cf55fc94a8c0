package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/internal/transport/http/middleware"
	"github.com/vedran77/nexttask/pkg/validator"
)

type AuthHandler struct {
	authService *service.AuthService
	log         *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateRegister(input.Email, input.Password, input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.authService.Register(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.log, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateLogin(input.Email, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.authService.Login(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.log, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateProfile(input.Name, input.Position); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), input)
	if err != nil {
		writeServiceError(w, h.log, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var input service.ChangePasswordInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateChangePassword(input.CurrentPassword, input.NewPassword); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), input); err != nil {
		writeServiceError(w, h.log, "change password", err)
		return
	}

	writeMessage(w, "Password changed successfully")
}
