package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/davidmarsh/reelhaven/internal/models"
	"github.com/davidmarsh/reelhaven/internal/services"
	pkghttp "github.com/davidmarsh/reelhaven/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, origin string) (*services.LoginOutcome, error)
	Register(ctx context.Context, email, password, firstName, lastName string) (*services.UserResponse, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword, origin string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	UserID          string `json:"user_id" validate:"required,uuid4"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin := pkghttp.ExtractClientIP(r, h.ipConfig)

	outcome, err := h.service.Login(r.Context(), req.Email, req.Password, origin)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrThrottled):
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
		case errors.Is(err, models.ErrAccountDisabled),
			errors.Is(err, models.ErrUnauthorized):
			// Generic message so account status is not revealed
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	status := http.StatusOK
	if !outcome.Allowed {
		status = http.StatusUnauthorized
		if outcome.Locked {
			status = http.StatusTooManyRequests
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(outcome)
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			pkghttp.WriteUnprocessable(w, "Password does not meet requirements", validationErr.Violations)
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrBreachCheckUnavailable):
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "breach_check_unavailable",
				"Password safety check is temporarily unavailable. Please try again later.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// ChangePassword handles a password change for an authenticated user
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin := pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.service.ChangePassword(r.Context(), req.UserID, req.CurrentPassword, req.NewPassword, origin); err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			pkghttp.WriteUnprocessable(w, "Password does not meet requirements", validationErr.Violations)
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrBreachCheckUnavailable):
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "breach_check_unavailable",
				"Password safety check is temporarily unavailable. Please try again later.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
