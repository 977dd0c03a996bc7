package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/davidmarsh/reelhaven/internal/models"
	pkghttp "github.com/davidmarsh/reelhaven/pkg/http"
)

// MFAServiceInterface defines the interface for secondary-channel codes
type MFAServiceInterface interface {
	RequestCode(ctx context.Context, email, origin string) error
	VerifyCode(ctx context.Context, email, origin, submitted string) bool
}

// MFAHandler handles verification-code HTTP requests
type MFAHandler struct {
	service  MFAServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewMFAHandler creates a new MFAHandler
func NewMFAHandler(service MFAServiceInterface, ipConfig *pkghttp.IPConfig) *MFAHandler {
	return &MFAHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// RequestCodeRequest represents the request body for issuing a code
type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest represents the request body for verifying a code
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyCodeResponse reports whether the code was accepted
type VerifyCodeResponse struct {
	Verified bool `json:"verified"`
}

// RequestCode issues and delivers a fresh verification code
func (h *MFAHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin := pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.service.RequestCode(r.Context(), req.Email, origin); err != nil {
		if errors.Is(err, models.ErrThrottled) {
			pkghttp.WriteTooManyRequests(w, "Too many code requests. Please try again later.")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	// 202: the code is on its way, nothing to return
	w.WriteHeader(http.StatusAccepted)
}

// VerifyCode checks a submitted verification code
func (h *MFAHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin := pkghttp.ExtractClientIP(r, h.ipConfig)

	verified := h.service.VerifyCode(r.Context(), req.Email, origin, req.Code)

	status := http.StatusOK
	if !verified {
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(VerifyCodeResponse{Verified: verified})
}
