package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davidmarsh/reelhaven/internal/models"
	"github.com/davidmarsh/reelhaven/internal/services"
	pkghttp "github.com/davidmarsh/reelhaven/pkg/http"
)

// ContentHandler handles catalog, rating, and playlist HTTP requests
type ContentHandler struct {
	service *services.ContentService
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(service *services.ContentService) *ContentHandler {
	return &ContentHandler{service: service}
}

// Request DTOs

// ContentRequest represents the request body for creating or updating a catalog entry
type ContentRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Kind        string     `json:"kind" validate:"required,oneof=movie series documentary short"`
	Description string     `json:"description" validate:"max=4000"`
	ReleaseYear int        `json:"release_year" validate:"omitempty,gte=1888"`
	OwnerID     string     `json:"owner_id" validate:"required"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// RateRequest represents the request body for rating a catalog entry
type RateRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Score  int    `json:"score" validate:"required,gte=1,lte=10"`
	Review string `json:"review" validate:"max=4000"`
}

// PlaylistRequest represents the request body for creating a playlist
type PlaylistRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Name   string `json:"name" validate:"required,min=1,max=255"`
}

// PlaylistItemsRequest represents the request body for replacing playlist items
type PlaylistItemsRequest struct {
	UserID  string   `json:"user_id" validate:"required"`
	ItemIDs []string `json:"item_ids" validate:"required"`
}

func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.GetContent(r.Context(), id)
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	items, err := h.service.ListContent(r.Context(), limit, offset)
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	item, err := h.service.CreateContent(r.Context(), &models.Content{
		Title:       req.Title,
		Kind:        req.Kind,
		Description: req.Description,
		ReleaseYear: req.ReleaseYear,
		OwnerID:     req.OwnerID,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	item, err := h.service.UpdateContent(r.Context(), id, req.OwnerID, &models.Content{
		Title:       req.Title,
		Kind:        req.Kind,
		Description: req.Description,
		ReleaseYear: req.ReleaseYear,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	requesterID := r.Header.Get("X-User-ID")

	if err := h.service.DeleteContent(r.Context(), id, requesterID); err != nil {
		writeContentError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) RateContent(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	rating, err := h.service.RateContent(r.Context(), req.UserID, contentID, req.Score, req.Review)
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rating)
}

func (h *ContentHandler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "X-User-ID header is required")
		return
	}

	if err := h.service.DeleteRating(r.Context(), userID, contentID); err != nil {
		writeContentError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) ListRatings(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")
	limit, offset := parsePagination(r)

	ratings, err := h.service.ListRatings(r.Context(), contentID, limit, offset)
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ratings)
}

func (h *ContentHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	playlist, err := h.service.CreatePlaylist(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(playlist)
}

func (h *ContentHandler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user_id query parameter is required")
		return
	}

	playlists, err := h.service.ListPlaylists(r.Context(), userID)
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(playlists)
}

func (h *ContentHandler) SetPlaylistItems(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "id")

	var req PlaylistItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	playlist, err := h.service.SetPlaylistItems(r.Context(), playlistID, req.UserID, req.ItemIDs)
	if err != nil {
		writeContentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(playlist)
}

func (h *ContentHandler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "id")
	requesterID := r.Header.Get("X-User-ID")

	if err := h.service.DeletePlaylist(r.Context(), playlistID, requesterID); err != nil {
		writeContentError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeContentError maps service errors to HTTP responses
func writeContentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not own this resource")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
