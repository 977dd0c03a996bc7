package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/davidmarsh/reelhaven/internal/models"
)

// ContentRepository defines the catalog store collaborator
type ContentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Content, error)
	List(ctx context.Context, limit, offset int) ([]*models.Content, error)
	Create(ctx context.Context, content *models.Content) (*models.Content, error)
	Update(ctx context.Context, id string, content *models.Content) (*models.Content, error)
	Delete(ctx context.Context, id string) error
}

// RatingRepository defines the rating store collaborator
type RatingRepository interface {
	Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error)
	ListByContent(ctx context.Context, contentID string, limit, offset int) ([]*models.Rating, error)
	Delete(ctx context.Context, userID, contentID string) error
}

// PlaylistRepository defines the playlist store collaborator
type PlaylistRepository interface {
	GetByID(ctx context.Context, id string) (*models.Playlist, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Playlist, error)
	Create(ctx context.Context, playlist *models.Playlist) (*models.Playlist, error)
	UpdateItems(ctx context.Context, id string, itemIDs []string) (*models.Playlist, error)
	Delete(ctx context.Context, id string) error
}

var validContentKinds = map[string]bool{
	"movie":       true,
	"series":      true,
	"documentary": true,
	"short":       true,
}

// ContentService handles catalog entries, ratings and playlists
type ContentService struct {
	content   ContentRepository
	ratings   RatingRepository
	playlists PlaylistRepository
	logger    *slog.Logger
}

// NewContentService creates a new ContentService
func NewContentService(
	content ContentRepository,
	ratings RatingRepository,
	playlists PlaylistRepository,
	logger *slog.Logger,
) *ContentService {
	return &ContentService{
		content:   content,
		ratings:   ratings,
		playlists: playlists,
		logger:    logger,
	}
}

// GetContent returns a catalog entry. Expired entries behave as if they do
// not exist.
func (s *ContentService) GetContent(ctx context.Context, id string) (*models.Content, error) {
	item, err := s.content.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get content", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if item.ExpiresAt != nil && !item.ExpiresAt.After(time.Now()) {
		return nil, models.ErrNotFound
	}

	return item, nil
}

func (s *ContentService) ListContent(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.content.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list content", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	visible := make([]*models.Content, 0, len(items))
	for _, item := range items {
		if item.ExpiresAt != nil && !item.ExpiresAt.After(now) {
			continue
		}
		visible = append(visible, item)
	}

	return visible, nil
}

func (s *ContentService) CreateContent(ctx context.Context, content *models.Content) (*models.Content, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	created, err := s.content.Create(ctx, content)
	if err != nil {
		s.logger.Error("failed to create content", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("content created",
		slog.String("content_id", created.ID),
		slog.String("kind", created.Kind))
	return created, nil
}

func (s *ContentService) UpdateContent(ctx context.Context, id, requesterID string, content *models.Content) (*models.Content, error) {
	existing, err := s.content.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get content", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if existing.OwnerID != requesterID {
		return nil, models.ErrForbidden
	}

	if err := validateContent(content); err != nil {
		return nil, err
	}

	updated, err := s.content.Update(ctx, id, content)
	if err != nil {
		s.logger.Error("failed to update content", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

func (s *ContentService) DeleteContent(ctx context.Context, id, requesterID string) error {
	existing, err := s.content.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get content", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if existing.OwnerID != requesterID {
		return models.ErrForbidden
	}

	if err := s.content.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete content", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("content deleted", slog.String("content_id", id))
	return nil
}

// RateContent records or replaces the user's score for a catalog entry
func (s *ContentService) RateContent(ctx context.Context, userID, contentID string, score int, review string) (*models.Rating, error) {
	if score < 1 || score > 10 {
		return nil, fmt.Errorf("%w: score must be between 1 and 10", models.ErrBadRequest)
	}

	if _, err := s.GetContent(ctx, contentID); err != nil {
		return nil, err
	}

	rating, err := s.ratings.Upsert(ctx, &models.Rating{
		UserID:    userID,
		ContentID: contentID,
		Score:     score,
		Review:    review,
	})
	if err != nil {
		s.logger.Error("failed to upsert rating", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return rating, nil
}

func (s *ContentService) ListRatings(ctx context.Context, contentID string, limit, offset int) ([]*models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	ratings, err := s.ratings.ListByContent(ctx, contentID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list ratings", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return ratings, nil
}

func (s *ContentService) DeleteRating(ctx context.Context, userID, contentID string) error {
	if err := s.ratings.Delete(ctx, userID, contentID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete rating", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *ContentService) CreatePlaylist(ctx context.Context, userID, name string) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", models.ErrBadRequest)
	}

	playlist, err := s.playlists.Create(ctx, &models.Playlist{
		UserID: userID,
		Name:   name,
	})
	if err != nil {
		s.logger.Error("failed to create playlist", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return playlist, nil
}

func (s *ContentService) ListPlaylists(ctx context.Context, userID string) ([]*models.Playlist, error) {
	playlists, err := s.playlists.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list playlists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return playlists, nil
}

// SetPlaylistItems replaces a playlist's contents. Every referenced entry
// must exist and be unexpired.
func (s *ContentService) SetPlaylistItems(ctx context.Context, playlistID, requesterID string, itemIDs []string) (*models.Playlist, error) {
	playlist, err := s.playlists.GetByID(ctx, playlistID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get playlist", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if playlist.UserID != requesterID {
		return nil, models.ErrForbidden
	}

	for _, itemID := range itemIDs {
		if _, err := s.GetContent(ctx, itemID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown content id %s", models.ErrBadRequest, itemID)
			}
			return nil, err
		}
	}

	updated, err := s.playlists.UpdateItems(ctx, playlistID, itemIDs)
	if err != nil {
		s.logger.Error("failed to update playlist items", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

func (s *ContentService) DeletePlaylist(ctx context.Context, playlistID, requesterID string) error {
	playlist, err := s.playlists.GetByID(ctx, playlistID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get playlist", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if playlist.UserID != requesterID {
		return models.ErrForbidden
	}

	if err := s.playlists.Delete(ctx, playlistID); err != nil {
		s.logger.Error("failed to delete playlist", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func validateContent(content *models.Content) error {
	if content.Title == "" {
		return fmt.Errorf("%w: title is required", models.ErrBadRequest)
	}
	if !validContentKinds[content.Kind] {
		return fmt.Errorf("%w: invalid content kind %q", models.ErrBadRequest, content.Kind)
	}
	if content.ReleaseYear != 0 && (content.ReleaseYear < 1888 || content.ReleaseYear > time.Now().Year()+1) {
		return fmt.Errorf("%w: invalid release year", models.ErrBadRequest)
	}
	return nil
}
