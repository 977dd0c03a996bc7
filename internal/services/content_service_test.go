package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmarsh/reelhaven/internal/models"
)

type fakeContentRepo struct {
	items map[string]*models.Content
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{items: make(map[string]*models.Content)}
}

func (r *fakeContentRepo) GetByID(ctx context.Context, id string) (*models.Content, error) {
	if item, ok := r.items[id]; ok {
		return item, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeContentRepo) List(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	out := make([]*models.Content, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeContentRepo) Create(ctx context.Context, content *models.Content) (*models.Content, error) {
	content.ID = fmt.Sprintf("c-%d", len(r.items)+1)
	content.CreatedAt = time.Now()
	content.UpdatedAt = content.CreatedAt
	r.items[content.ID] = content
	return content, nil
}

func (r *fakeContentRepo) Update(ctx context.Context, id string, content *models.Content) (*models.Content, error) {
	if _, ok := r.items[id]; !ok {
		return nil, models.ErrNotFound
	}
	content.ID = id
	r.items[id] = content
	return content, nil
}

func (r *fakeContentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeRatingRepo struct {
	ratings map[string]*models.Rating
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{ratings: make(map[string]*models.Rating)}
}

func ratingKey(userID, contentID string) string {
	return userID + "/" + contentID
}

func (r *fakeRatingRepo) Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	rating.ID = "r-" + ratingKey(rating.UserID, rating.ContentID)
	rating.CreatedAt = time.Now()
	r.ratings[ratingKey(rating.UserID, rating.ContentID)] = rating
	return rating, nil
}

func (r *fakeRatingRepo) ListByContent(ctx context.Context, contentID string, limit, offset int) ([]*models.Rating, error) {
	out := make([]*models.Rating, 0)
	for _, rating := range r.ratings {
		if rating.ContentID == contentID {
			out = append(out, rating)
		}
	}
	return out, nil
}

func (r *fakeRatingRepo) Delete(ctx context.Context, userID, contentID string) error {
	key := ratingKey(userID, contentID)
	if _, ok := r.ratings[key]; !ok {
		return models.ErrNotFound
	}
	delete(r.ratings, key)
	return nil
}

type fakePlaylistRepo struct {
	playlists map[string]*models.Playlist
}

func newFakePlaylistRepo() *fakePlaylistRepo {
	return &fakePlaylistRepo{playlists: make(map[string]*models.Playlist)}
}

func (r *fakePlaylistRepo) GetByID(ctx context.Context, id string) (*models.Playlist, error) {
	if p, ok := r.playlists[id]; ok {
		return p, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakePlaylistRepo) ListByUser(ctx context.Context, userID string) ([]*models.Playlist, error) {
	out := make([]*models.Playlist, 0)
	for _, p := range r.playlists {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlaylistRepo) Create(ctx context.Context, playlist *models.Playlist) (*models.Playlist, error) {
	playlist.ID = fmt.Sprintf("p-%d", len(r.playlists)+1)
	if playlist.ItemIDs == nil {
		playlist.ItemIDs = []string{}
	}
	r.playlists[playlist.ID] = playlist
	return playlist, nil
}

func (r *fakePlaylistRepo) UpdateItems(ctx context.Context, id string, itemIDs []string) (*models.Playlist, error) {
	p, ok := r.playlists[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.ItemIDs = itemIDs
	return p, nil
}

func (r *fakePlaylistRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.playlists[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.playlists, id)
	return nil
}

func newContentFixture() (*ContentService, *fakeContentRepo, *fakeRatingRepo) {
	content := newFakeContentRepo()
	ratings := newFakeRatingRepo()
	return NewContentService(content, ratings, newFakePlaylistRepo(), discardLogger()), content, ratings
}

func TestContentService_ExpiredContentBehavesAsAbsent(t *testing.T) {
	svc, repo, _ := newContentFixture()

	past := time.Now().Add(-time.Hour)
	expired, err := repo.Create(context.Background(), &models.Content{
		Title: "Gone", Kind: "movie", OwnerID: "u1", ExpiresAt: &past,
	})
	require.NoError(t, err)

	_, err = svc.GetContent(context.Background(), expired.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	visible, err := svc.ListContent(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestContentService_RateContent_Bounds(t *testing.T) {
	svc, repo, _ := newContentFixture()

	item, err := repo.Create(context.Background(), &models.Content{Title: "X", Kind: "movie", OwnerID: "u1"})
	require.NoError(t, err)

	for _, score := range []int{0, 11, -3} {
		_, err := svc.RateContent(context.Background(), "u2", item.ID, score, "")
		assert.ErrorIs(t, err, models.ErrBadRequest, "score %d", score)
	}

	rating, err := svc.RateContent(context.Background(), "u2", item.ID, 7, "fine")
	require.NoError(t, err)
	assert.Equal(t, 7, rating.Score)
}

func TestContentService_DeleteRating(t *testing.T) {
	svc, repo, ratings := newContentFixture()

	item, err := repo.Create(context.Background(), &models.Content{Title: "X", Kind: "movie", OwnerID: "u1"})
	require.NoError(t, err)

	_, err = svc.RateContent(context.Background(), "u2", item.ID, 7, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRating(context.Background(), "u2", item.ID))
	assert.Empty(t, ratings.ratings)

	// Deleting again, or for a user who never rated, is a miss
	assert.ErrorIs(t, svc.DeleteRating(context.Background(), "u2", item.ID), models.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteRating(context.Background(), "u3", item.ID), models.ErrNotFound)
}

func TestContentService_UpdateRequiresOwnership(t *testing.T) {
	svc, repo, _ := newContentFixture()

	item, err := repo.Create(context.Background(), &models.Content{Title: "X", Kind: "movie", OwnerID: "u1"})
	require.NoError(t, err)

	_, err = svc.UpdateContent(context.Background(), item.ID, "intruder", &models.Content{Title: "Y", Kind: "movie"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	assert.ErrorIs(t, svc.DeleteContent(context.Background(), item.ID, "intruder"), models.ErrForbidden)
}

func TestContentService_PlaylistItemsMustExist(t *testing.T) {
	svc, repo, _ := newContentFixture()

	item, err := repo.Create(context.Background(), &models.Content{Title: "X", Kind: "movie", OwnerID: "u1"})
	require.NoError(t, err)

	playlist, err := svc.CreatePlaylist(context.Background(), "u1", "watch later")
	require.NoError(t, err)

	_, err = svc.SetPlaylistItems(context.Background(), playlist.ID, "u1", []string{item.ID, "missing"})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	updated, err := svc.SetPlaylistItems(context.Background(), playlist.ID, "u1", []string{item.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, updated.ItemIDs)
}
