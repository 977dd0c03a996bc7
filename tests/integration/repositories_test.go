package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmarsh/reelhaven/internal/models"
	"github.com/davidmarsh/reelhaven/internal/repositories"
)

func TestRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer testDB.Teardown(ctx)

	t.Run("user lifecycle", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		repo := repositories.NewUserRepository(testDB.DB)

		user, err := SeedUser(ctx, testDB.DB, "alice@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "user", user.Role)
		assert.Equal(t, "active", user.Status)

		byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)

		// Duplicate email hits the unique constraint
		_, err = SeedUser(ctx, testDB.DB, "alice@example.com")
		assert.ErrorIs(t, err, models.ErrConflict)

		require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "$2a$04$replacementreplacementreplacementreplacementre"))
		updated, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, user.PasswordHash, updated.PasswordHash)

		require.NoError(t, repo.Delete(ctx, user.ID))
		_, err = repo.GetByID(ctx, user.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("content and ratings", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		contentRepo := repositories.NewContentRepository(testDB.DB)
		ratingRepo := repositories.NewRatingRepository(testDB.DB)

		owner, err := SeedUser(ctx, testDB.DB, "owner@example.com")
		require.NoError(t, err)

		item, err := contentRepo.Create(ctx, &models.Content{
			Title:       "The Long Haul",
			Kind:        "movie",
			ReleaseYear: 2024,
			OwnerID:     owner.ID,
		})
		require.NoError(t, err)

		items, err := contentRepo.List(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, item.ID, items[0].ID)

		rating, err := ratingRepo.Upsert(ctx, &models.Rating{
			UserID:    owner.ID,
			ContentID: item.ID,
			Score:     8,
			Review:    "solid",
		})
		require.NoError(t, err)
		assert.Equal(t, 8, rating.Score)

		// A second upsert from the same user replaces the score
		rating, err = ratingRepo.Upsert(ctx, &models.Rating{
			UserID:    owner.ID,
			ContentID: item.ID,
			Score:     4,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, rating.Score)

		ratings, err := ratingRepo.ListByContent(ctx, item.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, ratings, 1)
		assert.Equal(t, 4, ratings[0].Score)
	})

	t.Run("playlists store item ids natively", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		contentRepo := repositories.NewContentRepository(testDB.DB)
		playlistRepo := repositories.NewPlaylistRepository(testDB.DB)

		owner, err := SeedUser(ctx, testDB.DB, "owner@example.com")
		require.NoError(t, err)

		first, err := contentRepo.Create(ctx, &models.Content{Title: "One", Kind: "short", OwnerID: owner.ID})
		require.NoError(t, err)
		second, err := contentRepo.Create(ctx, &models.Content{Title: "Two", Kind: "short", OwnerID: owner.ID})
		require.NoError(t, err)

		playlist, err := playlistRepo.Create(ctx, &models.Playlist{
			UserID: owner.ID,
			Name:   "watch later",
		})
		require.NoError(t, err)
		assert.Empty(t, playlist.ItemIDs)

		playlist, err = playlistRepo.UpdateItems(ctx, playlist.ID, []string{first.ID, second.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{first.ID, second.ID}, playlist.ItemIDs)

		playlists, err := playlistRepo.ListByUser(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, playlists, 1)
	})

	t.Run("notifications", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		repo := repositories.NewNotificationRepository(testDB.DB)

		user, err := SeedUser(ctx, testDB.DB, "alice@example.com")
		require.NoError(t, err)

		created, err := repo.Create(ctx, &models.Notification{
			UserID:  user.ID,
			Kind:    "catalog",
			Subject: "New arrivals",
			Body:    "Two new titles this week",
		})
		require.NoError(t, err)
		assert.Nil(t, created.ReadAt)

		require.NoError(t, repo.MarkRead(ctx, created.ID, user.ID))

		// Marking an already-read notification is a no-op miss
		assert.ErrorIs(t, repo.MarkRead(ctx, created.ID, user.ID), models.ErrNotFound)

		list, err := repo.ListByUser(ctx, user.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].ReadAt)
		assert.WithinDuration(t, time.Now(), *list[0].ReadAt, time.Minute)
	})
}
