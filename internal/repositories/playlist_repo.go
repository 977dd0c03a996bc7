package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidmarsh/reelhaven/internal/database"
	"github.com/davidmarsh/reelhaven/internal/models"
)

type PlaylistRepository struct {
	db *database.DB
}

func NewPlaylistRepository(db *database.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `id, user_id, name, item_ids, created_at, updated_at`

func scanPlaylistRow(scanner rowScanner) (*models.Playlist, error) {
	var playlist models.Playlist
	err := scanner.Scan(
		&playlist.ID, &playlist.UserID, &playlist.Name,
		&playlist.ItemIDs, &playlist.CreatedAt, &playlist.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &playlist, nil
}

func (r *PlaylistRepository) GetByID(ctx context.Context, id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1`
	return scanPlaylistRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *PlaylistRepository) ListByUser(ctx context.Context, userID string) ([]*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]*models.Playlist, 0)
	for rows.Next() {
		playlist, err := scanPlaylistRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return playlists, nil
}

func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) (*models.Playlist, error) {
	playlist.ID = uuid.New().String()

	now := time.Now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	if playlist.ItemIDs == nil {
		playlist.ItemIDs = []string{}
	}

	query := `
		INSERT INTO playlists (id, user_id, name, item_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + playlistColumns

	return scanPlaylistRow(r.db.Pool.QueryRow(ctx, query,
		playlist.ID, playlist.UserID, playlist.Name, playlist.ItemIDs,
		playlist.CreatedAt, playlist.UpdatedAt,
	))
}

func (r *PlaylistRepository) UpdateItems(ctx context.Context, id string, itemIDs []string) (*models.Playlist, error) {
	query := `
		UPDATE playlists SET item_ids = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + playlistColumns

	return scanPlaylistRow(r.db.Pool.QueryRow(ctx, query, itemIDs, time.Now(), id))
}

func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
