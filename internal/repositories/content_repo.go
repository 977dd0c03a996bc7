package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidmarsh/reelhaven/internal/database"
	"github.com/davidmarsh/reelhaven/internal/models"
)

type ContentRepository struct {
	db *database.DB
}

func NewContentRepository(db *database.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, title, kind, description, release_year, owner_id, expires_at, created_at, updated_at`

func scanContentRow(scanner rowScanner) (*models.Content, error) {
	var c models.Content
	err := scanner.Scan(
		&c.ID, &c.Title, &c.Kind, &c.Description, &c.ReleaseYear,
		&c.OwnerID, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE id = $1`
	return scanContentRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *ContentRepository) List(ctx context.Context, limit, offset int) ([]*models.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Content, 0)
	for rows.Next() {
		item, err := scanContentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

func (r *ContentRepository) Create(ctx context.Context, content *models.Content) (*models.Content, error) {
	content.ID = uuid.New().String()

	now := time.Now()
	content.CreatedAt = now
	content.UpdatedAt = now

	query := `
		INSERT INTO content (id, title, kind, description, release_year, owner_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + contentColumns

	return scanContentRow(r.db.Pool.QueryRow(ctx, query,
		content.ID, content.Title, content.Kind, content.Description, content.ReleaseYear,
		content.OwnerID, content.ExpiresAt, content.CreatedAt, content.UpdatedAt,
	))
}

func (r *ContentRepository) Update(ctx context.Context, id string, content *models.Content) (*models.Content, error) {
	content.UpdatedAt = time.Now()

	query := `
		UPDATE content SET title = $1, kind = $2, description = $3, release_year = $4, expires_at = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + contentColumns

	return scanContentRow(r.db.Pool.QueryRow(ctx, query,
		content.Title, content.Kind, content.Description, content.ReleaseYear,
		content.ExpiresAt, content.UpdatedAt, id,
	))
}

func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
