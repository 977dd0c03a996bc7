package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidmarsh/reelhaven/internal/database"
	"github.com/davidmarsh/reelhaven/internal/models"
)

type RatingRepository struct {
	db *database.DB
}

func NewRatingRepository(db *database.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

const ratingColumns = `id, user_id, content_id, score, review, created_at`

func scanRatingRow(scanner rowScanner) (*models.Rating, error) {
	var rating models.Rating
	err := scanner.Scan(
		&rating.ID, &rating.UserID, &rating.ContentID,
		&rating.Score, &rating.Review, &rating.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &rating, nil
}

// Upsert records a rating, replacing the user's previous score for the same
// content entry
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	rating.ID = uuid.New().String()
	rating.CreatedAt = time.Now()

	query := `
		INSERT INTO ratings (id, user_id, content_id, score, review, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, content_id)
		DO UPDATE SET score = EXCLUDED.score, review = EXCLUDED.review, created_at = EXCLUDED.created_at
		RETURNING ` + ratingColumns

	return scanRatingRow(r.db.Pool.QueryRow(ctx, query,
		rating.ID, rating.UserID, rating.ContentID, rating.Score, rating.Review, rating.CreatedAt,
	))
}

func (r *RatingRepository) ListByContent(ctx context.Context, contentID string, limit, offset int) ([]*models.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE content_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, contentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]*models.Rating, 0)
	for rows.Next() {
		rating, err := scanRatingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ratings, nil
}

func (r *RatingRepository) Delete(ctx context.Context, userID, contentID string) error {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM ratings WHERE user_id = $1 AND content_id = $2`, userID, contentID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
