package models

import "time"

// Content represents a catalog entry (movie, series, short, etc.)
type Content struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Kind        string     `db:"kind"`
	Description string     `db:"description"`
	ReleaseYear int        `db:"release_year"`
	OwnerID     string     `db:"owner_id"`
	ExpiresAt   *time.Time `db:"expires_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Rating is a user's score for a content entry
type Rating struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ContentID string    `db:"content_id"`
	Score     int       `db:"score"`
	Review    string    `db:"review"`
	CreatedAt time.Time `db:"created_at"`
}
