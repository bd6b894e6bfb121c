package models

import "time"

// Favorite is a movie a user explicitly marked as favorite.
type Favorite struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ViewingHistoryEntry records one viewing of a movie.
// Rating is nil when the user did not rate the viewing.
type ViewingHistoryEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Rating    *int      `json:"rating,omitempty"`
	WatchedAt time.Time `json:"watched_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AddFavoriteRequest is the request body for adding a favorite.
type AddFavoriteRequest struct {
	MovieID int `json:"movie_id" validate:"required,gt=0"`
}

// WatchRequest is the request body for appending or upserting a viewing.
type WatchRequest struct {
	MovieID   int        `json:"movie_id" validate:"required,gt=0"`
	Rating    *int       `json:"rating,omitempty" validate:"omitempty,min=1,max=10"`
	WatchedAt *time.Time `json:"watched_at,omitempty"`
}
