package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"movie-discovery-recommender/internal/models"
)

type InteractionRepository struct {
	db *sql.DB
}

func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// AddFavorite stores a favorite. Returns ErrDuplicate if the user already
// favorited the movie.
func (r *InteractionRepository) AddFavorite(ctx context.Context, userID, movieID int) (*models.Favorite, error) {
	var fav models.Favorite
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO favorites (user_id, movie_id) VALUES ($1, $2)
		ON CONFLICT (user_id, movie_id) DO NOTHING
		RETURNING id, user_id, movie_id, created_at
	`, userID, movieID).Scan(&fav.ID, &fav.UserID, &fav.MovieID, &fav.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	return &fav, nil
}

// RemoveFavorite deletes a favorite. Returns ErrNotFound if there was none.
func (r *InteractionRepository) RemoveFavorite(ctx context.Context, userID, movieID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFavorites returns the user's favorites, newest first.
func (r *InteractionRepository) ListFavorites(ctx context.Context, userID int) ([]models.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, movie_id, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var favorites []models.Favorite
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.MovieID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// ListAllFavorites returns every user's favorite movie ids keyed by user.
func (r *InteractionRepository) ListAllFavorites(ctx context.Context) (map[int][]int, error) {
	return r.userMovieIndex(ctx, `SELECT user_id, movie_id FROM favorites ORDER BY user_id, created_at DESC`)
}

// ListAllWatched returns every user's distinct watched movie ids keyed by user.
func (r *InteractionRepository) ListAllWatched(ctx context.Context) (map[int][]int, error) {
	return r.userMovieIndex(ctx, `SELECT DISTINCT user_id, movie_id FROM viewing_history ORDER BY user_id, movie_id`)
}

func (r *InteractionRepository) userMovieIndex(ctx context.Context, query string) (map[int][]int, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	index := make(map[int][]int)
	for rows.Next() {
		var userID, movieID int
		if err := rows.Scan(&userID, &movieID); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		index[userID] = append(index[userID], movieID)
	}
	return index, rows.Err()
}

// AddViewing appends a viewing history entry.
func (r *InteractionRepository) AddViewing(ctx context.Context, userID int, req models.WatchRequest) (*models.ViewingHistoryEntry, error) {
	watchedAt := time.Now().UTC()
	if req.WatchedAt != nil {
		watchedAt = *req.WatchedAt
	}

	var e models.ViewingHistoryEntry
	var rating sql.NullInt32
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO viewing_history (user_id, movie_id, rating, watched_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, movie_id, rating, watched_at, created_at
	`, userID, req.MovieID, nullableRating(req.Rating), watchedAt).Scan(
		&e.ID, &e.UserID, &e.MovieID, &rating, &e.WatchedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add viewing history: %w", err)
	}
	e.Rating = ratingPtr(rating)
	return &e, nil
}

// MarkWatched updates the most recent viewing of (user, movie) with the
// given rating and time, or appends one when the movie was never watched.
func (r *InteractionRepository) MarkWatched(ctx context.Context, userID int, req models.WatchRequest) (*models.ViewingHistoryEntry, error) {
	watchedAt := time.Now().UTC()
	if req.WatchedAt != nil {
		watchedAt = *req.WatchedAt
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var e models.ViewingHistoryEntry
	var rating sql.NullInt32
	err = tx.QueryRowContext(ctx, `
		UPDATE viewing_history SET rating = COALESCE($3, rating), watched_at = $4
		WHERE id = (
			SELECT id FROM viewing_history
			WHERE user_id = $1 AND movie_id = $2
			ORDER BY watched_at DESC, id DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id, user_id, movie_id, rating, watched_at, created_at
	`, userID, req.MovieID, nullableRating(req.Rating), watchedAt).Scan(
		&e.ID, &e.UserID, &e.MovieID, &rating, &e.WatchedAt, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO viewing_history (user_id, movie_id, rating, watched_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, movie_id, rating, watched_at, created_at
		`, userID, req.MovieID, nullableRating(req.Rating), watchedAt).Scan(
			&e.ID, &e.UserID, &e.MovieID, &rating, &e.WatchedAt, &e.CreatedAt,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark watched: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mark watched: %w", err)
	}
	e.Rating = ratingPtr(rating)
	return &e, nil
}

// ListViewingHistory returns the user's viewing history, newest first.
// limit <= 0 returns everything.
func (r *InteractionRepository) ListViewingHistory(ctx context.Context, userID, limit int) ([]models.ViewingHistoryEntry, error) {
	query := `
		SELECT id, user_id, movie_id, rating, watched_at, created_at
		FROM viewing_history
		WHERE user_id = $1
		ORDER BY watched_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query viewing history: %w", err)
	}
	defer rows.Close()

	var history []models.ViewingHistoryEntry
	for rows.Next() {
		var e models.ViewingHistoryEntry
		var rating sql.NullInt32
		if err := rows.Scan(&e.ID, &e.UserID, &e.MovieID, &rating, &e.WatchedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan viewing history: %w", err)
		}
		e.Rating = ratingPtr(rating)
		history = append(history, e)
	}
	return history, rows.Err()
}

func nullableRating(r *int) any {
	if r == nil {
		return nil
	}
	return *r
}

func ratingPtr(r sql.NullInt32) *int {
	if !r.Valid {
		return nil
	}
	v := int(r.Int32)
	return &v
}
