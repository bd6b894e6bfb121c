package service

import (
	"context"
	"errors"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// InteractionStore persists favorites and viewing history.
type InteractionStore interface {
	AddFavorite(ctx context.Context, userID, movieID int) (*models.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, movieID int) error
	ListFavorites(ctx context.Context, userID int) ([]models.Favorite, error)
	AddViewing(ctx context.Context, userID int, req models.WatchRequest) (*models.ViewingHistoryEntry, error)
	MarkWatched(ctx context.Context, userID int, req models.WatchRequest) (*models.ViewingHistoryEntry, error)
	ListViewingHistory(ctx context.Context, userID, limit int) ([]models.ViewingHistoryEntry, error)
}

// InteractionService records the favorites and viewings the engine learns from.
type InteractionService struct {
	store InteractionStore
}

// NewInteractionService creates a new InteractionService.
func NewInteractionService(store InteractionStore) *InteractionService {
	return &InteractionService{store: store}
}

// AddFavorite marks a movie as favorite. Returns ErrConflict on duplicates.
func (s *InteractionService) AddFavorite(ctx context.Context, userID int, req models.AddFavoriteRequest) (*models.Favorite, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	fav, err := s.store.AddFavorite(ctx, userID, req.MovieID)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrConflict
	}
	return fav, err
}

// RemoveFavorite unmarks a favorite. Returns ErrNotFound if it did not exist.
func (s *InteractionService) RemoveFavorite(ctx context.Context, userID, movieID int) error {
	if userID <= 0 {
		return invalid("user_id", "must be a positive integer")
	}
	if movieID <= 0 {
		return invalid("movie_id", "must be a positive integer")
	}
	err := s.store.RemoveFavorite(ctx, userID, movieID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ListFavorites returns the user's favorites, newest first.
func (s *InteractionService) ListFavorites(ctx context.Context, userID int) ([]models.Favorite, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	favorites, err := s.store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	if favorites == nil {
		favorites = []models.Favorite{}
	}
	return favorites, nil
}

// RecordViewing appends a viewing, or with upsert set updates the latest
// viewing of the same movie.
func (s *InteractionService) RecordViewing(ctx context.Context, userID int, req models.WatchRequest, upsert bool) (*models.ViewingHistoryEntry, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if upsert {
		return s.store.MarkWatched(ctx, userID, req)
	}
	return s.store.AddViewing(ctx, userID, req)
}

// ListHistory returns up to limit viewings, newest first.
func (s *InteractionService) ListHistory(ctx context.Context, userID, limit int) ([]models.ViewingHistoryEntry, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	history, err := s.store.ListViewingHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.ViewingHistoryEntry{}
	}
	return history, nil
}
