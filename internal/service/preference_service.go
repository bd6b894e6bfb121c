package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/repository"
)

const preferenceCacheTTL = 10 * time.Minute

// PreferenceStore persists user preferences.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID int) (*models.UserPreference, error)
	UpsertPreference(ctx context.Context, p models.UserPreference) (*models.UserPreference, error)
}

// PreferenceService manages user preferences with a Redis read-through
// cache. A nil Redis client disables caching.
type PreferenceService struct {
	store PreferenceStore
	recs  CacheInvalidator
	redis *redis.Client
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(store PreferenceStore, recs CacheInvalidator, rdb *redis.Client) *PreferenceService {
	return &PreferenceService{store: store, recs: recs, redis: rdb}
}

func preferenceKey(userID int) string {
	return fmt.Sprintf("user:pref:%d", userID)
}

// Get returns the user's preferences, or defaults when none were saved.
func (s *PreferenceService) Get(ctx context.Context, userID int) (*models.UserPreference, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	if pref, ok := s.cached(ctx, userID); ok {
		return pref, nil
	}

	pref, err := s.store.GetPreference(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		def := models.DefaultPreference(userID)
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	s.remember(ctx, pref)
	return pref, nil
}

// Set replaces the user's preferences and invalidates both the preference
// cache and the user's cached recommendation lists.
func (s *PreferenceService) Set(ctx context.Context, userID int, req models.SetPreferenceRequest) (*models.UserPreference, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	for _, id := range req.AvoidGenreIDs {
		if slices.Contains(req.GenreIDs, id) {
			return nil, invalid("avoid_genre_ids", fmt.Sprintf("genre %d cannot be both preferred and avoided", id))
		}
	}

	pref := models.DefaultPreference(userID)
	pref.GenreIDs = dedupe(req.GenreIDs)
	pref.AvoidGenreIDs = dedupe(req.AvoidGenreIDs)
	pref.MinRating = req.MinRating
	pref.MaxRuntime = req.MaxRuntime
	pref.PreferredLanguages = dedupe(req.PreferredLanguages)
	if req.IncludeForeignFilms != nil {
		pref.IncludeForeignFilms = *req.IncludeForeignFilms
	}

	saved, err := s.store.UpsertPreference(ctx, pref)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, preferenceKey(userID)).Err(); err != nil {
			slog.Warn("failed to invalidate preference cache", "user_id", userID, "error", err)
		}
	}
	if _, err := s.recs.DeleteForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("preferences saved but cache invalidation failed: %w", err)
	}
	slog.Info("user preferences updated", "user_id", userID)
	return saved, nil
}

func (s *PreferenceService) cached(ctx context.Context, userID int) (*models.UserPreference, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, preferenceKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("preference cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}
	var pref models.UserPreference
	if err := json.Unmarshal(raw, &pref); err != nil {
		slog.Warn("discarding corrupt cached preference", "user_id", userID, "error", err)
		return nil, false
	}
	return &pref, true
}

func (s *PreferenceService) remember(ctx context.Context, pref *models.UserPreference) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(pref)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, preferenceKey(pref.UserID), raw, preferenceCacheTTL).Err(); err != nil {
		slog.Warn("preference cache write failed", "user_id", pref.UserID, "error", err)
	}
}

func dedupe[T comparable](in []T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
