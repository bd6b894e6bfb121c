package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"movie-discovery-recommender/internal/metrics"
	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/repository"
)

// SettingsStore persists recommendation settings.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID int) (*models.RecommendationSettings, error)
	UpsertSettings(ctx context.Context, s models.RecommendationSettings) (*models.RecommendationSettings, error)
}

// CacheInvalidator drops every cached recommendation list of a user.
type CacheInvalidator interface {
	DeleteForUser(ctx context.Context, userID int) (int, error)
}

// SettingsService manages per-user recommendation settings.
type SettingsService struct {
	store SettingsStore
	cache CacheInvalidator
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store SettingsStore, cache CacheInvalidator) *SettingsService {
	return &SettingsService{store: store, cache: cache}
}

// GetOrCreate returns the user's settings, creating defaults on first access.
func (s *SettingsService) GetOrCreate(ctx context.Context, userID int) (*models.RecommendationSettings, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	settings, err := s.store.GetSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	created, err := s.store.UpsertSettings(ctx, models.DefaultSettings(userID))
	if err != nil {
		return nil, err
	}
	slog.Info("created default recommendation settings", "user_id", userID)
	return created, nil
}

// Update validates and applies a partial update, then invalidates the
// user's cached recommendations. Invalid input leaves stored settings
// untouched.
func (s *SettingsService) Update(ctx context.Context, userID int, upd models.SettingsUpdate) (*models.RecommendationSettings, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	if err := validateStruct(upd); err != nil {
		return nil, err
	}

	current, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.UpsertSettings(ctx, upd.Apply(*current))
	if err != nil {
		return nil, err
	}

	n, err := s.cache.DeleteForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("settings saved but cache invalidation failed: %w", err)
	}
	metrics.CacheEventsTotal.WithLabelValues("invalidate").Add(float64(n))
	slog.Info("recommendation settings updated", "user_id", userID, "invalidated", n)
	return saved, nil
}
