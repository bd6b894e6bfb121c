package service

import (
	"context"

	"movie-discovery-recommender/internal/models"
)

const (
	similarUsersLimit  = 10
	similarMoviesLimit = 20
)

// SimilarityReader reads similarities persisted by the strategies.
type SimilarityReader interface {
	TopSimilarUsers(ctx context.Context, userID, limit int) ([]models.UserSimilarity, error)
	TopSimilarMovies(ctx context.Context, movieID, limit int) ([]models.MovieSimilarity, error)
}

// SimilarityService exposes stored user and movie similarities.
type SimilarityService struct {
	store SimilarityReader
}

func NewSimilarityService(store SimilarityReader) *SimilarityService {
	return &SimilarityService{store: store}
}

func (s *SimilarityService) SimilarUsers(ctx context.Context, userID int) ([]models.UserSimilarity, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	sims, err := s.store.TopSimilarUsers(ctx, userID, similarUsersLimit)
	if err != nil {
		return nil, err
	}
	if sims == nil {
		sims = []models.UserSimilarity{}
	}
	return sims, nil
}

func (s *SimilarityService) SimilarMovies(ctx context.Context, movieID int) ([]models.MovieSimilarity, error) {
	if movieID <= 0 {
		return nil, invalid("movie_id", "must be a positive integer")
	}
	sims, err := s.store.TopSimilarMovies(ctx, movieID, similarMoviesLimit)
	if err != nil {
		return nil, err
	}
	if sims == nil {
		sims = []models.MovieSimilarity{}
	}
	return sims, nil
}
