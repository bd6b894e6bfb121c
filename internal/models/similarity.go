package models

import "time"

// Movie similarity kinds.
const (
	SimilarityGenre    = "genre"
	SimilarityCast     = "cast"
	SimilarityDirector = "director"
	SimilarityCombined = "combined"
)

// UserSimilarity is a persisted pairwise user similarity in [0,1].
type UserSimilarity struct {
	UserID      int       `json:"user_id"`
	OtherUserID int       `json:"other_user_id"`
	Score       float64   `json:"similarity_score"`
	UpdatedAt   time.Time `json:"last_updated"`
}

// MovieSimilarity is a persisted pairwise movie similarity in [0,1].
type MovieSimilarity struct {
	MovieID      int       `json:"movie_id"`
	OtherMovieID int       `json:"other_movie_id"`
	Score        float64   `json:"similarity_score"`
	Kind         string    `json:"similarity_type"`
	UpdatedAt    time.Time `json:"last_updated"`
}
