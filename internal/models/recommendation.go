package models

import "time"

// ScoredCandidate is a catalog movie annotated with a recommendation score
// and a human-readable reason. It is never persisted as-is. Score is 0 for
// a cached movie whose score was not stored.
type ScoredCandidate struct {
	Movie
	Score  float64 `json:"recommendation_score"`
	Reason string  `json:"recommendation_reason,omitempty"`
}

// RecommendationCacheEntry is the last computed result for (user, strategy).
// MovieIDs is ranked; Scores is keyed by movie id.
type RecommendationCacheEntry struct {
	UserID    int             `json:"user_id"`
	Strategy  string          `json:"strategy"`
	MovieIDs  []int           `json:"movie_ids"`
	Scores    map[int]float64 `json:"scores"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// RecommendationResponse wraps a recommendation list.
type RecommendationResponse struct {
	RequestID       string            `json:"request_id"`
	UserID          int               `json:"user_id"`
	Strategy        string            `json:"strategy"`
	TotalCount      int               `json:"total_count"`
	Cached          bool              `json:"cached"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Recommendations []ScoredCandidate `json:"recommendations"`
}

// Feedback kinds.
const (
	FeedbackLike          = "like"
	FeedbackDislike       = "dislike"
	FeedbackNotInterested = "not_interested"
	FeedbackWatched       = "watched"
	FeedbackIgnore        = "ignore"
)

// ValidFeedbackKinds lists the accepted feedback values.
var ValidFeedbackKinds = map[string]bool{
	FeedbackLike:          true,
	FeedbackDislike:       true,
	FeedbackNotInterested: true,
	FeedbackWatched:       true,
	FeedbackIgnore:        true,
}

// RecommendationFeedback is a user's reaction to a recommended movie.
// Unique per (user, movie, strategy).
type RecommendationFeedback struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Strategy  string    `json:"strategy"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackRequest is the request body for recording feedback.
type FeedbackRequest struct {
	MovieID  int    `json:"movie_id" validate:"required,gt=0"`
	Strategy string `json:"strategy" validate:"required"`
	Feedback string `json:"feedback" validate:"required,oneof=like dislike not_interested watched ignore"`
}

// RecommendationAnalytics summarizes a user's cache and feedback state.
type RecommendationAnalytics struct {
	UserID                     int     `json:"user_id"`
	CacheEntries               int     `json:"cache_entries"`
	LiveCacheEntries           int     `json:"live_cache_entries"`
	FeedbackCount              int     `json:"feedback_count"`
	PositiveFeedbackPercentage float64 `json:"positive_feedback_percentage"`
	AverageCachedScore         float64 `json:"average_cached_score"`
}
