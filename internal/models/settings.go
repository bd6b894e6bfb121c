package models

import "time"

// RecommendationSettings holds per-user tuning of the recommendation engine.
type RecommendationSettings struct {
	UserID int `json:"user_id"`

	PreferContentBased  bool `json:"prefer_content_based"`
	PreferCollaborative bool `json:"prefer_collaborative"`
	PreferTrending      bool `json:"prefer_trending"`

	GenreDiversity   float64 `json:"genre_diversity"`
	ReleaseYearRange int     `json:"release_year_range"`

	MinVoteAverage float64 `json:"min_vote_average"`
	MinVoteCount   int     `json:"min_vote_count"`

	MaxRecommendations int `json:"max_recommendations"`
	CacheDurationHours int `json:"cache_duration_hours"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings a user gets on first access.
func DefaultSettings(userID int) RecommendationSettings {
	return RecommendationSettings{
		UserID:              userID,
		PreferContentBased:  true,
		PreferCollaborative: true,
		PreferTrending:      false,
		GenreDiversity:      0.5,
		ReleaseYearRange:    10,
		MinVoteAverage:      6.0,
		MinVoteCount:        100,
		MaxRecommendations:  20,
		CacheDurationHours:  2,
	}
}

// CacheTTL returns the recommendation cache lifetime for this user.
func (s RecommendationSettings) CacheTTL() time.Duration {
	return time.Duration(s.CacheDurationHours) * time.Hour
}

// SettingsUpdate is a partial update; nil fields are left untouched.
type SettingsUpdate struct {
	PreferContentBased  *bool    `json:"prefer_content_based,omitempty"`
	PreferCollaborative *bool    `json:"prefer_collaborative,omitempty"`
	PreferTrending      *bool    `json:"prefer_trending,omitempty"`
	GenreDiversity      *float64 `json:"genre_diversity,omitempty" validate:"omitempty,gte=0,lte=1"`
	ReleaseYearRange    *int     `json:"release_year_range,omitempty" validate:"omitempty,gte=1,lte=50"`
	MinVoteAverage      *float64 `json:"min_vote_average,omitempty" validate:"omitempty,gte=0,lte=10"`
	MinVoteCount        *int     `json:"min_vote_count,omitempty" validate:"omitempty,gte=0"`
	MaxRecommendations  *int     `json:"max_recommendations,omitempty" validate:"omitempty,gte=5,lte=100"`
	CacheDurationHours  *int     `json:"cache_duration_hours,omitempty" validate:"omitempty,gte=1,lte=24"`
}

// Apply returns a copy of s with every non-nil field of u applied.
func (u SettingsUpdate) Apply(s RecommendationSettings) RecommendationSettings {
	if u.PreferContentBased != nil {
		s.PreferContentBased = *u.PreferContentBased
	}
	if u.PreferCollaborative != nil {
		s.PreferCollaborative = *u.PreferCollaborative
	}
	if u.PreferTrending != nil {
		s.PreferTrending = *u.PreferTrending
	}
	if u.GenreDiversity != nil {
		s.GenreDiversity = *u.GenreDiversity
	}
	if u.ReleaseYearRange != nil {
		s.ReleaseYearRange = *u.ReleaseYearRange
	}
	if u.MinVoteAverage != nil {
		s.MinVoteAverage = *u.MinVoteAverage
	}
	if u.MinVoteCount != nil {
		s.MinVoteCount = *u.MinVoteCount
	}
	if u.MaxRecommendations != nil {
		s.MaxRecommendations = *u.MaxRecommendations
	}
	if u.CacheDurationHours != nil {
		s.CacheDurationHours = *u.CacheDurationHours
	}
	return s
}
