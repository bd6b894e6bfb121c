package models

import (
	"slices"
	"time"
)

// UserPreference holds a user's explicit taste filters. Nil MinRating and
// MaxRuntime mean "no limit".
type UserPreference struct {
	UserID              int       `json:"user_id"`
	GenreIDs            []int     `json:"genre_ids"`
	AvoidGenreIDs       []int     `json:"avoid_genre_ids"`
	MinRating           *float64  `json:"min_rating"`
	MaxRuntime          *int      `json:"max_runtime"`
	PreferredLanguages  []string  `json:"preferred_languages"`
	IncludeForeignFilms bool      `json:"include_foreign_films"`
	CreatedAt           time.Time `json:"created_at,omitzero"`
	UpdatedAt           time.Time `json:"updated_at,omitzero"`
}

// DefaultPreference returns the preferences of a user who never set any.
func DefaultPreference(userID int) UserPreference {
	return UserPreference{
		UserID:              userID,
		GenreIDs:            []int{},
		AvoidGenreIDs:       []int{},
		PreferredLanguages:  []string{},
		IncludeForeignFilms: true,
	}
}

// SetPreferenceRequest replaces a user's preferences.
type SetPreferenceRequest struct {
	GenreIDs            []int    `json:"genre_ids" validate:"omitempty,max=20,dive,gt=0"`
	AvoidGenreIDs       []int    `json:"avoid_genre_ids" validate:"omitempty,max=20,dive,gt=0"`
	MinRating           *float64 `json:"min_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	MaxRuntime          *int     `json:"max_runtime,omitempty" validate:"omitempty,gte=30,lte=600"`
	PreferredLanguages  []string `json:"preferred_languages" validate:"omitempty,max=10,dive,len=2,lowercase"`
	IncludeForeignFilms *bool    `json:"include_foreign_films,omitempty"`
}

// ShouldRecommend reports whether m passes the user's preferences. Runtime
// and language are only checked when the catalog supplied them.
func (p UserPreference) ShouldRecommend(m Movie) bool {
	if p.MinRating != nil && *p.MinRating > 0 && m.VoteAverage < *p.MinRating {
		return false
	}
	if p.MaxRuntime != nil && m.Runtime > 0 && m.Runtime > *p.MaxRuntime {
		return false
	}
	for _, id := range m.GenreIDList() {
		if slices.Contains(p.AvoidGenreIDs, id) {
			return false
		}
	}
	lang := m.OriginalLanguage
	if !p.IncludeForeignFilms && lang != "" && lang != "en" && !slices.Contains(p.PreferredLanguages, lang) {
		return false
	}
	return true
}
