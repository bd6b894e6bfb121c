package models

import (
	"strconv"
	"strings"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// Movie is a catalog movie as returned by list and detail endpoints.
// List endpoints fill GenreIDs, detail endpoints fill Genres.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview,omitempty"`
	ReleaseDate      string  `json:"release_date"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	PosterPath       string  `json:"poster_path,omitempty"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	Genres           []Genre `json:"genres,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Runtime          int     `json:"runtime,omitempty"`
}

// Genre is a catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MoviePage is a paginated catalog listing.
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// DiscoverParams are the filters accepted by the catalog discover endpoint.
type DiscoverParams struct {
	GenreIDs       []int
	SortBy         string
	MinVoteAverage float64
	MinVoteCount   int
	Year           int
	Page           int
}

// GenreIDList returns the movie's genre ids regardless of which shape
// the catalog returned.
func (m *Movie) GenreIDList() []int {
	if len(m.GenreIDs) > 0 {
		return m.GenreIDs
	}
	ids := make([]int, 0, len(m.Genres))
	for _, g := range m.Genres {
		ids = append(ids, g.ID)
	}
	return ids
}

// ReleaseYear parses the year out of ReleaseDate ("YYYY-MM-DD").
// ok is false when the date is missing or malformed.
func (m *Movie) ReleaseYear() (year int, ok bool) {
	date := strings.TrimSpace(m.ReleaseDate)
	if date == "" {
		return 0, false
	}
	head, _, _ := strings.Cut(date, "-")
	y, err := strconv.Atoi(head)
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

// PosterURL returns the full poster image URL, or "" if the movie has none.
func (m *Movie) PosterURL() string {
	if m.PosterPath == "" {
		return ""
	}
	return posterBaseURL + m.PosterPath
}
