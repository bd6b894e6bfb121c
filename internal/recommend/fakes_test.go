package recommend

import (
	"context"
	"errors"
	"sync"

	"movie-discovery-recommender/internal/models"
)

var errCatalogDown = errors.New("catalog down")

// fakeCatalog serves canned listings; every listing is a single page.
type fakeCatalog struct {
	mu sync.Mutex

	trending        []models.Movie
	trendingErr     error
	popular         []models.Movie
	popularErr      error
	details         map[int]models.Movie
	discover        map[int][]models.Movie
	recommendations map[int][]models.Movie
	similar         map[int][]models.Movie
	similarErr      map[int]error
	genres          []models.Genre

	calls map[string]int
}

func (f *fakeCatalog) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func page(movies []models.Movie) *models.MoviePage {
	return &models.MoviePage{Page: 1, Results: movies, TotalPages: 1, TotalResults: len(movies)}
}

func (f *fakeCatalog) Trending(ctx context.Context, window string, p int) (*models.MoviePage, error) {
	f.record("trending")
	if f.trendingErr != nil {
		return nil, f.trendingErr
	}
	return page(f.trending), nil
}

func (f *fakeCatalog) Popular(ctx context.Context, p int) (*models.MoviePage, error) {
	f.record("popular")
	if f.popularErr != nil {
		return nil, f.popularErr
	}
	return page(f.popular), nil
}

func (f *fakeCatalog) Discover(ctx context.Context, p models.DiscoverParams) (*models.MoviePage, error) {
	f.record("discover")
	if len(p.GenreIDs) == 0 {
		return page(nil), nil
	}
	return page(f.discover[p.GenreIDs[0]]), nil
}

func (f *fakeCatalog) MovieDetails(ctx context.Context, id int) (*models.Movie, error) {
	f.record("details")
	m, ok := f.details[id]
	if !ok {
		return nil, errCatalogDown
	}
	return &m, nil
}

func (f *fakeCatalog) MovieRecommendations(ctx context.Context, id, p int) (*models.MoviePage, error) {
	f.record("recommendations")
	return page(f.recommendations[id]), nil
}

func (f *fakeCatalog) SimilarMovies(ctx context.Context, id, p int) (*models.MoviePage, error) {
	f.record("similar")
	if err := f.similarErr[id]; err != nil {
		return nil, err
	}
	return page(f.similar[id]), nil
}

func (f *fakeCatalog) Genres(ctx context.Context) ([]models.Genre, error) {
	f.record("genres")
	return f.genres, nil
}

// fakeStore holds favorites (movie ids, newest first) and viewing history
// (newest first) per user.
type fakeStore struct {
	favorites map[int][]int
	history   map[int][]models.ViewingHistoryEntry
	err       error
}

func (s *fakeStore) ListFavorites(ctx context.Context, userID int) ([]models.Favorite, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Favorite
	for _, id := range s.favorites[userID] {
		out = append(out, models.Favorite{UserID: userID, MovieID: id})
	}
	return out, nil
}

func (s *fakeStore) ListViewingHistory(ctx context.Context, userID, limit int) ([]models.ViewingHistoryEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	h := s.history[userID]
	if limit > 0 && len(h) > limit {
		h = h[:limit]
	}
	return h, nil
}

func (s *fakeStore) ListAllFavorites(ctx context.Context) (map[int][]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.favorites, nil
}

func (s *fakeStore) ListAllWatched(ctx context.Context) (map[int][]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int][]int)
	for userID, entries := range s.history {
		seen := map[int]bool{}
		for _, e := range entries {
			if !seen[e.MovieID] {
				seen[e.MovieID] = true
				out[userID] = append(out[userID], e.MovieID)
			}
		}
	}
	return out, nil
}

type fakeSimilarity struct {
	mu     sync.Mutex
	users  []models.UserSimilarity
	movies []models.MovieSimilarity
}

func (f *fakeSimilarity) SaveUserSimilarities(ctx context.Context, sims []models.UserSimilarity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, sims...)
	return nil
}

func (f *fakeSimilarity) SaveMovieSimilarities(ctx context.Context, sims []models.MovieSimilarity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movies = append(f.movies, sims...)
	return nil
}

// stubStrategy returns fixed output or a fixed error.
type stubStrategy struct {
	kind    Kind
	results []models.ScoredCandidate
	err     error
}

func (s *stubStrategy) Kind() Kind { return s.kind }

func (s *stubStrategy) Run(ctx context.Context, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func movie(id int, voteAverage, popularity float64, genres ...int) models.Movie {
	return models.Movie{
		ID:          id,
		Title:       "Movie",
		ReleaseDate: "2024-01-01",
		Popularity:  popularity,
		VoteAverage: voteAverage,
		VoteCount:   500,
		GenreIDs:    genres,
	}
}

func scored(id int, score float64, reason string) models.ScoredCandidate {
	return models.ScoredCandidate{Movie: models.Movie{ID: id}, Score: score, Reason: reason}
}

func ids(cands []models.ScoredCandidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

func rated(r int) *int { return &r }
