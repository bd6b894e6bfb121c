package service

import (
	"context"
	"sync"
	"time"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/recommend"
	"movie-discovery-recommender/internal/repository"
)

type cacheKey struct {
	userID   int
	strategy string
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[cacheKey]models.RecommendationCacheEntry
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[cacheKey]models.RecommendationCacheEntry)}
}

func (f *fakeCache) GetEntry(ctx context.Context, userID int, strategy string) (*models.RecommendationCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[cacheKey{userID, strategy}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (f *fakeCache) PutEntry(ctx context.Context, entry models.RecommendationCacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.entries[cacheKey{entry.UserID, entry.Strategy}] = entry
	return nil
}

func (f *fakeCache) DeleteForUser(ctx context.Context, userID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.entries {
		if k.userID == userID {
			delete(f.entries, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeCache) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, e := range f.entries {
		if !e.ExpiresAt.After(now) {
			delete(f.entries, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeCache) ListForUser(ctx context.Context, userID int) ([]models.RecommendationCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RecommendationCacheEntry
	for k, e := range f.entries {
		if k.userID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	settings map[int]models.RecommendationSettings
	upserts  int
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{settings: make(map[int]models.RecommendationSettings)}
}

func (f *fakeSettingsStore) GetSettings(ctx context.Context, userID int) (*models.RecommendationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSettingsStore) UpsertSettings(ctx context.Context, s models.RecommendationSettings) (*models.RecommendationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.settings[s.UserID] = s
	return &s, nil
}

type fakeDetails map[int]models.Movie

func (f fakeDetails) MovieDetails(ctx context.Context, id int) (*models.Movie, error) {
	m, ok := f[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

type fakeEngine struct {
	mu      sync.Mutex
	results []models.ScoredCandidate
	err     error
	calls   int
	kinds   []recommend.Kind
}

func (f *fakeEngine) Recommend(ctx context.Context, kind recommend.Kind, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.kinds = append(f.kinds, kind)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

type fakeFeedback struct {
	mu      sync.Mutex
	records map[[3]any]models.RecommendationFeedback
}

func (f *fakeFeedback) UpsertFeedback(ctx context.Context, fb models.RecommendationFeedback) (*models.RecommendationFeedback, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = make(map[[3]any]models.RecommendationFeedback)
	}
	key := [3]any{fb.UserID, fb.MovieID, fb.Strategy}
	_, exists := f.records[key]
	f.records[key] = fb
	return &fb, !exists, nil
}

func (f *fakeFeedback) CountFeedback(ctx context.Context, userID int) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, fb := range f.records {
		if fb.UserID == userID {
			counts[fb.Feedback]++
		}
	}
	return counts, nil
}

func catalogMovie(id int) models.Movie {
	return models.Movie{ID: id, Title: "Movie", ReleaseDate: "2024-03-01", VoteAverage: 7.5, VoteCount: 800, GenreIDs: []int{18}}
}

type fixture struct {
	svc      *RecommendationService
	settings *SettingsService
	store    *fakeSettingsStore
	cache    *fakeCache
	engine   *fakeEngine
	feedback *fakeFeedback
	now      time.Time
}

func newFixture() *fixture {
	details := fakeDetails{}
	var results []models.ScoredCandidate
	for id := 1; id <= 5; id++ {
		details[id] = catalogMovie(id)
		results = append(results, models.ScoredCandidate{Movie: catalogMovie(id), Score: 1 - float64(id)/10, Reason: "test"})
	}

	f := &fixture{
		store:    newFakeSettingsStore(),
		cache:    newFakeCache(),
		engine:   &fakeEngine{results: results},
		feedback: &fakeFeedback{},
		now:      time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC),
	}
	f.settings = NewSettingsService(f.store, f.cache)
	f.svc = NewRecommendationService(f.engine, details, f.settings, f.cache, f.feedback, false)
	f.svc.now = func() time.Time { return f.now }
	return f
}
