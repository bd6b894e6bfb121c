package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/service"
	"movie-discovery-recommender/internal/tmdb"
)

type fakeRecs struct {
	lastUser int
	lastReq  service.RecommendationRequest
	err      error
	created  bool
	deleted  int
}

func (f *fakeRecs) GetRecommendations(ctx context.Context, userID int, req service.RecommendationRequest) (*models.RecommendationResponse, error) {
	f.lastUser, f.lastReq = userID, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.RecommendationResponse{
		UserID:          userID,
		Strategy:        "hybrid",
		TotalCount:      1,
		Recommendations: []models.ScoredCandidate{{Movie: models.Movie{ID: 42, Title: "Heat"}, Score: 0.9}},
	}, nil
}

func (f *fakeRecs) ClearCache(ctx context.Context, userID int) (int, error) {
	return f.deleted, f.err
}

func (f *fakeRecs) RecordFeedback(ctx context.Context, userID int, req models.FeedbackRequest) (*models.RecommendationFeedback, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.RecommendationFeedback{UserID: userID, MovieID: req.MovieID, Strategy: req.Strategy, Feedback: req.Feedback}, f.created, nil
}

func (f *fakeRecs) Analytics(ctx context.Context, userID int) (*models.RecommendationAnalytics, error) {
	return &models.RecommendationAnalytics{UserID: userID}, f.err
}

type fakeSettings struct {
	err error
}

func (f *fakeSettings) GetOrCreate(ctx context.Context, userID int) (*models.RecommendationSettings, error) {
	s := models.DefaultSettings(userID)
	return &s, f.err
}

func (f *fakeSettings) Update(ctx context.Context, userID int, upd models.SettingsUpdate) (*models.RecommendationSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := upd.Apply(models.DefaultSettings(userID))
	return &s, nil
}

type fakePreferences struct {
	saved *models.SetPreferenceRequest
	err   error
}

func (f *fakePreferences) Get(ctx context.Context, userID int) (*models.UserPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := models.DefaultPreference(userID)
	return &p, nil
}

func (f *fakePreferences) Set(ctx context.Context, userID int, req models.SetPreferenceRequest) (*models.UserPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = &req
	p := models.DefaultPreference(userID)
	p.GenreIDs = req.GenreIDs
	p.MinRating = req.MinRating
	return &p, nil
}

type fakeSimilarity struct{}

func (fakeSimilarity) SimilarUsers(ctx context.Context, userID int) ([]models.UserSimilarity, error) {
	return []models.UserSimilarity{{UserID: userID, OtherUserID: 9, Score: 0.5}}, nil
}

func (fakeSimilarity) SimilarMovies(ctx context.Context, movieID int) ([]models.MovieSimilarity, error) {
	return []models.MovieSimilarity{}, nil
}

type fakeInteractions struct {
	err        error
	lastUpsert bool
}

func (f *fakeInteractions) AddFavorite(ctx context.Context, userID int, req models.AddFavoriteRequest) (*models.Favorite, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Favorite{UserID: userID, MovieID: req.MovieID}, nil
}

func (f *fakeInteractions) RemoveFavorite(ctx context.Context, userID, movieID int) error {
	return f.err
}

func (f *fakeInteractions) ListFavorites(ctx context.Context, userID int) ([]models.Favorite, error) {
	return []models.Favorite{}, f.err
}

func (f *fakeInteractions) RecordViewing(ctx context.Context, userID int, req models.WatchRequest, upsert bool) (*models.ViewingHistoryEntry, error) {
	f.lastUpsert = upsert
	if f.err != nil {
		return nil, f.err
	}
	return &models.ViewingHistoryEntry{UserID: userID, MovieID: req.MovieID, Rating: req.Rating}, nil
}

func (f *fakeInteractions) ListHistory(ctx context.Context, userID, limit int) ([]models.ViewingHistoryEntry, error) {
	return []models.ViewingHistoryEntry{}, f.err
}

type fakeMovies struct {
	err      error
	discover models.DiscoverParams
}

func (f *fakeMovies) page() (*models.MoviePage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.MoviePage{Page: 1, Results: []models.Movie{{ID: 1, Title: "Alien"}}}, nil
}

func (f *fakeMovies) Trending(ctx context.Context, window string, page int) (*models.MoviePage, error) {
	return f.page()
}

func (f *fakeMovies) Popular(ctx context.Context, page int) (*models.MoviePage, error) {
	return f.page()
}

func (f *fakeMovies) Search(ctx context.Context, query string, page, year int) (*models.MoviePage, error) {
	return f.page()
}

func (f *fakeMovies) Discover(ctx context.Context, p models.DiscoverParams) (*models.MoviePage, error) {
	f.discover = p
	return f.page()
}

func (f *fakeMovies) Details(ctx context.Context, id int) (*models.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Movie{ID: id}, nil
}

func (f *fakeMovies) Recommendations(ctx context.Context, id, page int) (*models.MoviePage, error) {
	return f.page()
}

func (f *fakeMovies) Similar(ctx context.Context, id, page int) (*models.MoviePage, error) {
	return f.page()
}

func (f *fakeMovies) Genres(ctx context.Context) ([]models.Genre, error) {
	return []models.Genre{{ID: 28, Name: "Action"}}, f.err
}

type testDeps struct {
	recs         *fakeRecs
	settings     *fakeSettings
	interactions *fakeInteractions
	movies       *fakeMovies
	prefs        *fakePreferences
}

func newTestApp() (*fiber.App, *testDeps) {
	d := &testDeps{
		recs:         &fakeRecs{},
		settings:     &fakeSettings{},
		interactions: &fakeInteractions{},
		movies:       &fakeMovies{},
		prefs:        &fakePreferences{},
	}
	app := fiber.New()
	api := app.Group("/api/v1")
	NewRecommendationHandler(d.recs, d.settings, fakeSimilarity{}).Register(api)
	NewInteractionHandler(d.interactions).Register(api)
	NewMovieHandler(d.movies, fakeSimilarity{}).Register(api)
	NewPreferenceHandler(d.prefs).Register(api)
	return app, d
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, target, raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestGetRecommendationsPassesQuery(t *testing.T) {
	app, d := newTestApp()

	status, body := do(t, app, http.MethodGet, "/api/v1/users/7/recommendations?type=content&limit=5&force_refresh=true", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	want := service.RecommendationRequest{Type: "content", Limit: 5, ForceRefresh: true}
	if d.recs.lastUser != 7 || d.recs.lastReq != want {
		t.Errorf("service got user %d req %+v", d.recs.lastUser, d.recs.lastReq)
	}
	recs, _ := body["recommendations"].([]any)
	if len(recs) != 1 {
		t.Fatalf("recommendations = %v", body["recommendations"])
	}
	first := recs[0].(map[string]any)
	if first["id"] != float64(42) || first["recommendation_score"] != 0.9 {
		t.Errorf("first = %v", first)
	}
}

func TestGetRecommendationsBadQuery(t *testing.T) {
	for _, target := range []string{
		"/api/v1/users/7/recommendations?limit=abc",
		"/api/v1/users/7/recommendations?limit=0",
		"/api/v1/users/7/recommendations?force_refresh=maybe",
	} {
		app, d := newTestApp()
		status, body := do(t, app, http.MethodGet, target, "")
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d", target, status)
		}
		if _, ok := body["fields"]; !ok {
			t.Errorf("%s: body = %v, want field errors", target, body)
		}
		if d.recs.lastUser != 0 {
			t.Errorf("%s: service was called", target)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"type": "unknown"}}, http.StatusBadRequest},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"catalog down", fmt.Errorf("trending: %w", tmdb.ErrUnavailable), http.StatusServiceUnavailable},
		{"rate limited", tmdb.ErrRateLimited, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, d := newTestApp()
			d.recs.err = tt.err
			status, body := do(t, app, http.MethodGet, "/api/v1/users/1/recommendations", "")
			if status != tt.status {
				t.Fatalf("status = %d, want %d (body %v)", status, tt.status, body)
			}
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestFeedbackStatus(t *testing.T) {
	app, d := newTestApp()
	payload := `{"movie_id": 5, "strategy": "hybrid", "feedback": "like"}`

	d.recs.created = true
	if status, _ := do(t, app, http.MethodPost, "/api/v1/users/1/recommendations/feedback", payload); status != http.StatusCreated {
		t.Errorf("create status = %d, want 201", status)
	}
	d.recs.created = false
	if status, _ := do(t, app, http.MethodPost, "/api/v1/users/1/recommendations/feedback", payload); status != http.StatusOK {
		t.Errorf("update status = %d, want 200", status)
	}
	if status, _ := do(t, app, http.MethodPost, "/api/v1/users/1/recommendations/feedback", `{"movie_id":`); status != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", status)
	}
}

func TestClearCacheReportsCount(t *testing.T) {
	app, d := newTestApp()
	d.recs.deleted = 3
	status, body := do(t, app, http.MethodDelete, "/api/v1/users/1/recommendations/cache", "")
	if status != http.StatusOK || body["deleted"] != float64(3) {
		t.Errorf("status = %d body = %v, want deleted 3", status, body)
	}
}

func TestUpdateSettings(t *testing.T) {
	app, d := newTestApp()
	status, body := do(t, app, http.MethodPatch, "/api/v1/users/2/recommendation-settings", `{"min_vote_average": 7.5}`)
	if status != http.StatusOK || body["min_vote_average"] != 7.5 {
		t.Fatalf("status = %d body = %v", status, body)
	}

	d.settings.err = &service.ValidationError{Fields: map[string]string{"genre_diversity": "must be at most 1"}}
	status, body = do(t, app, http.MethodPatch, "/api/v1/users/2/recommendation-settings", `{"genre_diversity": 1.5}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	fields := body["fields"].(map[string]any)
	if fields["genre_diversity"] != "must be at most 1" {
		t.Errorf("fields = %v", fields)
	}
}

func TestPreferences(t *testing.T) {
	app, d := newTestApp()

	status, body := do(t, app, http.MethodGet, "/api/v1/users/4/preferences", "")
	if status != http.StatusOK || body["user_id"] != float64(4) || body["include_foreign_films"] != true {
		t.Fatalf("get status = %d body = %v", status, body)
	}

	status, body = do(t, app, http.MethodPut, "/api/v1/users/4/preferences", `{"genre_ids": [28, 12], "min_rating": 6.5}`)
	if status != http.StatusOK || body["min_rating"] != 6.5 {
		t.Fatalf("put status = %d body = %v", status, body)
	}
	if d.prefs.saved == nil || len(d.prefs.saved.GenreIDs) != 2 {
		t.Errorf("saved request = %+v", d.prefs.saved)
	}

	if status, _ := do(t, app, http.MethodPut, "/api/v1/users/4/preferences", `{"genre_ids": "action"}`); status != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", status)
	}

	d.prefs.err = &service.ValidationError{Fields: map[string]string{"max_runtime": "must be at most 600"}}
	status, body = do(t, app, http.MethodPut, "/api/v1/users/4/preferences", `{"max_runtime": 900}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if fields := body["fields"].(map[string]any); fields["max_runtime"] != "must be at most 600" {
		t.Errorf("fields = %v", fields)
	}

	d.prefs.err = errors.New("db down")
	if status, _ := do(t, app, http.MethodGet, "/api/v1/users/4/preferences", ""); status != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", status)
	}
}

func TestInteractions(t *testing.T) {
	app, d := newTestApp()

	if status, _ := do(t, app, http.MethodPost, "/api/v1/users/1/favorites", `{"movie_id": 9}`); status != http.StatusCreated {
		t.Errorf("add favorite status = %d", status)
	}
	if status, _ := do(t, app, http.MethodPost, "/api/v1/users/1/history?upsert=true", `{"movie_id": 9, "rating": 8}`); status != http.StatusCreated || !d.interactions.lastUpsert {
		t.Errorf("upsert viewing status = %d upsert = %v", status, d.interactions.lastUpsert)
	}

	d.interactions.err = service.ErrConflict
	if status, _ := do(t, app, http.MethodPost, "/api/v1/users/1/favorites", `{"movie_id": 9}`); status != http.StatusConflict {
		t.Errorf("duplicate favorite status = %d, want 409", status)
	}
	d.interactions.err = service.ErrNotFound
	if status, _ := do(t, app, http.MethodDelete, "/api/v1/users/1/favorites/9", ""); status != http.StatusNotFound {
		t.Errorf("missing favorite status = %d, want 404", status)
	}
	d.interactions.err = nil
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/1/favorites/9", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Errorf("remove favorite = %v, %v", resp, err)
	}
}

func TestDiscoverParsesFilters(t *testing.T) {
	app, d := newTestApp()
	status, _ := do(t, app, http.MethodGet, "/api/v1/movies/discover?genres=28,12&min_vote_average=6.5&year=2020&page=2", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	want := models.DiscoverParams{GenreIDs: []int{28, 12}, SortBy: "popularity.desc", MinVoteAverage: 6.5, Year: 2020, Page: 2}
	if !reflect.DeepEqual(d.movies.discover, want) {
		t.Errorf("params = %+v, want %+v", d.movies.discover, want)
	}

	if status, _ := do(t, app, http.MethodGet, "/api/v1/movies/discover?genres=action", ""); status != http.StatusBadRequest {
		t.Errorf("bad genres status = %d, want 400", status)
	}
}

func TestCatalogRoutes(t *testing.T) {
	app, d := newTestApp()
	for _, target := range []string{
		"/api/v1/movies/trending?window=week",
		"/api/v1/movies/popular",
		"/api/v1/movies/search?query=alien",
		"/api/v1/movies/3",
		"/api/v1/movies/3/recommendations",
		"/api/v1/movies/3/similar",
		"/api/v1/movies/3/similar-stored",
		"/api/v1/genres",
	} {
		if status, body := do(t, app, http.MethodGet, target, ""); status != http.StatusOK {
			t.Errorf("%s: status = %d body = %v", target, status, body)
		}
	}

	d.movies.err = tmdb.ErrUnavailable
	if status, _ := do(t, app, http.MethodGet, "/api/v1/movies/trending", ""); status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", Health("recommender", map[string]CheckFunc{
		"postgres": func(context.Context) error { return nil },
	}))
	app.Get("/down", Health("recommender", map[string]CheckFunc{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}))

	status, body := do(t, app, http.MethodGet, "/ok", "")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("ok: status = %d body = %v", status, body)
	}
	status, body = do(t, app, http.MethodGet, "/down", "")
	checks := body["checks"].(map[string]any)
	if status != http.StatusServiceUnavailable || checks["redis"] != "down" || checks["postgres"] != "up" {
		t.Errorf("down: status = %d body = %v", status, body)
	}
}
