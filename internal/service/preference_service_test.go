package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/repository"
)

type fakePreferenceStore struct {
	prefs   map[int]models.UserPreference
	upserts int
	err     error
}

func newFakePreferenceStore() *fakePreferenceStore {
	return &fakePreferenceStore{prefs: make(map[int]models.UserPreference)}
}

func (f *fakePreferenceStore) GetPreference(ctx context.Context, userID int) (*models.UserPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.prefs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakePreferenceStore) UpsertPreference(ctx context.Context, p models.UserPreference) (*models.UserPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserts++
	f.prefs[p.UserID] = p
	return &p, nil
}

func ptr[T any](v T) *T { return &v }

func TestPreferenceGetReturnsDefaults(t *testing.T) {
	store := newFakePreferenceStore()
	svc := NewPreferenceService(store, newFakeCache(), nil)

	pref, err := svc.Get(context.Background(), 8)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(*pref, models.DefaultPreference(8)) {
		t.Errorf("pref = %+v, want defaults", *pref)
	}
	if !pref.IncludeForeignFilms {
		t.Error("defaults should include foreign films")
	}
	if store.upserts != 0 {
		t.Errorf("Get() persisted defaults: upserts = %d", store.upserts)
	}
}

func TestPreferenceGetPropagatesStoreError(t *testing.T) {
	store := newFakePreferenceStore()
	store.err = errors.New("db down")
	svc := NewPreferenceService(store, newFakeCache(), nil)

	if _, err := svc.Get(context.Background(), 8); err == nil {
		t.Fatal("Get() error = nil, want store error")
	}
}

func TestPreferenceSetStoresAndInvalidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	store := newFakePreferenceStore()
	svc := NewPreferenceService(store, f.cache, nil)

	if _, err := f.svc.GetRecommendations(ctx, 5, RecommendationRequest{Type: "content", Limit: 3}); err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(f.cache.entries) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(f.cache.entries))
	}

	saved, err := svc.Set(ctx, 5, models.SetPreferenceRequest{
		GenreIDs:            []int{28, 28, 12},
		AvoidGenreIDs:       []int{27},
		MinRating:           ptr(6.5),
		MaxRuntime:          ptr(150),
		PreferredLanguages:  []string{"en", "fr"},
		IncludeForeignFilms: ptr(false),
	})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !reflect.DeepEqual(saved.GenreIDs, []int{28, 12}) {
		t.Errorf("genre_ids = %v, want duplicates removed", saved.GenreIDs)
	}
	if saved.IncludeForeignFilms || *saved.MinRating != 6.5 || *saved.MaxRuntime != 150 {
		t.Errorf("saved = %+v", saved)
	}
	if len(f.cache.entries) != 0 {
		t.Errorf("cache entries after Set() = %d, want 0", len(f.cache.entries))
	}

	got, err := svc.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(got.AvoidGenreIDs, []int{27}) {
		t.Errorf("avoid_genre_ids = %v", got.AvoidGenreIDs)
	}
}

func TestPreferenceSetOmittedForeignFlagDefaultsToTrue(t *testing.T) {
	svc := NewPreferenceService(newFakePreferenceStore(), newFakeCache(), nil)

	saved, err := svc.Set(context.Background(), 2, models.SetPreferenceRequest{GenreIDs: []int{18}})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !saved.IncludeForeignFilms || saved.MinRating != nil || saved.MaxRuntime != nil {
		t.Errorf("saved = %+v", saved)
	}
}

func TestPreferenceSetValidation(t *testing.T) {
	tests := []struct {
		name  string
		user  int
		req   models.SetPreferenceRequest
		field string
	}{
		{"bad user", 0, models.SetPreferenceRequest{}, "user_id"},
		{"rating above 10", 1, models.SetPreferenceRequest{MinRating: ptr(10.5)}, "min_rating"},
		{"negative rating", 1, models.SetPreferenceRequest{MinRating: ptr(-1.0)}, "min_rating"},
		{"runtime too short", 1, models.SetPreferenceRequest{MaxRuntime: ptr(20)}, "max_runtime"},
		{"runtime too long", 1, models.SetPreferenceRequest{MaxRuntime: ptr(601)}, "max_runtime"},
		{"genre id zero", 1, models.SetPreferenceRequest{GenreIDs: []int{0}}, "genre_ids[0]"},
		{"language code length", 1, models.SetPreferenceRequest{PreferredLanguages: []string{"eng"}}, "preferred_languages[0]"},
		{"language code case", 1, models.SetPreferenceRequest{PreferredLanguages: []string{"FR"}}, "preferred_languages[0]"},
		{"overlap", 1, models.SetPreferenceRequest{GenreIDs: []int{27, 35}, AvoidGenreIDs: []int{35}}, "avoid_genre_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePreferenceStore()
			svc := NewPreferenceService(store, newFakeCache(), nil)

			_, err := svc.Set(context.Background(), tt.user, tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Set() error = %v, want *ValidationError", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want key %q", verr.Fields, tt.field)
			}
			if store.upserts != 0 {
				t.Errorf("invalid request was stored")
			}
		})
	}
}

func TestShouldRecommend(t *testing.T) {
	base := models.Movie{ID: 1, VoteAverage: 7, Runtime: 120, OriginalLanguage: "ja", GenreIDs: []int{16, 18}}
	tests := []struct {
		name string
		pref models.UserPreference
		want bool
	}{
		{"defaults", models.DefaultPreference(1), true},
		{"below min rating", models.UserPreference{IncludeForeignFilms: true, MinRating: ptr(7.5)}, false},
		{"zero min rating", models.UserPreference{IncludeForeignFilms: true, MinRating: ptr(0.0)}, true},
		{"too long", models.UserPreference{IncludeForeignFilms: true, MaxRuntime: ptr(90)}, false},
		{"avoided genre", models.UserPreference{IncludeForeignFilms: true, AvoidGenreIDs: []int{16}}, false},
		{"foreign excluded", models.UserPreference{}, false},
		{"foreign excluded but preferred", models.UserPreference{PreferredLanguages: []string{"ja"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pref.ShouldRecommend(base); got != tt.want {
				t.Errorf("ShouldRecommend() = %v, want %v", got, tt.want)
			}
		})
	}

	unknownRuntime := base
	unknownRuntime.Runtime = 0
	if !(models.UserPreference{IncludeForeignFilms: true, MaxRuntime: ptr(90)}).ShouldRecommend(unknownRuntime) {
		t.Error("unknown runtime should not be rejected")
	}
}

func TestGetRecommendationsAppliesPreferences(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.engine.results[1].Movie.GenreIDs = []int{27}

	store := newFakePreferenceStore()
	prefs := NewPreferenceService(store, f.cache, nil)
	f.svc.WithPreferences(prefs)
	if _, err := prefs.Set(ctx, 6, models.SetPreferenceRequest{AvoidGenreIDs: []int{27}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	resp, err := f.svc.GetRecommendations(ctx, 6, RecommendationRequest{Type: "content", Limit: 3})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if !reflect.DeepEqual(candidateIDs(resp.Recommendations), []int{1, 3, 4}) {
		t.Errorf("ids = %v, want movie 2 filtered out", candidateIDs(resp.Recommendations))
	}

	store.err = errors.New("db down")
	resp, err = f.svc.GetRecommendations(ctx, 7, RecommendationRequest{Type: "content", Limit: 3})
	if err != nil {
		t.Fatalf("GetRecommendations() with failing preferences error = %v", err)
	}
	if !reflect.DeepEqual(candidateIDs(resp.Recommendations), []int{1, 2, 3}) {
		t.Errorf("ids = %v, want unfiltered list", candidateIDs(resp.Recommendations))
	}
}
