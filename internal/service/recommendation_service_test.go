package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/recommend"
)

func candidateIDs(cands []models.ScoredCandidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

func TestCacheRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.svc.CachePut(ctx, 7, recommend.KindTrending, []models.ScoredCandidate{
		{Movie: models.Movie{ID: 1}, Score: 0.9},
		{Movie: models.Movie{ID: 2}, Score: 0.5},
	}, 2*time.Hour)

	got, ok := f.svc.CacheGet(ctx, 7, recommend.KindTrending)
	if !ok {
		t.Fatal("expected cache hit right after put")
	}
	if !reflect.DeepEqual(candidateIDs(got), []int{1, 2}) {
		t.Fatalf("ids = %v, want [1 2]", candidateIDs(got))
	}
	if got[0].Score != 0.9 || got[1].Score != 0.5 {
		t.Errorf("scores = %v, %v, want 0.9, 0.5", got[0].Score, got[1].Score)
	}
	if got[0].Title != "Movie" {
		t.Errorf("cached entry was not re-hydrated: %+v", got[0].Movie)
	}

	f.now = f.now.Add(2 * time.Hour)
	if _, ok := f.svc.CacheGet(ctx, 7, recommend.KindTrending); ok {
		t.Error("entry must not be served at its expiry instant")
	}
	f.now = f.now.Add(time.Second)
	if _, ok := f.svc.CacheGet(ctx, 7, recommend.KindTrending); ok {
		t.Error("entry must not be served after expiry")
	}
	if _, ok := f.svc.CacheGet(ctx, 7, recommend.KindContent); ok {
		t.Error("entries are keyed by strategy")
	}
}

func TestGetRecommendationsUsesCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.GetRecommendations(ctx, 3, RecommendationRequest{Type: "content", Limit: 3})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if first.Cached || first.Strategy != "content" || first.TotalCount != 3 || first.RequestID == "" {
		t.Fatalf("first response = %+v", first)
	}
	if !reflect.DeepEqual(candidateIDs(first.Recommendations), []int{1, 2, 3}) {
		t.Fatalf("ids = %v", candidateIDs(first.Recommendations))
	}

	second, err := f.svc.GetRecommendations(ctx, 3, RecommendationRequest{Type: "content", Limit: 3})
	if err != nil {
		t.Fatalf("second GetRecommendations() error = %v", err)
	}
	if !second.Cached || f.engine.calls != 1 {
		t.Fatalf("second call cached=%v engine calls=%d, want cached and 1 call", second.Cached, f.engine.calls)
	}
	if !reflect.DeepEqual(candidateIDs(second.Recommendations), candidateIDs(first.Recommendations)) {
		t.Errorf("cached ids = %v, want %v", candidateIDs(second.Recommendations), candidateIDs(first.Recommendations))
	}

	if _, err := f.svc.GetRecommendations(ctx, 3, RecommendationRequest{Type: "content", Limit: 3, ForceRefresh: true}); err != nil {
		t.Fatalf("forced GetRecommendations() error = %v", err)
	}
	if f.engine.calls != 2 {
		t.Errorf("force_refresh did not recompute: engine calls = %d", f.engine.calls)
	}
}

func TestGetRecommendationsDefaults(t *testing.T) {
	f := newFixture()
	resp, err := f.svc.GetRecommendations(context.Background(), 3, RecommendationRequest{})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if resp.Strategy != string(recommend.KindHybrid) {
		t.Errorf("strategy = %q, want hybrid", resp.Strategy)
	}
	if f.engine.kinds[0] != recommend.KindHybrid {
		t.Errorf("engine ran %q", f.engine.kinds[0])
	}
	if resp.TotalCount != 5 {
		t.Errorf("total = %d, want all 5 under the default limit", resp.TotalCount)
	}
}

func TestGetRecommendationsValidation(t *testing.T) {
	tests := []struct {
		name   string
		userID int
		req    RecommendationRequest
		field  string
	}{
		{"bad user", 0, RecommendationRequest{}, "user_id"},
		{"unknown type", 1, RecommendationRequest{Type: "telepathy"}, "type"},
		{"limit too high", 1, RecommendationRequest{Limit: 101}, "limit"},
		{"negative limit", 1, RecommendationRequest{Limit: -1}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.GetRecommendations(context.Background(), tt.userID, tt.req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if _, ok := ve.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", ve.Fields, tt.field)
			}
			if f.engine.calls != 0 {
				t.Error("no strategy may run for invalid input")
			}
		})
	}
}

func TestEmptyResultsAreNotCached(t *testing.T) {
	f := newFixture()
	old := catalogMovie(9)
	old.ReleaseDate = "1990-01-01"
	f.engine.results = []models.ScoredCandidate{{Movie: old, Score: 1}}

	resp, err := f.svc.GetRecommendations(context.Background(), 3, RecommendationRequest{Type: "trending"})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if resp.TotalCount != 0 || resp.Recommendations == nil {
		t.Errorf("response = %+v, want an empty non-nil list", resp)
	}
	if f.cache.puts != 0 {
		t.Errorf("cache puts = %d, want 0", f.cache.puts)
	}
}

func TestCancelledComputationIsNotCached(t *testing.T) {
	f := newFixture()
	f.engine.err = context.Canceled

	_, err := f.svc.GetRecommendations(context.Background(), 3, RecommendationRequest{Type: "trending"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if f.cache.puts != 0 {
		t.Errorf("cache puts = %d, want 0", f.cache.puts)
	}
}

func TestClearCacheAndPurge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	list := []models.ScoredCandidate{{Movie: models.Movie{ID: 1}, Score: 1}}
	f.svc.CachePut(ctx, 1, recommend.KindTrending, list, time.Hour)
	f.svc.CachePut(ctx, 1, recommend.KindContent, list, 3*time.Hour)
	f.svc.CachePut(ctx, 2, recommend.KindTrending, list, time.Hour)

	f.now = f.now.Add(2 * time.Hour)
	purged, err := f.svc.PurgeExpired(ctx)
	if err != nil || purged != 2 {
		t.Fatalf("PurgeExpired() = %d, %v, want 2", purged, err)
	}
	deleted, err := f.svc.ClearCache(ctx, 1)
	if err != nil || deleted != 1 {
		t.Fatalf("ClearCache() = %d, %v, want 1", deleted, err)
	}
}

func TestRecordFeedback(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.svc.RecordFeedback(ctx, 1, models.FeedbackRequest{MovieID: 5, Strategy: "hybrid", Feedback: "love"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Fields["feedback"] == "" {
		t.Fatalf("error = %v, want feedback validation error", err)
	}
	_, _, err = f.svc.RecordFeedback(ctx, 1, models.FeedbackRequest{MovieID: 5, Strategy: "nope", Feedback: "like"})
	if !errors.As(err, &ve) || ve.Fields["strategy"] == "" {
		t.Fatalf("error = %v, want strategy validation error", err)
	}

	_, created, err := f.svc.RecordFeedback(ctx, 1, models.FeedbackRequest{MovieID: 5, Strategy: "hybrid", Feedback: "like"})
	if err != nil || !created {
		t.Fatalf("first feedback created=%v err=%v", created, err)
	}
	fb, created, err := f.svc.RecordFeedback(ctx, 1, models.FeedbackRequest{MovieID: 5, Strategy: "hybrid", Feedback: "dislike"})
	if err != nil || created {
		t.Fatalf("second feedback created=%v err=%v, want update", created, err)
	}
	if fb.Feedback != "dislike" {
		t.Errorf("feedback = %q, want dislike", fb.Feedback)
	}
}

func TestAnalytics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.svc.CachePut(ctx, 1, recommend.KindTrending, []models.ScoredCandidate{
		{Movie: models.Movie{ID: 1}, Score: 0.8},
		{Movie: models.Movie{ID: 2}, Score: 0.4},
	}, time.Hour)
	f.now = f.now.Add(30 * time.Minute)
	f.svc.CachePut(ctx, 1, recommend.KindContent, []models.ScoredCandidate{
		{Movie: models.Movie{ID: 3}, Score: 0.6},
	}, 2*time.Hour)
	f.now = f.now.Add(time.Hour)

	for movieID, kind := range map[int]string{1: "like", 2: "watched", 3: "dislike", 4: "ignore"} {
		if _, _, err := f.svc.RecordFeedback(ctx, 1, models.FeedbackRequest{MovieID: movieID, Strategy: "trending", Feedback: kind}); err != nil {
			t.Fatalf("RecordFeedback() error = %v", err)
		}
	}

	a, err := f.svc.Analytics(ctx, 1)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if a.CacheEntries != 2 || a.LiveCacheEntries != 1 {
		t.Errorf("entries = %d live = %d, want 2 and 1", a.CacheEntries, a.LiveCacheEntries)
	}
	if a.FeedbackCount != 4 || a.PositiveFeedbackPercentage != 50 {
		t.Errorf("feedback = %d positive = %v, want 4 and 50", a.FeedbackCount, a.PositiveFeedbackPercentage)
	}
	if diff := a.AverageCachedScore - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("average cached score = %v, want 0.6", a.AverageCachedScore)
	}
}

func TestCacheGetMissingStoredScore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if err := f.cache.PutEntry(ctx, models.RecommendationCacheEntry{
		UserID:    4,
		Strategy:  string(recommend.KindContent),
		MovieIDs:  []int{3, 1},
		Scores:    map[int]float64{3: 0.7},
		CreatedAt: f.now,
		ExpiresAt: f.now.Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	got, ok := f.svc.CacheGet(ctx, 4, recommend.KindContent)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !reflect.DeepEqual(candidateIDs(got), []int{3, 1}) {
		t.Fatalf("ids = %v, want stored order [3 1]", candidateIDs(got))
	}
	if got[0].Score != 0.7 {
		t.Errorf("stored score = %v, want 0.7", got[0].Score)
	}
	if got[1].Score != 0 {
		t.Errorf("movie without stored score has Score %v, want 0", got[1].Score)
	}
}
