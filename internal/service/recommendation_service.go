package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"movie-discovery-recommender/internal/metrics"
	"movie-discovery-recommender/internal/models"
	"movie-discovery-recommender/internal/recommend"
	"movie-discovery-recommender/internal/repository"
)

const (
	maxLimit = 100
	// candidatePoolFactor over-fetches so filtering still leaves limit results.
	candidatePoolFactor = 2
	hydrateConcurrency  = 8
)

// Recommender produces scored candidates for a strategy.
type Recommender interface {
	Recommend(ctx context.Context, kind recommend.Kind, userID, limit int, settings models.RecommendationSettings) ([]models.ScoredCandidate, error)
}

// MovieDetailer loads catalog details for a single movie.
type MovieDetailer interface {
	MovieDetails(ctx context.Context, id int) (*models.Movie, error)
}

// PreferenceReader returns a user's taste filters.
type PreferenceReader interface {
	Get(ctx context.Context, userID int) (*models.UserPreference, error)
}

// SettingsProvider returns a user's settings, creating defaults lazily.
type SettingsProvider interface {
	GetOrCreate(ctx context.Context, userID int) (*models.RecommendationSettings, error)
}

// CacheStore persists one ranked recommendation list per (user, strategy).
type CacheStore interface {
	CacheInvalidator
	GetEntry(ctx context.Context, userID int, strategy string) (*models.RecommendationCacheEntry, error)
	PutEntry(ctx context.Context, entry models.RecommendationCacheEntry) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
	ListForUser(ctx context.Context, userID int) ([]models.RecommendationCacheEntry, error)
}

// FeedbackStore persists feedback on recommended movies.
type FeedbackStore interface {
	UpsertFeedback(ctx context.Context, fb models.RecommendationFeedback) (*models.RecommendationFeedback, bool, error)
	CountFeedback(ctx context.Context, userID int) (map[string]int, error)
}

// RecommendationRequest holds the caller's recommendation parameters.
// Limit 0 selects the user's max_recommendations.
type RecommendationRequest struct {
	Type         string
	Limit        int
	ForceRefresh bool
}

// RecommendationService serves cached or freshly computed recommendations.
type RecommendationService struct {
	engine   Recommender
	catalog  MovieDetailer
	settings SettingsProvider
	cache    CacheStore
	feedback FeedbackStore
	prefs    PreferenceReader

	diversityRerank bool
	now             func() time.Time
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(
	engine Recommender,
	catalog MovieDetailer,
	settings SettingsProvider,
	cache CacheStore,
	feedback FeedbackStore,
	diversityRerank bool,
) *RecommendationService {
	return &RecommendationService{
		engine:          engine,
		catalog:         catalog,
		settings:        settings,
		cache:           cache,
		feedback:        feedback,
		diversityRerank: diversityRerank,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithPreferences makes freshly computed lists honour the user's stored
// preferences.
func (s *RecommendationService) WithPreferences(prefs PreferenceReader) *RecommendationService {
	s.prefs = prefs
	return s
}

// GetRecommendations returns recommendations for a user. Invalid input is
// rejected with a *ValidationError before any strategy runs; everything
// else degrades instead of failing.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID int, req RecommendationRequest) (*models.RecommendationResponse, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	kind, err := recommend.ParseKind(req.Type)
	if err != nil {
		return nil, invalid("type", err.Error())
	}
	if req.Limit < 0 || req.Limit > maxLimit {
		return nil, invalid("limit", fmt.Sprintf("must be between 1 and %d", maxLimit))
	}

	settings := s.userSettings(ctx, userID)
	limit := req.Limit
	if limit == 0 {
		limit = settings.MaxRecommendations
	}

	resp := &models.RecommendationResponse{
		RequestID: uuid.NewString(),
		UserID:    userID,
		Strategy:  string(kind),
	}

	if !req.ForceRefresh {
		if cached, ok := s.CacheGet(ctx, userID, kind); ok {
			metrics.RecommendRequestsTotal.WithLabelValues(string(kind), "true").Inc()
			resp.Cached = true
			resp.GeneratedAt = s.now()
			resp.Recommendations = truncate(cached, limit)
			resp.TotalCount = len(resp.Recommendations)
			return resp, nil
		}
	}

	candidates, err := s.engine.Recommend(ctx, kind, userID, limit*candidatePoolFactor, settings)
	if err != nil {
		return nil, err
	}
	results := recommend.Filter(candidates, settings, s.now())
	results = s.applyPreferences(ctx, userID, results)
	if s.diversityRerank {
		results = recommend.Rerank(results, recommend.DiversityLambda(settings))
	}

	if len(results) > 0 && ctx.Err() == nil {
		s.CachePut(ctx, userID, kind, results, settings.CacheTTL())
	}

	metrics.RecommendRequestsTotal.WithLabelValues(string(kind), "false").Inc()
	resp.GeneratedAt = s.now()
	resp.Recommendations = truncate(results, limit)
	resp.TotalCount = len(resp.Recommendations)
	return resp, nil
}

// applyPreferences drops candidates the user's preferences reject. A failed
// lookup leaves the list unfiltered.
func (s *RecommendationService) applyPreferences(ctx context.Context, userID int, in []models.ScoredCandidate) []models.ScoredCandidate {
	if s.prefs == nil {
		return in
	}
	pref, err := s.prefs.Get(ctx, userID)
	if err != nil {
		slog.Warn("skipping user preferences", "user_id", userID, "error", err)
		return in
	}
	out := in[:0:0]
	for _, c := range in {
		if pref.ShouldRecommend(c.Movie) {
			out = append(out, c)
		}
	}
	return out
}

// userSettings falls back to defaults when settings cannot be loaded.
func (s *RecommendationService) userSettings(ctx context.Context, userID int) models.RecommendationSettings {
	settings, err := s.settings.GetOrCreate(ctx, userID)
	if err != nil {
		slog.Warn("using default recommendation settings", "user_id", userID, "error", err)
		return models.DefaultSettings(userID)
	}
	return *settings
}

// CacheGet returns the cached list for (user, kind) when an entry exists
// and expires strictly after now. Catalog details are re-fetched for every
// stored movie id; scores come from the stored score map, and a movie
// without a stored score is returned with Score 0.
func (s *RecommendationService) CacheGet(ctx context.Context, userID int, kind recommend.Kind) ([]models.ScoredCandidate, bool) {
	entry, err := s.cache.GetEntry(ctx, userID, string(kind))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("recommendation cache read failed", "user_id", userID, "strategy", kind, "error", err)
		}
		metrics.CacheEventsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if !entry.ExpiresAt.After(s.now()) {
		metrics.CacheEventsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}

	movies := make([]*models.Movie, len(entry.MovieIDs))
	var g errgroup.Group
	g.SetLimit(hydrateConcurrency)
	for i, id := range entry.MovieIDs {
		g.Go(func() error {
			m, err := s.catalog.MovieDetails(ctx, id)
			if err != nil {
				slog.Debug("cached movie details unavailable", "movie_id", id, "error", err)
				return nil
			}
			movies[i] = m
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.ScoredCandidate, 0, len(movies))
	for _, m := range movies {
		if m == nil {
			continue
		}
		c := models.ScoredCandidate{Movie: *m}
		if score, ok := entry.Scores[m.ID]; ok {
			c.Score = score
		} else {
			slog.Debug("cached movie has no stored score", "user_id", userID, "movie_id", m.ID)
		}
		out = append(out, c)
	}
	if len(out) == 0 || ctx.Err() != nil {
		metrics.CacheEventsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	slog.Debug("recommendation cache hit", "user_id", userID, "strategy", kind)
	metrics.CacheEventsTotal.WithLabelValues("hit").Inc()
	return out, true
}

// CachePut replaces the cached list for (user, kind), expiring after ttl.
// Write failures are logged and otherwise ignored.
func (s *RecommendationService) CachePut(ctx context.Context, userID int, kind recommend.Kind, list []models.ScoredCandidate, ttl time.Duration) {
	now := s.now()
	entry := models.RecommendationCacheEntry{
		UserID:    userID,
		Strategy:  string(kind),
		MovieIDs:  make([]int, 0, len(list)),
		Scores:    make(map[int]float64, len(list)),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	for _, c := range list {
		entry.MovieIDs = append(entry.MovieIDs, c.ID)
		entry.Scores[c.ID] = c.Score
	}
	if err := s.cache.PutEntry(ctx, entry); err != nil {
		slog.Error("failed to cache recommendations", "user_id", userID, "strategy", kind, "error", err)
		return
	}
	metrics.CacheEventsTotal.WithLabelValues("write").Inc()
}

// ClearCache deletes every cached list of the user and returns the count.
func (s *RecommendationService) ClearCache(ctx context.Context, userID int) (int, error) {
	if userID <= 0 {
		return 0, invalid("user_id", "must be a positive integer")
	}
	n, err := s.cache.DeleteForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	metrics.CacheEventsTotal.WithLabelValues("invalidate").Add(float64(n))
	return n, nil
}

// PurgeExpired deletes cache entries that have expired.
func (s *RecommendationService) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.cache.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	metrics.CacheEventsTotal.WithLabelValues("purge").Add(float64(n))
	return n, nil
}

// RecordFeedback upserts feedback on (user, movie, strategy). created
// reports whether a new record was inserted.
func (s *RecommendationService) RecordFeedback(ctx context.Context, userID int, req models.FeedbackRequest) (*models.RecommendationFeedback, bool, error) {
	if userID <= 0 {
		return nil, false, invalid("user_id", "must be a positive integer")
	}
	if err := validateStruct(req); err != nil {
		return nil, false, err
	}
	kind, err := recommend.ParseKind(req.Strategy)
	if err != nil {
		return nil, false, invalid("strategy", err.Error())
	}

	return s.feedback.UpsertFeedback(ctx, models.RecommendationFeedback{
		UserID:   userID,
		MovieID:  req.MovieID,
		Strategy: string(kind),
		Feedback: req.Feedback,
	})
}

// Analytics summarizes the user's cache entries and feedback.
func (s *RecommendationService) Analytics(ctx context.Context, userID int) (*models.RecommendationAnalytics, error) {
	if userID <= 0 {
		return nil, invalid("user_id", "must be a positive integer")
	}
	entries, err := s.cache.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.feedback.CountFeedback(ctx, userID)
	if err != nil {
		return nil, err
	}

	a := &models.RecommendationAnalytics{UserID: userID, CacheEntries: len(entries)}
	now := s.now()
	var scoreSum float64
	var scoreCount int
	for _, e := range entries {
		if e.ExpiresAt.After(now) {
			a.LiveCacheEntries++
		}
		for _, score := range e.Scores {
			scoreSum += score
			scoreCount++
		}
	}
	if scoreCount > 0 {
		a.AverageCachedScore = scoreSum / float64(scoreCount)
	}

	var positive int
	for kind, n := range counts {
		a.FeedbackCount += n
		if kind == models.FeedbackLike || kind == models.FeedbackWatched {
			positive += n
		}
	}
	if a.FeedbackCount > 0 {
		a.PositiveFeedbackPercentage = float64(positive) / float64(a.FeedbackCount) * 100
	}
	return a, nil
}

func truncate(cands []models.ScoredCandidate, limit int) []models.ScoredCandidate {
	if cands == nil {
		return []models.ScoredCandidate{}
	}
	if len(cands) > limit {
		return cands[:limit]
	}
	return cands
}
