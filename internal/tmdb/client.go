package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"movie-discovery-recommender/internal/metrics"
	"movie-discovery-recommender/internal/models"
)

const (
	defaultBaseURL    = "https://api.themoviedb.org/3"
	redisKeyPrefix    = "tmdb:"
	defaultRetryAfter = 10 * time.Second
	maxRetryAfter     = 30 * time.Second
	maxBodyBytes      = 4 << 20
)

// Response cache lifetimes per endpoint family.
const (
	trendingCacheTTL = 30 * time.Minute
	popularCacheTTL  = time.Hour
	detailsCacheTTL  = 24 * time.Hour
	genresCacheTTL   = 24 * time.Hour
	searchCacheTTL   = 15 * time.Minute
	discoverCacheTTL = time.Hour
)

// Config configures a Client. Zero values fall back to TMDB's published
// limits (40 requests per 10 seconds) and a 10 second call timeout.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	RateRequests int
	RateWindow   time.Duration
	MaxRetries   int

	BreakerFailures int
	BreakerTimeout  time.Duration

	HTTPClient *http.Client
	Redis      *redis.Client
}

// Client is the TMDB API client.
type Client struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	redis      *redis.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	maxRetries int

	// sleep waits out a Retry-After delay; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new TMDB API client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	reqs, window := cfg.RateRequests, cfg.RateWindow
	if reqs <= 0 || window <= 0 {
		reqs, window = 40, 10*time.Second
	}
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpClient,
		redis:      cfg.Redis,
		limiter:    rate.NewLimiter(rate.Every(window/time.Duration(reqs)), reqs),
		breaker:    newBreaker(failures, breakerTimeout),
		maxRetries: maxRetries,
		sleep:      sleepContext,
	}
}

func newBreaker(failures int, timeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("catalog circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				metrics.CatalogBreakerOpen.Set(1)
			} else {
				metrics.CatalogBreakerOpen.Set(0)
			}
		},
	})
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// ---- Catalog queries ----

// Trending returns trending movies for window "day" or "week".
func (c *Client) Trending(ctx context.Context, window string, page int) (*models.MoviePage, error) {
	if window != "day" && window != "week" {
		window = "day"
	}
	params := url.Values{"page": {strconv.Itoa(pageOrFirst(page))}}
	return c.getPage(ctx, "trending", "/trending/movie/"+window, params, trendingCacheTTL)
}

// Popular returns the popular movie listing.
func (c *Client) Popular(ctx context.Context, page int) (*models.MoviePage, error) {
	params := url.Values{"page": {strconv.Itoa(pageOrFirst(page))}}
	return c.getPage(ctx, "popular", "/movie/popular", params, popularCacheTTL)
}

// Search searches movies by title. year is ignored when zero.
func (c *Client) Search(ctx context.Context, query string, page, year int) (*models.MoviePage, error) {
	params := url.Values{
		"query":         {strings.TrimSpace(query)},
		"page":          {strconv.Itoa(pageOrFirst(page))},
		"include_adult": {"false"},
	}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	return c.getPage(ctx, "search", "/search/movie", params, searchCacheTTL)
}

// Discover lists movies matching p.
func (c *Client) Discover(ctx context.Context, p models.DiscoverParams) (*models.MoviePage, error) {
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params := url.Values{
		"page":    {strconv.Itoa(pageOrFirst(p.Page))},
		"sort_by": {sortBy},
	}
	if len(p.GenreIDs) > 0 {
		ids := make([]string, len(p.GenreIDs))
		for i, id := range p.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	if p.MinVoteAverage > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(p.MinVoteAverage, 'f', -1, 64))
	}
	if p.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(p.MinVoteCount))
	}
	if p.Year > 0 {
		params.Set("year", strconv.Itoa(p.Year))
	}
	return c.getPage(ctx, "discover", "/discover/movie", params, discoverCacheTTL)
}

// MovieDetails fetches detailed movie info.
func (c *Client) MovieDetails(ctx context.Context, id int) (*models.Movie, error) {
	body, err := c.get(ctx, "details", fmt.Sprintf("/movie/%d", id), nil, detailsCacheTTL)
	if err != nil {
		return nil, err
	}
	var movie models.Movie
	if err := json.Unmarshal(body, &movie); err != nil {
		return nil, fmt.Errorf("failed to decode movie detail response: %w", err)
	}
	return &movie, nil
}

// MovieRecommendations returns TMDB's own recommendations for a movie.
func (c *Client) MovieRecommendations(ctx context.Context, id, page int) (*models.MoviePage, error) {
	params := url.Values{"page": {strconv.Itoa(pageOrFirst(page))}}
	return c.getPage(ctx, "recommendations", fmt.Sprintf("/movie/%d/recommendations", id), params, discoverCacheTTL)
}

// SimilarMovies returns movies TMDB considers similar to a movie.
func (c *Client) SimilarMovies(ctx context.Context, id, page int) (*models.MoviePage, error) {
	params := url.Values{"page": {strconv.Itoa(pageOrFirst(page))}}
	return c.getPage(ctx, "similar", fmt.Sprintf("/movie/%d/similar", id), params, discoverCacheTTL)
}

// Genres fetches all movie genres.
func (c *Client) Genres(ctx context.Context) ([]models.Genre, error) {
	body, err := c.get(ctx, "genres", "/genre/movie/list", nil, genresCacheTTL)
	if err != nil {
		return nil, err
	}
	var result struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode genres response: %w", err)
	}
	return result.Genres, nil
}

// ---- Transport ----

func (c *Client) getPage(ctx context.Context, endpoint, path string, params url.Values, ttl time.Duration) (*models.MoviePage, error) {
	body, err := c.get(ctx, endpoint, path, params, ttl)
	if err != nil {
		return nil, err
	}
	var page models.MoviePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return &page, nil
}

// get returns the raw body for path, served from Redis when possible.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, ttl time.Duration) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: TMDB API key not configured", ErrUnavailable)
	}

	cacheKey := redisKeyPrefix + endpoint + ":" + path + "?" + params.Encode()
	if cached, ok := c.getFromCache(ctx, cacheKey); ok {
		slog.Debug("TMDB cache hit", "key", cacheKey)
		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "cached").Inc()
		return cached, nil
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, endpoint, path, params)
	})
	metrics.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "ok").Inc()

	c.setCache(ctx, cacheKey, body, ttl)
	return body, nil
}

// fetch performs the HTTP call, waiting on the shared rate limiter and
// honoring Retry-After on 429 up to maxRetries times.
func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + query.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}

		slog.Debug("fetching TMDB", "endpoint", endpoint, "path", path, "attempt", attempt)
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: HTTP request failed: %v", ErrUnavailable, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			slog.Warn("TMDB rate limited, retrying", "endpoint", endpoint, "retry_after", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet := string(body)
			if len(snippet) > 256 {
				snippet = snippet[:256]
			}
			return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(snippet)}
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, readErr)
		}
		return body, nil
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func pageOrFirst(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ---- Redis Helpers ----

func (c *Client) getFromCache(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Client) setCache(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Error("failed to set TMDB cache", "key", key, "error", err)
	}
}
