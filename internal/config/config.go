package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the recommender service.
type Config struct {
	DB        DBConfig
	Redis     RedisConfig
	TMDB      TMDBConfig
	Engine    EngineConfig
	RateLimit RateLimitConfig
	Port      string

	CacheJanitorInterval time.Duration
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SSLRootCert string
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// Client-side request budget: RateRequests per RateWindow.
	RateRequests int
	RateWindow   time.Duration

	// Retries after a 429 response.
	MaxRetries int

	BreakerFailures int
	BreakerTimeout  time.Duration
}

// EngineConfig tunes the recommendation engine.
type EngineConfig struct {
	TrendingWindow  string
	Concurrency     int
	EnsembleWeights map[string]float64
	DiversityRerank bool
}

// RateLimitConfig controls the inbound API rate limiter.
type RateLimitConfig struct {
	MaxRequests int
	WindowSec   int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	weights, err := ParseWeights(getEnv("RECOMMEND_ENSEMBLE_WEIGHTS", ""))
	if err != nil {
		return nil, fmt.Errorf("RECOMMEND_ENSEMBLE_WEIGHTS: %w", err)
	}

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        dbPort,
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "recommendation_service"),
			SSLMode:     getEnv("DB_SSLMODE", "verify-ca"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		TMDB: TMDBConfig{
			APIKey:          getEnv("TMDB_API_KEY", ""),
			BaseURL:         getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			Timeout:         getDuration("TMDB_TIMEOUT", 10*time.Second),
			RateRequests:    getInt("TMDB_RATE_REQUESTS", 40),
			RateWindow:      getDuration("TMDB_RATE_WINDOW", 10*time.Second),
			MaxRetries:      getInt("TMDB_MAX_RETRIES", 1),
			BreakerFailures: getInt("TMDB_BREAKER_FAILURES", 5),
			BreakerTimeout:  getDuration("TMDB_BREAKER_TIMEOUT", 30*time.Second),
		},
		Engine: EngineConfig{
			TrendingWindow:  getEnv("RECOMMEND_TRENDING_WINDOW", "week"),
			Concurrency:     getInt("RECOMMEND_CONCURRENCY", 8),
			EnsembleWeights: weights,
			DiversityRerank: getBool("RECOMMEND_DIVERSITY_RERANK", false),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getInt("RATE_LIMIT_MAX_REQUESTS", 100),
			WindowSec:   getInt("RATE_LIMIT_WINDOW_SEC", 60),
		},
		Port:                 getEnv("SERVER_PORT", "8083"),
		CacheJanitorInterval: getDuration("CACHE_JANITOR_INTERVAL", 15*time.Minute),
	}

	if cfg.Engine.TrendingWindow != "day" && cfg.Engine.TrendingWindow != "week" {
		return nil, fmt.Errorf("RECOMMEND_TRENDING_WINDOW must be day or week, got %q", cfg.Engine.TrendingWindow)
	}

	return cfg, nil
}

// ParseWeights parses "name=0.25,other=0.75" into a weight map.
// An empty string yields a nil map, meaning "use the built-in weights".
func ParseWeights(raw string) (map[string]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	weights := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed weight %q", part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("invalid weight for %s: %q", name, value)
		}
		weights[strings.TrimSpace(name)] = w
	}
	return weights, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
