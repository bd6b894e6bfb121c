package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"movie-discovery-recommender/internal/config"
)

// NewPostgres opens the pool, verifies connectivity and applies the schema.
func NewPostgres(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	slog.Info("connected to PostgreSQL", "host", cfg.Host, "db", cfg.DBName)

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS favorites (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			movie_id INTEGER NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, movie_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_user_created ON favorites(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_movie ON favorites(movie_id)`,
		`CREATE TABLE IF NOT EXISTS viewing_history (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			movie_id INTEGER NOT NULL,
			rating SMALLINT CHECK (rating BETWEEN 1 AND 10),
			watched_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_viewing_history_user_watched ON viewing_history(user_id, watched_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_viewing_history_movie ON viewing_history(movie_id)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id INTEGER PRIMARY KEY,
			genre_ids INTEGER[] NOT NULL DEFAULT '{}',
			avoid_genre_ids INTEGER[] NOT NULL DEFAULT '{}',
			min_rating DOUBLE PRECISION CHECK (min_rating BETWEEN 0 AND 10),
			max_runtime INTEGER CHECK (max_runtime BETWEEN 30 AND 600),
			preferred_languages TEXT[] NOT NULL DEFAULT '{}',
			include_foreign_films BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS recommendation_settings (
			user_id INTEGER PRIMARY KEY,
			prefer_content_based BOOLEAN NOT NULL DEFAULT TRUE,
			prefer_collaborative BOOLEAN NOT NULL DEFAULT TRUE,
			prefer_trending BOOLEAN NOT NULL DEFAULT FALSE,
			genre_diversity DOUBLE PRECISION NOT NULL DEFAULT 0.5 CHECK (genre_diversity BETWEEN 0 AND 1),
			release_year_range INTEGER NOT NULL DEFAULT 10 CHECK (release_year_range BETWEEN 1 AND 50),
			min_vote_average DOUBLE PRECISION NOT NULL DEFAULT 6.0 CHECK (min_vote_average BETWEEN 0 AND 10),
			min_vote_count INTEGER NOT NULL DEFAULT 100 CHECK (min_vote_count >= 0),
			max_recommendations INTEGER NOT NULL DEFAULT 20 CHECK (max_recommendations BETWEEN 5 AND 100),
			cache_duration_hours INTEGER NOT NULL DEFAULT 2 CHECK (cache_duration_hours BETWEEN 1 AND 24),
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS recommendation_cache (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			strategy VARCHAR(32) NOT NULL,
			movie_ids INTEGER[] NOT NULL,
			scores JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL,
			UNIQUE(user_id, strategy)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendation_cache_expires ON recommendation_cache(expires_at)`,
		`CREATE TABLE IF NOT EXISTS recommendation_feedback (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			movie_id INTEGER NOT NULL,
			strategy VARCHAR(32) NOT NULL,
			feedback VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, movie_id, strategy)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendation_feedback_user ON recommendation_feedback(user_id, feedback)`,
		`CREATE TABLE IF NOT EXISTS user_similarity (
			user_id INTEGER NOT NULL,
			other_user_id INTEGER NOT NULL,
			similarity_score DOUBLE PRECISION NOT NULL CHECK (similarity_score BETWEEN 0 AND 1),
			last_updated TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (user_id, other_user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_similarity_score ON user_similarity(user_id, similarity_score DESC)`,
		`CREATE TABLE IF NOT EXISTS movie_similarity (
			movie_id INTEGER NOT NULL,
			other_movie_id INTEGER NOT NULL,
			similarity_score DOUBLE PRECISION NOT NULL CHECK (similarity_score BETWEEN 0 AND 1),
			similarity_type VARCHAR(20) NOT NULL DEFAULT 'combined',
			last_updated TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (movie_id, other_movie_id, similarity_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movie_similarity_score ON movie_similarity(movie_id, similarity_score DESC)`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
