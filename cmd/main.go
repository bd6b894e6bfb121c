package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"movie-discovery-recommender/internal/config"
	"movie-discovery-recommender/internal/database"
	"movie-discovery-recommender/internal/handler"
	"movie-discovery-recommender/internal/metrics"
	"movie-discovery-recommender/internal/middleware"
	"movie-discovery-recommender/internal/recommend"
	"movie-discovery-recommender/internal/repository"
	"movie-discovery-recommender/internal/service"
	"movie-discovery-recommender/internal/telemetry"
	"movie-discovery-recommender/internal/tmdb"
)

const serviceName = "movie-recommender"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(ctx, cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	catalog := tmdb.NewClient(tmdb.Config{
		APIKey:          cfg.TMDB.APIKey,
		BaseURL:         cfg.TMDB.BaseURL,
		Timeout:         cfg.TMDB.Timeout,
		RateRequests:    cfg.TMDB.RateRequests,
		RateWindow:      cfg.TMDB.RateWindow,
		MaxRetries:      cfg.TMDB.MaxRetries,
		BreakerFailures: cfg.TMDB.BreakerFailures,
		BreakerTimeout:  cfg.TMDB.BreakerTimeout,
		Redis:           rdb,
	})
	if !catalog.Enabled() {
		slog.Warn("TMDB_API_KEY not set, catalog calls will fail and strategies will return empty lists")
	}

	ensemble, err := recommend.EnsembleWeights(cfg.Engine.EnsembleWeights)
	if err != nil {
		slog.Error("invalid ensemble weights", "error", err)
		os.Exit(1)
	}

	// Initialize layers
	interactionRepo := repository.NewInteractionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	similarityRepo := repository.NewSimilarityRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

	engine := recommend.NewEngine(catalog, interactionRepo, recommend.Options{
		TrendingWindow: cfg.Engine.TrendingWindow,
		Concurrency:    cfg.Engine.Concurrency,
		Ensemble:       ensemble,
		Similarity:     similarityRepo,
	})

	settingsSvc := service.NewSettingsService(settingsRepo, cacheRepo)
	prefSvc := service.NewPreferenceService(preferenceRepo, cacheRepo, rdb)
	recSvc := service.NewRecommendationService(engine, catalog, settingsSvc, cacheRepo, feedbackRepo, cfg.Engine.DiversityRerank).
		WithPreferences(prefSvc)
	interactionSvc := service.NewInteractionService(interactionRepo)
	similaritySvc := service.NewSimilarityService(similarityRepo)
	movieSvc := service.NewMovieService(catalog)

	go runCacheJanitor(ctx, recSvc, cfg.CacheJanitorInterval)

	// Load swagger spec
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger spec not found, swagger UI will be unavailable", "error", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		ServerHeader: serviceName,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(middleware.Metrics())

	if swaggerYAML != nil {
		handler.RegisterSwagger(app, "Movie Recommender", swaggerYAML)
	}

	app.Get("/health", handler.Health(serviceName, map[string]handler.CheckFunc{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	limiter := middleware.NewRateLimiter(rdb, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSec)*time.Second)
	api := app.Group("/api/v1", limiter.Handler())
	handler.NewRecommendationHandler(recSvc, settingsSvc, similaritySvc).Register(api)
	handler.NewInteractionHandler(interactionSvc).Register(api)
	handler.NewMovieHandler(movieSvc, similaritySvc).Register(api)
	handler.NewPreferenceHandler(prefSvc).Register(api)

	go func() {
		slog.Info(serviceName+" starting", "port", cfg.Port)
		if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down " + serviceName)
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// runCacheJanitor purges expired recommendation cache rows until ctx ends.
func runCacheJanitor(ctx context.Context, svc *service.RecommendationService, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				slog.Error("cache purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired recommendation cache", "rows", n)
			}
		}
	}
}
