package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediacache/internal/api/handler"
	"github.com/hszk-dev/mediacache/internal/api/middleware"
	"github.com/hszk-dev/mediacache/internal/config"
	"github.com/hszk-dev/mediacache/internal/domain/model"
	"github.com/hszk-dev/mediacache/internal/domain/repository"
	"github.com/hszk-dev/mediacache/internal/extractor"
	"github.com/hszk-dev/mediacache/internal/infrastructure/cache"
	"github.com/hszk-dev/mediacache/internal/infrastructure/postgres"
	"github.com/hszk-dev/mediacache/internal/infrastructure/queue"
	"github.com/hszk-dev/mediacache/internal/infrastructure/storage"
	"github.com/hszk-dev/mediacache/internal/recognizer"
	"github.com/hszk-dev/mediacache/internal/transcoder"
	"github.com/hszk-dev/mediacache/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Extractor.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	checks := make(map[string]handler.Checker)

	// Persistent cache tier
	var persistent repository.MediaLinkRepository
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")
		persistent = cache.NewRedisMediaLinkRepository(redisClient)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	default:
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()
		logger.Info("connected to PostgreSQL")

		if err := postgres.EnsureSchema(ctx, pgClient.Pool()); err != nil {
			return err
		}
		persistent = postgres.NewMediaLinkRepository(pgClient.Pool())
		checks["postgres"] = pgClient.Ping
		prometheus.MustRegister(pgClient.Collector())
	}

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:       cfg.MinIO.Endpoint,
		PublicEndpoint: cfg.MinIO.PublicEndpoint,
		AccessKey:      cfg.MinIO.AccessKey,
		SecretKey:      cfg.MinIO.SecretKey,
		Bucket:         cfg.MinIO.Bucket,
		UseSSL:         cfg.MinIO.UseSSL,
		CreateBucket:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")
	checks["minio"] = storageClient.Ping

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.MaxRetries = cfg.Worker.MaxRetries
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	// In-process tiers
	mediaMemory, err := cache.NewMemoryCache[*model.CacheEntry](cfg.Cache.MediaSize, cfg.Cache.MediaTTL)
	if err != nil {
		return fmt.Errorf("failed to create media cache: %w", err)
	}
	searchMemory, err := cache.NewMemoryCache[*model.SearchResultSet](cfg.Cache.SearchSize, cfg.Cache.SearchTTL)
	if err != nil {
		return fmt.Errorf("failed to create search cache: %w", err)
	}
	go sweepExpired(ctx, cfg.Cache.CleanupInterval, mediaMemory.CleanupExpired, searchMemory.CleanupExpired)

	// Extraction
	runner := extractor.NewExecRunner(cfg.Extractor.BinaryPath)
	resolver := extractor.NewResolver(runner, extractorConfig(cfg))
	searcher := extractor.NewSearcher(runner, cfg.Extractor.SearchTimeout)

	// Services
	cacheSvc := usecase.NewCacheService(mediaMemory, persistent)
	mediaSvc := usecase.NewMediaService(resolver, queueClient)
	publishSvc := usecase.NewPublishService(mediaSvc, cacheSvc, storageClient)
	searchSvc := usecase.NewSearchService(searcher, searchMemory)

	var recognizeHandler *handler.RecognizeHandler
	if cfg.Recognizer.Enabled() {
		provider := recognizer.NewHTTPProvider(cfg.Recognizer.Endpoint, cfg.Recognizer.APIToken, &http.Client{
			Timeout: cfg.Recognizer.Timeout,
		})
		tc := transcoder.NewFFmpegTranscoder(transcoder.FFmpegConfig{
			FFmpegPath:  cfg.Recognizer.FFmpegPath,
			ClipSeconds: cfg.Recognizer.ClipSeconds,
			SampleRate:  44100,
			Channels:    1,
		})
		rec := recognizer.NewRecognizer(provider, searcher, tc, recognizer.Config{
			Timeout: cfg.Recognizer.Timeout,
			TempDir: cfg.Extractor.TempDir,
		})
		recognizeHandler = handler.NewRecognizeHandler(rec, cfg.Extractor.TempDir, cfg.Server.MaxClipBytes)
	} else {
		logger.Info("music recognition disabled, RECOGNIZER_ENDPOINT not set")
	}

	r := setupRouter(logger, routes{
		media:     handler.NewMediaHandler(mediaSvc, cacheSvc, publishSvc, storageClient, cfg.Server.DownloadLinkTTL),
		search:    handler.NewSearchHandler(searchSvc),
		recognize: recognizeHandler,
		checks:    checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

type routes struct {
	media     *handler.MediaHandler
	search    *handler.SearchHandler
	recognize *handler.RecognizeHandler
	checks    map[string]handler.Checker
}

func setupRouter(logger *slog.Logger, h routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready(h.checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/detect", h.media.Detect)
		r.Post("/resolve", h.media.Resolve)
		r.Post("/fetch", h.media.Fetch)

		r.Get("/cache", h.media.GetCache)
		r.Put("/cache", h.media.PutCache)
		r.Delete("/cache", h.media.DeleteCache)
		r.Get("/cache/content", h.media.GetContent)

		r.Post("/search", h.search.Search)
		r.Get("/search/{session}/pages/{page}", h.search.GetPage)
		r.Get("/search/{session}/videos/{id}", h.search.SelectVideo)

		if h.recognize != nil {
			r.Post("/recognize", h.recognize.Recognize)
		}
	})

	return r
}

func extractorConfig(cfg *config.Config) extractor.Config {
	return extractor.Config{
		TempDir:        cfg.Extractor.TempDir,
		PrimaryTimeout: cfg.Extractor.PrimaryTimeout,
		AudioTimeout:   cfg.Extractor.AudioTimeout,
		FetchTimeout:   cfg.Extractor.FetchTimeout,
		RatePerMinute:  cfg.Extractor.RatePerMinute,
		UserAgent:      cfg.Extractor.UserAgent,
		Cookies: extractor.CookieConfig{
			OverrideFile:  cfg.Cookies.OverrideFile,
			YouTubeFile:   cfg.Cookies.YouTubeFile,
			InstagramFile: cfg.Cookies.InstagramFile,
			FallbackFile:  cfg.Cookies.FallbackFile,
			DefaultFile:   cfg.Cookies.DefaultFile,
		},
	}
}

// sweepExpired drops expired memory-tier entries until ctx is done.
func sweepExpired(ctx context.Context, interval time.Duration, sweeps ...func() int) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, sweep := range sweeps {
				removed += sweep()
			}
			if removed > 0 {
				slog.Debug("expired cache entries removed", "count", removed)
			}
		}
	}
}
