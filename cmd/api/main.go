package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/forensiq/internal/application"
	appai "github.com/bryanwahyu/forensiq/internal/application/ai"
	appinv "github.com/bryanwahyu/forensiq/internal/application/investigations"
	"github.com/bryanwahyu/forensiq/internal/config"
	domai "github.com/bryanwahyu/forensiq/internal/domain/ai"
	"github.com/bryanwahyu/forensiq/internal/domain/artifacterrors"
	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
	"github.com/bryanwahyu/forensiq/internal/infra/ai/gemini"
	"github.com/bryanwahyu/forensiq/internal/infra/ai/offline"
	"github.com/bryanwahyu/forensiq/internal/infra/ai/openai"
	"github.com/bryanwahyu/forensiq/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/forensiq/internal/infra/db/mysql"
	"github.com/bryanwahyu/forensiq/internal/infra/db/postgres"
	"github.com/bryanwahyu/forensiq/internal/infra/httpserver"
	"github.com/bryanwahyu/forensiq/internal/infra/locker"
	"github.com/bryanwahyu/forensiq/internal/infra/parsers"
	minioStore "github.com/bryanwahyu/forensiq/internal/infra/storage"
	"github.com/bryanwahyu/forensiq/internal/logger"
	"github.com/bryanwahyu/forensiq/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	checks := map[string]middleware.HealthChecker{}

	repo, artErrs, db, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database init error")
	}
	if db != nil {
		defer db.Close()
		checks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	} else if hc, ok := repo.(middleware.HealthChecker); ok {
		checks["database"] = hc
	}

	lk, err := locker.New(cfg.Locker.Root, cfg.Locker.Retain, log)
	if err != nil {
		log.Fatal().Err(err).Msg("locker init error")
	}
	if err := lk.Clear(); err != nil {
		log.Warn().Err(err).Msg("locker clear")
	}
	checks["locker"] = lk

	svc := &appinv.Service{
		Repo:           repo,
		ArtifactErrors: artErrs,
		Locker:         lk,
		Parsers:        parsers.NewRouter(),
		Clock:          application.SystemClock{},
		Log:            log,
	}

	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("minio init error")
		}
		svc.Archive = store
		checks["archive"] = store
	}

	aiClient, provider, err := newAIClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("ai init error")
	}
	summarizer := appai.NewService(aiClient, log)
	if cfg.AI.BatchSize > 0 {
		summarizer.BatchSize = cfg.AI.BatchSize
	}
	if cfg.AI.MaxBatchChars > 0 {
		summarizer.MaxBatchChars = cfg.AI.MaxBatchChars
	}
	if cfg.AI.MaxPromptChars > 0 {
		summarizer.MaxPromptChars = cfg.AI.MaxPromptChars
	}
	summarizer.BatchTimeout = cfg.AI.Timeout
	svc.Reporter = summarizer
	log.Info().Str("provider", provider).Msg("summarizer ready")

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate)
	defer limiter.Close()

	handler := httpserver.NewRouter(svc, httpserver.Options{
		Log:            log,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
		RateLimiter:    limiter,
		Checks:         checks,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func openRepositories(ctx context.Context, cfg *config.Config) (domain.Repository, artifacterrors.Repository, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return mysqlp.NewInvestigationRepository(db), mysqlp.NewArtifactErrorRepository(db), db, nil

	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return postgres.NewInvestigationRepository(db), postgres.NewArtifactErrorRepository(db), db, nil

	case "memory":
		repo, err := memory.NewInvestigationRepository(cfg.Database.Capacity)
		if err != nil {
			return nil, nil, nil, err
		}
		errs, err := memory.NewArtifactErrorRepository(cfg.Database.Capacity)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, errs, nil, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown database driver %q (memory, mysql, postgres)", cfg.Database.Driver)
}

// newAIClient picks the summarizer backend. "auto" prefers OpenAI, then
// Gemini, then the offline rule engine.
func newAIClient(ctx context.Context, cfg *config.Config) (domai.Client, string, error) {
	provider := cfg.AI.Provider
	if provider == "auto" {
		switch {
		case cfg.AI.OpenAIKey != "":
			provider = "openai"
		case cfg.AI.GeminiKey != "":
			provider = "gemini"
		default:
			provider = "offline"
		}
	}

	switch provider {
	case "openai":
		if cfg.AI.OpenAIKey == "" {
			return nil, "", fmt.Errorf("openai provider needs OPENAI_API_KEY")
		}
		if cfg.AI.OpenAIBaseURL != "" {
			return openai.NewClientWithBaseURL(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel, cfg.AI.OpenAIBaseURL), provider, nil
		}
		return openai.NewClient(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel), provider, nil
	case "gemini":
		if cfg.AI.GeminiKey == "" {
			return nil, "", fmt.Errorf("gemini provider needs GEMINI_API_KEY")
		}
		var (
			c   *gemini.Client
			err error
		)
		if cfg.AI.GeminiBaseURL != "" {
			c, err = gemini.NewClientWithBaseURL(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel, cfg.AI.GeminiBaseURL)
		} else {
			c, err = gemini.NewClient(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel)
		}
		if err != nil {
			return nil, "", err
		}
		return c, provider, nil
	case "offline":
		return offline.NewClient(), provider, nil
	}
	return nil, "", fmt.Errorf("unknown ai provider %q", provider)
}
