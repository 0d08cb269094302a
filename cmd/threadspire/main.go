package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/akashdesaidev/Threadspire/internal/config"
	"github.com/akashdesaidev/Threadspire/internal/infra/cache"
	"github.com/akashdesaidev/Threadspire/internal/infra/database"
	"github.com/akashdesaidev/Threadspire/internal/infra/memstore"
	"github.com/akashdesaidev/Threadspire/internal/infra/repository"
	"github.com/akashdesaidev/Threadspire/internal/present/rest"
	authmw "github.com/akashdesaidev/Threadspire/internal/present/rest/middleware"
	"github.com/akashdesaidev/Threadspire/internal/service"
	"github.com/akashdesaidev/Threadspire/internal/usecase"
)

const (
	serviceName = "threadspire"
	version     = "0.1.0"
)

func main() {
	cfg, err := config.Load(os.Getenv("THREADSPIRE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()), slog.String("module", "main"))
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Server))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.EnableTrace {
		shutdown, err := setupTraceProvider(ctx, cfg.Server.TraceEndpoint, serviceName, version)
		if err != nil {
			slog.Error("failed to setup trace provider", slog.String("error", err.Error()), slog.String("module", "main"))
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("failed to shutdown trace provider", slog.String("error", err.Error()), slog.String("module", "main"))
			}
		}()
	}

	threads, users, err := newStore(cfg.Server)
	if err != nil {
		slog.Error("failed to open storage", slog.String("error", err.Error()), slog.String("module", "main"))
		os.Exit(1)
	}
	summaries := newAnalyticsCache(cfg.Server)

	bookmark := usecase.NewBookmarkUsecase(threads, users, summaries)
	analytics := usecase.NewAnalyticsUsecase(threads, users, summaries)
	handler := rest.NewHandler(
		usecase.NewThreadUsecase(threads, users, summaries, bookmark),
		usecase.NewReactionUsecase(threads, summaries),
		bookmark,
		usecase.NewUserUsecase(users, analytics),
		analytics,
	)
	auth := authmw.NewAuthMiddleware(service.NewAuthService(cfg.Auth))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(auth.IdentifyIdentity)
	handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		slog.Info(
			"threadspire started",
			slog.String("listen", cfg.Server.Listen),
			slog.String("storage", cfg.Server.Storage),
			slog.String("cache", cfg.Server.Cache),
			slog.String("module", "main"),
		)
		if err := e.Start(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("error", err.Error()), slog.String("module", "main"))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()), slog.String("module", "main"))
	}
}

func newLogger(cfg config.Server) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newStore(cfg config.Server) (usecase.ThreadRepository, usecase.UserRepository, error) {
	if cfg.Storage == "memory" {
		return memstore.NewThreadRepository(), memstore.NewUserRepository(), nil
	}

	db, err := database.NewPostgres(cfg.PostgresDsn, cfg.SlowQueryLimit)
	if err != nil {
		return nil, nil, err
	}
	if err := database.MigratePostgres(db); err != nil {
		return nil, nil, err
	}
	return repository.NewThreadRepository(db), repository.NewUserRepository(db), nil
}

func newAnalyticsCache(cfg config.Server) usecase.AnalyticsCache {
	switch cfg.Cache {
	case "redis":
		return cache.NewRedisCache(database.NewRedis(cfg), cfg.CacheTTL)
	case "memcached":
		return cache.NewMemcachedCache(database.NewMemcached(cfg), cfg.CacheTTL)
	case "memory":
		return cache.NewMemoryCache(cfg.CacheTTL)
	default:
		return nil
	}
}
