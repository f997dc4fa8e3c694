package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roster-console/api/swagger"
	"github.com/noah-isme/roster-console/internal/client"
	"github.com/noah-isme/roster-console/internal/handler"
	"github.com/noah-isme/roster-console/internal/repository"
	"github.com/noah-isme/roster-console/internal/router"
	"github.com/noah-isme/roster-console/internal/service"
	"github.com/noah-isme/roster-console/internal/session"
	"github.com/noah-isme/roster-console/pkg/cache"
	"github.com/noah-isme/roster-console/pkg/config"
	"github.com/noah-isme/roster-console/pkg/logger"
)

// @title Roster Console API
// @version 1.0.0
// @description Backend-for-frontend for the student roster administration console
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	backend := client.New(cfg.Backend, logr, metrics)
	authClient := client.NewAuthClient(backend, cfg.Backend.AccountPath)
	rosterClient := client.NewRosterClient(backend, cfg.Backend.StudentPath)

	views, closeViews, deps := buildViewStore(cfg, logr)
	defer closeViews()

	sessions := session.NewStore(cfg.Session, logr)
	dialog := service.NewStudentDialog(rosterClient, validate, logr, cfg.Roster.DefaultCreatedBy)
	coordinator := service.NewRosterCoordinator(rosterClient, views, dialog, cfg.Roster.PageSize, logr)
	authService := service.NewAuthService(authClient, validate, logr)
	exporter := service.NewExportService(coordinator, logr)

	engine := router.Setup(cfg, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, sessions, coordinator, logr),
		Roster:  handler.NewRosterHandler(coordinator, exporter, sessions, metrics, logr),
		Metrics: handler.NewMetricsHandler(metrics, deps),
	}, sessions, metrics, logr)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL, "views", cfg.Views.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logr.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server shutdown", zap.Error(err))
	}
}

// buildViewStore picks the view state backend. A Redis store that cannot be
// reached falls back to memory so the console still serves a single instance.
func buildViewStore(cfg *config.Config, logr *zap.Logger) (repository.ViewStateRepository, func(), map[string]handler.Pinger) {
	memory := func() (repository.ViewStateRepository, func(), map[string]handler.Pinger) {
		return repository.NewMemoryViewStateRepository(cfg.Views.TTL), func() {}, map[string]handler.Pinger{}
	}
	if cfg.Views.Driver != config.ViewStoreRedis {
		return memory()
	}

	rdb, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, keeping roster views in memory", zap.Error(err))
		return memory()
	}
	store := repository.NewRedisViewStateRepository(rdb, cfg.Views.TTL, logr)
	closeFn := func() {
		if err := store.Close(); err != nil {
			logr.Warn("close redis", zap.Error(err))
		}
	}
	deps := map[string]handler.Pinger{
		"redis": handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	}
	return store, closeFn, deps
}
