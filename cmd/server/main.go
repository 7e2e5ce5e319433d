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

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/cache"
	"github.com/language-gems/analytics-service/internal/config"
	"github.com/language-gems/analytics-service/internal/handlers"
	"github.com/language-gems/analytics-service/internal/repositories/postgres"
	"github.com/language-gems/analytics-service/internal/services"
	"github.com/language-gems/analytics-service/internal/utils"
	"github.com/language-gems/analytics-service/internal/validator"
	"github.com/language-gems/analytics-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewDefaultLogger()
	if !cfg.IsProduction() {
		logger = utils.NewDevelopmentLogger()
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	slogger := utils.ToSlogLogger(logger)

	if err := run(cfg, logger, slogger); err != nil {
		slogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger, slogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := cache.NewNoopCache()
	if cfg.CacheEnabled {
		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			slogger.Warn("Report cache disabled", "error", err)
		} else {
			defer client.Close()
			store = cache.NewRedisCache(client, slogger)
		}
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	serviceManager := services.NewServiceManager(postgres.NewRepository(db), slogger, validator.New(), services.Options{
		Cache:     store,
		CacheTTL:  cfg.CacheTTL,
		Location:  location,
		Publisher: publisher,
	})
	router := handlers.NewRouter(handlers.NewHandlerManager(serviceManager, logger), logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slogger.Info("Analytics service starting", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slogger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
