package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mealdash/api/internal/config"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/events"
	"github.com/mealdash/api/internal/logger"
	"github.com/mealdash/api/internal/router"
	"github.com/mealdash/api/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)
	defer logger.Sync()

	if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsURL); err != nil {
		logger.L().Fatal("migrations failed", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("connect to database failed", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.L().Fatal("database ping failed", zap.Error(err))
	}

	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.Connect(cfg.AMQPURL)
		if err != nil {
			logger.L().Warn("event broker unavailable, publishing disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	queries := database.New(pool)
	r := router.New(cfg, queries, pool, publisher)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.L().Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server failed", zap.Error(err))
		}
	}()

	<-shutdown
	logger.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}
