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

	"wego-server/internal/auth"
	"wego-server/internal/battle"
	"wego-server/internal/battle/cache"
	"wego-server/internal/game"
	"wego-server/internal/middleware"
	"wego-server/internal/server"
	"wego-server/internal/shared/config"
	"wego-server/internal/shared/cookies"
	"wego-server/internal/shared/database"
	"wego-server/internal/shared/events"
	"wego-server/internal/shared/logger"
	"wego-server/internal/shared/redis"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	if err := db.RunMigrations(ctx, os.DirFS(cfg.Database.MigrationsPath)); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close redis", "error", err)
		}
	}()

	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
	if err != nil {
		return err
	}

	bus := events.NewBus(cfg.Battle.EventBuffer, slog.Default())
	defer func() {
		if err := bus.Close(); err != nil {
			log.Error("Failed to close event bus", "error", err)
		}
	}()

	gameService := game.NewService(game.NewRepository(db.DB, slog.Default()), slog.Default())
	battleManager := battle.NewManager(battle.ManagerConfig{
		Durations: battle.PhaseDurations{
			Planning:  cfg.Battle.PlanningSeconds,
			Animation: cfg.Battle.AnimationSeconds,
		},
		TickInterval: cfg.Battle.TickInterval,
		Weapons:      battle.DefaultWeapons,
		Publisher:    bus,
		Snapshots:    cache.NewStore(redisClient.Raw(), cfg.Battle.SnapshotTTL, slog.Default()),
		Recorder:     battle.NewRepository(db.DB, slog.Default()),
		Logger:       slog.Default(),
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer limiter.Stop()

	routes := server.NewRoutes(
		db,
		gameService,
		battleManager,
		bus,
		middleware.NewAuthenticator(issuer),
		cookies.NewJar(cfg.Auth, cfg.Frontend),
		[]string{cfg.Frontend.URL},
	)
	handler := server.Handler(routes.Setup(), middleware.NewCORS(cfg.Frontend), limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("WEGO battle server starting",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"tick_interval", cfg.Battle.TickInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	battleManager.Shutdown(shutdownCtx)

	log.Info("Server stopped")
	return nil
}
