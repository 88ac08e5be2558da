package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgimenez/mythril-ci/config"
	"github.com/fgimenez/mythril-ci/db"
	"github.com/fgimenez/mythril-ci/internal/analysis"
	"github.com/fgimenez/mythril-ci/internal/auth/handler"
	repo "github.com/fgimenez/mythril-ci/internal/auth/repository/postgres"
	"github.com/fgimenez/mythril-ci/internal/auth/service"
	"github.com/fgimenez/mythril-ci/internal/ratelimit"
	rlpostgres "github.com/fgimenez/mythril-ci/internal/ratelimit/postgres"
	rlredis "github.com/fgimenez/mythril-ci/internal/ratelimit/redis"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	pool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	repository := repo.NewRepository(pool)

	var store ratelimit.Store
	if cfg.RateLimitBackend == "redis" {
		client, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		store = rlredis.NewStore(client)
	} else {
		store = rlpostgres.NewStore(pool)
	}

	limiter := ratelimit.New(store, ratelimit.Policy{
		Standard: ratelimit.Limits(cfg.StandardLimits),
		Admin:    ratelimit.Limits(cfg.AdminLimits),
	})

	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.AccessExpiryMin)
	userService := service.NewUserService(repository, repository, tokenService, cfg)

	analysisService := analysis.NewService(analysis.BytecodeEngine{})
	go analysisService.Run(ctx)

	authHandler := handler.NewAuthHandler(userService, tokenService, limiter)
	app := handler.NewApp(authHandler, analysis.NewHandler(analysisService))

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()
	slog.Info("server started", "port", cfg.Port, "rate_limit_backend", cfg.RateLimitBackend)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		return app.Shutdown()
	}
}
