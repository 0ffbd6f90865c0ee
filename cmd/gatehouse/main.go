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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/gatehouse-id/gatehouse/internal/app"
	"github.com/gatehouse-id/gatehouse/internal/auth"
	"github.com/gatehouse-id/gatehouse/internal/bootstrap"
	"github.com/gatehouse-id/gatehouse/internal/otp"
	"github.com/gatehouse-id/gatehouse/internal/platform/cache"
	"github.com/gatehouse-id/gatehouse/internal/platform/db"
	"github.com/gatehouse-id/gatehouse/internal/rbac"
	"github.com/gatehouse-id/gatehouse/internal/users"
	"github.com/gatehouse-id/gatehouse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	blacklist := auth.NewCachedBlacklist(auth.NewPGBlacklist(pool), redisClient, logger)
	tokens, err := auth.NewTokenManager(auth.TokenManagerConfig{
		Secret:    cfg.SigningSecret,
		Algorithm: cfg.SigningAlgorithm,
		TTL:       cfg.TokenTTL,
		Blacklist: blacklist,
	})
	if err != nil {
		logger.Error("init token manager", slog.Any("error", err))
		os.Exit(1)
	}

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	otpRepo := otp.NewRepository(pool)
	otpService := otp.NewService(otpRepo, jobs.NewMailEnqueuer(jobClient), otp.Config{
		Length: cfg.OTPLength,
		Expiry: cfg.OTPExpiry,
	}, logger)

	rbacRegistry := rbac.NewRegistry()
	rbacService := rbac.NewService(rbac.NewRepository(pool), rbacRegistry, logger)
	rbacGuard := rbac.Middleware{Registry: rbacRegistry, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacGuard)

	authService := auth.NewService(auth.NewRepository(pool), tokens, otpService, logger)
	authHandler := auth.NewHandler(logger, authService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rbacService, otpService, cfg.EmailDomains(), logger)
	usersHandler := users.NewHandler(logger, usersService, rbacGuard)

	permissionSeed, err := os.ReadFile(cfg.SeedPermissionsFile)
	if err != nil {
		logger.Error("read permission seed", slog.Any("error", err))
		os.Exit(1)
	}
	adminSeed, err := os.ReadFile(cfg.SeedAdminFile)
	if err != nil {
		logger.Error("read admin seed", slog.Any("error", err))
		os.Exit(1)
	}
	sequencer := bootstrap.NewSequencer(rbacService, usersRepo, logger)
	if err := sequencer.Run(ctx, permissionSeed, adminSeed); err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
		RBACHandler:  rbacHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
