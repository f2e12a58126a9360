package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cvite-license-server/config"
	"cvite-license-server/internal/api"
	"cvite-license-server/internal/auth"
	"cvite-license-server/internal/database"
	"cvite-license-server/internal/events"
	"cvite-license-server/internal/license"
	"cvite-license-server/internal/logging"
	"cvite-license-server/internal/vault"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("cvite license server starting")

	// Vault can override the sensitive settings when enabled
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vault client")
	}
	if vaultClient.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		secrets, err := vaultClient.LoadSecrets(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load secrets from vault")
		}
		if secrets.JWTSecret != "" {
			cfg.AuthConfig.JWTSecret = secrets.JWTSecret
		}
		if secrets.AdminPassword != "" {
			cfg.AuthConfig.AdminPassword = secrets.AdminPassword
		}
		logger.Info().Msg("secrets loaded from vault")
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Msg("database ready")

	repo := database.NewRepository(db)
	eventBus := events.NewEventBus()

	authService, err := auth.NewService(auth.Config{
		JWTSecret:     cfg.AuthConfig.JWTSecret,
		AdminPassword: cfg.AuthConfig.AdminPassword,
		TokenDuration: cfg.AuthConfig.TokenDuration,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize admin auth")
	}

	licenseService := license.NewService(repo, license.Config{
		DefaultPlan: cfg.LicenseConfig.DefaultPlan,
		KeyPrefix:   cfg.LicenseConfig.KeyPrefix,
		OpTimeout:   cfg.LicenseConfig.OpTimeout,
	}, eventBus, logger)

	window := time.Duration(cfg.RateLimitConfig.WindowMins) * time.Minute
	checkLimiter, loginLimiter := buildLimiters(cfg, window, logger)

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ReadTimeout:    cfg.ServerConfig.ReadTimeout,
		WriteTimeout:   cfg.ServerConfig.WriteTimeout,
		ProductionMode: os.Getenv("GIN_MODE") == "release",
	}, licenseService, authService, repo, eventBus, checkLimiter, loginLimiter, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

// buildLimiters prefers Redis-backed limits so they hold across restarts,
// with in-memory limits otherwise
func buildLimiters(cfg *config.Config, window time.Duration, logger zerolog.Logger) (api.Limiter, api.Limiter) {
	if !cfg.RedisConfig.Enabled {
		return api.NewMemoryLimiter(cfg.RateLimitConfig.CheckLimit, window),
			api.NewMemoryLimiter(cfg.RateLimitConfig.LoginLimit, window)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisConfig.Address,
		Password:     cfg.RedisConfig.Password,
		DB:           cfg.RedisConfig.DB,
		PoolSize:     cfg.RedisConfig.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup, limits degrade to in-memory on failure")
	} else {
		logger.Info().Str("addr", cfg.RedisConfig.Address).Msg("redis connected")
	}

	return api.NewRedisLimiter(client, "check", cfg.RateLimitConfig.CheckLimit, window, logger),
		api.NewRedisLimiter(client, "login", cfg.RateLimitConfig.LoginLimit, window, logger)
}
