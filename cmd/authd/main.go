// Command authd runs the authentication HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	authbackend "github.com/pw2712gz/auth-backend"
	"github.com/pw2712gz/auth-backend/internal/config"
	"github.com/pw2712gz/auth-backend/internal/httpapi"
	"github.com/pw2712gz/auth-backend/internal/logging"
	"github.com/pw2712gz/auth-backend/mail"
	"github.com/pw2712gz/auth-backend/stores/memory"
	"github.com/pw2712gz/auth-backend/stores/postgres"
	redisstore "github.com/pw2712gz/auth-backend/stores/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	defer closeStore()

	engineCfg, err := buildEngineConfig(cfg)
	if err != nil {
		return err
	}

	engine, err := authbackend.New().
		WithConfig(engineCfg).
		WithStore(store).
		WithMailer(buildMailer(cfg, logger)).
		WithAuditSink(authbackend.NewJSONWriterSink(os.Stdout)).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("engine init: %w", err)
	}
	defer engine.Close()

	scheduler := authbackend.NewSweepScheduler(engine)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "addr", cfg.Addr, "store", cfg.StoreBackend)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (authbackend.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(db)
		if err := store.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return redisstore.New(client), func() { client.Close() }, nil

	default:
		return memory.New(), func() {}, nil
	}
}

func buildEngineConfig(cfg *config.Config) (authbackend.Config, error) {
	out := authbackend.DefaultConfig()
	out.JWT.AccessTTL = cfg.AccessTokenTTL
	out.Refresh.TTL = cfg.RefreshTokenTTL
	out.PasswordReset.TTL = cfg.ResetTokenTTL
	out.RateLimit.MaxRequests = cfg.RateLimitMax
	out.RateLimit.Window = cfg.RateLimitWindow
	out.Sweep.RefreshInterval = cfg.SweepInterval
	out.Sweep.ResetInterval = cfg.SweepInterval
	out.FrontendBaseURL = cfg.FrontendBaseURL

	if cfg.JWTSecret != "" {
		out.JWT.SigningMethod = "hs256"
		out.JWT.PrivateKey = []byte(cfg.JWTSecret)
		return out, nil
	}

	priv, err := os.ReadFile(cfg.JWTPrivateKeyFile)
	if err != nil {
		return out, fmt.Errorf("jwt private key: %w", err)
	}
	pub, err := os.ReadFile(cfg.JWTPublicKeyFile)
	if err != nil {
		return out, fmt.Errorf("jwt public key: %w", err)
	}
	out.JWT.SigningMethod = "ed25519"
	out.JWT.PrivateKey = priv
	out.JWT.PublicKey = pub
	return out, nil
}

func buildMailer(cfg *config.Config, logger logging.Logger) authbackend.Mailer {
	if cfg.SendGridKey == "" {
		return &mail.LogMailer{Logger: logger}
	}
	mailer, err := mail.NewSendGridMailer(mail.SendGridConfig{
		Key:      cfg.SendGridKey,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	})
	if err != nil {
		logger.Warn(context.Background(), "sendgrid init failed, falling back to log mailer", "err", err)
		return &mail.LogMailer{Logger: logger}
	}
	return mailer
}
