package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/erazemk/komponente/internal/api"
	"github.com/erazemk/komponente/internal/assets"
	"github.com/erazemk/komponente/internal/config"
	"github.com/erazemk/komponente/internal/db"
	"github.com/erazemk/komponente/internal/notify"
	"github.com/erazemk/komponente/internal/service"
	"github.com/erazemk/komponente/internal/session"
	"github.com/erazemk/komponente/internal/store"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = listenAddr
	}

	// INFO/WARN go to stdout, ERROR to stderr, optionally tee'd to a file.
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	closeLog, err := setupLogger(cfg.LogFile, level)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "driver", database.DriverName())

	if err := bootstrapAdmin(ctx, database, dbLabel(cfg.DatabaseURL)); err != nil {
		return err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Generated on first run and kept in the settings table.
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	sessions, closeSessions, err := newSessionStore(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeSessions()

	assetStore, uploads, closeAssets, err := newAssetStore(ctx, cfg.Assets)
	if err != nil {
		return err
	}
	defer closeAssets()

	loginLimit, err := api.RateLimit(cfg.LoginRate)
	if err != nil {
		return err
	}

	guard := &service.Guard{DB: database, Sessions: sessions, Secret: secret, TTL: cfg.SessionTTL}
	inventory := &service.Inventory{DB: database, Assets: assetStore}
	ledger := &service.Ledger{DB: database}

	router := api.NewRouter(api.Services{
		Guard:      guard,
		Inventory:  inventory,
		Ledger:     ledger,
		Taxonomy:   &service.Taxonomy{DB: database},
		Users:      &service.Users{DB: database, Guard: guard},
		Reports:    &service.Reports{Inventory: inventory, Ledger: ledger},
		Contact:    &service.Contact{Sender: newSender(cfg), To: cfg.SMTP.ContactTo},
		Uploads:    uploads,
		LoginLimit: loginLimit,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// bootstrapAdmin creates an admin on an empty database and prints its password.
func bootstrapAdmin(ctx context.Context, database *sqlx.DB, label string) error {
	users, err := store.ListUsers(ctx, database)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	password, err := createAdmin(ctx, database, "Administrador", "admin")
	if err != nil {
		return err
	}
	printInitResult(label, "admin", password)
	fmt.Println()
	return nil
}

// dbLabel names the database for console output without leaking credentials.
func dbLabel(url string) string {
	if db.DialectFor(url) == db.DialectPostgres {
		return "postgres database"
	}
	return url
}

// newSessionStore returns a Redis-backed store when an address is
// configured, otherwise an in-process one.
func newSessionStore(ctx context.Context, cfg config.RedisConfig) (session.Store, func(), error) {
	if cfg.Addr == "" {
		slog.Info("sessions kept in memory")
		return session.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	slog.Info("sessions kept in redis", "addr", cfg.Addr, "db", cfg.DB)
	return session.NewRedisStore(rdb, "komponente"), func() { rdb.Close() }, nil
}

// newAssetStore builds the configured image backend. The returned handler
// serves local files and is nil for remote backends.
func newAssetStore(ctx context.Context, cfg config.AssetsConfig) (assets.Store, http.Handler, func(), error) {
	switch cfg.Backend {
	case config.AssetsGCS:
		gcs, err := assets.NewGCSStore(ctx, cfg.GCSBucket, cfg.CredentialsFile, cfg.BaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("assets stored in gcs", "bucket", cfg.GCSBucket)
		return gcs, nil, func() { gcs.Close() }, nil
	default:
		local, err := assets.NewLocalStore(cfg.Dir, cfg.BaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("assets stored locally", "dir", cfg.Dir)
		return local, local.Handler(), func() {}, nil
	}
}

// newSender returns an SMTP sender, or a logging one when mail is not configured.
func newSender(cfg config.Config) notify.Sender {
	if !cfg.MailEnabled() {
		slog.Warn("smtp not configured, contact messages will only be logged")
		return notify.LogSender{}
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}
