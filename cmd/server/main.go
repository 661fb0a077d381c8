// Command server serves the spraying records API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/backend/pgstore"
	"github.com/JonMunkholm/spraylog/internal/backend/sqlitestore"
	"github.com/JonMunkholm/spraylog/internal/config"
	"github.com/JonMunkholm/spraylog/internal/logging"
	"github.com/JonMunkholm/spraylog/internal/web"
)

func main() {
	// Existing environment variables win over .env.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	records, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer records.Close()

	server := web.NewServer(records, cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		records.Close()
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStorage connects the configured persistence and creates its schema.
func openStorage(ctx context.Context, cfg config.StorageConfig) (backend.Adapter, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		store, err := pgstore.Open(ctx, cfg.URL, pgstore.PoolConfig{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if u, err := url.Parse(cfg.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}
		return store, nil

	case config.DriverSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened database", "path", cfg.SQLitePath)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
