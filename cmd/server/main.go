package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/schemadmin/internal/admin"
	"github.com/JonMunkholm/schemadmin/internal/config"
	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/JonMunkholm/schemadmin/internal/database"
	"github.com/JonMunkholm/schemadmin/internal/logging"
	"github.com/JonMunkholm/schemadmin/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// Values from .env win over the process environment.
	cfg, err := config.LoadFile(".env")
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("no .env file found, using environment variables")
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	store := database.NewPostgres(pool)
	site := admin.NewSite(store)
	service := core.NewService(store, site, cfg)

	// Registrations live in memory; replaying the schema file restores them
	// for tables created before a restart.
	if path := cfg.Schema.BootstrapFile; path != "" {
		results, err := service.LoadSchemaFile(ctx, path)
		if err != nil {
			slog.Error("failed to apply bootstrap schema", "file", path, "error", err)
			os.Exit(1)
		}
		slog.Info("bootstrap schema applied", "file", path, "tables", len(results))
	}

	server := web.NewServer(service, site, cfg)

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

	slog.Info("server starting", "addr", cfg.Server.Addr(), "tables", len(service.Tables()))
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
