package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/gridcore/internal/config"
	"github.com/JonMunkholm/gridcore/internal/logging"
	"github.com/JonMunkholm/gridcore/internal/pgsource"
	"github.com/JonMunkholm/gridcore/internal/presetstore"
	"github.com/JonMunkholm/gridcore/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"preset_backend", cfg.Presets.Backend,
		"remote_enabled", cfg.Remote.Enabled(),
		"max_sessions", cfg.Sessions.MaxSessions,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	presets, err := presetstore.Open(ctx, cfg.Presets, logger)
	if err != nil {
		logger.Error("failed to open preset store", "backend", cfg.Presets.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := presets.Close(); err != nil {
			logger.Warn("close preset store", "error", err)
		}
	}()

	// another process may edit the preset file; reload it when that happens
	if fs, ok := presets.(*presetstore.FileStore); ok {
		if err := fs.Watch(ctx, func() { logger.Info("preset file changed on disk, cache dropped") }); err != nil {
			logger.Warn("preset file watch disabled", "path", cfg.Presets.Path, "error", err)
		}
	}

	deps := web.Deps{
		Sessions: web.NewSessions(cfg.Sessions, logger),
		Presets:  presets,
		Logger:   logger,
	}

	if cfg.Remote.Enabled() {
		pool, err := pgsource.Connect(ctx, cfg.Remote)
		if err != nil {
			logger.Error("failed to connect to remote database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		cols, err := pgsource.DescribeTable(ctx, pool, cfg.Remote.Table, cfg.Remote.IDColumn)
		if err != nil {
			logger.Error("failed to describe remote table", "table", cfg.Remote.Table, "error", err)
			os.Exit(1)
		}
		source, err := pgsource.New(pool, pgsource.Options{
			Table:    cfg.Remote.Table,
			IDColumn: cfg.Remote.IDColumn,
			Columns:  cols,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to create remote source", "error", err)
			os.Exit(1)
		}
		deps.Source = source
		if cfg.Remote.ParentColumn != "" {
			deps.Loader = source.ChildLoader(cfg.Remote.ParentColumn)
		}
		logger.Info("remote source ready", "table", cfg.Remote.Table, "columns", len(cols))
	}

	if err := deps.Sessions.Start(); err != nil {
		logger.Error("failed to start session sweeper", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(*cfg, deps)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	<-errCh
	logger.Info("server stopped")
}
