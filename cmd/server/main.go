package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/fileimport/internal/config"
	"github.com/JonMunkholm/fileimport/internal/core"
	"github.com/JonMunkholm/fileimport/internal/database"
	"github.com/JonMunkholm/fileimport/internal/logging"
	"github.com/JonMunkholm/fileimport/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var service *core.Service
	if err := cfg.RequireDatabase(); err != nil {
		slog.Warn("database not configured, staging and imports are disabled")
		service = core.NewService(nil, cfg.Import)
	} else {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		service = core.NewService(pool, cfg.Import)
		if cfg.Database.EnsureSchema {
			if err := service.EnsureSchema(ctx); err != nil {
				return err
			}
			slog.Info("import schema ensured")
		}
	}

	server := web.NewServer(service, cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.ImportStatus(); status.Limiter.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Limiter.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("server stopped")
	return nil
}
