package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	httpadapter "github.com/nepalfire/firereport/internal/adapter/http"
	"github.com/nepalfire/firereport/internal/config"
	"github.com/nepalfire/firereport/internal/observability"
	"github.com/nepalfire/firereport/internal/reportstore"
)

// serve exposes the data and report directories until SIGINT or SIGTERM.
func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("run_id", uuid.NewString(), "command", "serve")
	store := reportstore.New(cfg.OutputDir, cfg.DataDir)

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, []httpadapter.Mount{
		{Prefix: "/data/", Dir: cfg.DataDir},
		{Prefix: "/" + filepath.Base(cfg.OutputDir) + "/", Dir: cfg.OutputDir},
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", "error", err)
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
