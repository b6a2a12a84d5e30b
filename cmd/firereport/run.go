package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/nepalfire/firereport/internal/adapter/firms"
	"github.com/nepalfire/firereport/internal/adapter/kafka"
	"github.com/nepalfire/firereport/internal/adapter/viewer"
	"github.com/nepalfire/firereport/internal/adapter/weather"
	"github.com/nepalfire/firereport/internal/config"
	"github.com/nepalfire/firereport/internal/observability"
	"github.com/nepalfire/firereport/internal/pipeline"
	"github.com/nepalfire/firereport/internal/reportstore"
)

// app is what every one-shot command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   *reportstore.Store
}

type commandFunc func(ctx context.Context, a *app) error

// runCommand loads config, takes the run lock and runs fn once. Any error
// is logged and returned so the process exits 1.
func runCommand(parent context.Context, name string, fn commandFunc) error {
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

	a := &app{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("run_id", uuid.NewString(), "command", name),
		metrics: observability.NewMetrics(),
		store:   reportstore.New(cfg.OutputDir, cfg.DataDir),
	}

	err = a.locked(ctx, fn)
	outcome := "success"
	if err != nil {
		outcome = "error"
		a.logger.Error("run failed", "error", err)
	} else {
		a.metrics.LastSuccess.SetToCurrentTime()
		a.logger.Info("run complete")
	}
	a.metrics.Runs.WithLabelValues(name, outcome).Inc()

	if cfg.MetricsTextfile != "" {
		if werr := observability.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			a.logger.Warn("write metrics textfile", "path", cfg.MetricsTextfile, "error", werr)
		}
	}
	return err
}

func (a *app) locked(ctx context.Context, fn commandFunc) error {
	if err := a.store.EnsureDirs(); err != nil {
		return err
	}
	lock := reportstore.NewRunLock(a.cfg.OutputDir)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			a.logger.Warn("release run lock", "path", lock.Path(), "error", err)
		}
	}()
	return fn(ctx, a)
}

func daily(ctx context.Context, a *app) error {
	if err := monitor(ctx, a); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if err := publish(ctx, a); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func monitor(ctx context.Context, a *app) error {
	cfg := a.cfg

	var source pipeline.FireSource
	if cfg.FireSourcePath != "" {
		a.logger.Info("using local fire data", "path", cfg.FireSourcePath)
		source = pipeline.LocalSource{Path: cfg.FireSourcePath}
	} else {
		source = firms.NewFetcher(cfg.FIRMSURL, cfg.DownloadDir, cfg.DownloadTimeout, a.logger)
	}

	m := pipeline.NewMonitor(pipeline.MonitorConfig{
		DistrictsPath:      cfg.DistrictsPath,
		DistrictsPlotPath:  cfg.DistrictsPlotPath,
		ProtectedAreasPath: cfg.ProtectedAreasPath,
		DistrictField:      cfg.DistrictField,
		ProtectedAreaField: cfg.ProtectedAreaField,
		Satellite:          cfg.Satellite,
		Location:           cfg.Location(),
	}, source, a.store, nil, a.logger, a.metrics)

	res, err := m.Run(ctx)
	if err != nil {
		return err
	}

	var v viewer.Viewer = viewer.Noop{Logger: a.logger}
	if cfg.OpenPDF {
		v = viewer.NewSystem()
	}
	if err := v.Open(res.Paths.PDF); err != nil {
		a.logger.Warn("could not open report", "path", res.Paths.PDF, "error", err)
	}
	return nil
}

func publish(ctx context.Context, a *app) error {
	cfg := a.cfg
	w := weather.NewClient(cfg.WeatherURL, cfg.WeatherAPIKey, cfg.WeatherCity, cfg.WeatherTimeout, a.logger)

	var notifier pipeline.Notifier
	if cfg.NotifierEnabled() {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, a.logger)
		defer func() {
			if err := writer.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
	}

	p := pipeline.NewPublisher(pipeline.PublisherConfig{
		Satellite: cfg.Satellite,
		Location:  cfg.Location(),
	}, a.store, w, notifier, nil, a.logger, a.metrics)
	_, err := p.Run(ctx)
	return err
}
