package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nepalfire/firereport/internal/domain"
	"github.com/nepalfire/firereport/internal/observability"
)

// Stage names used as metric labels.
const (
	stageDownload  = "download"
	stageLoad      = "load"
	stageAttribute = "attribute"
	stageRender    = "render"
	stagePublish   = "publish"
)

// FireSource yields the path of the day's fire detections. cleanup releases
// anything Fetch created and must be called whether or not Fetch failed.
type FireSource interface {
	Fetch(ctx context.Context) (path string, cleanup func(), err error)
}

// LocalSource is a FireSource for a file already on disk.
type LocalSource struct {
	Path string
}

func (s LocalSource) Fetch(context.Context) (string, func(), error) {
	return s.Path, func() {}, nil
}

// WeatherSource returns current conditions, falling back to sample data.
type WeatherSource interface {
	CurrentOrSample(ctx context.Context) (w domain.Weather, fallback bool)
}

// Notifier receives each published snapshot, keyed by archive date.
type Notifier interface {
	Notify(ctx context.Context, key string, snap domain.Snapshot) error
}

// stages times each stage and counts its failures.
type stages struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

func (s stages) run(name string, fn func() error) error {
	start := s.clock.Now()
	err := fn()
	elapsed := s.clock.Since(start)
	s.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		s.metrics.StageFailures.WithLabelValues(name).Inc()
		s.logger.Error("stage failed", "stage", name, "error", err)
		return err
	}
	s.logger.Debug("stage finished", "stage", name, "duration", elapsed)
	return nil
}

// reportDay is the calendar day of now in loc.
func reportDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc)
}
