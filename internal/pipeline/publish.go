package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nepalfire/firereport/internal/adapter/xlsx"
	"github.com/nepalfire/firereport/internal/domain"
	"github.com/nepalfire/firereport/internal/observability"
	"github.com/nepalfire/firereport/internal/reportstore"
)

// PublisherConfig labels the snapshot.
type PublisherConfig struct {
	Satellite string
	Location  *time.Location
}

// Publisher reads the day's reports back and writes the website documents.
type Publisher struct {
	cfg      PublisherConfig
	store    *reportstore.Store
	weather  WeatherSource
	notifier Notifier
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPublisher creates a Publisher. notifier may be nil; a nil clock uses
// the real clock.
func NewPublisher(cfg PublisherConfig, store *reportstore.Store, weather WeatherSource, notifier Notifier, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{
		cfg:      cfg,
		store:    store,
		weather:  weather,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run writes today.json and upserts the day into archive.json. Today's map,
// spreadsheet and PDF must already exist.
func (p *Publisher) Run(ctx context.Context) (domain.Snapshot, error) {
	day := reportDay(p.clock.Now(), p.cfg.Location)
	st := stages{clock: p.clock, logger: p.logger, metrics: p.metrics}

	var snap domain.Snapshot
	err := st.run(stagePublish, func() error {
		var err error
		snap, err = p.publish(ctx, day)
		return err
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	if p.notifier != nil {
		key := day.Format(domain.ArchiveDateLayout)
		if err := p.notifier.Notify(ctx, key, snap); err != nil {
			p.metrics.NotifyErrors.Inc()
			p.logger.Warn("snapshot notification failed", "key", key, "error", err)
		}
	}
	return snap, nil
}

func (p *Publisher) publish(ctx context.Context, day time.Time) (domain.Snapshot, error) {
	paths, err := p.store.RequireReport(day)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := p.store.EnsureDirs(); err != nil {
		return domain.Snapshot{}, err
	}

	table, err := xlsx.Read(paths.XLSX)
	if err != nil {
		return domain.Snapshot{}, err
	}

	weather, fallback := p.weather.CurrentOrSample(ctx)
	if fallback {
		p.metrics.WeatherFallbacks.Inc()
	}

	snap := domain.Snapshot{
		Date:        day.Format(domain.DisplayDateLayout),
		LastUpdated: day.Format(domain.UpdatedLayout),
		MapURL:      p.store.URL(paths.Map),
		Stats: domain.SnapshotStats{
			TotalFires:     table.Total,
			TopDistrict:    table.TopDistrictLabel(),
			ProtectedAreas: p.protectedAreas(day),
			Satellite:      p.cfg.Satellite,
			FireTrend:      p.trend(day, table.Total),
			Weather:        weather,
			Confidence:     p.confidence(day),
		},
		Reports: domain.ReportLinks{
			PDF:  p.store.URL(paths.PDF),
			XLSX: p.store.URL(paths.XLSX),
		},
		Year:    day.Year(),
		Archive: []domain.ArchiveEntry{},
	}
	if err := p.store.WriteSnapshot(snap); err != nil {
		return domain.Snapshot{}, err
	}

	archive, err := p.store.ReadArchive()
	if err != nil {
		p.logger.Warn("archive unreadable, starting a new one", "path", p.store.ArchivePath(), "error", err)
	}
	archive = domain.UpsertArchive(archive, domain.ArchiveEntry{
		Date:     day.Format(domain.ArchiveDateLayout),
		MapURL:   snap.MapURL,
		PDF:      snap.Reports.PDF,
		XLSX:     snap.Reports.XLSX,
		District: table.TopDistrictName(),
	})
	if err := p.store.WriteArchive(archive); err != nil {
		return domain.Snapshot{}, err
	}

	p.logger.Info("snapshot published",
		"date", paths.Key,
		"total_fires", snap.Stats.TotalFires,
		"top_district", snap.Stats.TopDistrict,
		"trend", snap.Stats.FireTrend.Direction,
		"archive_entries", len(archive),
	)
	return snap, nil
}

// trend compares today's total with the prior report. Any failure reading
// the prior report counts as no prior report.
func (p *Publisher) trend(day time.Time, total int) domain.Trend {
	prior, ok, err := p.store.PriorReport(day)
	if err != nil {
		p.logger.Warn("listing prior reports failed", "error", err)
		return domain.NoTrend
	}
	if !ok {
		p.logger.Info("no prior report, trend unavailable")
		return domain.NoTrend
	}
	priorTotal, err := xlsx.ReadTotal(prior)
	if err != nil {
		p.logger.Warn("reading prior report failed", "path", prior, "error", err)
		return domain.NoTrend
	}
	return domain.CalculateTrend(total, priorTotal)
}

func (p *Publisher) confidence(day time.Time) domain.ConfidenceSummary {
	c, ok, err := p.store.ReadConfidence(day)
	switch {
	case err != nil:
		p.logger.Warn("confidence summary unreadable, using defaults", "error", err)
		return domain.DefaultConfidenceSummary
	case !ok:
		p.logger.Info("confidence summary not found, using defaults")
		return domain.DefaultConfidenceSummary
	}
	return c
}

func (p *Publisher) protectedAreas(day time.Time) string {
	s, ok, err := p.store.ReadProtectedAreas(day)
	if err != nil {
		p.logger.Warn("protected-area summary unreadable", "error", err)
		return domain.ProtectedAreasUnavailable
	}
	if !ok {
		return domain.ProtectedAreasUnavailable
	}
	return s.Label()
}
