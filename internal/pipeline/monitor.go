package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nepalfire/firereport/internal/adapter/mapimg"
	"github.com/nepalfire/firereport/internal/adapter/pdf"
	"github.com/nepalfire/firereport/internal/adapter/vector"
	"github.com/nepalfire/firereport/internal/adapter/xlsx"
	"github.com/nepalfire/firereport/internal/domain"
	"github.com/nepalfire/firereport/internal/observability"
	"github.com/nepalfire/firereport/internal/reportstore"
)

// MonitorConfig locates the reference layers and labels the report.
type MonitorConfig struct {
	DistrictsPath      string
	DistrictsPlotPath  string
	ProtectedAreasPath string
	DistrictField      string
	ProtectedAreaField string
	Satellite          string
	Location           *time.Location
}

// MonitorResult summarizes one monitor run.
type MonitorResult struct {
	Paths    reportstore.Paths
	Table    domain.CountTable
	Detected int
}

// Monitor turns the day's detections into the spreadsheet, map and PDF
// reports.
type Monitor struct {
	cfg      MonitorConfig
	source   FireSource
	store    *reportstore.Store
	renderer *mapimg.Renderer
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewMonitor creates a Monitor. A nil clock uses the real clock.
func NewMonitor(cfg MonitorConfig, source FireSource, store *reportstore.Store, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		cfg:      cfg,
		source:   source,
		store:    store,
		renderer: mapimg.NewRenderer(),
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// layers is the reference geometry normalized to the district CRS.
type layers struct {
	districts domain.RegionSet
	plot      domain.RegionSet
	protected domain.RegionSet
	fires     domain.FireSet
}

// Run executes one monitor pass for the current day.
func (m *Monitor) Run(ctx context.Context) (MonitorResult, error) {
	now := m.clock.Now()
	day := reportDay(now, m.cfg.Location)
	st := stages{clock: m.clock, logger: m.logger, metrics: m.metrics}

	if err := m.store.EnsureDirs(); err != nil {
		return MonitorResult{}, err
	}
	paths := m.store.PathsFor(day)

	var firePath string
	var cleanup func()
	err := st.run(stageDownload, func() error {
		var err error
		firePath, cleanup, err = m.source.Fetch(ctx)
		return err
	})
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return MonitorResult{}, err
	}

	var l layers
	if err := st.run(stageLoad, func() error {
		var err error
		l, err = m.load(day, paths, firePath)
		return err
	}); err != nil {
		return MonitorResult{}, err
	}

	var table domain.CountTable
	if err := st.run(stageAttribute, func() error {
		hits, err := domain.Attribute(l.fires, l.districts)
		if err != nil {
			return err
		}
		table = domain.Aggregate(hits)
		m.metrics.FiresAttributed.Set(float64(len(hits)))
		m.metrics.DistrictsAffected.Set(float64(len(table.Rows)))
		return m.protectedAreas(day, l)
	}); err != nil {
		return MonitorResult{}, err
	}

	if err := st.run(stageRender, func() error {
		return m.render(day, paths, l, table)
	}); err != nil {
		return MonitorResult{}, err
	}

	m.logger.Info("monitor finished",
		"date", paths.Key,
		"detected", len(l.fires.Points),
		"attributed", table.Total,
		"districts", len(table.Rows),
	)
	return MonitorResult{Paths: paths, Table: table, Detected: len(l.fires.Points)}, nil
}

// load reads every layer. The confidence summary of the raw detections is
// written before the district layer is read, so it exists even when
// attribution cannot run.
func (m *Monitor) load(day time.Time, paths reportstore.Paths, firePath string) (layers, error) {
	fireFC, err := vector.Load(firePath)
	if err != nil {
		return layers{}, fmt.Errorf("load fires: %w", err)
	}
	raw, err := domain.NewFireSet(fireFC)
	if err != nil {
		return layers{}, err
	}
	m.metrics.FiresDetected.Set(float64(len(raw.Points)))

	summary, field := domain.SummarizeConfidence(raw)
	if field == "" {
		m.logger.Warn("no confidence attribute, writing default summary", "fields", raw.Fields)
	}
	if err := m.store.WriteConfidence(day, summary); err != nil {
		return layers{}, err
	}

	districtFC, err := vector.Load(m.cfg.DistrictsPath)
	if err != nil {
		return layers{}, fmt.Errorf("load districts: %w", err)
	}
	districts, err := domain.NewRegionSet(districtFC, m.cfg.DistrictField)
	if err != nil {
		return layers{}, err
	}

	fireFC, err = domain.Normalize(districts.CRS, fireFC)
	if err != nil {
		return layers{}, err
	}
	fires, err := domain.NewFireSet(fireFC)
	if err != nil {
		return layers{}, err
	}

	plot := districts
	if vector.Exists(m.cfg.DistrictsPlotPath) {
		if plot, err = m.loadLayer(m.cfg.DistrictsPlotPath, "", districts.CRS); err != nil {
			return layers{}, fmt.Errorf("load plot districts: %w", err)
		}
	} else {
		m.logger.Warn("plot districts not found, drawing attribution layer", "path", m.cfg.DistrictsPlotPath)
	}

	var protected domain.RegionSet
	if vector.Exists(m.cfg.ProtectedAreasPath) {
		if protected, err = m.loadLayer(m.cfg.ProtectedAreasPath, m.cfg.ProtectedAreaField, districts.CRS); err != nil {
			return layers{}, fmt.Errorf("load protected areas: %w", err)
		}
	} else {
		m.logger.Info("protected areas not found, skipping", "path", m.cfg.ProtectedAreasPath)
	}

	m.logger.Info("layers loaded",
		"date", paths.Key,
		"fires", len(fires.Points),
		"districts", len(districts.Regions),
		"protected_areas", len(protected.Regions),
		"crs", districts.CRS.String(),
	)
	return layers{districts: districts, plot: plot, protected: protected, fires: fires}, nil
}

// loadLayer reads a polygon layer into crs. A name field missing from the
// schema yields an unnamed layer.
func (m *Monitor) loadLayer(path, nameField string, crs domain.CRS) (domain.RegionSet, error) {
	fc, err := vector.Load(path)
	if err != nil {
		return domain.RegionSet{}, err
	}
	if fc, err = domain.Normalize(crs, fc); err != nil {
		return domain.RegionSet{}, err
	}
	if nameField != "" && !fc.HasField(nameField) {
		m.logger.Warn("name field not in layer schema", "path", path, "field", nameField)
		nameField = ""
	}
	return domain.NewRegionSet(fc, nameField)
}

func (m *Monitor) protectedAreas(day time.Time, l layers) error {
	if len(l.protected.Regions) == 0 {
		return nil
	}
	summary, err := domain.SummarizeProtectedAreas(l.fires, l.protected)
	if err != nil {
		return err
	}
	m.metrics.ProtectedAreaHits.Set(float64(summary.Fires))
	return m.store.WriteProtectedAreas(day, summary)
}

func (m *Monitor) render(day time.Time, paths reportstore.Paths, l layers, table domain.CountTable) error {
	if err := xlsx.Write(paths.XLSX, table); err != nil {
		return err
	}
	if err := m.renderer.WriteFile(paths.Map, mapimg.Layers{
		Districts: l.plot,
		Protected: l.protected,
		Fires:     domain.Within(l.fires, l.plot),
	}); err != nil {
		return err
	}
	return pdf.WriteFile(paths.PDF, pdf.Report{
		Date:       day,
		AssessedAt: day,
		Satellite:  m.cfg.Satellite,
		MapPath:    paths.Map,
		Table:      table,
	})
}
