package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nepalfire/firereport/internal/adapter/vector"
	"github.com/nepalfire/firereport/internal/adapter/xlsx"
	"github.com/nepalfire/firereport/internal/domain"
	"github.com/nepalfire/firereport/internal/observability"
	"github.com/nepalfire/firereport/internal/pipeline"
	"github.com/nepalfire/firereport/internal/reportstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var runTime = time.Date(2025, time.March, 10, 4, 30, 0, 0, time.UTC)

// --- fakes ---

type fakeSource struct {
	path    string
	err     error
	cleaned bool
}

func (s *fakeSource) Fetch(context.Context) (string, func(), error) {
	return s.path, func() { s.cleaned = true }, s.err
}

type fakeWeather struct {
	w        domain.Weather
	fallback bool
}

func (f fakeWeather) CurrentOrSample(context.Context) (domain.Weather, bool) {
	if f.fallback {
		return domain.SampleWeather, true
	}
	return f.w, false
}

type recordingNotifier struct {
	keys []string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, key string, _ domain.Snapshot) error {
	n.keys = append(n.keys, key)
	return n.err
}

// --- fixtures ---

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func writeLayer(t *testing.T, path string, fc domain.FeatureCollection) {
	t.Helper()
	data, err := vector.EncodeGeoJSON(fc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func fire(lon, lat, conf float64) domain.Feature {
	return domain.Feature{
		Geometry:   orb.Point{lon, lat},
		Properties: map[string]any{"CONFIDENCE": conf, "ACQ_DATE": "2025-03-10"},
	}
}

type env struct {
	root     string
	store    *reportstore.Store
	cfg      pipeline.MonitorConfig
	source   *fakeSource
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
	logger   *slog.Logger
	firePath string
}

// newEnv lays out two districts side by side, a protected area inside Kailali
// and four detections: two in Kailali, one in Kanchanpur, one outside Nepal.
func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	res := filepath.Join(root, "resources")
	require.NoError(t, os.MkdirAll(res, 0o755))

	districts := filepath.Join(res, "districts.geojson")
	writeLayer(t, districts, domain.FeatureCollection{
		CRS:    domain.WGS84,
		Fields: []string{"DISTRICT"},
		Features: []domain.Feature{
			{Geometry: square(80, 28, 81, 29), Properties: map[string]any{"DISTRICT": "Kailali"}},
			{Geometry: square(81, 28, 82, 29), Properties: map[string]any{"DISTRICT": "Kanchanpur"}},
		},
	})
	protected := filepath.Join(res, "protected.geojson")
	writeLayer(t, protected, domain.FeatureCollection{
		CRS:    domain.WGS84,
		Fields: []string{"NAME"},
		Features: []domain.Feature{
			{Geometry: square(80.4, 28.4, 80.6, 28.6), Properties: map[string]any{"NAME": "Shuklaphanta"}},
		},
	})
	fires := filepath.Join(root, "fires.geojson")
	writeLayer(t, fires, domain.FeatureCollection{
		CRS:    domain.WGS84,
		Fields: []string{"ACQ_DATE", "CONFIDENCE"},
		Features: []domain.Feature{
			fire(80.5, 28.5, 90),
			fire(80.2, 28.2, 40),
			fire(81.5, 28.5, 10),
			fire(85, 25, 60),
		},
	})

	return &env{
		root:  root,
		store: reportstore.New(filepath.Join(root, "fire_reports"), filepath.Join(root, "data")),
		cfg: pipeline.MonitorConfig{
			DistrictsPath:      districts,
			DistrictsPlotPath:  filepath.Join(res, "missing_plot.geojson"),
			ProtectedAreasPath: protected,
			DistrictField:      "DISTRICT",
			ProtectedAreaField: "NAME",
			Satellite:          "MODIS 1km",
			Location:           time.UTC,
		},
		source:   &fakeSource{path: fires},
		clock:    clockwork.NewFakeClockAt(runTime),
		metrics:  observability.NewMetricsForTesting(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		firePath: fires,
	}
}

func (e *env) monitor() *pipeline.Monitor {
	return pipeline.NewMonitor(e.cfg, e.source, e.store, e.clock, e.logger, e.metrics)
}

func (e *env) publisher(w pipeline.WeatherSource, n pipeline.Notifier) *pipeline.Publisher {
	return pipeline.NewPublisher(pipeline.PublisherConfig{Satellite: "MODIS 1km", Location: time.UTC}, e.store, w, n, e.clock, e.logger, e.metrics)
}

var kathmandu = domain.Weather{Condition: "Haze", Temperature: 24, Humidity: 40, Wind: 3, City: "Kathmandu"}

// --- monitor ---

func TestMonitor_Run(t *testing.T) {
	e := newEnv(t)

	res, err := e.monitor().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "20250310", res.Paths.Key)
	assert.Equal(t, 4, res.Detected)
	assert.Equal(t, domain.CountTable{
		Rows: []domain.DistrictCount{
			{Rank: 1, District: "Kailali", Count: 2},
			{Rank: 2, District: "Kanchanpur", Count: 1},
		},
		Total: 3,
	}, res.Table)
	assert.True(t, e.source.cleaned)

	for _, f := range []string{res.Paths.XLSX, res.Paths.PDF, res.Paths.Map} {
		assert.FileExists(t, f)
	}
	written, err := xlsx.Read(res.Paths.XLSX)
	require.NoError(t, err)
	assert.Equal(t, res.Table, written)

	conf, ok, err := e.store.ReadConfidence(runTime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ConfidenceSummary{
		Average:           50,
		Median:            50,
		HighConfidencePct: 25,
		Distribution:      domain.ConfidenceDistribution{Low: 1, Medium: 2, High: 1},
	}, conf)

	pa, ok, err := e.store.ReadProtectedAreas(runTime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ProtectedAreaSummary{Fires: 1, Areas: []domain.RegionCount{{Name: "Shuklaphanta", Count: 1}}}, pa)

	assert.InDelta(t, 4.0, testutil.ToFloat64(e.metrics.FiresDetected), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(e.metrics.FiresAttributed), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(e.metrics.DistrictsAffected), 1e-9)
}

func TestMonitor_Run_ReprojectsFires(t *testing.T) {
	e := newEnv(t)
	merc := func(lon, lat, conf float64) domain.Feature {
		f := fire(lon, lat, conf)
		f.Geometry = project.WGS84.ToMercator(orb.Point{lon, lat})
		return f
	}
	writeLayer(t, e.firePath, domain.FeatureCollection{
		CRS:    domain.WebMercator,
		Fields: []string{"ACQ_DATE", "CONFIDENCE"},
		Features: []domain.Feature{
			merc(80.5, 28.5, 90),
			merc(81.5, 28.5, 90),
		},
	})

	res, err := e.monitor().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Table.Total)
	assert.Len(t, res.Table.Rows, 2)
}

func TestMonitor_Run_NoFiresInNepal(t *testing.T) {
	e := newEnv(t)
	writeLayer(t, e.firePath, domain.FeatureCollection{
		CRS:      domain.WGS84,
		Fields:   []string{"ACQ_DATE", "CONFIDENCE"},
		Features: []domain.Feature{fire(70, 20, 50)},
	})
	e.cfg.ProtectedAreasPath = ""

	res, err := e.monitor().Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Table.Rows)
	assert.Equal(t, 0, res.Table.Total)

	total, err := xlsx.ReadTotal(res.Paths.XLSX)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoFileExists(t, res.Paths.Protected)
}

func TestMonitor_Run_DownloadFailure(t *testing.T) {
	e := newEnv(t)
	e.source.err = errors.Join(domain.ErrDownload, errors.New("status 503"))

	_, err := e.monitor().Run(context.Background())
	require.ErrorIs(t, err, domain.ErrDownload)
	assert.True(t, e.source.cleaned)
	assert.NoFileExists(t, e.store.PathsFor(runTime).XLSX)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.metrics.StageFailures.WithLabelValues("download")), 1e-9)
}

func TestMonitor_Run_MissingDistrictField(t *testing.T) {
	e := newEnv(t)
	e.cfg.DistrictField = "DIST_NAME"

	_, err := e.monitor().Run(context.Background())
	require.ErrorIs(t, err, domain.ErrSchema)
	assert.True(t, e.source.cleaned)

	summary, ok, err := e.store.ReadConfidence(runTime)
	require.NoError(t, err)
	require.True(t, ok, "confidence summary written before attribution")
	assert.Equal(t, 4, summary.Distribution.Low+summary.Distribution.Medium+summary.Distribution.High)
}

func TestMonitor_Run_MissingDistrictsFile(t *testing.T) {
	e := newEnv(t)
	e.cfg.DistrictsPath = filepath.Join(e.root, "nope.shp")

	_, err := e.monitor().Run(context.Background())
	require.ErrorIs(t, err, domain.ErrIO)
}

// --- publisher ---

func TestPublisher_Run(t *testing.T) {
	e := newEnv(t)
	_, err := e.monitor().Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, xlsx.Write(e.store.PathsFor(runTime.AddDate(0, 0, -1)).XLSX, domain.NewCountTable([]domain.DistrictCount{{District: "Kailali", Count: 2}})))

	notifier := &recordingNotifier{}
	snap, err := e.publisher(fakeWeather{w: kathmandu}, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "10 March 2025", snap.Date)
	assert.Equal(t, "10 Mar 2025, 04:30:00", snap.LastUpdated)
	assert.Equal(t, "fire_reports/nepal_daily_fire_map_20250310.png", snap.MapURL)
	assert.Equal(t, domain.ReportLinks{
		PDF:  "fire_reports/nepal_daily_fire_report_20250310.pdf",
		XLSX: "fire_reports/nepal_daily_fire_report_20250310.xlsx",
	}, snap.Reports)
	assert.Equal(t, 2025, snap.Year)
	assert.Empty(t, snap.Archive)

	assert.Equal(t, 3, snap.Stats.TotalFires)
	assert.Equal(t, "Kailali (2 fires)", snap.Stats.TopDistrict)
	assert.Equal(t, "1 fires in 1 protected areas", snap.Stats.ProtectedAreas)
	assert.Equal(t, "MODIS 1km", snap.Stats.Satellite)
	assert.Equal(t, domain.Trend{Change: 50, Direction: domain.DirectionUp}, snap.Stats.FireTrend)
	assert.Equal(t, kathmandu, snap.Stats.Weather)
	assert.Equal(t, 50, snap.Stats.Confidence.Average)

	onDisk, err := e.store.ReadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, onDisk)

	archive, err := e.store.ReadArchive()
	require.NoError(t, err)
	assert.Equal(t, []domain.ArchiveEntry{{
		Date:     "2025-03-10",
		MapURL:   snap.MapURL,
		PDF:      snap.Reports.PDF,
		XLSX:     snap.Reports.XLSX,
		District: "Kailali",
	}}, archive)

	assert.Equal(t, []string{"2025-03-10"}, notifier.keys)
	assert.InDelta(t, 0.0, testutil.ToFloat64(e.metrics.WeatherFallbacks), 1e-9)
	require.NoError(t, e.store.CheckReadiness(context.Background()))
}

func TestPublisher_Run_Defaults(t *testing.T) {
	e := newEnv(t)
	res, err := e.monitor().Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.Remove(res.Paths.Confidence))
	require.NoError(t, os.Remove(res.Paths.Protected))

	snap, err := e.publisher(fakeWeather{fallback: true}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultConfidenceSummary, snap.Stats.Confidence)
	assert.Equal(t, domain.ProtectedAreasUnavailable, snap.Stats.ProtectedAreas)
	assert.Equal(t, domain.NoTrend, snap.Stats.FireTrend)
	assert.Equal(t, domain.SampleWeather, snap.Stats.Weather)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.metrics.WeatherFallbacks), 1e-9)
}

func TestPublisher_Run_MissingReport(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.EnsureDirs())

	_, err := e.publisher(fakeWeather{w: kathmandu}, nil).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrDataAbsent)
	assert.NoFileExists(t, e.store.TodayPath())
	assert.NoFileExists(t, e.store.ArchivePath())
}

func TestPublisher_Run_NotifierFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)
	_, err := e.monitor().Run(context.Background())
	require.NoError(t, err)

	notifier := &recordingNotifier{err: errors.New("broker down")}
	_, err = e.publisher(fakeWeather{w: kathmandu}, notifier).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.keys, 1)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.metrics.NotifyErrors), 1e-9)
}

func TestPublisher_Run_UpsertsArchive(t *testing.T) {
	e := newEnv(t)
	_, err := e.monitor().Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.store.WriteArchive([]domain.ArchiveEntry{
		{Date: "2025-03-10", District: "stale"},
		{Date: "2025-03-08", District: "Dang"},
		{Date: "2025-03-09", District: "Surkhet"},
	}))

	p := e.publisher(fakeWeather{w: kathmandu}, nil)
	_, err = p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	archive, err := e.store.ReadArchive()
	require.NoError(t, err)
	require.Len(t, archive, 3)
	assert.Equal(t, "2025-03-10", archive[0].Date)
	assert.Equal(t, "Kailali", archive[0].District)
	assert.Equal(t, "2025-03-09", archive[1].Date)
	assert.Equal(t, "2025-03-08", archive[2].Date)
}

func TestPublisher_Run_CorruptArchiveStartsOver(t *testing.T) {
	e := newEnv(t)
	_, err := e.monitor().Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.store.ArchivePath(), []byte("{not json"), 0o644))

	_, err = e.publisher(fakeWeather{w: kathmandu}, nil).Run(context.Background())
	require.NoError(t, err)

	archive, err := e.store.ReadArchive()
	require.NoError(t, err)
	require.Len(t, archive, 1)
	assert.Equal(t, "2025-03-10", archive[0].Date)
}

func TestPublisher_Run_UsesReportTimezone(t *testing.T) {
	e := newEnv(t)
	loc, err := time.LoadLocation("Asia/Kathmandu")
	require.NoError(t, err)
	// 20:00 UTC on the 9th is already the 10th in Kathmandu.
	e.clock = clockwork.NewFakeClockAt(time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC))
	e.cfg.Location = loc

	res, err := e.monitor().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250310", res.Paths.Key)

	snap, err := pipeline.NewPublisher(pipeline.PublisherConfig{Satellite: "MODIS 1km", Location: loc}, e.store, fakeWeather{w: kathmandu}, nil, e.clock, e.logger, e.metrics).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10 March 2025", snap.Date)
	assert.Equal(t, "10 Mar 2025, 01:45:00", snap.LastUpdated)
}
