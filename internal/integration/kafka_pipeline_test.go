//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/nepalfire/firereport/internal/adapter/kafka"
	"github.com/nepalfire/firereport/internal/adapter/vector"
	"github.com/nepalfire/firereport/internal/domain"
	"github.com/nepalfire/firereport/internal/observability"
	"github.com/nepalfire/firereport/internal/pipeline"
	"github.com/nepalfire/firereport/internal/reportstore"
)

const testTopic = "test-snapshots"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the test and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("firereport-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func writeLayer(t *testing.T, path string, fc domain.FeatureCollection) {
	t.Helper()
	data, err := vector.EncodeGeoJSON(fc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

type sampleWeather struct{}

func (sampleWeather) CurrentOrSample(context.Context) (domain.Weather, bool) {
	return domain.SampleWeather, true
}

// TestDailyRunPublishesSnapshot runs both stages against a real broker and
// reads the published snapshot back from the topic.
func TestDailyRunPublishesSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	root := t.TempDir()
	districts := filepath.Join(root, "districts.geojson")
	writeLayer(t, districts, domain.FeatureCollection{
		CRS:    domain.WGS84,
		Fields: []string{"DISTRICT"},
		Features: []domain.Feature{
			{Geometry: square(80, 28, 81, 29), Properties: map[string]any{"DISTRICT": "Kailali"}},
			{Geometry: square(81, 28, 82, 29), Properties: map[string]any{"DISTRICT": "Kanchanpur"}},
		},
	})
	fires := filepath.Join(root, "fires.geojson")
	writeLayer(t, fires, domain.FeatureCollection{
		CRS:    domain.WGS84,
		Fields: []string{"CONFIDENCE"},
		Features: []domain.Feature{
			{Geometry: orb.Point{80.5, 28.5}, Properties: map[string]any{"CONFIDENCE": 90.0}},
			{Geometry: orb.Point{80.6, 28.6}, Properties: map[string]any{"CONFIDENCE": 70.0}},
			{Geometry: orb.Point{81.5, 28.5}, Properties: map[string]any{"CONFIDENCE": 20.0}},
		},
	})

	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 4, 0, 0, 0, time.UTC))
	store := reportstore.New(filepath.Join(root, "fire_reports"), filepath.Join(root, "data"))
	metrics := observability.NewMetricsForTesting()
	logger := discardLogger()

	monitor := pipeline.NewMonitor(pipeline.MonitorConfig{
		DistrictsPath: districts,
		DistrictField: "DISTRICT",
		Satellite:     "MODIS 1km",
		Location:      time.UTC,
	}, pipeline.LocalSource{Path: fires}, store, clock, logger, metrics)
	_, err := monitor.Run(ctx)
	require.NoError(t, err)

	writer := kafka.NewWriter([]string{broker}, testTopic, logger)
	defer writer.Close()

	publisher := pipeline.NewPublisher(pipeline.PublisherConfig{Satellite: "MODIS 1km", Location: time.UTC},
		store, sampleWeather{}, writer, clock, logger, metrics)
	snap, err := publisher.Run(ctx)
	require.NoError(t, err)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read snapshot from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "2025-03-10", string(msg.Key))
	assert.Equal(t, "3", headers["total_fires"])

	var got domain.Snapshot
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, snap, got)
	assert.Equal(t, "Kailali (2 fires)", got.Stats.TopDistrict)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.NotifyErrors), 1e-9)
}
