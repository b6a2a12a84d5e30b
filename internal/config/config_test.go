package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nepalfire/firereport/internal/adapter/firms"
	"github.com/nepalfire/firereport/internal/adapter/weather"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "resources", cfg.ResourcesDir)
	assert.Equal(t, filepath.Join("resources", DistrictsFile), cfg.DistrictsPath)
	assert.Equal(t, filepath.Join("resources", DistrictsPlotFile), cfg.DistrictsPlotPath)
	assert.Equal(t, filepath.Join("resources", ProtectedAreasFile), cfg.ProtectedAreasPath)
	assert.Equal(t, "DISTRICT", cfg.DistrictField)
	assert.Equal(t, "NAME", cfg.ProtectedAreaField)
	assert.Equal(t, firms.DefaultURL, cfg.FIRMSURL)
	assert.Empty(t, cfg.FireSourcePath)
	assert.Equal(t, "temp_fire_data", cfg.DownloadDir)
	assert.Equal(t, 2*time.Minute, cfg.DownloadTimeout)
	assert.Equal(t, "fire_reports", cfg.OutputDir)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "Asia/Kathmandu", cfg.Location().String())
	assert.Equal(t, "MODIS 1km", cfg.Satellite)
	assert.Empty(t, cfg.WeatherAPIKey)
	assert.Equal(t, "Kathmandu,np", cfg.WeatherCity)
	assert.Equal(t, weather.DefaultURL, cfg.WeatherURL)
	assert.Equal(t, 10*time.Second, cfg.WeatherTimeout)
	assert.False(t, cfg.OpenPDF)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.NotifierEnabled())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.MetricsTextfile)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("RESOURCES_DIR", "/srv/layers")
	t.Setenv("PROTECTED_AREAS_PATH", "/srv/pa.geojson")
	t.Setenv("FIRE_SOURCE_PATH", "/tmp/fires.shp")
	t.Setenv("OUTPUT_DIR", "/var/www/fire_reports")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("WEATHER_API_KEY", "key")
	t.Setenv("WEATHER_CITY", "Pokhara,np")
	t.Setenv("OPEN_PDF", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,")
	t.Setenv("KAFKA_TOPIC", "fires")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/firereport.prom")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/srv/layers", DistrictsFile), cfg.DistrictsPath)
	assert.Equal(t, "/srv/pa.geojson", cfg.ProtectedAreasPath)
	assert.Equal(t, "/tmp/fires.shp", cfg.FireSourcePath)
	assert.Equal(t, "/var/www/fire_reports", cfg.OutputDir)
	assert.Equal(t, time.UTC.String(), cfg.Location().String())
	assert.Equal(t, "key", cfg.WeatherAPIKey)
	assert.Equal(t, "Pokhara,np", cfg.WeatherCity)
	assert.True(t, cfg.OpenPDF)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.NotifierEnabled())
	assert.Equal(t, "fires", cfg.KafkaTopic)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/node_exporter/firereport.prom", cfg.MetricsTextfile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"bad duration", map[string]string{"DOWNLOAD_TIMEOUT": "soon"}, "process config"},
		{"zero download timeout", map[string]string{"DOWNLOAD_TIMEOUT": "0s"}, "DOWNLOAD_TIMEOUT"},
		{"zero shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "0s"}, "SHUTDOWN_TIMEOUT"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
