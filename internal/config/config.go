package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/sethvargo/go-envconfig"

	"github.com/nepalfire/firereport/internal/adapter/firms"
	"github.com/nepalfire/firereport/internal/adapter/weather"
)

// Default reference layers, relative to RESOURCES_DIR.
const (
	DistrictsFile      = "nepal_districts_wards.shp"
	DistrictsPlotFile  = "nepal_districts_plot.shp"
	ProtectedAreasFile = "nepal_protected_areas.shp"

	defaultWeatherCity = "Kathmandu,np"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	// Reference layers. Unset paths resolve inside ResourcesDir.
	ResourcesDir       string `env:"RESOURCES_DIR,default=resources"`
	DistrictsPath      string `env:"DISTRICTS_PATH"`
	DistrictsPlotPath  string `env:"DISTRICTS_PLOT_PATH"`
	ProtectedAreasPath string `env:"PROTECTED_AREAS_PATH"`
	DistrictField      string `env:"DISTRICT_FIELD,default=DISTRICT"`
	ProtectedAreaField string `env:"PROTECTED_AREA_FIELD,default=NAME"`

	// Fire data. FireSourcePath skips the download when set.
	FIRMSURL        string        `env:"FIRMS_URL"`
	FireSourcePath  string        `env:"FIRE_SOURCE_PATH"`
	DownloadDir     string        `env:"DOWNLOAD_DIR,default=temp_fire_data"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT,default=2m"`

	OutputDir string `env:"OUTPUT_DIR,default=fire_reports"`
	DataDir   string `env:"DATA_DIR,default=data"`
	Timezone  string `env:"TIMEZONE,default=Asia/Kathmandu"`
	Satellite string `env:"SATELLITE,default=MODIS 1km"`

	WeatherAPIKey  string        `env:"WEATHER_API_KEY"`
	WeatherCity    string        `env:"WEATHER_CITY"`
	WeatherURL     string        `env:"WEATHER_URL"`
	WeatherTimeout time.Duration `env:"WEATHER_TIMEOUT,default=10s"`

	OpenPDF bool `env:"OPEN_PDF,default=false"`

	// Snapshot notifier; disabled when no brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC,default=nepal-fire-snapshots"`

	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	MetricsTextfile string        `env:"METRICS_TEXTFILE"`

	location *time.Location
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process config: %w", err)
	}

	if cfg.DistrictsPath == "" {
		cfg.DistrictsPath = filepath.Join(cfg.ResourcesDir, DistrictsFile)
	}
	if cfg.DistrictsPlotPath == "" {
		cfg.DistrictsPlotPath = filepath.Join(cfg.ResourcesDir, DistrictsPlotFile)
	}
	if cfg.ProtectedAreasPath == "" {
		cfg.ProtectedAreasPath = filepath.Join(cfg.ResourcesDir, ProtectedAreasFile)
	}
	if cfg.FIRMSURL == "" {
		cfg.FIRMSURL = firms.DefaultURL
	}
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = weather.DefaultURL
	}
	if cfg.WeatherCity == "" {
		cfg.WeatherCity = defaultWeatherCity
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DistrictField == "" {
		return errors.New("DISTRICT_FIELD is required")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	if c.DataDir == "" {
		return errors.New("DATA_DIR is required")
	}
	if c.FireSourcePath == "" && c.DownloadDir == "" {
		return errors.New("DOWNLOAD_DIR is required when FIRE_SOURCE_PATH is not set")
	}
	if c.DownloadTimeout <= 0 {
		return errors.New("invalid DOWNLOAD_TIMEOUT")
	}
	if c.WeatherTimeout <= 0 {
		return errors.New("invalid WEATHER_TIMEOUT")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Location is the report time zone resolved from TIMEZONE.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// NotifierEnabled reports whether snapshots are published to Kafka.
func (c *Config) NotifierEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
