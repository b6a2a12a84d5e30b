// Package weather looks up current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/nepalfire/firereport/internal/domain"
)

// DefaultURL is the OpenWeatherMap current-weather endpoint.
const DefaultURL = "https://api.openweathermap.org/data/2.5/weather"

// ErrNoAPIKey is returned by Current when no key is configured.
var ErrNoAPIKey = errors.New("weather API key not configured")

// Client fetches current weather for one city.
type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	city    string
	logger  *slog.Logger
}

// NewClient creates a weather client. city uses the OpenWeatherMap "q"
// syntax, e.g. "Kathmandu,np".
func NewClient(baseURL, apiKey, city string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		client:  resty.New().SetTimeout(timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
		city:    city,
		logger:  logger,
	}
}

// Current returns the current conditions in metric units.
func (c *Client) Current(ctx context.Context) (domain.Weather, error) {
	if c.apiKey == "" {
		return domain.Weather{}, ErrNoAPIKey
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     c.city,
			"appid": c.apiKey,
			"units": "metric",
		}).
		Get(c.baseURL)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather request: %w", err)
	}
	if resp.IsError() {
		return domain.Weather{}, fmt.Errorf("weather API error: status %d", resp.StatusCode())
	}
	return parse(resp.Body(), displayCity(c.city))
}

// CurrentOrSample returns live weather, or domain.SampleWeather when the
// lookup fails for any reason. fallback reports which one was returned.
func (c *Client) CurrentOrSample(ctx context.Context) (w domain.Weather, fallback bool) {
	w, err := c.Current(ctx)
	if err != nil {
		if errors.Is(err, ErrNoAPIKey) {
			c.logger.Warn("using sample weather data, set WEATHER_API_KEY for live conditions")
		} else {
			c.logger.Warn("weather lookup failed, using sample data", "error", err)
		}
		return domain.SampleWeather, true
	}
	return w, false
}

func parse(body []byte, city string) (domain.Weather, error) {
	if !gjson.ValidBytes(body) {
		return domain.Weather{}, errors.New("weather payload is not JSON")
	}
	doc := gjson.ParseBytes(body)
	condition := doc.Get("weather.0.main")
	temp := doc.Get("main.temp")
	humidity := doc.Get("main.humidity")
	wind := doc.Get("wind.speed")
	if !condition.Exists() || !temp.Exists() || !humidity.Exists() || !wind.Exists() {
		return domain.Weather{}, errors.New("weather payload missing required fields")
	}

	return domain.Weather{
		Condition:   condition.String(),
		Description: doc.Get("weather.0.description").String(),
		Temperature: int(math.RoundToEven(temp.Float())),
		Humidity:    int(humidity.Int()),
		Wind:        int(math.RoundToEven(wind.Float())),
		City:        city,
	}, nil
}

// displayCity strips the country code from an OpenWeatherMap query.
func displayCity(q string) string {
	name, _, _ := strings.Cut(q, ",")
	return strings.TrimSpace(name)
}
