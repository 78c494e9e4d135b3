// Package weather fetches a best-effort forecast summary from the
// Open-Meteo current-weather endpoint for a fixed set of locations.
// Every call is an independent failure domain: a fetch error for one
// location simply drops that location from the summary.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const forecastURL = "https://api.open-meteo.com/v1/forecast"

// Location is a named point the morning digest reports on.
type Location struct {
	Name string
	Lat  float64
	Lon  float64
}

// DefaultLocations are the cities the digest covers.
var DefaultLocations = []Location{
	{Name: "東京", Lat: 35.6762, Lon: 139.6503},
	{Name: "京都", Lat: 35.0116, Lon: 135.7681},
	{Name: "大阪", Lat: 34.6937, Lon: 135.5023},
	{Name: "札幌", Lat: 43.0618, Lon: 141.3545},
	{Name: "福岡", Lat: 33.5902, Lon: 130.4017},
}

// Report is one location's current conditions.
type Report struct {
	Location    string
	Temperature float64
	WeatherCode int
}

// Label translates the WMO weather code into a short Japanese label.
func (r Report) Label() string {
	switch {
	case r.WeatherCode == 0:
		return "快晴"
	case r.WeatherCode <= 3:
		return "晴れ時々くもり"
	case r.WeatherCode <= 48:
		return "霧"
	case r.WeatherCode <= 57:
		return "霧雨"
	case r.WeatherCode <= 67:
		return "雨"
	case r.WeatherCode <= 77:
		return "雪"
	case r.WeatherCode <= 82:
		return "にわか雨"
	case r.WeatherCode <= 86:
		return "にわか雪"
	default:
		return "雷雨"
	}
}

// Client queries the forecast API. The zero value is not usable; use New.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a weather client with a bounded request timeout.
func New() *Client {
	return &Client{
		baseURL:    forecastURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// NewWithBaseURL is used by tests to point the client at a stub server.
func NewWithBaseURL(baseURL string) *Client {
	c := New()
	c.baseURL = baseURL
	return c
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Fetch returns the current conditions for one location.
func (c *Client) Fetch(ctx context.Context, loc Location) (Report, error) {
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current_weather=true",
		c.baseURL, loc.Lat, loc.Lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Report{}, fmt.Errorf("weather: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather: fetching forecast for %s: %w", loc.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather: forecast API returned status %d for %s", resp.StatusCode, loc.Name)
	}

	var fr forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return Report{}, fmt.Errorf("weather: decoding forecast for %s: %w", loc.Name, err)
	}

	return Report{
		Location:    loc.Name,
		Temperature: fr.CurrentWeather.Temperature,
		WeatherCode: fr.CurrentWeather.WeatherCode,
	}, nil
}
