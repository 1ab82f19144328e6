package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Client fetches hourly forecasts from the Open-Meteo API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type hourlyResponse struct {
	Hourly struct {
		Time             []string  `json:"time"`
		Temperature2m    []float64 `json:"temperature_2m"`
		RelativeHumidity []float64 `json:"relative_humidity_2m"`
		ShortwaveRad     []float64 `json:"shortwave_radiation"`
		WindSpeed10m     []float64 `json:"wind_speed_10m"`
		Precipitation    []float64 `json:"precipitation"`
	} `json:"hourly"`
}

// Hourly fetches up to `hours` hourly samples for a location.
func (c *Client) Hourly(ctx context.Context, lat, lon float64, hours int) (Forecast, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("hourly", "temperature_2m,relative_humidity_2m,shortwave_radiation,wind_speed_10m,precipitation")
	q.Set("forecast_days", strconv.Itoa((hours+23)/24))
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}

	httpc := c.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather fetch: unexpected status %d", resp.StatusCode)
	}

	var body hourlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather decode: %w", err)
	}

	h := body.Hourly
	if len(h.Time) == 0 || len(h.Temperature2m) == 0 {
		return nil, ErrEmptyForecast
	}

	n := len(h.Time)
	if len(h.Temperature2m) < n {
		n = len(h.Temperature2m)
	}
	if hours > 0 && n > hours {
		n = hours
	}

	fc := make(Forecast, 0, n)
	for i := 0; i < n; i++ {
		ts, err := time.Parse("2006-01-02T15:04", h.Time[i])
		if err != nil {
			continue
		}
		s := Sample{Time: ts, TempC: h.Temperature2m[i]}
		if i < len(h.RelativeHumidity) {
			s.HumidityPct = h.RelativeHumidity[i]
		}
		if i < len(h.ShortwaveRad) {
			s.SolarWM2 = h.ShortwaveRad[i]
		}
		if i < len(h.WindSpeed10m) {
			s.WindMS = h.WindSpeed10m[i]
		}
		if i < len(h.Precipitation) {
			s.PrecipMM = h.Precipitation[i]
		}
		fc = append(fc, s)
	}
	if len(fc) == 0 {
		return nil, ErrEmptyForecast
	}
	return fc, nil
}
