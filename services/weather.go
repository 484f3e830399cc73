package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// ─── Types ────────────────────────────────────────────────────────────────────

type DailyForecast struct {
	Date          string  `json:"date"`
	TempMin       float64 `json:"temp_min"`
	TempMax       float64 `json:"temp_max"`
	Condition     string  `json:"condition"`
	Description   string  `json:"description"`
	Precipitation float64 `json:"precipitation"`
}

type WeatherSummary struct {
	Summary  string          `json:"summary"`
	Forecast []DailyForecast `json:"forecast"`
}

// ─── Client ───────────────────────────────────────────────────────────────────

// WeatherClient wraps the OpenWeatherMap geocoding and 5-day forecast
// APIs.
type WeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewWeatherClient(apiKey, baseURL string, httpClient *http.Client) *WeatherClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &WeatherClient{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

func (c *WeatherClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openweather error (%d): %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// Geocode resolves a city name to coordinates via the direct geocoding
// endpoint.
func (c *WeatherClient) Geocode(ctx context.Context, city string) (float64, float64, error) {
	path := fmt.Sprintf("/geo/1.0/direct?q=%s&limit=1&appid=%s",
		url.QueryEscape(city), url.QueryEscape(c.apiKey))

	var results []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := c.getJSON(ctx, path, &results); err != nil {
		return 0, 0, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no geocoding result for %q", city)
	}
	return results[0].Lat, results[0].Lon, nil
}

// Forecast fetches the 3-hourly forecast for the coordinates and folds it
// into per-day minima/maxima, clipped to the trip window.
func (c *WeatherClient) Forecast(ctx context.Context, lat, lon float64, startDate, endDate string) (*WeatherSummary, error) {
	path := fmt.Sprintf("/data/2.5/forecast?lat=%f&lon=%f&units=metric&appid=%s",
		lat, lon, url.QueryEscape(c.apiKey))

	var resp struct {
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				TempMin float64 `json:"temp_min"`
				TempMax float64 `json:"temp_max"`
			} `json:"main"`
			Weather []struct {
				Main        string `json:"main"`
				Description string `json:"description"`
			} `json:"weather"`
			Pop float64 `json:"pop"`
		} `json:"list"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("forecast failed: %w", err)
	}

	byDay := map[string]*DailyForecast{}
	for _, slot := range resp.List {
		if len(slot.DtTxt) < 10 {
			continue
		}
		date := slot.DtTxt[:10]
		if (startDate != "" && date < startDate) || (endDate != "" && date > endDate) {
			continue
		}

		d, ok := byDay[date]
		if !ok {
			d = &DailyForecast{Date: date, TempMin: slot.Main.TempMin, TempMax: slot.Main.TempMax}
			if len(slot.Weather) > 0 {
				d.Condition = slot.Weather[0].Main
				d.Description = slot.Weather[0].Description
			}
			byDay[date] = d
			continue
		}
		if slot.Main.TempMin < d.TempMin {
			d.TempMin = slot.Main.TempMin
		}
		if slot.Main.TempMax > d.TempMax {
			d.TempMax = slot.Main.TempMax
		}
		if slot.Pop > d.Precipitation {
			d.Precipitation = slot.Pop
		}
	}

	if len(byDay) == 0 {
		return nil, fmt.Errorf("forecast window returned no data")
	}

	forecast := make([]DailyForecast, 0, len(byDay))
	for _, d := range byDay {
		forecast = append(forecast, *d)
	}
	sort.Slice(forecast, func(i, j int) bool { return forecast[i].Date < forecast[j].Date })

	return &WeatherSummary{
		Summary:  summarizeForecast(resp.City.Name, forecast),
		Forecast: forecast,
	}, nil
}

func summarizeForecast(city string, forecast []DailyForecast) string {
	if len(forecast) == 0 {
		return ""
	}
	lo, hi := forecast[0].TempMin, forecast[0].TempMax
	rainy := 0
	for _, d := range forecast {
		if d.TempMin < lo {
			lo = d.TempMin
		}
		if d.TempMax > hi {
			hi = d.TempMax
		}
		if d.Condition == "Rain" || d.Precipitation >= 0.5 {
			rainy++
		}
	}
	s := fmt.Sprintf("%.0f to %.0f°C over %d day(s)", lo, hi, len(forecast))
	if city != "" {
		s = city + ": " + s
	}
	if rainy > 0 {
		s += fmt.Sprintf(", rain likely on %d day(s)", rainy)
	}
	return s
}
