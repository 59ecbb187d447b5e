package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SamyaDeb/FarmerShield/internal/config"
	"github.com/SamyaDeb/FarmerShield/internal/models"
)

// Provider fetches the latest normalized weather observation for a coordinate.
type Provider interface {
	FetchObservation(ctx context.Context, lat, lon float64) (*models.Observation, error)
}

type Client struct {
	cfg        config.WeatherConfig
	httpClient *http.Client
}

func NewClient(cfg config.WeatherConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// onecallResponse mirrors the subset of the provider payload we consume.
// Fields the provider omits stay nil and are simply not evaluated downstream.
type onecallResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Current struct {
		Dt        int64    `json:"dt"`
		Temp      *float64 `json:"temp"`
		Humidity  *float64 `json:"humidity"`
		WindSpeed *float64 `json:"wind_speed"`
		Rain      *struct {
			OneHour *float64 `json:"1h"`
		} `json:"rain"`
	} `json:"current"`
	Daily []struct {
		Temp struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		} `json:"temp"`
		Rain *float64 `json:"rain"`
	} `json:"daily"`
}

// FetchObservation calls the weather API and normalizes the response into an
// immutable Observation.
func (c *Client) FetchObservation(ctx context.Context, lat, lon float64) (*models.Observation, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("weather API key not configured")
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("appid", c.cfg.APIKey)
	params.Set("exclude", "minutely,hourly,alerts")
	if c.cfg.Units != "" {
		params.Set("units", c.cfg.Units)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call weather API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("weather API returned non-200 status", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("weather API error: status %d", resp.StatusCode)
	}

	var payload onecallResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}

	return normalize(&payload), nil
}

func normalize(payload *onecallResponse) *models.Observation {
	obs := &models.Observation{
		ID:          fmt.Sprintf("%0.4f:%0.4f:%d", payload.Lat, payload.Lon, payload.Current.Dt),
		Latitude:    payload.Lat,
		Longitude:   payload.Lon,
		Temperature: payload.Current.Temp,
		Humidity:    payload.Current.Humidity,
		WindSpeed:   payload.Current.WindSpeed,
		MeasuredAt:  payload.Current.Dt,
		Source:      "openweathermap",
		DataQuality: models.DataQualityGood,
	}

	if payload.Current.Rain != nil && payload.Current.Rain.OneHour != nil {
		obs.Rainfall = payload.Current.Rain.OneHour
	}

	if len(payload.Daily) > 0 {
		today := payload.Daily[0]
		obs.TemperatureMin = today.Temp.Min
		obs.TemperatureMax = today.Temp.Max
		// Daily accumulated rain is the better breach signal than the 1h rate
		if today.Rain != nil {
			obs.Rainfall = today.Rain
		}
	}

	return obs
}
