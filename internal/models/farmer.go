package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ============================================================================
// FARMER & THRESHOLD CONFIGURATION
// ============================================================================

type Farmer struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	FullName      string           `json:"full_name" db:"full_name"`
	WalletAddress string           `json:"wallet_address" db:"wallet_address"`
	Latitude      float64          `json:"latitude" db:"latitude"`
	Longitude     float64          `json:"longitude" db:"longitude"`
	FarmBoundary  *GeoJSONPolygon  `json:"farm_boundary,omitempty" db:"farm_boundary"`
	Thresholds    *ThresholdConfig `json:"thresholds,omitempty" db:"thresholds"`
	Status        FarmerStatus     `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// MonitoringPoint returns the coordinate weather data is fetched at: the
// centroid of the farm boundary when one is registered, the farmer's
// registered point otherwise.
func (f *Farmer) MonitoringPoint() (lat, lon float64) {
	if f.FarmBoundary != nil {
		if cLat, cLon, ok := f.FarmBoundary.Centroid(); ok {
			return cLat, cLon
		}
	}
	return f.Latitude, f.Longitude
}

// MetricBound is one side-optional numeric constraint on a weather metric.
// A nil side means no constraint on that side.
type MetricBound struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ThresholdConfig holds the per-metric bounds a farmer has configured.
// Metrics left nil are not evaluated at all. Stored as JSONB on the farmer row;
// mutated only through farmer-initiated updates and read-only to the engine.
type ThresholdConfig struct {
	Temperature *MetricBound `json:"temperature,omitempty"`
	Rainfall    *MetricBound `json:"rainfall,omitempty"`
	Humidity    *MetricBound `json:"humidity,omitempty"`
	WindSpeed   *MetricBound `json:"windSpeed,omitempty"`
}

func (t ThresholdConfig) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *ThresholdConfig) Scan(value any) error {
	if value == nil {
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("ThresholdConfig: Scan failed, expected []byte but got %T", value)
	}

	return json.Unmarshal(b, t)
}

// Bound returns the configured bound for a metric name, nil when the metric
// is not configured.
func (t *ThresholdConfig) Bound(metric string) *MetricBound {
	if t == nil {
		return nil
	}
	switch metric {
	case MetricTemperature:
		return t.Temperature
	case MetricRainfall:
		return t.Rainfall
	case MetricHumidity:
		return t.Humidity
	case MetricWindSpeed:
		return t.WindSpeed
	default:
		return nil
	}
}

// ============================================================================
// FARM BOUNDARY GEOMETRY
// ============================================================================

// GeoJSONPolygon represents a GeoJSON Polygon for API input/output and JSONB storage.
type GeoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

func (g *GeoJSONPolygon) Value() (driver.Value, error) {
	if g == nil || g.Type == "" {
		return nil, nil
	}
	return json.Marshal(g)
}

func (g *GeoJSONPolygon) Scan(value any) error {
	if value == nil {
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("GeoJSONPolygon: Scan failed, expected []byte but got %T", value)
	}

	return json.Unmarshal(b, g)
}

// Centroid computes the centroid of the polygon's outer ring via go-geom.
// ok is false when the stored geometry is not a usable polygon.
func (g *GeoJSONPolygon) Centroid() (lat, lon float64, ok bool) {
	raw, err := json.Marshal(g)
	if err != nil {
		return 0, 0, false
	}

	var geometry geom.T
	if err := geojson.Unmarshal(raw, &geometry); err != nil {
		return 0, 0, false
	}

	polygon, isPolygon := geometry.(*geom.Polygon)
	if !isPolygon || polygon.NumLinearRings() == 0 {
		return 0, 0, false
	}

	ring := polygon.LinearRing(0)
	n := ring.NumCoords()
	if n == 0 {
		return 0, 0, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		coord := ring.Coord(i)
		sumX += coord.X()
		sumY += coord.Y()
	}

	// GeoJSON order is [lon, lat]
	return sumY / float64(n), sumX / float64(n), true
}
