// Package stations persists air quality monitoring stations and answers
// "which stations are near this point" for the pollution endpoint.
package stations

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/rtree"
)

// Store is a station repository.
type Store interface {
	InitSchema(ctx context.Context) error
	Upsert(ctx context.Context, stations []models.Station) error
	Nearby(ctx context.Context, center models.Location, radiusKm float64, limit int) ([]models.Station, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Config selects and connects a store.
type Config struct {
	Driver string `yaml:"driver"` // sqlite or postgis
	DSN    string `yaml:"dsn"`
}

// Open connects the store named by cfg.Driver.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(cfg.DSN)
	case "postgis", "postgres":
		return NewPostGISStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown station store driver %q", cfg.Driver)
	}
}

// boxAround returns the lat/lon box enclosing a circle of radiusKm.
func boxAround(center models.Location, radiusKm float64) models.Viewport {
	dLat := radiusKm / 111.0
	cos := math.Cos(center.Lat * math.Pi / 180)
	dLon := 180.0
	if cos > 1e-6 {
		dLon = math.Min(dLat/cos, 180)
	}
	return models.Viewport{
		North: math.Min(center.Lat+dLat, 90),
		South: math.Max(center.Lat-dLat, -90),
		East:  math.Min(center.Lon+dLon, 180),
		West:  math.Max(center.Lon-dLon, -180),
	}
}

// filterByDistance keeps stations within radiusKm, nearest first.
func filterByDistance(candidates []models.Station, center models.Location, radiusKm float64, limit int) []models.Station {
	type scored struct {
		st   models.Station
		dist float64
	}
	in := make([]scored, 0, len(candidates))
	for _, st := range candidates {
		d := rtree.Distance(center.Lat, center.Lon, st.Lat, st.Lon)
		if d <= radiusKm {
			in = append(in, scored{st, d})
		}
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].dist < in[j].dist })

	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	out := make([]models.Station, len(in))
	for i, s := range in {
		out[i] = s.st
	}
	return out
}

// DefaultStations seeds a demo network around well-known pollution hotspots.
func DefaultStations() []models.Station {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Station{
		{ID: "in-del-01", Name: "Anand Vihar, Delhi", Lat: 28.6469, Lon: 77.3152, AQI: 312, UpdatedAt: now},
		{ID: "in-del-02", Name: "RK Puram, Delhi", Lat: 28.5633, Lon: 77.1870, AQI: 268, UpdatedAt: now},
		{ID: "cn-bjs-01", Name: "Dongsi, Beijing", Lat: 39.9294, Lon: 116.4170, AQI: 154, UpdatedAt: now},
		{ID: "cn-sha-01", Name: "Jing'an, Shanghai", Lat: 31.2286, Lon: 121.4480, AQI: 98, UpdatedAt: now},
		{ID: "us-lax-01", Name: "Downtown Los Angeles", Lat: 34.0661, Lon: -118.2268, AQI: 87, UpdatedAt: now},
		{ID: "us-nyc-01", Name: "Queens College, New York", Lat: 40.7366, Lon: -73.8220, AQI: 45, UpdatedAt: now},
		{ID: "mx-mex-01", Name: "Merced, Mexico City", Lat: 19.4246, Lon: -99.1196, AQI: 121, UpdatedAt: now},
		{ID: "eg-cai-01", Name: "Abbassia, Cairo", Lat: 30.0722, Lon: 31.2833, AQI: 165, UpdatedAt: now},
		{ID: "gb-lon-01", Name: "Marylebone Road, London", Lat: 51.5225, Lon: -0.1546, AQI: 52, UpdatedAt: now},
		{ID: "br-sao-01", Name: "Pinheiros, Sao Paulo", Lat: -23.5614, Lon: -46.7020, AQI: 63, UpdatedAt: now},
	}
}
