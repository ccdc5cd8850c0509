package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	for _, layer := range grid.Layers() {
		p, err := cfg.Params(layer)
		require.NoError(t, err)
		preset, _ := grid.Preset(layer)
		assert.Equal(t, preset, p)
		assert.NotEmpty(t, cfg.Hotspots[layer], "layer %s has default hotspots", layer)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
seed: 7
noise: perlin
log:
  level: debug
server:
  addr: ":9090"
  span: 4
  read_timeout: 2s
remote:
  base_url: http://data.example.com
  timeout: 750ms
stations:
  driver: postgis
  dsn: host=db
  radius_km: 120
layers:
  pollution:
    radius: 6.5
  fire:
    resolution: 40
    base_level: 0
hotspots:
  pollution:
    - {name: Lahore, lat: 31.52, lon: 74.36, factor: 0.95}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4.0, cfg.Server.Span)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "unset fields keep defaults")
	assert.Equal(t, "http://data.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Remote.Timeout)
	assert.Equal(t, "postgis", cfg.Stations.Driver)
	assert.Equal(t, "host=db", cfg.Stations.DSN)
	assert.Equal(t, 120.0, cfg.Stations.RadiusKm)
	assert.Equal(t, 50, cfg.Stations.Limit)

	p, err := cfg.Params(grid.LayerPollution)
	require.NoError(t, err)
	assert.Equal(t, grid.Params{Resolution: 20, Radius: 6.5, BaseLevel: 0.2, NoiseMax: 0.3}, p)

	p, err = cfg.Params(grid.LayerFire)
	require.NoError(t, err)
	assert.Equal(t, 40, p.Resolution)
	assert.Equal(t, 0.0, p.BaseLevel)

	require.Len(t, cfg.Hotspots[grid.LayerPollution], 1)
	assert.Equal(t, "Lahore", cfg.Hotspots[grid.LayerPollution][0].Name)
	assert.NotEmpty(t, cfg.Hotspots[grid.LayerWater], "layers not in the file keep default hotspots")

	_, ok := cfg.NewNoise().(*grid.PerlinNoise)
	assert.True(t, ok)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EARTHGRID_ADDR", ":7000")
	t.Setenv("EARTHGRID_REMOTE_URL", "http://localhost:7000")
	t.Setenv("EARTHGRID_STATIONS_DSN", "/tmp/x.db")
	t.Setenv("EARTHGRID_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "server:\n  addr: \":9090\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:7000", cfg.Remote.BaseURL)
	assert.Equal(t, "/tmp/x.db", cfg.Stations.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)

	require.NoError(t, os.WriteFile("config.yaml.example", []byte("seed: 99\n"), 0o644))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Seed)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"bad yaml", "server: [\n"},
		{"bad noise", "noise: pink\n"},
		{"bad span", "server:\n  span: 0\n"},
		{"bad layer", "layers:\n  smog:\n    radius: 1\n"},
		{"bad override", "layers:\n  water:\n    resolution: 0\n"},
		{"bad hotspot", "hotspots:\n  fire:\n    - {lat: 1, lon: 1, factor: 0}\n"},
		{"bad viewport", "viewport: {north: 1, south: 2, east: 3, west: 0}\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	cfg := Default()
	cfg.Seed = 3
	cfg.Noise = "none"

	gen, err := cfg.NewGenerator(grid.LayerPollution)
	require.NoError(t, err)

	samples, err := gen.Generate(models.Viewport{North: 1, South: 0, East: 1, West: 0}, nil, 1)
	require.NoError(t, err)
	for _, s := range samples {
		assert.Equal(t, grid.DefaultBaseLevel, s.Intensity)
	}

	_, err = cfg.NewGenerator("smog")
	assert.Error(t, err)
}
