// Package config loads the earthgrid YAML configuration and applies
// environment overrides on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/logging"
	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/stations"
)

// DefaultFiles are tried in order when no config path is given.
var DefaultFiles = []string{"config.yaml", "config.yaml.example"}

// Config structure for YAML configuration
type Config struct {
	Log   logging.Config `yaml:"log"`
	Seed  int64          `yaml:"seed"`  // 0 seeds from the clock
	Noise string         `yaml:"noise"` // uniform or perlin

	Server struct {
		Addr         string        `yaml:"addr"`
		Span         float64       `yaml:"span"` // degrees covered by /pollution grids
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Remote struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"remote"`

	Stations struct {
		stations.Config `yaml:",inline"`
		RadiusKm        float64 `yaml:"radius_km"`
		Limit           int     `yaml:"limit"`
	} `yaml:"stations"`

	Viewport     models.Viewport                 `yaml:"viewport"`
	Layers       map[grid.Layer]LayerConfig      `yaml:"layers"`
	Hotspots     map[grid.Layer][]models.Hotspot `yaml:"hotspots"`
	HotspotFiles map[grid.Layer]string           `yaml:"hotspot_files"`
}

// LayerConfig overrides individual preset fields; unset fields keep the preset.
type LayerConfig struct {
	Resolution *int     `yaml:"resolution"`
	Radius     *float64 `yaml:"radius"`
	BaseLevel  *float64 `yaml:"base_level"`
	NoiseMax   *float64 `yaml:"noise_max"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Log:          logging.Config{Level: "info"},
		Noise:        "uniform",
		Viewport:     models.Viewport{North: 40, South: 20, East: 90, West: 65},
		Layers:       map[grid.Layer]LayerConfig{},
		Hotspots:     DefaultHotspots(),
		HotspotFiles: map[grid.Layer]string{},
	}
	cfg.Server.Addr = ":8080"
	cfg.Server.Span = 10
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Remote.Timeout = 5 * time.Second
	cfg.Stations.Driver = "sqlite"
	cfg.Stations.DSN = "data/stations.db"
	cfg.Stations.RadiusKm = 500
	cfg.Stations.Limit = 50
	return cfg
}

// DefaultHotspots are reference locations per layer.
func DefaultHotspots() map[grid.Layer][]models.Hotspot {
	return map[grid.Layer][]models.Hotspot{
		grid.LayerPollution: {
			{Name: "Delhi", Lat: 28.6139, Lon: 77.2090, Factor: 0.9},
			{Name: "Beijing", Lat: 39.9042, Lon: 116.4074, Factor: 0.8},
			{Name: "Cairo", Lat: 30.0444, Lon: 31.2357, Factor: 0.7},
			{Name: "Mexico City", Lat: 19.4326, Lon: -99.1332, Factor: 0.6},
			{Name: "Los Angeles", Lat: 34.0522, Lon: -118.2437, Factor: 0.5},
		},
		grid.LayerVegetation: {
			{Name: "Amazon Basin", Lat: -3.4653, Lon: -62.2159, Factor: 0.8},
			{Name: "Congo Basin", Lat: -0.2280, Lon: 15.8277, Factor: 0.7},
			{Name: "Borneo", Lat: 0.9619, Lon: 114.5548, Factor: 0.6},
		},
		grid.LayerFire: {
			{Name: "Northern California", Lat: 39.7596, Lon: -121.6219, Factor: 0.9},
			{Name: "New South Wales", Lat: -33.8688, Lon: 150.2093, Factor: 0.8},
			{Name: "Yakutia", Lat: 62.0355, Lon: 129.6755, Factor: 0.7},
		},
		grid.LayerWater: {
			{Name: "Lake Chad", Lat: 13.0, Lon: 14.5, Factor: 0.8},
			{Name: "Aral Sea", Lat: 45.0, Lon: 60.0, Factor: 0.9},
			{Name: "Colorado River Delta", Lat: 31.8, Lon: -114.8, Factor: 0.6},
		},
	}
}

// Load reads path over the defaults. With an empty path it tries
// DefaultFiles and falls back to the defaults when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return data, nil
	}
	for _, name := range DefaultFiles {
		data, err := os.ReadFile(name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil, nil
}

// applyEnv overrides deployment settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("EARTHGRID_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("EARTHGRID_REMOTE_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("EARTHGRID_STATIONS_DRIVER"); v != "" {
		c.Stations.Driver = v
	}
	if v := os.Getenv("EARTHGRID_STATIONS_DSN"); v != "" {
		c.Stations.DSN = v
	}
	if v := os.Getenv("EARTHGRID_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Noise) {
	case "", "uniform", "perlin", "none":
	default:
		return fmt.Errorf("invalid noise %q: want uniform, perlin or none", c.Noise)
	}
	if c.Server.Span <= 0 || c.Server.Span > 180 {
		return fmt.Errorf("invalid server span %.2f: want (0, 180]", c.Server.Span)
	}
	if c.Stations.RadiusKm <= 0 {
		return fmt.Errorf("invalid stations radius %.2f", c.Stations.RadiusKm)
	}
	if err := c.Viewport.Validate(); err != nil {
		return fmt.Errorf("invalid initial viewport: %w", err)
	}
	for layer := range c.Layers {
		if _, err := c.Params(layer); err != nil {
			return err
		}
	}
	for layer, hs := range c.Hotspots {
		for _, h := range hs {
			if err := h.Validate(); err != nil {
				return fmt.Errorf("layer %s: %w", layer, err)
			}
		}
	}
	return nil
}

// Params returns the layer preset with any configured overrides applied.
func (c *Config) Params(layer grid.Layer) (grid.Params, error) {
	p, err := grid.Preset(layer)
	if err != nil {
		return grid.Params{}, err
	}
	if o, ok := c.Layers[layer]; ok {
		if o.Resolution != nil {
			p.Resolution = *o.Resolution
		}
		if o.Radius != nil {
			p.Radius = *o.Radius
		}
		if o.BaseLevel != nil {
			p.BaseLevel = *o.BaseLevel
		}
		if o.NoiseMax != nil {
			p.NoiseMax = *o.NoiseMax
		}
	}
	if err := p.Validate(); err != nil {
		return grid.Params{}, fmt.Errorf("layer %s: %w", layer, err)
	}
	return p, nil
}

// NewNoise builds the configured noise source.
func (c *Config) NewNoise() grid.Noise {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	switch strings.ToLower(c.Noise) {
	case "perlin":
		return grid.NewPerlinNoise(seed)
	case "none":
		return grid.ZeroNoise{}
	default:
		return grid.NewSeededNoise(uint64(seed))
	}
}

// NewGenerator builds a generator for the layer.
func (c *Config) NewGenerator(layer grid.Layer) (*grid.Generator, error) {
	p, err := c.Params(layer)
	if err != nil {
		return nil, err
	}
	return grid.NewGenerator(p, c.NewNoise())
}
