// Package grid generates synthetic environmental intensity grids over a
// viewport. Each sample gets a base level, distance-weighted hotspot
// contributions and bounded noise, clamped to [0,1].
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/rtree"
)

const (
	DefaultResolution = 20
	DefaultRadius     = 5.0
	DefaultBaseLevel  = 0.2
	DefaultNoiseMax   = 0.3

	// MaxResolution bounds a single grid to roughly a million samples.
	MaxResolution = 1000
)

var (
	// ErrInvalidViewport is an alias of models.ErrInvalidViewport so callers can match either.
	ErrInvalidViewport   = models.ErrInvalidViewport
	ErrInvalidHotspot    = models.ErrInvalidHotspot
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrInvalidParams     = errors.New("invalid generator parameters")
)

// Params are the tunable constants of a layer.
type Params struct {
	Resolution int     `json:"resolution" yaml:"resolution"`
	Radius     float64 `json:"radius" yaml:"radius"`
	BaseLevel  float64 `json:"base_level" yaml:"base_level"`
	NoiseMax   float64 `json:"noise_max" yaml:"noise_max"`
}

// DefaultParams returns the pollution layer constants.
func DefaultParams() Params {
	return Params{
		Resolution: DefaultResolution,
		Radius:     DefaultRadius,
		BaseLevel:  DefaultBaseLevel,
		NoiseMax:   DefaultNoiseMax,
	}
}

// Validate checks the parameters, including the default resolution.
func (p Params) Validate() error {
	if err := validateResolution(p.Resolution); err != nil {
		return err
	}
	if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
		return fmt.Errorf("%w: radius %.3f must be positive", ErrInvalidParams, p.Radius)
	}
	if p.BaseLevel < 0 || math.IsNaN(p.BaseLevel) {
		return fmt.Errorf("%w: base level %.3f must not be negative", ErrInvalidParams, p.BaseLevel)
	}
	if p.NoiseMax < 0 || math.IsNaN(p.NoiseMax) {
		return fmt.Errorf("%w: noise max %.3f must not be negative", ErrInvalidParams, p.NoiseMax)
	}
	return nil
}

func validateResolution(resolution int) error {
	if resolution <= 0 || resolution > MaxResolution {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidResolution, resolution, MaxResolution)
	}
	return nil
}

// Generator produces grids for one set of parameters. It holds no grid state.
type Generator struct {
	params Params
	noise  Noise
}

// NewGenerator validates params and binds them to a noise source.
// A nil noise means no noise.
func NewGenerator(params Params, noise Noise) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if noise == nil {
		noise = ZeroNoise{}
	}
	return &Generator{params: params, noise: noise}, nil
}

// Params returns the generator's parameters.
func (g *Generator) Params() Params {
	return g.params
}

// Generate builds a (resolution+1)^2 grid over vp, rows from south to north,
// columns from west to east. Hotspots contribute in input order.
func (g *Generator) Generate(vp models.Viewport, hotspots []models.Hotspot, resolution int) ([]models.GridSample, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	if err := validateResolution(resolution); err != nil {
		return nil, err
	}
	idx, err := rtree.NewHotspotIndex(hotspots)
	if err != nil {
		return nil, err
	}
	return g.GenerateIndexed(vp, idx, resolution)
}

// GenerateIndexed is Generate with a prebuilt hotspot index, for callers that
// regenerate repeatedly over the same hotspots.
func (g *Generator) GenerateIndexed(vp models.Viewport, idx *rtree.HotspotIndex, resolution int) ([]models.GridSample, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	if err := validateResolution(resolution); err != nil {
		return nil, err
	}

	latStep := vp.Height() / float64(resolution)
	lonStep := vp.Width() / float64(resolution)

	samples := make([]models.GridSample, 0, (resolution+1)*(resolution+1))
	for i := 0; i <= resolution; i++ {
		lat := edge(vp.South, vp.North, latStep, i, resolution)
		for j := 0; j <= resolution; j++ {
			lon := edge(vp.West, vp.East, lonStep, j, resolution)
			samples = append(samples, models.GridSample{
				Lat:       lat,
				Lon:       lon,
				Intensity: g.intensity(lat, lon, idx),
			})
		}
	}
	return samples, nil
}

// edge returns the i-th coordinate between lo and hi. The last step is hi
// itself, so the north and east edges are emitted exactly.
func edge(lo, hi, step float64, i, resolution int) float64 {
	if i == resolution {
		return hi
	}
	return math.Min(lo+float64(i)*step, hi)
}

// Floor returns the intensity at (lat, lon) before noise and clamping.
func (g *Generator) Floor(lat, lon float64, idx *rtree.HotspotIndex) float64 {
	v := g.params.BaseLevel
	if idx == nil {
		return v
	}
	for _, i := range idx.Within(lat, lon, g.params.Radius) {
		hs := idx.At(i)
		d := rtree.EuclideanDistance(lat, lon, hs.Lat, hs.Lon)
		v += hs.Factor * (1 - d/g.params.Radius)
	}
	return v
}

func (g *Generator) intensity(lat, lon float64, idx *rtree.HotspotIndex) float64 {
	v := g.Floor(lat, lon, idx) + g.noise.Sample(lat, lon)*g.params.NoiseMax
	return clamp(v)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
