package grid

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/aquilax/go-perlin"
)

// Noise yields the random component of a sample, a value in [0,1) that the
// generator scales by Params.NoiseMax.
type Noise interface {
	Sample(lat, lon float64) float64
}

// Float64Source is the subset of *rand.Rand the uniform noise needs.
type Float64Source interface {
	Float64() float64
}

// UniformNoise draws independent uniform values, ignoring position.
type UniformNoise struct {
	mu  sync.Mutex
	src Float64Source
}

// NewUniformNoise wraps an injected random source. The source is guarded by a
// mutex so one noise value can be shared across concurrent refreshes.
func NewUniformNoise(src Float64Source) *UniformNoise {
	return &UniformNoise{src: src}
}

// NewSeededNoise creates deterministic uniform noise from a PCG source.
func NewSeededNoise(seed uint64) *UniformNoise {
	return NewUniformNoise(rand.New(rand.NewPCG(seed, 0)))
}

func (u *UniformNoise) Sample(_, _ float64) float64 {
	u.mu.Lock()
	v := u.src.Float64()
	u.mu.Unlock()
	return unit(v)
}

// PerlinNoise gives spatially coherent noise so neighbouring cells vary smoothly.
type PerlinNoise struct {
	p         *perlin.Perlin
	frequency float64
}

const (
	perlinAlpha  = 2.0
	perlinBeta   = 2.0
	perlinOctave = 3
	// Noise units per degree: one unit of the noise lattice spans 4 degrees.
	perlinFrequency = 0.25
)

// NewPerlinNoise creates Perlin noise with the given seed.
func NewPerlinNoise(seed int64) *PerlinNoise {
	return &PerlinNoise{
		p:         perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctave, seed),
		frequency: perlinFrequency,
	}
}

func (p *PerlinNoise) Sample(lat, lon float64) float64 {
	// Noise2D is roughly in [-1,1]; fold it into [0,1).
	v := (p.p.Noise2D(lat*p.frequency, lon*p.frequency) + 1) / 2
	return unit(v)
}

// ZeroNoise always returns 0. It exposes the deterministic floor of a grid.
type ZeroNoise struct{}

func (ZeroNoise) Sample(_, _ float64) float64 { return 0 }

// unit clamps v into [0,1).
func unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v >= 1 {
		return math.Nextafter(1, 0)
	}
	return v
}
