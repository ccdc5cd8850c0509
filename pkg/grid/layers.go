package grid

import (
	"fmt"
	"sort"
)

// Layer names the overlay kinds the generator is tuned for.
type Layer string

const (
	LayerPollution  Layer = "pollution"
	LayerVegetation Layer = "vegetation"
	LayerFire       Layer = "fire"
	LayerWater      Layer = "water"
)

var presets = map[Layer]Params{
	LayerPollution:  {Resolution: 20, Radius: 5.0, BaseLevel: 0.2, NoiseMax: 0.3},
	LayerVegetation: {Resolution: 20, Radius: 3.0, BaseLevel: 0.3, NoiseMax: 0.2},
	LayerFire:       {Resolution: 20, Radius: 2.0, BaseLevel: 0.05, NoiseMax: 0.15},
	LayerWater:      {Resolution: 20, Radius: 4.0, BaseLevel: 0.1, NoiseMax: 0.2},
}

// Preset returns the built-in parameters for a layer.
func Preset(layer Layer) (Params, error) {
	p, ok := presets[layer]
	if !ok {
		return Params{}, fmt.Errorf("%w: unknown layer %q", ErrInvalidParams, layer)
	}
	return p, nil
}

// Presets returns a copy of all built-in layer parameters.
func Presets() map[Layer]Params {
	out := make(map[Layer]Params, len(presets))
	for k, v := range presets {
		out[k] = v
	}
	return out
}

// Layers lists the built-in layers in name order.
func Layers() []Layer {
	out := make([]Layer, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
