// Package colors maps intensities onto the five-stop heat gradient shared by
// every renderer.
package colors

import (
	"math"
	"strconv"
)

// Bucket is one band of the heat gradient.
type Bucket int

const (
	Green Bucket = iota
	Yellow
	Orange
	Red
	Purple
)

// Stop is a gradient control point.
type Stop struct {
	Offset float64 `json:"offset"`
	Bucket Bucket  `json:"-"`
	Name   string  `json:"color"`
	Hex    string  `json:"hex"`
}

var stops = []Stop{
	{Offset: 0.0, Bucket: Green, Name: "green", Hex: "#00a651"},
	{Offset: 0.3, Bucket: Yellow, Name: "yellow", Hex: "#ffde17"},
	{Offset: 0.6, Bucket: Orange, Name: "orange", Hex: "#f7941d"},
	{Offset: 0.8, Bucket: Red, Name: "red", Hex: "#ed1c24"},
	{Offset: 1.0, Bucket: Purple, Name: "purple", Hex: "#8e44ad"},
}

// Stops returns the gradient control points in ascending offset order.
func Stops() []Stop {
	out := make([]Stop, len(stops))
	copy(out, stops)
	return out
}

// BucketFor maps an intensity to its band: [0,0.3) green, [0.3,0.6) yellow,
// [0.6,0.8) orange, [0.8,1) red, and 1 or more purple.
// Negative and NaN intensities are green.
func BucketFor(intensity float64) Bucket {
	switch {
	case math.IsNaN(intensity) || intensity < 0.3:
		return Green
	case intensity < 0.6:
		return Yellow
	case intensity < 0.8:
		return Orange
	case intensity < 1.0:
		return Red
	default:
		return Purple
	}
}

func (b Bucket) String() string {
	if b < Green || b > Purple {
		return "unknown"
	}
	return stops[b].Name
}

// Hex returns the CSS colour of the bucket.
func (b Bucket) Hex() string {
	if b < Green || b > Purple {
		return ""
	}
	return stops[b].Hex
}

// HeatGradient is the stop table in the shape heat-layer clients expect,
// e.g. {"0.3": "yellow"}.
func HeatGradient() map[string]string {
	g := make(map[string]string, len(stops))
	for _, s := range stops {
		g[strconv.FormatFloat(s.Offset, 'f', 1, 64)] = s.Name
	}
	return g
}
