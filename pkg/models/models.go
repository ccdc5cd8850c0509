package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidViewport is returned for degenerate, inverted or non-finite bounds.
	ErrInvalidViewport = errors.New("invalid viewport")
	// ErrInvalidHotspot is returned for hotspots with a factor outside (0,1] or bad coordinates.
	ErrInvalidHotspot = errors.New("invalid hotspot")
)

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Viewport is the visible axis-aligned bounding box of the map.
// Wraparound across the antimeridian is not handled.
type Viewport struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// ViewportAround returns a square viewport of the given span (degrees) centred on c,
// clipped to valid latitude and longitude ranges.
func ViewportAround(c Location, span float64) Viewport {
	half := span / 2
	return Viewport{
		North: math.Min(c.Lat+half, 90),
		South: math.Max(c.Lat-half, -90),
		East:  math.Min(c.Lon+half, 180),
		West:  math.Max(c.Lon-half, -180),
	}
}

// Validate checks that the viewport is finite with positive width and height.
// Bounds past the poles or the antimeridian are accepted as given; a map
// panned across 180 reports e.g. west 170, east 190.
func (v Viewport) Validate() error {
	for _, f := range []float64{v.North, v.South, v.East, v.West} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidViewport)
		}
	}
	if v.North <= v.South {
		return fmt.Errorf("%w: north %.6f must be greater than south %.6f", ErrInvalidViewport, v.North, v.South)
	}
	if v.East <= v.West {
		return fmt.Errorf("%w: east %.6f must be greater than west %.6f", ErrInvalidViewport, v.East, v.West)
	}
	return nil
}

func (v Viewport) Width() float64  { return v.East - v.West }
func (v Viewport) Height() float64 { return v.North - v.South }

// Center returns the midpoint of the viewport.
func (v Viewport) Center() Location {
	return Location{Lat: (v.North + v.South) / 2, Lon: (v.East + v.West) / 2}
}

// Contains reports whether the point lies inside the viewport, edges included.
func (v Viewport) Contains(lat, lon float64) bool {
	return lat >= v.South && lat <= v.North && lon >= v.West && lon <= v.East
}

// Pan shifts the viewport, keeping its size and stopping at the poles and the antimeridian.
func (v Viewport) Pan(dLat, dLon float64) Viewport {
	if v.North+dLat > 90 {
		dLat = 90 - v.North
	}
	if v.South+dLat < -90 {
		dLat = -90 - v.South
	}
	if v.East+dLon > 180 {
		dLon = 180 - v.East
	}
	if v.West+dLon < -180 {
		dLon = -180 - v.West
	}
	return Viewport{North: v.North + dLat, South: v.South + dLat, East: v.East + dLon, West: v.West + dLon}
}

// Zoom scales the viewport around its centre. factor < 1 zooms in.
func (v Viewport) Zoom(factor float64) Viewport {
	if factor <= 0 {
		return v
	}
	c := v.Center()
	halfH := v.Height() * factor / 2
	halfW := v.Width() * factor / 2
	return Viewport{
		North: math.Min(c.Lat+halfH, 90),
		South: math.Max(c.Lat-halfH, -90),
		East:  math.Min(c.Lon+halfW, 180),
		West:  math.Max(c.Lon-halfW, -180),
	}
}

// Hotspot is a reference location with the peak intensity it can add.
type Hotspot struct {
	Name   string  `json:"name,omitempty" yaml:"name"`
	Lat    float64 `json:"lat" yaml:"lat"`
	Lon    float64 `json:"lon" yaml:"lon"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// Validate checks that the factor lies in (0,1].
func (h Hotspot) Validate() error {
	if math.IsNaN(h.Lat) || math.IsNaN(h.Lon) || math.IsInf(h.Lat, 0) || math.IsInf(h.Lon, 0) {
		return fmt.Errorf("%w: %q has non-finite coordinates", ErrInvalidHotspot, h.Name)
	}
	if !(h.Factor > 0 && h.Factor <= 1) {
		return fmt.Errorf("%w: %q factor %.3f outside (0,1]", ErrInvalidHotspot, h.Name, h.Factor)
	}
	return nil
}

// GridSample is one emitted grid cell.
type GridSample struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// LiveDataPoint is externally supplied data merged with generated samples.
type LiveDataPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// Sample converts the point as-is; remote intensities are not clamped.
func (p LiveDataPoint) Sample() GridSample {
	return GridSample{Lat: p.Lat, Lon: p.Lon, Intensity: p.Intensity}
}

// Station is an air quality monitoring station marker.
type Station struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AQI       int       `json:"aqi"`
	UpdatedAt time.Time `json:"updated_at"`
}
