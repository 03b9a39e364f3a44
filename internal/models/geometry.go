package models

import "math"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is an axis-aligned bounding box in degrees.
// The zero value is empty; use EmptyBounds or BoundsOf to build one.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// EmptyBounds returns a box that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{
		MinLat: math.Inf(1),
		MaxLat: math.Inf(-1),
		MinLng: math.Inf(1),
		MaxLng: math.Inf(-1),
	}
}

// BoundsOf returns the minimal box covering all station coordinates.
func BoundsOf(stations []Station) Bounds {
	b := EmptyBounds()
	for _, s := range stations {
		b = b.Extend(s.Position())
	}
	return b
}

// Extend returns the box grown to include p.
func (b Bounds) Extend(p LatLng) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, p.Lat),
		MaxLat: math.Max(b.MaxLat, p.Lat),
		MinLng: math.Min(b.MinLng, p.Lng),
		MaxLng: math.Max(b.MaxLng, p.Lng),
	}
}

// IsValid reports whether the box covers at least one point.
func (b Bounds) IsValid() bool {
	return b.MinLat <= b.MaxLat && b.MinLng <= b.MaxLng
}

// Center returns the midpoint of the box.
func (b Bounds) Center() LatLng {
	return LatLng{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
}

// SouthWest returns the lower-left corner.
func (b Bounds) SouthWest() LatLng {
	return LatLng{Lat: b.MinLat, Lng: b.MinLng}
}

// NorthEast returns the upper-right corner.
func (b Bounds) NorthEast() LatLng {
	return LatLng{Lat: b.MaxLat, Lng: b.MaxLng}
}
