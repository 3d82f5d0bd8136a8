package models

import "math"

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lng float64 `json:"longitude" yaml:"longitude"`
}

// Point is a position in normalized map space, both axes in [0,1] when on the map.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Bounds is an axis-aligned region in world coordinates.
type Bounds struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLng float64 `json:"min_lng" yaml:"min_lng"`
	MaxLng float64 `json:"max_lng" yaml:"max_lng"`
}

// BoundsOf returns the min/max region covering every sample. ok is false when
// samples is empty.
func BoundsOf(samples []LatLng) (b Bounds, ok bool) {
	if len(samples) == 0 {
		return Bounds{}, false
	}
	b = Bounds{
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
		MinLng: math.Inf(1), MaxLng: math.Inf(-1),
	}
	for _, s := range samples {
		b = b.Extend(s)
	}
	return b, true
}

// Extend grows the region to include p.
func (b Bounds) Extend(p LatLng) Bounds {
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
	b.MinLng = math.Min(b.MinLng, p.Lng)
	b.MaxLng = math.Max(b.MaxLng, p.Lng)
	return b
}

// Union returns the smallest region covering both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, o.MinLat),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
		MinLng: math.Min(b.MinLng, o.MinLng),
		MaxLng: math.Max(b.MaxLng, o.MaxLng),
	}
}

// Contains reports whether p lies inside the region, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Center returns the midpoint of the region.
func (b Bounds) Center() LatLng {
	return LatLng{Lat: (b.MinLat + b.MaxLat) / 2, Lng: (b.MinLng + b.MaxLng) / 2}
}
