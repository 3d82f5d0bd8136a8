package viewport

import (
	"math"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

// WorldToNormalized maps a geographic point into [0,1] map space using
// per-axis min/max normalization against b. The Y axis is inverted because
// screen space grows downward while latitude grows north. Points outside b
// are clamped onto its edge; an axis with zero span maps to 0.5.
func WorldToNormalized(p models.LatLng, b models.Bounds) models.Point {
	return models.Point{
		X: clamp01(normalize(p.Lng, b.MinLng, b.MaxLng)),
		Y: clamp01(1 - normalize(p.Lat, b.MinLat, b.MaxLat)),
	}
}

// NormalizedToWorld is the inverse of WorldToNormalized for points inside b.
func NormalizedToWorld(p models.Point, b models.Bounds) models.LatLng {
	return models.LatLng{
		Lat: b.MinLat + (1-p.Y)*(b.MaxLat-b.MinLat),
		Lng: b.MinLng + p.X*(b.MaxLng-b.MinLng),
	}
}

func normalize(v, min, max float64) float64 {
	span := max - min
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 0.5
	}
	return (v - min) / span
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
