package viewport

import (
	"math"
	"testing"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

var campus = models.Bounds{MinLat: -34.5245, MaxLat: -34.5200, MinLng: -58.5230, MaxLng: -58.5150}

func TestWorldToNormalizedCorners(t *testing.T) {
	tests := []struct {
		p    models.LatLng
		want models.Point
	}{
		{models.LatLng{Lat: campus.MaxLat, Lng: campus.MinLng}, models.Point{X: 0, Y: 0}},
		{models.LatLng{Lat: campus.MinLat, Lng: campus.MaxLng}, models.Point{X: 1, Y: 1}},
		{campus.Center(), models.Point{X: 0.5, Y: 0.5}},
		// outside: clamped onto the edges
		{models.LatLng{Lat: 0, Lng: -90}, models.Point{X: 0, Y: 0}},
		{models.LatLng{Lat: -90, Lng: 0}, models.Point{X: 1, Y: 1}},
	}

	for _, tt := range tests {
		got := WorldToNormalized(tt.p, campus)
		if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
			t.Errorf("WorldToNormalized(%v) = %v; want %v", tt.p, got, tt.want)
		}
	}
}

func TestWorldRoundTrip(t *testing.T) {
	for i := 0; i <= 10; i++ {
		for j := 0; j <= 10; j++ {
			p := models.LatLng{
				Lat: campus.MinLat + float64(i)/10*(campus.MaxLat-campus.MinLat),
				Lng: campus.MinLng + float64(j)/10*(campus.MaxLng-campus.MinLng),
			}
			back := NormalizedToWorld(WorldToNormalized(p, campus), campus)
			if math.Abs(back.Lat-p.Lat) > 1e-6 || math.Abs(back.Lng-p.Lng) > 1e-6 {
				t.Fatalf("round trip of %v = %v", p, back)
			}
		}
	}
}

func TestWorldToNormalizedDegenerate(t *testing.T) {
	flat := models.Bounds{MinLat: 1, MaxLat: 1, MinLng: 2, MaxLng: 2}
	got := WorldToNormalized(models.LatLng{Lat: 1, Lng: 2}, flat)
	if got != (models.Point{X: 0.5, Y: 0.5}) {
		t.Errorf("degenerate bounds = %v; want center", got)
	}
}
