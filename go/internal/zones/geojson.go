package zones

import (
	geojson "github.com/paulmach/go.geojson"
)

// FeatureCollection exports every zone with geographic bounds as a polygon
// feature, for map debugging tools.
func (r *Registry) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, z := range r.Zones() {
		if z.Bounds == nil {
			continue
		}
		b := z.Bounds
		ring := [][]float64{
			{b.MinLng, b.MinLat},
			{b.MaxLng, b.MinLat},
			{b.MaxLng, b.MaxLat},
			{b.MinLng, b.MaxLat},
			{b.MinLng, b.MinLat},
		}
		f := geojson.NewPolygonFeature([][][]float64{ring})
		f.ID = z.ID.String()
		f.SetProperty("name", z.Name)
		f.SetProperty("resolved", z.Resolved)
		fc.AddFeature(f)
	}
	return fc
}
