package viewport

import "github.com/mcdev12/ghostwars/go/internal/models"

// ScreenToMap converts a container pixel into normalized map coordinates for
// the current scale and offset. The result is outside [0,1] when p misses
// the map.
func (v *Viewport) ScreenToMap(p Vec) models.Point {
	v.mu.RLock()
	defer v.mu.RUnlock()

	content := ContentSize(v.size, v.cfg.Aspect, v.scale)
	if content.W == 0 || content.H == 0 {
		return models.Point{X: -1, Y: -1}
	}
	originX := v.size.W/2 + v.offset.X - content.W/2
	originY := v.size.H/2 + v.offset.Y - content.H/2
	return models.Point{
		X: (p.X - originX) / content.W,
		Y: (p.Y - originY) / content.H,
	}
}

// MapToScreen converts normalized map coordinates into a container pixel.
func (v *Viewport) MapToScreen(p models.Point) Vec {
	v.mu.RLock()
	defer v.mu.RUnlock()

	content := ContentSize(v.size, v.cfg.Aspect, v.scale)
	originX := v.size.W/2 + v.offset.X - content.W/2
	originY := v.size.H/2 + v.offset.Y - content.H/2
	return Vec{
		X: originX + p.X*content.W,
		Y: originY + p.Y*content.H,
	}
}
