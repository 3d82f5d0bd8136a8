// Package viewport holds the pan/zoom state of the map canvas and the pure
// math that maps between world, normalized map and screen coordinates.
package viewport

import (
	"math"
	"sync"
)

// Vec is a pixel-space vector: an offset, a pointer position or a size.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the pixel size of the map container.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Config holds the limits applied to every viewport update.
type Config struct {
	MinScale float64
	MaxScale float64
	// Margin is the fraction of the container, per axis, that must stay
	// covered by the map at any offset.
	Margin float64
	// Aspect is the width/height ratio of the map content.
	Aspect float64
}

// DefaultConfig returns the limits used by the game map.
func DefaultConfig() Config {
	return Config{
		MinScale: 0.5,
		MaxScale: 3.0,
		Margin:   0.4,
		Aspect:   16.0 / 10.0,
	}
}

// State is a snapshot of the viewport.
type State struct {
	Scale     float64 `json:"scale"`
	Offset    Vec     `json:"offset"`
	Container Size    `json:"container"`
}

// Viewport is the mutable pan/zoom state. It is safe for concurrent use.
type Viewport struct {
	mu     sync.RWMutex
	cfg    Config
	scale  float64
	offset Vec
	size   Size
}

// New creates a viewport at scale 1 with no offset.
func New(cfg Config) *Viewport {
	return &Viewport{
		cfg:   cfg,
		scale: ClampScale(1, cfg.MinScale, cfg.MaxScale),
	}
}

// Config returns the limits the viewport was created with.
func (v *Viewport) Config() Config {
	return v.cfg
}

// State returns the current scale, offset and container size.
func (v *Viewport) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return State{Scale: v.scale, Offset: v.offset, Container: v.size}
}

// Scale returns the current zoom factor.
func (v *Viewport) Scale() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scale
}

// ApplyZoom multiplies the scale by factor and clamps it. Non-positive and
// non-finite factors are ignored. The offset is re-clamped for the new scale.
func (v *Viewport) ApplyZoom(factor float64) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return v.scale
	}
	v.scale = ClampScale(v.scale*factor, v.cfg.MinScale, v.cfg.MaxScale)
	v.offset = ClampOffset(v.offset, v.size, v.cfg.Aspect, v.scale, v.cfg.Margin)
	return v.scale
}

// Pan moves the map by a drag delta and returns the clamped offset.
func (v *Viewport) Pan(dx, dy float64) Vec {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := Vec{X: v.offset.X + dx, Y: v.offset.Y + dy}
	v.offset = ClampOffset(next, v.size, v.cfg.Aspect, v.scale, v.cfg.Margin)
	return v.offset
}

// Resize records a new container size and re-clamps the offset against it.
func (v *Viewport) Resize(s Size) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.size = s
	v.offset = ClampOffset(v.offset, v.size, v.cfg.Aspect, v.scale, v.cfg.Margin)
}

// Reset returns to scale 1 and a centered map.
func (v *Viewport) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.scale = ClampScale(1, v.cfg.MinScale, v.cfg.MaxScale)
	v.offset = Vec{}
}

// ClampScale limits scale to [min, max].
func ClampScale(scale, min, max float64) float64 {
	return math.Min(max, math.Max(min, scale))
}

// ContentSize is the virtual size of the map at scale, fitted into the
// container while keeping aspect.
func ContentSize(container Size, aspect, scale float64) Size {
	if container.W <= 0 || container.H <= 0 || aspect <= 0 {
		return Size{}
	}
	if container.W/container.H > aspect {
		h := container.H * scale
		return Size{W: h * aspect, H: h}
	}
	w := container.W * scale
	return Size{W: w, H: w / aspect}
}

// ClampOffset limits candidate so that at least margin of the container stays
// covered by the map on each axis. Axes are clamped independently and the
// result is a fixed point: clamping it again returns it unchanged.
func ClampOffset(candidate Vec, container Size, aspect, scale, margin float64) Vec {
	if container.W <= 0 || container.H <= 0 {
		return candidate
	}
	content := ContentSize(container, aspect, scale)

	maxX := math.Max(0, (content.W-container.W*margin)/2)
	maxY := math.Max(0, (content.H-container.H*margin)/2)

	return Vec{
		X: math.Max(-maxX, math.Min(maxX, candidate.X)),
		Y: math.Max(-maxY, math.Min(maxY, candidate.Y)),
	}
}
