// Package interaction turns pointer, touch, wheel and button input into
// viewport changes and spawn prompts.
package interaction

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/session"
	"github.com/mcdev12/ghostwars/go/internal/viewport"
)

// Config holds the input tuning constants.
type Config struct {
	WheelIn   float64
	WheelOut  float64
	ButtonIn  float64
	ButtonOut float64

	DoubleTapWindow   time.Duration
	DoubleTapDistance float64
	DoubleTapZoom     float64

	// TapSlop is how far a pointer may travel and still count as a tap.
	TapSlop float64
}

func DefaultConfig() Config {
	return Config{
		WheelIn:           1.1,
		WheelOut:          0.9,
		ButtonIn:          1.15,
		ButtonOut:         0.85,
		DoubleTapWindow:   300 * time.Millisecond,
		DoubleTapDistance: 24,
		DoubleTapZoom:     1.5,
		TapSlop:           8,
	}
}

// Locator resolves map points to zones.
type Locator interface {
	Locate(p models.LatLng) (models.Zone, bool)
	LocateScreen(p models.Point) (models.Zone, bool)
	GlobalBounds() (models.Bounds, bool)
}

// Prompt asks the player to name a spirit for Zone.
type Prompt struct {
	Zone   models.Zone
	Map    models.Point
	Screen viewport.Vec
	World  *models.LatLng
}

type Controller struct {
	vp       *viewport.Viewport
	zones    Locator
	role     func() (session.Role, bool)
	onPrompt func(Prompt)
	clock    clockwork.Clock
	cfg      Config

	mu sync.Mutex

	// mouse
	dragging bool
	lastDrag viewport.Vec
	downAt   viewport.Vec
	moved    bool

	// touch
	touches    map[int]viewport.Vec
	pinching   bool
	pinchDist  float64
	tapStart   viewport.Vec
	tapPending bool

	// double tap
	pendingTap clockwork.Timer
	lastTap    viewport.Vec
	lastTapAt  time.Time
}

// NewController wires input handling to vp. role is consulted on every tap;
// onPrompt receives prompts for authorized taps that land in a zone.
func NewController(vp *viewport.Viewport, zones Locator, role func() (session.Role, bool), onPrompt func(Prompt), clock clockwork.Clock, cfg Config) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if onPrompt == nil {
		onPrompt = func(Prompt) {}
	}
	return &Controller{
		vp:       vp,
		zones:    zones,
		role:     role,
		onPrompt: onPrompt,
		clock:    clock,
		cfg:      cfg,
		touches:  make(map[int]viewport.Vec),
	}
}

// Wheel zooms in for negative deltaY and out for positive.
func (c *Controller) Wheel(deltaY float64) float64 {
	switch {
	case deltaY < 0:
		return c.vp.ApplyZoom(c.cfg.WheelIn)
	case deltaY > 0:
		return c.vp.ApplyZoom(c.cfg.WheelOut)
	}
	return c.vp.Scale()
}

func (c *Controller) ZoomIn() float64  { return c.vp.ApplyZoom(c.cfg.ButtonIn) }
func (c *Controller) ZoomOut() float64 { return c.vp.ApplyZoom(c.cfg.ButtonOut) }

// Reset restores the initial scale and offset.
func (c *Controller) Reset() {
	c.vp.Reset()
}

func (c *Controller) PointerDown(p viewport.Vec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = true
	c.lastDrag = p
	c.downAt = p
	c.moved = false
}

func (c *Controller) PointerMove(p viewport.Vec) {
	c.mu.Lock()
	if !c.dragging {
		c.mu.Unlock()
		return
	}
	dx, dy := p.X-c.lastDrag.X, p.Y-c.lastDrag.Y
	c.lastDrag = p
	if distance(p, c.downAt) > c.cfg.TapSlop {
		c.moved = true
	}
	c.mu.Unlock()

	c.vp.Pan(dx, dy)
}

// PointerUp ends a drag. A release that never left the slop radius is a click.
func (c *Controller) PointerUp(p viewport.Vec) {
	c.mu.Lock()
	click := c.dragging && !c.moved
	c.dragging = false
	c.mu.Unlock()

	if click {
		c.Click(p)
	}
}

func (c *Controller) TouchStart(id int, p viewport.Vec) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.touches[id] = p
	switch len(c.touches) {
	case 1:
		if !c.pinching {
			c.tapStart = p
			c.tapPending = true
		}
	case 2:
		c.pinching = true
		c.tapPending = false
		a, b := c.twoTouches()
		c.pinchDist = distance(a, b)
	default:
		c.tapPending = false
	}
}

func (c *Controller) TouchMove(id int, p viewport.Vec) {
	c.mu.Lock()
	prev, ok := c.touches[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.touches[id] = p

	if c.pinching {
		if len(c.touches) < 2 {
			c.mu.Unlock()
			return
		}
		a, b := c.twoTouches()
		d := distance(a, b)
		ratio := 0.0
		if c.pinchDist > 0 && d > 0 {
			ratio = d / c.pinchDist
		}
		c.pinchDist = d
		c.mu.Unlock()

		if ratio > 0 {
			c.vp.ApplyZoom(ratio)
		}
		return
	}

	if distance(p, c.tapStart) > c.cfg.TapSlop {
		c.tapPending = false
	}
	c.mu.Unlock()

	c.vp.Pan(p.X-prev.X, p.Y-prev.Y)
}

// TouchEnd lifts a finger. A pinch stays a pinch until every finger is up.
func (c *Controller) TouchEnd(id int, p viewport.Vec) {
	c.mu.Lock()
	if _, ok := c.touches[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.touches, id)
	if len(c.touches) > 0 {
		c.mu.Unlock()
		return
	}

	tap := c.tapPending && !c.pinching
	c.pinching = false
	c.tapPending = false
	c.pinchDist = 0
	c.mu.Unlock()

	if tap {
		c.Tap(p)
	}
}

// Tap handles a completed touch tap. A second tap within the double tap
// window and distance zooms in instead; single taps are therefore delivered
// only once the window has passed.
func (c *Controller) Tap(p viewport.Vec) {
	c.mu.Lock()
	now := c.clock.Now()
	if c.pendingTap != nil &&
		now.Sub(c.lastTapAt) <= c.cfg.DoubleTapWindow &&
		distance(p, c.lastTap) <= c.cfg.DoubleTapDistance {
		c.pendingTap.Stop()
		c.pendingTap = nil
		c.mu.Unlock()

		scale := c.vp.ApplyZoom(c.cfg.DoubleTapZoom)
		log.Debug().Float64("scale", scale).Msg("double tap zoom")
		return
	}

	c.lastTap = p
	c.lastTapAt = now
	var timer clockwork.Timer
	timer = c.clock.AfterFunc(c.cfg.DoubleTapWindow, func() {
		c.mu.Lock()
		if c.pendingTap == timer {
			c.pendingTap = nil
		}
		c.mu.Unlock()
		c.Click(p)
	})
	c.pendingTap = timer
	c.mu.Unlock()
}

// Click resolves the zone under p and emits a prompt when the current role
// may spawn. It reports whether a prompt was emitted.
func (c *Controller) Click(p viewport.Vec) bool {
	m := c.vp.ScreenToMap(p)
	if m.X < 0 || m.X > 1 || m.Y < 0 || m.Y > 1 {
		return false
	}

	prompt := Prompt{Map: m, Screen: p}
	zone, ok := c.locate(m, &prompt)
	if !ok {
		log.Debug().Float64("x", m.X).Float64("y", m.Y).Msg("tap outside any zone")
		return false
	}
	prompt.Zone = zone

	role, ok := c.role()
	if !ok || !role.CanSpawn() {
		log.Debug().Str("zone_id", zone.ID.String()).Str("role", string(role)).Msg("tap ignored for role")
		return false
	}

	c.onPrompt(prompt)
	return true
}

// locate prefers geographic lookup once zone bounds are known and falls back
// to the screen layout.
func (c *Controller) locate(m models.Point, prompt *Prompt) (models.Zone, bool) {
	if bounds, ok := c.zones.GlobalBounds(); ok {
		world := viewport.NormalizedToWorld(m, bounds)
		prompt.World = &world
		if zone, ok := c.zones.Locate(world); ok {
			return zone, true
		}
	}
	return c.zones.LocateScreen(m)
}

// twoTouches returns the two lowest-id touches. Callers hold c.mu.
func (c *Controller) twoTouches() (viewport.Vec, viewport.Vec) {
	first, second := math.MaxInt, math.MaxInt
	for id := range c.touches {
		switch {
		case id < first:
			first, second = id, first
		case id < second:
			second = id
		}
	}
	return c.touches[first], c.touches[second]
}

func distance(a, b viewport.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
