// Package zones owns the set of map zones: the static layout, its one-time
// resolution against the backend zone list, and spatial lookups.
package zones

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/payloads"
)

// ZoneSource lists zones from the backend.
type ZoneSource interface {
	ListZones(ctx context.Context) ([]payloads.ZoneRecord, error)
}

// Registry holds the zone layout. Zones are immutable after Load except for
// the placeholder-to-backend id patch.
type Registry struct {
	source ZoneSource
	aspect float64

	loadMu sync.Mutex

	mu      sync.RWMutex
	zones   []models.Zone
	byID    map[models.ZoneID]int
	aliases map[models.ZoneID]int
	global  *models.Bounds
	loaded  bool
}

// NewRegistry creates a registry over layout. aspect is the width/height
// ratio of the map canvas, used for rotated hit tests.
func NewRegistry(source ZoneSource, layout []models.Zone, aspect float64) *Registry {
	if aspect <= 0 {
		aspect = 1
	}
	r := &Registry{
		source: source,
		aspect: aspect,
	}
	r.setZones(append([]models.Zone(nil), layout...))
	return r
}

// Load fetches the backend zone list once and patches placeholder ids by
// exact name match. Failures are logged and leave the current layout in
// place; the next call retries. After a successful load it is a no-op.
func (r *Registry) Load(ctx context.Context) []models.Zone {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	if r.Loaded() || r.source == nil {
		return r.Zones()
	}

	records, err := r.source.ListZones(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load zones, keeping static layout")
		return r.Zones()
	}

	byName := make(map[string]payloads.ZoneRecord, len(records))
	for _, rec := range records {
		if _, dup := byName[rec.Name]; !dup {
			byName[rec.Name] = rec
		}
	}

	r.mu.RLock()
	next := append([]models.Zone(nil), r.zones...)
	r.mu.RUnlock()

	resolved := 0
	for i, z := range next {
		rec, ok := byName[z.Name]
		if !ok {
			log.Debug().Str("zone", z.Name).Str("placeholder_id", z.ID.String()).Msg("zone not found in backend list")
			continue
		}
		next[i].ID = rec.ID
		next[i].Resolved = true
		if b, ok := models.BoundsOf(rec.Coordinates); ok {
			next[i].Bounds = &b
		}
		resolved++
	}

	r.mu.Lock()
	placeholders := r.zones
	r.setZones(next)
	for i, z := range placeholders {
		if z.ID != next[i].ID {
			r.aliases[z.ID] = i
		}
	}
	r.loaded = true
	r.mu.Unlock()

	log.Info().
		Int("zones", len(next)).
		Int("resolved", resolved).
		Int("backend_zones", len(records)).
		Msg("zones loaded")

	return r.Zones()
}

// setZones replaces the zone list and rebuilds the indexes. Callers hold mu
// (or own r exclusively).
func (r *Registry) setZones(zones []models.Zone) {
	r.zones = zones
	r.byID = make(map[models.ZoneID]int, len(zones))
	if r.aliases == nil {
		r.aliases = make(map[models.ZoneID]int)
	}

	var global *models.Bounds
	for i, z := range zones {
		if _, dup := r.byID[z.ID]; !dup {
			r.byID[z.ID] = i
		}
		if z.Bounds == nil {
			continue
		}
		if global == nil {
			b := *z.Bounds
			global = &b
			continue
		}
		u := global.Union(*z.Bounds)
		global = &u
	}
	r.global = global
}

// Loaded reports whether a backend load has succeeded.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Zones returns a copy of the zones in registry order.
func (r *Registry) Zones() []models.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Zone(nil), r.zones...)
}

// Resolve looks a zone up by its current id or by the placeholder id it had
// before Load.
func (r *Registry) Resolve(id models.ZoneID) (models.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, ok := r.byID[id]; ok {
		return r.zones[i], true
	}
	if i, ok := r.aliases[id]; ok {
		return r.zones[i], true
	}
	return models.Zone{}, false
}

// ResolvedIDs returns the backend ids of every resolved zone, in order.
func (r *Registry) ResolvedIDs() []models.ZoneID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]models.ZoneID, 0, len(r.zones))
	for _, z := range r.zones {
		if z.Resolved {
			ids = append(ids, z.ID)
		}
	}
	return ids
}

// GlobalBounds is the union of all zone bounds. ok is false while no zone
// has geographic data.
func (r *Registry) GlobalBounds() (models.Bounds, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.global == nil {
		return models.Bounds{}, false
	}
	return *r.global, true
}

// Locate returns the first zone, in registry order, whose bounds contain p.
// Overlapping zones are not disambiguated.
func (r *Registry) Locate(p models.LatLng) (models.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, z := range r.zones {
		if z.Bounds != nil && z.Bounds.Contains(p) {
			return z, true
		}
	}
	return models.Zone{}, false
}

// LocateScreen returns the first zone whose (possibly rotated) screen rect
// contains p, given in normalized map coordinates.
func (r *Registry) LocateScreen(p models.Point) (models.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, z := range r.zones {
		if rectContains(z.Screen, p, r.aspect) {
			return z, true
		}
	}
	return models.Zone{}, false
}

// rectContains tests p against rect in a space where one unit of height
// equals aspect units of width, so rotations are not skewed.
func rectContains(rect models.ScreenRect, p models.Point, aspect float64) bool {
	px, py := p.X*100*aspect, p.Y*100
	cx, cy := (rect.X+rect.W/2)*aspect, rect.Y+rect.H/2
	halfW, halfH := rect.W*aspect/2, rect.H/2

	dx, dy := px-cx, py-cy
	if rect.Rotation != 0 {
		theta := rect.Rotation * math.Pi / 180
		sin, cos := math.Sincos(theta)
		dx, dy = dx*cos+dy*sin, -dx*sin+dy*cos
	}
	return math.Abs(dx) <= halfW && math.Abs(dy) <= halfH
}
