// Package zonestate holds the entities currently visible in each zone.
package zonestate

import (
	"sync"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

// InsertFunc is notified after an entity is added to a zone.
type InsertFunc func(zoneID models.ZoneID, e models.Entity)

// Store maps zone ids to their entity lists. The only mutation allowed on a
// list is insert-if-absent by entity id, so concurrent writers commute.
type Store struct {
	mu        sync.RWMutex
	zones     map[models.ZoneID]*zoneEntities
	listeners []InsertFunc
}

type zoneEntities struct {
	order []models.Entity
	ids   map[models.EntityID]struct{}
}

func NewStore() *Store {
	return &Store{zones: make(map[models.ZoneID]*zoneEntities)}
}

// OnInsert registers fn to be called after every successful insert. fn runs
// outside the store lock.
func (s *Store) OnInsert(fn InsertFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// InsertIfAbsent appends e to the zone's list unless an entity with the same
// id is already there. It reports whether e was added.
func (s *Store) InsertIfAbsent(zoneID models.ZoneID, e models.Entity) bool {
	if e.ID == "" {
		return false
	}

	s.mu.Lock()
	z, ok := s.zones[zoneID]
	if !ok {
		z = &zoneEntities{ids: make(map[models.EntityID]struct{})}
		s.zones[zoneID] = z
	}
	if _, dup := z.ids[e.ID]; dup {
		s.mu.Unlock()
		return false
	}
	if e.ZoneID == "" {
		e.ZoneID = zoneID
	}
	z.ids[e.ID] = struct{}{}
	z.order = append(z.order, e)
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(zoneID, e)
	}
	return true
}

// Seed inserts each entity through InsertIfAbsent and returns how many were new.
func (s *Store) Seed(zoneID models.ZoneID, entities []models.Entity) int {
	added := 0
	for _, e := range entities {
		if s.InsertIfAbsent(zoneID, e) {
			added++
		}
	}
	return added
}

// Entities returns a copy of the zone's list in insertion order.
func (s *Store) Entities(zoneID models.ZoneID) []models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.zones[zoneID]
	if !ok {
		return nil
	}
	return append([]models.Entity(nil), z.order...)
}

// Snapshot copies every zone's list.
func (s *Store) Snapshot() map[models.ZoneID][]models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.ZoneID][]models.Entity, len(s.zones))
	for id, z := range s.zones {
		out[id] = append([]models.Entity(nil), z.order...)
	}
	return out
}

func (s *Store) Count(zoneID models.ZoneID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if z, ok := s.zones[zoneID]; ok {
		return len(z.order)
	}
	return 0
}

// Drop forgets a zone's entities.
func (s *Store) Drop(zoneID models.ZoneID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.zones, zoneID)
}

// Reset forgets every zone.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = make(map[models.ZoneID]*zoneEntities)
}
