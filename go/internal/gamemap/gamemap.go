// Package gamemap wires zones, live channels, spawning and input handling
// into one mountable map.
package gamemap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	geojson "github.com/paulmach/go.geojson"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/clients/game_api_client"
	"github.com/mcdev12/ghostwars/go/internal/diagnostics"
	"github.com/mcdev12/ghostwars/go/internal/interaction"
	"github.com/mcdev12/ghostwars/go/internal/livesync"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/session"
	"github.com/mcdev12/ghostwars/go/internal/spawn"
	"github.com/mcdev12/ghostwars/go/internal/viewport"
	"github.com/mcdev12/ghostwars/go/internal/zones"
	"github.com/mcdev12/ghostwars/go/internal/zonestate"
)

// ErrNotMounted is returned by operations that need a mounted map.
var ErrNotMounted = errors.New("map is not mounted")

// API is everything the map needs from the game backend.
type API interface {
	zones.ZoneSource
	livesync.EntityLister
	spawn.API
}

var _ API = (*game_api_client.GameApiClient)(nil)

type Options struct {
	Layout    []models.Zone
	Recorder  diagnostics.Recorder
	Clock     clockwork.Clock
	SpawnMode spawn.Mode
	Prefetch  bool
	Viewport  viewport.Config
	Input     interaction.Config
	OnPrompt  func(interaction.Prompt)
}

// Map is one mounted view of the game map. It owns its channels: Unmount
// closes them and stops spawn results from being merged.
type Map struct {
	api       API
	transport livesync.Transport
	session   *session.Session
	opts      Options

	registry *zones.Registry
	store    *zonestate.Store
	vp       *viewport.Viewport
	ctrl     *interaction.Controller
	coord    *spawn.Coordinator

	mu      sync.Mutex
	manager *livesync.Manager
	mounted atomic.Bool
}

func New(api API, transport livesync.Transport, sess *session.Session, opts Options) *Map {
	if opts.Layout == nil {
		opts.Layout = zones.DefaultLayout()
	}
	if opts.Recorder == nil {
		opts.Recorder = diagnostics.Discard
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Viewport == (viewport.Config{}) {
		opts.Viewport = viewport.DefaultConfig()
	}
	if opts.Input == (interaction.Config{}) {
		opts.Input = interaction.DefaultConfig()
	}

	m := &Map{
		api:       api,
		transport: transport,
		session:   sess,
		opts:      opts,
		store:     zonestate.NewStore(),
		vp:        viewport.New(opts.Viewport),
	}
	m.registry = zones.NewRegistry(api, opts.Layout, opts.Viewport.Aspect)
	m.ctrl = interaction.NewController(m.vp, m.registry, sess.Role, opts.OnPrompt, opts.Clock, opts.Input)
	m.coord = spawn.NewCoordinator(api, m.registry, sess, m.store, spawn.Options{
		Mode:    opts.SpawnMode,
		Active:  m.mounted.Load,
		Project: m.Project,
	})
	return m
}

// Mount loads the zones and opens a channel per resolved zone. Mounting an
// already mounted map refreshes it.
func (m *Map) Mount(ctx context.Context) {
	// The zone load is a backend call; channel readers must not wait on it.
	m.registry.Load(ctx)
	ids := m.registry.ResolvedIDs()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.manager == nil {
		opts := livesync.Options{
			Project:  m.Project,
			Recorder: m.opts.Recorder,
			Clock:    m.opts.Clock,
		}
		if m.opts.Prefetch {
			opts.Prefetch = m.api
		}
		m.manager = livesync.NewManager(m.transport, m.store, opts)
	}
	m.mounted.Store(true)
	m.manager.Reconcile(ctx, ids)

	log.Info().Int("zones", len(ids)).Msg("map mounted")
}

// Unmount closes every channel and forgets the zone entities. Spawns still
// in flight complete but are not merged.
func (m *Map) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mounted.Store(false)
	if m.manager != nil {
		m.manager.Close()
		m.manager = nil
	}
	m.store.Reset()
	log.Info().Msg("map unmounted")
}

func (m *Map) Mounted() bool {
	return m.mounted.Load()
}

// CheckActor confirms the cached owned actor still exists. ErrStaleActor
// means the player must go through setup again.
func (m *Map) CheckActor(ctx context.Context) error {
	return m.session.ValidateActor(ctx, m.api)
}

// Spawn creates a spirit in zoneID as the session's current role.
func (m *Map) Spawn(ctx context.Context, zoneID models.ZoneID, name string) (*models.Entity, error) {
	if !m.Mounted() {
		return nil, ErrNotMounted
	}
	role, _ := m.session.Role()
	return m.coord.TrySpawn(ctx, zoneID, name, role)
}

// Project places a world coordinate on the map using the bounds of every
// known zone.
func (m *Map) Project(p models.LatLng) (models.Point, bool) {
	bounds, ok := m.registry.GlobalBounds()
	if !ok {
		return models.Point{}, false
	}
	return viewport.WorldToNormalized(p, bounds), true
}

func (m *Map) Registry() *zones.Registry                 { return m.registry }
func (m *Map) Viewport() *viewport.Viewport              { return m.vp }
func (m *Map) Controller() *interaction.Controller       { return m.ctrl }
func (m *Map) Entities(id models.ZoneID) []models.Entity { return m.store.Entities(id) }

// OnEntity registers fn for every entity that becomes visible.
func (m *Map) OnEntity(fn zonestate.InsertFunc) {
	m.store.OnInsert(fn)
}

func (m *Map) Zones() []models.Zone {
	return m.registry.Zones()
}

func (m *Map) FeatureCollection() *geojson.FeatureCollection {
	return m.registry.FeatureCollection()
}

func (m *Map) Snapshot() map[models.ZoneID][]models.Entity {
	return m.store.Snapshot()
}

func (m *Map) Channels() []livesync.ChannelInfo {
	m.mu.Lock()
	mgr := m.manager
	m.mu.Unlock()
	if mgr == nil {
		return nil
	}
	return mgr.Channels()
}

func (m *Map) ChannelStats() livesync.Stats {
	m.mu.Lock()
	mgr := m.manager
	m.mu.Unlock()
	if mgr == nil {
		return livesync.Stats{}
	}
	return mgr.Stats()
}
