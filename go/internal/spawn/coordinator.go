// Package spawn creates entities on the player's behalf and merges the result
// into the zone store alongside whatever the live channel delivers.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/clients"
	"github.com/mcdev12/ghostwars/go/clients/game_api_client"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/payloads"
	"github.com/mcdev12/ghostwars/go/internal/session"
	"github.com/mcdev12/ghostwars/go/internal/zonestate"
)

var (
	ErrRoleNotAllowed = errors.New("role is not allowed to spawn")
	ErrNotReady       = errors.New("owned actor is not known yet")
	ErrZoneUnresolved = errors.New("zone has no backend id")
	ErrStaleActor     = session.ErrStaleActor
)

// DefaultName is used when the player leaves the name blank.
const DefaultName = "Spirit"

// Mode selects the creation endpoint.
type Mode string

const (
	ModeActor   Mode = "actor"
	ModeGeneric Mode = "generic"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeActor, "":
		return ModeActor, nil
	case ModeGeneric:
		return ModeGeneric, nil
	}
	return "", fmt.Errorf("unknown spawn endpoint %q", s)
}

// API is the subset of the game API the coordinator calls.
type API interface {
	SpawnIn(ctx context.Context, actorID, name string, zoneID models.ZoneID) (*models.Entity, error)
	CreateEntity(ctx context.Context, zoneID models.ZoneID, req game_api_client.CreateEntityRequest) (*models.Entity, error)
	GetActor(ctx context.Context, actorID string) (*payloads.ActorRecord, error)
}

// ZoneResolver maps a zone id, placeholder or backend, to its zone.
type ZoneResolver interface {
	Resolve(id models.ZoneID) (models.Zone, bool)
}

type Options struct {
	Mode Mode
	// Active reports whether the owning map is still mounted. Results that
	// arrive while it returns false are not merged.
	Active func() bool
	// Project places entities that only carry world coordinates.
	Project func(p models.LatLng) (models.Point, bool)
}

type Coordinator struct {
	api     API
	zones   ZoneResolver
	session *session.Session
	store   *zonestate.Store
	opts    Options
}

func NewCoordinator(api API, zones ZoneResolver, sess *session.Session, store *zonestate.Store, opts Options) *Coordinator {
	if opts.Mode == "" {
		opts.Mode = ModeActor
	}
	return &Coordinator{
		api:     api,
		zones:   zones,
		session: sess,
		store:   store,
		opts:    opts,
	}
}

// TrySpawn creates one entity named displayName in zoneID. Preconditions are
// checked in order (role, owned actor, zone) and fail without any network
// call. On success the entity is merged into the store unless the map was
// unmounted meanwhile; the store's id dedup keeps a single copy however the
// response and the live channel interleave.
func (c *Coordinator) TrySpawn(ctx context.Context, zoneID models.ZoneID, displayName string, role session.Role) (*models.Entity, error) {
	if !role.CanSpawn() {
		return nil, ErrRoleNotAllowed
	}

	actorID, ok := c.session.ActorID()
	if !ok {
		return nil, ErrNotReady
	}

	zone, ok := c.zones.Resolve(zoneID)
	if !ok || !zone.Resolved {
		return nil, fmt.Errorf("%w: %s", ErrZoneUnresolved, zoneID)
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = DefaultName
	}

	entity, err := c.create(ctx, actorID, name, zone)
	if err != nil {
		return nil, c.handleFailure(ctx, zone, err)
	}

	entity.ZoneID = zone.ID
	if entity.Position == nil && entity.World != nil && c.opts.Project != nil {
		if p, ok := c.opts.Project(*entity.World); ok {
			entity.Position = &p
		}
	}

	if c.opts.Active != nil && !c.opts.Active() {
		log.Debug().Str("zone_id", zone.ID.String()).Str("entity_id", string(entity.ID)).Msg("map unmounted, spawn result not merged")
		return entity, nil
	}

	added := c.store.InsertIfAbsent(zone.ID, *entity)
	log.Info().
		Str("zone_id", zone.ID.String()).
		Str("entity_id", string(entity.ID)).
		Str("name", entity.DisplayName).
		Bool("added", added).
		Msg("entity spawned")
	return entity, nil
}

func (c *Coordinator) create(ctx context.Context, actorID, name string, zone models.Zone) (*models.Entity, error) {
	if c.opts.Mode == ModeGeneric {
		req := game_api_client.CreateEntityRequest{Name: name}
		if zone.Bounds != nil {
			center := zone.Bounds.Center()
			req.Latitude = &center.Lat
			req.Longitude = &center.Lng
		}
		return c.api.CreateEntity(ctx, zone.ID, req)
	}
	return c.api.SpawnIn(ctx, actorID, name, zone.ID)
}

// handleFailure turns a creation error into the caller-facing error. Only a
// 404 leads to an actor check, and only a 404 on that check clears state.
func (c *Coordinator) handleFailure(ctx context.Context, zone models.Zone, err error) error {
	log.Error().Err(err).Str("zone_id", zone.ID.String()).Msg("failed to spawn entity")

	if !clients.IsNotFound(err) {
		return fmt.Errorf("failed to spawn in zone %s: %w", zone.ID, err)
	}

	if verr := c.session.ValidateActor(ctx, c.api); verr != nil {
		if errors.Is(verr, session.ErrStaleActor) {
			return ErrStaleActor
		}
		log.Warn().Err(verr).Msg("failed to confirm owned actor")
	}
	return fmt.Errorf("failed to spawn in zone %s: %w", zone.ID, err)
}
