package game_api_client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/payloads"
)

// ErrNoEntity is returned when a creation call succeeds but its body holds no entity.
var ErrNoEntity = errors.New("response contained no entity")

func (c *GameApiClient) GetActor(ctx context.Context, actorID string) (*payloads.ActorRecord, error) {
	body, err := c.Get(ctx, fmt.Sprintf(ActorEndpoint, url.PathEscape(actorID)))
	if err != nil {
		return nil, fmt.Errorf("failed to get actor %s: %w", actorID, err)
	}

	actor, err := payloads.ParseActor(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse actor: %w", err)
	}
	return &actor, nil
}

// SpawnIn creates a spirit owned by actorID in zoneID.
func (c *GameApiClient) SpawnIn(ctx context.Context, actorID, name string, zoneID models.ZoneID) (*models.Entity, error) {
	endpoint := fmt.Sprintf(SpawnInEndpoint,
		url.PathEscape(actorID), url.PathEscape(name), url.PathEscape(zoneID.String()))

	body, err := c.Patch(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn in zone %s: %w", zoneID, err)
	}
	return firstEntity(body, zoneID)
}

func firstEntity(body []byte, zoneID models.ZoneID) (*models.Entity, error) {
	entities, err := payloads.ParseEntities(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity: %w", err)
	}
	if len(entities) == 0 {
		return nil, ErrNoEntity
	}
	e := entities[0]
	if e.ZoneID == "" {
		e.ZoneID = zoneID
	}
	return &e, nil
}
