package game_api_client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/payloads"
)

func (c *GameApiClient) ListZones(ctx context.Context) ([]payloads.ZoneRecord, error) {
	body, err := c.Get(ctx, ZonesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get zones: %w", err)
	}

	zones, err := payloads.ParseZones(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse zones: %w", err)
	}
	return zones, nil
}

// ListZoneEntities returns the entities currently in a zone.
func (c *GameApiClient) ListZoneEntities(ctx context.Context, zoneID models.ZoneID) ([]models.Entity, error) {
	body, err := c.Get(ctx, fmt.Sprintf(ZoneEntitiesEndpoint, url.PathEscape(zoneID.String())))
	if err != nil {
		return nil, fmt.Errorf("failed to get entities for zone %s: %w", zoneID, err)
	}

	entities, err := payloads.ParseEntities(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entities: %w", err)
	}
	for i := range entities {
		if entities[i].ZoneID == "" {
			entities[i].ZoneID = zoneID
		}
	}
	return entities, nil
}
