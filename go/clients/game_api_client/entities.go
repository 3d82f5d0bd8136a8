package game_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

type CreateEntityRequest struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Level     int      `json:"level"`
	ZoneID    string   `json:"zoneId"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// CreateEntity is the generic creation endpoint used when the actor-scoped
// spawn route is not available.
func (c *GameApiClient) CreateEntity(ctx context.Context, zoneID models.ZoneID, req CreateEntityRequest) (*models.Entity, error) {
	if req.Type == "" {
		req.Type = DefaultEntityType
	}
	if req.Level == 0 {
		req.Level = DefaultEntityLevel
	}
	req.ZoneID = zoneID.String()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.Post(ctx, fmt.Sprintf(ZoneEntitiesEndpoint, url.PathEscape(zoneID.String())), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create entity in zone %s: %w", zoneID, err)
	}
	return firstEntity(body, zoneID)
}
