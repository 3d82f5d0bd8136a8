package models

// EntityID identifies a spawned entity within the game.
type EntityID string

// Entity represents a spirit spawned in a zone.
type Entity struct {
	ID          EntityID `json:"id"`
	DisplayName string   `json:"name"`
	ZoneID      ZoneID   `json:"zone_id"`
	Position    *Point   `json:"position,omitempty"`
	World       *LatLng  `json:"world,omitempty"`
}
