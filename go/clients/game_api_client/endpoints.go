package game_api_client

const (
	// API Endpoints
	ZonesEndpoint        = "/zones"
	ZoneEntitiesEndpoint = "/zones/%s/entities"
	ZoneStreamEndpoint   = "/zones/%s/stream"
	ZoneSocketEndpoint   = "/zones/%s/ws"
	ActorEndpoint        = "/actor/%s"
	SpawnInEndpoint      = "/actor/%s/spawnIn/%s/%s"

	// Generic entity defaults
	DefaultEntityType  = "spirit"
	DefaultEntityLevel = 1
)
