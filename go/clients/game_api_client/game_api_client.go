package game_api_client

import (
	"github.com/mcdev12/ghostwars/go/clients"
	"github.com/mcdev12/ghostwars/go/internal/diagnostics"
)

type GameApiClient struct {
	*clients.BaseClient
}

func NewGameApiClient(baseURL, token string, recorder diagnostics.Recorder) *GameApiClient {
	client := &GameApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetBearerToken(token)
	client.SetHeader("Accept", "application/json")
	client.SetRecorder(recorder)

	return client
}
