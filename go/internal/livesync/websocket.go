package livesync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/clients/game_api_client"
	"github.com/mcdev12/ghostwars/go/internal/models"
)

// WebSocketConfig holds settings for the websocket transport.
type WebSocketConfig struct {
	HandshakeTimeout time.Duration
	RetryWait        time.Duration
	MaxMessageSize   int64
}

// DefaultWebSocketConfig returns default websocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		HandshakeTimeout: 10 * time.Second,
		RetryWait:        2 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// WebSocketTransport reads zone updates from {ws-base}/zones/{id}/ws and
// redials after every failure, pacing attempts with the clock.
type WebSocketTransport struct {
	baseURL string
	token   string
	config  WebSocketConfig
	dialer  *websocket.Dialer
	clock   clockwork.Clock
}

// NewWebSocketTransport accepts an http(s) or ws(s) base URL.
func NewWebSocketTransport(baseURL, token string, config WebSocketConfig, clock clockwork.Clock) *WebSocketTransport {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return &WebSocketTransport{
		baseURL: base,
		token:   token,
		config:  config,
		dialer:  &websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout},
		clock:   clock,
	}
}

func (t *WebSocketTransport) SocketURL(zoneID models.ZoneID) string {
	u := t.baseURL + fmt.Sprintf(game_api_client.ZoneSocketEndpoint, url.PathEscape(zoneID.String()))
	if t.token != "" {
		u += "?token=" + url.QueryEscape(t.token)
	}
	return u
}

func (t *WebSocketTransport) Subscribe(ctx context.Context, zoneID models.ZoneID, h Handlers) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	go t.run(subCtx, zoneID, h)
	return cancelSubscription{cancel: cancel}, nil
}

func (t *WebSocketTransport) run(ctx context.Context, zoneID models.ZoneID, h Handlers) {
	target := t.SocketURL(zoneID)
	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	for {
		err := t.readOnce(ctx, target, header, h)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = ErrDisconnected
		}
		h.error(err)

		log.Debug().Err(err).Str("zone_id", zoneID.String()).Dur("wait", t.config.RetryWait).Msg("websocket redial scheduled")
		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(t.config.RetryWait):
		}
	}
}

// readOnce dials and reads until the connection fails or ctx is cancelled.
func (t *WebSocketTransport) readOnce(ctx context.Context, target string, header http.Header, h Handlers) error {
	conn, resp, err := t.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to dial websocket: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("failed to dial websocket: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	if t.config.MaxMessageSize > 0 {
		conn.SetReadLimit(t.config.MaxMessageSize)
	}
	h.open()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return ErrDisconnected
			}
			return err
		}
		h.message(data)
	}
}
