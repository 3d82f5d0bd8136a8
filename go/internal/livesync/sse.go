package livesync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/mcdev12/ghostwars/go/clients/game_api_client"
	"github.com/mcdev12/ghostwars/go/internal/models"
)

// SSEConfig holds settings for the event stream transport.
type SSEConfig struct {
	// RetryWait is the first reconnect delay after a failed connect and the
	// fixed delay before reopening a stream the server ended.
	RetryWait    time.Duration
	MaxRetryWait time.Duration
}

// DefaultSSEConfig returns default event stream configuration
func DefaultSSEConfig() SSEConfig {
	return SSEConfig{
		RetryWait:    2 * time.Second,
		MaxRetryWait: 30 * time.Second,
	}
}

// SSETransport streams zone updates as server-sent events from
// {base}/zones/{id}/stream. Streams are reopened until the subscription is
// closed, whether they failed or the server ended them.
type SSETransport struct {
	baseURL string
	token   string
	config  SSEConfig
	clock   clockwork.Clock
}

func NewSSETransport(baseURL, token string, config SSEConfig, clock clockwork.Clock) *SSETransport {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SSETransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		config:  config,
		clock:   clock,
	}
}

// StreamURL returns the event stream URL for zoneID, with the token as a
// query parameter.
func (t *SSETransport) StreamURL(zoneID models.ZoneID) string {
	u := t.baseURL + fmt.Sprintf(game_api_client.ZoneStreamEndpoint, url.PathEscape(zoneID.String()))
	if t.token != "" {
		u += "?token=" + url.QueryEscape(t.token)
	}
	return u
}

// retryStrategy backs off exponentially without an elapsed time limit and
// stops once ctx is done.
func (t *SSETransport) retryStrategy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.config.RetryWait
	b.MaxInterval = t.config.MaxRetryWait
	b.MaxElapsedTime = 0
	return backoff.WithContext(b, ctx)
}

func (t *SSETransport) Subscribe(ctx context.Context, zoneID models.ZoneID, h Handlers) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	client := sse.NewClient(t.StreamURL(zoneID))
	client.Headers["Accept"] = "text/event-stream"
	client.ReconnectStrategy = t.retryStrategy(subCtx)

	// The stream counts as open once the server accepts it, not once the
	// first event arrives.
	client.ResponseValidator = func(c *sse.Client, resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("could not connect to stream: %s", resp.Status)
		}
		if subCtx.Err() == nil {
			h.open()
		}
		return nil
	}
	client.ReconnectNotify = func(err error, wait time.Duration) {
		if subCtx.Err() != nil {
			return
		}
		log.Debug().Err(err).Str("zone_id", zoneID.String()).Dur("wait", wait).Msg("event stream reconnecting")
		h.error(err)
	}

	go t.run(subCtx, zoneID, client, h)

	return cancelSubscription{cancel: cancel}, nil
}

// run keeps the stream subscribed until ctx is done. The sse client retries
// failed connects itself but returns nil when the server ends the stream.
func (t *SSETransport) run(ctx context.Context, zoneID models.ZoneID, client *sse.Client, h Handlers) {
	for {
		err := client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			if len(msg.Data) > 0 {
				h.message(msg.Data)
			}
		})
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			log.Error().Err(err).Str("zone_id", zoneID.String()).Msg("event stream gave up")
			h.error(err)
		} else {
			log.Debug().Str("zone_id", zoneID.String()).Msg("event stream ended")
			h.error(ErrDisconnected)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(t.config.RetryWait):
		}
	}
}
