package livesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

// SubjectFormat is the subject zone updates are published on.
const SubjectFormat = "zones.%s.entities"

// NATSConfig holds connection settings for the NATS transport.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSTransport subscribes to one subject per zone over a shared
// connection. Connection state changes fan out to every live subscription.
type NATSTransport struct {
	nc *nats.Conn

	mu   sync.Mutex
	subs map[*nats.Subscription]Handlers
}

// DialNATS connects to NATS and returns a transport that owns the connection.
func DialNATS(config NATSConfig) (*NATSTransport, error) {
	t := &NATSTransport{subs: make(map[*nats.Subscription]Handlers)}

	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
			if err == nil {
				err = ErrDisconnected
			}
			t.broadcast(func(h Handlers) { h.error(err) })
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			t.broadcast(func(h Handlers) { h.open() })
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
			t.mu.Lock()
			h, ok := t.subs[sub]
			t.mu.Unlock()
			if ok {
				h.error(err)
			}
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	t.nc = nc
	return t, nil
}

func (t *NATSTransport) broadcast(fn func(h Handlers)) {
	t.mu.Lock()
	handlers := make([]Handlers, 0, len(t.subs))
	for _, h := range t.subs {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	for _, h := range handlers {
		fn(h)
	}
}

func (t *NATSTransport) Subscribe(ctx context.Context, zoneID models.ZoneID, h Handlers) (Subscription, error) {
	subject := fmt.Sprintf(SubjectFormat, zoneID)
	sub, err := t.nc.Subscribe(subject, func(msg *nats.Msg) {
		h.message(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	t.mu.Lock()
	t.subs[sub] = h
	t.mu.Unlock()

	if t.nc.IsConnected() {
		h.open()
	}
	return &natsSubscription{t: t, sub: sub}, nil
}

// Close drains the shared connection.
func (t *NATSTransport) Close() error {
	if t.nc == nil {
		return nil
	}
	if err := t.nc.Drain(); err != nil {
		t.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

type natsSubscription struct {
	t   *NATSTransport
	sub *nats.Subscription
}

func (s *natsSubscription) Close() error {
	s.t.mu.Lock()
	delete(s.t.subs, s.sub)
	s.t.mu.Unlock()

	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("unsubscribe %s: %w", s.sub.Subject, err)
	}
	return nil
}
