package livesync

import (
	"context"
	"errors"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

// ErrDisconnected is reported to OnError when a transport loses its stream
// without a more specific cause.
var ErrDisconnected = errors.New("stream disconnected")

// Handlers receive events for one zone subscription. Transports may call
// them from any goroutine, including after the subscription was closed.
type Handlers struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnError   func(err error)
}

func (h Handlers) open() {
	if h.OnOpen != nil {
		h.OnOpen()
	}
}

func (h Handlers) message(data []byte) {
	if h.OnMessage != nil {
		h.OnMessage(data)
	}
}

func (h Handlers) error(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Subscription is a live stream for one zone.
type Subscription interface {
	Close() error
}

// Transport opens per-zone streams. Reconnection after a failure is the
// transport's responsibility; it reports each failure through OnError and
// each (re)connect through OnOpen.
type Transport interface {
	Subscribe(ctx context.Context, zoneID models.ZoneID, h Handlers) (Subscription, error)
}

// cancelSubscription closes a goroutine-backed stream by cancelling its context.
type cancelSubscription struct {
	cancel context.CancelFunc
}

func (s cancelSubscription) Close() error {
	s.cancel()
	return nil
}
