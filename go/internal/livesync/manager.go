// Package livesync keeps one live update channel open per zone and merges
// incoming entities into the shared zone store.
package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/ghostwars/go/internal/diagnostics"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/payloads"
	"github.com/mcdev12/ghostwars/go/internal/zonestate"
)

// State is a channel's connection state.
type State string

const (
	StateConnecting State = "CONNECTING"
	StateOpen       State = "OPEN"
	StateClosed     State = "CLOSED"
)

// EntityLister fetches the entities already present in a zone.
type EntityLister interface {
	ListZoneEntities(ctx context.Context, zoneID models.ZoneID) ([]models.Entity, error)
}

// Projector maps a world coordinate to normalized map space.
type Projector func(p models.LatLng) (models.Point, bool)

// Options configures a Manager. Every field is optional.
type Options struct {
	Prefetch EntityLister
	Project  Projector
	Recorder diagnostics.Recorder
	Clock    clockwork.Clock
}

// Channel is the live subscription for one zone.
type Channel struct {
	ID     string
	ZoneID models.ZoneID

	mu        sync.Mutex
	state     State
	lastError string
	errors    int
	messages  int
	openedAt  time.Time
	closed    bool

	sub    Subscription
	cancel context.CancelFunc
}

// ChannelInfo is a point-in-time view of a Channel.
type ChannelInfo struct {
	ID        string        `json:"id"`
	ZoneID    models.ZoneID `json:"zone_id"`
	State     State         `json:"state"`
	LastError string        `json:"last_error,omitempty"`
	Errors    int           `json:"errors"`
	Messages  int           `json:"messages"`
	OpenedAt  time.Time     `json:"opened_at,omitempty"`
}

func (c *Channel) Info() ChannelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChannelInfo{
		ID:        c.ID,
		ZoneID:    c.ZoneID,
		State:     c.state,
		LastError: c.lastError,
		Errors:    c.errors,
		Messages:  c.messages,
		OpenedAt:  c.openedAt,
	}
}

// close marks the channel closed and releases its subscription. It is safe
// to call more than once.
func (c *Channel) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if sub != nil {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("zone_id", c.ZoneID.String()).Msg("failed to close subscription")
		}
	}
}

// Manager owns the set of open channels.
type Manager struct {
	transport Transport
	store     *zonestate.Store
	opts      Options

	mu       sync.Mutex
	channels map[models.ZoneID]*Channel
	closed   bool
}

func NewManager(transport Transport, store *zonestate.Store, opts Options) *Manager {
	if opts.Recorder == nil {
		opts.Recorder = diagnostics.Discard
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Manager{
		transport: transport,
		store:     store,
		opts:      opts,
		channels:  make(map[models.ZoneID]*Channel),
	}
}

// Reconcile makes the open channels match ids exactly: new ids get a
// channel, ids no longer present are closed and their entities dropped.
// Reconcile(nil) closes everything but leaves the manager usable.
func (m *Manager) Reconcile(ctx context.Context, ids []models.ZoneID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		log.Warn().Msg("reconcile called on closed channel manager")
		return
	}

	want := make(map[models.ZoneID]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		want[id] = struct{}{}
	}

	for id, ch := range m.channels {
		if _, keep := want[id]; keep {
			continue
		}
		ch.close()
		delete(m.channels, id)
		m.store.Drop(id)
		log.Info().Str("zone_id", id.String()).Str("channel_id", ch.ID).Msg("channel closed")
	}

	for _, id := range ids {
		if _, ok := want[id]; !ok {
			continue
		}
		if _, exists := m.channels[id]; exists {
			continue
		}
		ch := m.open(ctx, id)
		if ch != nil {
			m.channels[id] = ch
		}
	}
}

// open subscribes a new channel. Callers hold m.mu.
func (m *Manager) open(ctx context.Context, zoneID models.ZoneID) *Channel {
	chCtx, cancel := context.WithCancel(ctx)
	ch := &Channel{
		ID:     uuid.New().String(),
		ZoneID: zoneID,
		state:  StateConnecting,
		cancel: cancel,
	}

	sub, err := m.transport.Subscribe(chCtx, zoneID, Handlers{
		OnOpen:    func() { m.handleOpen(ch) },
		OnMessage: func(data []byte) { m.handleMessage(ch, data) },
		OnError:   func(err error) { m.handleError(ch, err) },
	})
	if err != nil {
		cancel()
		log.Error().Err(err).Str("zone_id", zoneID.String()).Msg("failed to open channel")
		m.opts.Recorder.Record(diagnostics.Entry{
			Kind:       diagnostics.KindChannel,
			ZoneID:     zoneID.String(),
			StatusText: err.Error(),
		})
		return nil
	}

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		sub.Close()
		return nil
	}
	ch.sub = sub
	ch.mu.Unlock()

	log.Info().Str("zone_id", zoneID.String()).Str("channel_id", ch.ID).Msg("channel opened")

	if m.opts.Prefetch != nil {
		go m.prefetch(chCtx, ch)
	}
	return ch
}

func (m *Manager) prefetch(ctx context.Context, ch *Channel) {
	entities, err := m.opts.Prefetch.ListZoneEntities(ctx, ch.ZoneID)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("zone_id", ch.ZoneID.String()).Msg("failed to prefetch zone entities")
		}
		return
	}
	added := m.merge(ch, entities, false)
	log.Debug().Str("zone_id", ch.ZoneID.String()).Int("added", added).Msg("zone entities prefetched")
}

func (m *Manager) handleOpen(ch *Channel) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	ch.state = StateOpen
	ch.openedAt = m.opts.Clock.Now()
}

func (m *Manager) handleMessage(ch *Channel, data []byte) {
	entities, err := payloads.ParseEntities(data)
	if err != nil {
		log.Debug().Err(err).Str("zone_id", ch.ZoneID.String()).Msg("ignoring unparseable channel message")
		return
	}
	m.merge(ch, entities, true)
}

// merge stamps and projects entities and seeds them under the channel lock,
// so nothing lands in the store once the channel is closed.
func (m *Manager) merge(ch *Channel, entities []models.Entity, fromStream bool) int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return 0
	}
	if fromStream {
		ch.messages++
	}

	stamped := make([]models.Entity, 0, len(entities))
	for _, e := range entities {
		e.ZoneID = ch.ZoneID
		if e.Position == nil && e.World != nil && m.opts.Project != nil {
			if p, ok := m.opts.Project(*e.World); ok {
				e.Position = &p
			}
		}
		stamped = append(stamped, e)
	}

	added := m.store.Seed(ch.ZoneID, stamped)
	if added > 0 {
		log.Debug().
			Str("zone_id", ch.ZoneID.String()).
			Int("added", added).
			Msg("entities added")
	}
	return added
}

func (m *Manager) handleError(ch *Channel, err error) {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	if err == nil {
		err = ErrDisconnected
	}
	ch.state = StateConnecting
	ch.lastError = err.Error()
	ch.errors++
	count := ch.errors
	ch.mu.Unlock()

	log.Warn().
		Err(err).
		Str("zone_id", ch.ZoneID.String()).
		Int("errors", count).
		Msg("channel error")
	m.opts.Recorder.Record(diagnostics.Entry{
		Kind:       diagnostics.KindChannel,
		ZoneID:     ch.ZoneID.String(),
		StatusText: err.Error(),
	})
}

// Close tears down every channel. Callbacks that arrive afterwards are
// ignored and further Reconcile calls do nothing.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.channels {
		ch.close()
		delete(m.channels, id)
	}
	log.Info().Msg("channel manager closed")
}

// Channels returns a snapshot of the open channels.
func (m *Manager) Channels() []ChannelInfo {
	m.mu.Lock()
	chans := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		chans = append(chans, ch)
	}
	m.mu.Unlock()

	infos := make([]ChannelInfo, 0, len(chans))
	for _, ch := range chans {
		infos = append(infos, ch.Info())
	}
	return infos
}

// Stats summarizes channel states.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	Connecting int `json:"connecting"`
	Messages   int `json:"messages"`
	Errors     int `json:"errors"`
}

func (m *Manager) Stats() Stats {
	var s Stats
	for _, info := range m.Channels() {
		s.Total++
		switch info.State {
		case StateOpen:
			s.Open++
		case StateConnecting:
			s.Connecting++
		}
		s.Messages += info.Messages
		s.Errors += info.Errors
	}
	return s
}
