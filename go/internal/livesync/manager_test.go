package livesync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/mcdev12/ghostwars/go/internal/diagnostics"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/zonestate"
)

type fakeSub struct {
	zoneID models.ZoneID
	h      Handlers
	closed bool
}

func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeTransport struct {
	mu   sync.Mutex
	subs []*fakeSub
	err  error
}

func (t *fakeTransport) Subscribe(ctx context.Context, zoneID models.ZoneID, h Handlers) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	s := &fakeSub{zoneID: zoneID, h: h}
	t.subs = append(t.subs, s)
	return s, nil
}

func (t *fakeTransport) live() []models.ZoneID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []models.ZoneID
	for _, s := range t.subs {
		if !s.closed {
			ids = append(ids, s.zoneID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *fakeTransport) sub(zoneID models.ZoneID) *fakeSub {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.subs) - 1; i >= 0; i-- {
		if t.subs[i].zoneID == zoneID {
			return t.subs[i]
		}
	}
	return nil
}

func channelZones(m *Manager) []models.ZoneID {
	var ids []models.ZoneID
	for _, info := range m.Channels() {
		ids = append(ids, info.ZoneID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func equalIDs(a, b []models.ZoneID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReconcileOpensAndClosesExactly(t *testing.T) {
	tr := &fakeTransport{}
	m := NewManager(tr, zonestate.NewStore(), Options{})
	ctx := context.Background()

	m.Reconcile(ctx, []models.ZoneID{"A", "B"})
	if got := channelZones(m); !equalIDs(got, []models.ZoneID{"A", "B"}) {
		t.Fatalf("channels = %v", got)
	}

	m.Reconcile(ctx, []models.ZoneID{"B", "C"})
	if got := channelZones(m); !equalIDs(got, []models.ZoneID{"B", "C"}) {
		t.Fatalf("channels = %v", got)
	}
	if got := tr.live(); !equalIDs(got, []models.ZoneID{"B", "C"}) {
		t.Errorf("live subscriptions = %v", got)
	}
	if len(tr.subs) != 3 {
		t.Errorf("subscribe calls = %d, want 3 (B must not be reopened)", len(tr.subs))
	}

	m.Reconcile(ctx, []models.ZoneID{"B", "B", "C", ""})
	if len(tr.subs) != 3 {
		t.Errorf("duplicate ids opened extra channels")
	}

	m.Reconcile(ctx, nil)
	if len(m.Channels()) != 0 || len(tr.live()) != 0 {
		t.Errorf("channels left after empty reconcile")
	}

	m.Reconcile(ctx, []models.ZoneID{"A"})
	if len(m.Channels()) != 1 {
		t.Errorf("manager unusable after empty reconcile")
	}
}

func TestDuplicateMessageKeepsOneEntity(t *testing.T) {
	tr := &fakeTransport{}
	store := zonestate.NewStore()
	m := NewManager(tr, store, Options{})
	m.Reconcile(context.Background(), []models.ZoneID{"7"})

	sub := tr.sub("7")
	sub.h.OnOpen()
	sub.h.OnMessage([]byte(`{"id":"e1","name":"Casper"}`))
	sub.h.OnMessage([]byte(`[{"id":"e1","name":"Casper"},{"id":"e2","name":"Boo"}]`))

	got := store.Entities("7")
	if len(got) != 2 {
		t.Fatalf("entities = %+v", got)
	}
	if got[0].ZoneID != "7" {
		t.Errorf("entity not stamped with zone: %+v", got[0])
	}

	info := m.Channels()[0]
	if info.State != StateOpen || info.Messages != 2 {
		t.Errorf("info = %+v", info)
	}
}

func TestMessagesAreProjected(t *testing.T) {
	tr := &fakeTransport{}
	store := zonestate.NewStore()
	m := NewManager(tr, store, Options{
		Project: func(p models.LatLng) (models.Point, bool) {
			return models.Point{X: p.Lng / 10, Y: p.Lat / 10}, true
		},
	})
	m.Reconcile(context.Background(), []models.ZoneID{"1"})

	tr.sub("1").h.OnMessage([]byte(`{"id":1,"latitude":2,"longitude":5}`))

	got := store.Entities("1")
	if len(got) != 1 || got[0].Position == nil {
		t.Fatalf("entities = %+v", got)
	}
	if *got[0].Position != (models.Point{X: 0.5, Y: 0.2}) {
		t.Errorf("position = %+v", *got[0].Position)
	}
}

func TestCallbacksAfterCloseAreIgnored(t *testing.T) {
	tr := &fakeTransport{}
	store := zonestate.NewStore()
	rec := diagnostics.NewLog(10)
	m := NewManager(tr, store, Options{Recorder: rec})
	m.Reconcile(context.Background(), []models.ZoneID{"1"})
	sub := tr.sub("1")

	m.Close()
	if !sub.closed {
		t.Fatal("subscription not closed")
	}

	sub.h.OnOpen()
	sub.h.OnMessage([]byte(`{"id":"late"}`))
	sub.h.OnError(errors.New("late error"))

	if store.Count("1") != 0 {
		t.Error("late message reached the store")
	}
	if rec.Len() != 0 {
		t.Error("late error was recorded")
	}

	m.Reconcile(context.Background(), []models.ZoneID{"1"})
	if len(tr.subs) != 1 {
		t.Error("reconcile after close opened a channel")
	}
}

func TestRemovedChannelIgnoresLateMessages(t *testing.T) {
	tr := &fakeTransport{}
	store := zonestate.NewStore()
	m := NewManager(tr, store, Options{})
	m.Reconcile(context.Background(), []models.ZoneID{"1"})
	sub := tr.sub("1")

	m.Reconcile(context.Background(), []models.ZoneID{"2"})
	sub.h.OnMessage([]byte(`{"id":"late"}`))

	if store.Count("1") != 0 {
		t.Error("message from removed channel reached the store")
	}
}

func TestRemovedZoneEntitiesAreDropped(t *testing.T) {
	tr := &fakeTransport{}
	store := zonestate.NewStore()
	m := NewManager(tr, store, Options{})
	defer m.Close()

	m.Reconcile(context.Background(), []models.ZoneID{"1", "2"})
	tr.sub("1").h.OnMessage([]byte(`[{"id":"a"},{"id":"b"}]`))
	tr.sub("2").h.OnMessage([]byte(`{"id":"c"}`))

	m.Reconcile(context.Background(), []models.ZoneID{"2"})

	if got := store.Count("1"); got != 0 {
		t.Errorf("removed zone still holds %d entities", got)
	}
	if got := store.Count("2"); got != 1 {
		t.Errorf("kept zone holds %d entities, want 1", got)
	}
}

func TestErrorStormStaysBounded(t *testing.T) {
	tr := &fakeTransport{}
	rec := diagnostics.NewLog(5)
	m := NewManager(tr, zonestate.NewStore(), Options{Recorder: rec})
	m.Reconcile(context.Background(), []models.ZoneID{"1"})
	sub := tr.sub("1")
	sub.h.OnOpen()

	for i := 0; i < 100; i++ {
		sub.h.OnError(fmt.Errorf("boom %d", i))
	}

	if len(tr.subs) != 1 {
		t.Errorf("error storm opened %d subscriptions", len(tr.subs))
	}
	info := m.Channels()[0]
	if info.State != StateConnecting || info.Errors != 100 || info.LastError != "boom 99" {
		t.Errorf("info = %+v", info)
	}
	if rec.Len() != 5 {
		t.Errorf("diagnostics = %d entries, want 5", rec.Len())
	}
	stats := m.Stats()
	if stats.Total != 1 || stats.Connecting != 1 || stats.Errors != 100 {
		t.Errorf("stats = %+v", stats)
	}

	sub.h.OnOpen()
	if m.Channels()[0].State != StateOpen {
		t.Error("channel did not return to OPEN")
	}
}

func TestSubscribeFailureIsRetriedOnNextReconcile(t *testing.T) {
	tr := &fakeTransport{err: errors.New("refused")}
	rec := diagnostics.NewLog(5)
	m := NewManager(tr, zonestate.NewStore(), Options{Recorder: rec})

	m.Reconcile(context.Background(), []models.ZoneID{"1"})
	if len(m.Channels()) != 0 || rec.Len() != 1 {
		t.Fatalf("channels = %d, diagnostics = %d", len(m.Channels()), rec.Len())
	}

	tr.err = nil
	m.Reconcile(context.Background(), []models.ZoneID{"1"})
	if len(m.Channels()) != 1 {
		t.Error("channel not opened on retry")
	}
}

type fakeLister struct {
	entities []models.Entity
	done     chan struct{}
}

func (l *fakeLister) ListZoneEntities(ctx context.Context, zoneID models.ZoneID) ([]models.Entity, error) {
	defer close(l.done)
	return l.entities, nil
}

func TestPrefetchMergesThroughDedup(t *testing.T) {
	tr := &fakeTransport{}
	store := zonestate.NewStore()
	store.InsertIfAbsent("1", models.Entity{ID: "a"})
	lister := &fakeLister{
		entities: []models.Entity{{ID: "a"}, {ID: "b"}},
		done:     make(chan struct{}),
	}
	m := NewManager(tr, store, Options{Prefetch: lister})
	defer m.Close()

	m.Reconcile(context.Background(), []models.ZoneID{"1"})
	<-lister.done

	waitFor(t, func() bool { return store.Count("1") == 2 })
}

func TestRepeatedGhostMessage(t *testing.T) {
	tr := &fakeTransport{}
	store := zonestate.NewStore()
	m := NewManager(tr, store, Options{})
	m.Reconcile(context.Background(), []models.ZoneID{"1"})

	sub := tr.sub("1")
	sub.h.OnMessage([]byte(`{"id":5,"name":"Ghost"}`))
	sub.h.OnMessage([]byte(`{"id":5,"name":"Ghost"}`))

	got := store.Entities("1")
	if len(got) != 1 || got[0].ID != "5" || got[0].DisplayName != "Ghost" {
		t.Errorf("entities = %+v", got)
	}
}
