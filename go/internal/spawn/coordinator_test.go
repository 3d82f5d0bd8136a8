package spawn

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/mcdev12/ghostwars/go/clients"
	"github.com/mcdev12/ghostwars/go/clients/game_api_client"
	"github.com/mcdev12/ghostwars/go/internal/models"
	"github.com/mcdev12/ghostwars/go/internal/payloads"
	"github.com/mcdev12/ghostwars/go/internal/session"
	"github.com/mcdev12/ghostwars/go/internal/zonestate"
)

type fakeAPI struct {
	mu          sync.Mutex
	spawnErr    error
	actorErr    error
	entity      models.Entity
	spawnCalls  int
	createCalls int
	actorCalls  int
	lastName    string
	lastCreate  game_api_client.CreateEntityRequest
	beforeReply func()
}

func (f *fakeAPI) SpawnIn(ctx context.Context, actorID, name string, zoneID models.ZoneID) (*models.Entity, error) {
	f.mu.Lock()
	f.spawnCalls++
	f.lastName = name
	f.mu.Unlock()
	if f.beforeReply != nil {
		f.beforeReply()
	}
	if f.spawnErr != nil {
		return nil, f.spawnErr
	}
	e := f.entity
	return &e, nil
}

func (f *fakeAPI) CreateEntity(ctx context.Context, zoneID models.ZoneID, req game_api_client.CreateEntityRequest) (*models.Entity, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastCreate = req
	f.mu.Unlock()
	e := f.entity
	return &e, nil
}

func (f *fakeAPI) GetActor(ctx context.Context, id string) (*payloads.ActorRecord, error) {
	f.mu.Lock()
	f.actorCalls++
	f.mu.Unlock()
	if f.actorErr != nil {
		return nil, f.actorErr
	}
	return &payloads.ActorRecord{ID: id}, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spawnCalls + f.createCalls + f.actorCalls
}

type zoneMap map[models.ZoneID]models.Zone

func (z zoneMap) Resolve(id models.ZoneID) (models.Zone, bool) {
	zone, ok := z[id]
	return zone, ok
}

var testZones = zoneMap{
	"p1": {ID: "1", Name: "Yard", Resolved: true, Bounds: &models.Bounds{MinLat: 0, MaxLat: 2, MinLng: 0, MaxLng: 4}},
	"1":  {ID: "1", Name: "Yard", Resolved: true, Bounds: &models.Bounds{MinLat: 0, MaxLat: 2, MinLng: 0, MaxLng: 4}},
	"p2": {ID: "p2", Name: "Gym"},
}

type fixture struct {
	api   *fakeAPI
	sess  *session.Session
	store *zonestate.Store
	coord *Coordinator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	kv, err := session.OpenBadger("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })

	f := &fixture{
		api:   &fakeAPI{entity: models.Entity{ID: "e1", DisplayName: "Casper"}},
		sess:  session.New(session.Identity{Email: "a@b.c"}, kv),
		store: zonestate.NewStore(),
	}
	f.sess.SetActorID("42")
	f.sess.SetRole(session.RoleNightbringer)
	f.coord = NewCoordinator(f.api, testZones, f.sess, f.store, opts)
	return f
}

func TestPreconditionsMakeNoCalls(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *fixture)
		zone   models.ZoneID
		role   session.Role
		expect error
	}{
		{"wrong role", nil, "1", session.RoleLightbringer, ErrRoleNotAllowed},
		{"no role", nil, "1", "", ErrRoleNotAllowed},
		{"no actor", func(f *fixture) { f.sess.SetActorID("") }, "1", session.RoleNightbringer, ErrNotReady},
		{"unresolved zone", nil, "p2", session.RoleNightbringer, ErrZoneUnresolved},
		{"unknown zone", nil, "nope", session.RoleNightbringer, ErrZoneUnresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.coord.TrySpawn(context.Background(), tt.zone, "Casper", tt.role)
			if !errors.Is(err, tt.expect) {
				t.Errorf("err = %v, want %v", err, tt.expect)
			}
			if f.api.calls() != 0 {
				t.Errorf("network calls = %d, want 0", f.api.calls())
			}
			if f.store.Count("1") != 0 {
				t.Error("store mutated")
			}
		})
	}
}

func TestSpawnMergesOnce(t *testing.T) {
	f := newFixture(t, Options{})

	e, err := f.coord.TrySpawn(context.Background(), "p1", "Casper", session.RoleNightbringer)
	if err != nil {
		t.Fatalf("TrySpawn: %v", err)
	}
	if e.ZoneID != "1" {
		t.Errorf("zone = %s, want backend id 1", e.ZoneID)
	}
	if got := f.store.Entities("1"); len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("entities = %+v", got)
	}
}

func TestSpawnRaceWithChannel(t *testing.T) {
	t.Run("channel first", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.api.beforeReply = func() {
			f.store.InsertIfAbsent("1", models.Entity{ID: "e1", DisplayName: "Casper"})
		}
		if _, err := f.coord.TrySpawn(context.Background(), "1", "Casper", session.RoleNightbringer); err != nil {
			t.Fatal(err)
		}
		if n := f.store.Count("1"); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})

	t.Run("response first", func(t *testing.T) {
		f := newFixture(t, Options{})
		if _, err := f.coord.TrySpawn(context.Background(), "1", "Casper", session.RoleNightbringer); err != nil {
			t.Fatal(err)
		}
		f.store.InsertIfAbsent("1", models.Entity{ID: "e1", DisplayName: "Casper"})
		if n := f.store.Count("1"); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		f := newFixture(t, Options{})
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				f.coord.TrySpawn(context.Background(), "1", "Casper", session.RoleNightbringer)
			}()
			go func() {
				defer wg.Done()
				f.store.InsertIfAbsent("1", models.Entity{ID: "e1"})
			}()
		}
		wg.Wait()
		if n := f.store.Count("1"); n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})
}

func TestBlankNameDefaults(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.coord.TrySpawn(context.Background(), "1", "   ", session.RoleNightbringer); err != nil {
		t.Fatal(err)
	}
	if f.api.lastName != DefaultName {
		t.Errorf("name = %q", f.api.lastName)
	}
}

func TestStaleActorClearsSession(t *testing.T) {
	f := newFixture(t, Options{})
	notFound := &clients.APIError{StatusCode: http.StatusNotFound}
	f.api.spawnErr = notFound
	f.api.actorErr = notFound

	_, err := f.coord.TrySpawn(context.Background(), "1", "Casper", session.RoleNightbringer)
	if !errors.Is(err, ErrStaleActor) {
		t.Fatalf("err = %v, want ErrStaleActor", err)
	}
	if _, ok := f.sess.ActorID(); ok {
		t.Error("actor id not cleared")
	}
	if _, ok := f.sess.Role(); ok {
		t.Error("role not cleared")
	}
}

func TestNotFoundWithLiveActorKeepsSession(t *testing.T) {
	f := newFixture(t, Options{})
	f.api.spawnErr = &clients.APIError{StatusCode: http.StatusNotFound}

	_, err := f.coord.TrySpawn(context.Background(), "1", "Casper", session.RoleNightbringer)
	if err == nil || errors.Is(err, ErrStaleActor) {
		t.Fatalf("err = %v", err)
	}
	if f.api.actorCalls != 1 {
		t.Errorf("actor checks = %d", f.api.actorCalls)
	}
	if _, ok := f.sess.ActorID(); !ok {
		t.Error("actor id cleared")
	}
}

func TestGenericFailureKeepsState(t *testing.T) {
	f := newFixture(t, Options{})
	f.api.spawnErr = &clients.APIError{StatusCode: http.StatusInternalServerError}

	_, err := f.coord.TrySpawn(context.Background(), "1", "Casper", session.RoleNightbringer)
	if clients.StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("err = %v", err)
	}
	if f.api.actorCalls != 0 {
		t.Error("actor checked on non-404 failure")
	}
	if _, ok := f.sess.ActorID(); !ok {
		t.Error("actor id cleared")
	}
	if f.store.Count("1") != 0 {
		t.Error("store mutated on failure")
	}
}

func TestUnmountedMapIsNotMutated(t *testing.T) {
	f := newFixture(t, Options{Active: func() bool { return false }})

	e, err := f.coord.TrySpawn(context.Background(), "1", "Casper", session.RoleNightbringer)
	if err != nil || e == nil {
		t.Fatalf("TrySpawn = %v, %v", e, err)
	}
	if f.store.Count("1") != 0 {
		t.Error("store mutated after unmount")
	}
}

func TestGenericModeUsesCreateEndpoint(t *testing.T) {
	f := newFixture(t, Options{Mode: ModeGeneric})

	if _, err := f.coord.TrySpawn(context.Background(), "1", "Boo", session.RoleNightbringer); err != nil {
		t.Fatal(err)
	}
	if f.api.createCalls != 1 || f.api.spawnCalls != 0 {
		t.Fatalf("create=%d spawn=%d", f.api.createCalls, f.api.spawnCalls)
	}
	req := f.api.lastCreate
	if req.Name != "Boo" || req.Latitude == nil || *req.Latitude != 1 || *req.Longitude != 2 {
		t.Errorf("request = %+v", req)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeActor {
		t.Errorf("ParseMode(\"\") = %q, %v", m, err)
	}
	if m, err := ParseMode("GENERIC"); err != nil || m != ModeGeneric {
		t.Errorf("ParseMode(GENERIC) = %q, %v", m, err)
	}
	if _, err := ParseMode("rpc"); err == nil {
		t.Error("expected error")
	}
}
