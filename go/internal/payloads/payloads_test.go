package payloads

import (
	"errors"
	"testing"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

func TestParseEntitiesShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantIDs []models.EntityID
	}{
		{"single object", `{"id":5,"name":"Ghost"}`, []models.EntityID{"5"}},
		{"array", `[{"id":1,"name":"A"},{"id":"2","nombre":"B"}]`, []models.EntityID{"1", "2"}},
		{"skips items without id", `[{"name":"nameless"},{"id":3}]`, []models.EntityID{"3"}},
		{"skips non objects", `[1, "x", {"_id":"abc"}]`, []models.EntityID{"abc"}},
		{"empty array", `[]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntities([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ParseEntities: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d entities; want %d", len(got), len(tt.wantIDs))
			}
			for i, e := range got {
				if e.ID != tt.wantIDs[i] {
					t.Errorf("entity %d id = %q; want %q", i, e.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestParseEntitiesAlternateKeys(t *testing.T) {
	payload := `{"id":9,"nombre":"Sombra","ubicacion":{"id":13954},"coordenada":{"latitud":"-34.52","longitud":-58.51},"position":{"x":0.25,"y":0.75}}`
	got, err := ParseEntities([]byte(payload))
	if err != nil {
		t.Fatalf("ParseEntities: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entities; want 1", len(got))
	}
	e := got[0]
	if e.DisplayName != "Sombra" {
		t.Errorf("name = %q", e.DisplayName)
	}
	if e.ZoneID != "13954" {
		t.Errorf("zone = %q", e.ZoneID)
	}
	if e.World == nil || e.World.Lat != -34.52 || e.World.Lng != -58.51 {
		t.Errorf("world = %+v", e.World)
	}
	if e.Position == nil || e.Position.X != 0.25 || e.Position.Y != 0.75 {
		t.Errorf("position = %+v", e.Position)
	}
}

func TestParseEntitiesErrors(t *testing.T) {
	if _, err := ParseEntities([]byte("  ")); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("blank payload error = %v", err)
	}
	if _, err := ParseEntities([]byte(`"hello"`)); !errors.Is(err, ErrUnsupportedShape) {
		t.Errorf("string payload error = %v", err)
	}
	if _, err := ParseEntities([]byte(`not json`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestParseZones(t *testing.T) {
	payload := `[
		{"id":1,"name":"Yard","coordinates":[{"latitude":1,"longitude":2},{"lat":3,"lng":4}]},
		{"id":"2","nombre":"SUM","coordenadas":[{"latitud":5,"longitud":6}]},
		{"name":"no id"}
	]`
	zones, err := ParseZones([]byte(payload))
	if err != nil {
		t.Fatalf("ParseZones: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("got %d zones; want 2", len(zones))
	}
	if zones[0].ID != "1" || zones[0].Name != "Yard" || len(zones[0].Coordinates) != 2 {
		t.Errorf("zone 0 = %+v", zones[0])
	}
	if zones[0].Coordinates[1] != (models.LatLng{Lat: 3, Lng: 4}) {
		t.Errorf("zone 0 second coordinate = %+v", zones[0].Coordinates[1])
	}
	if zones[1].ID != "2" || zones[1].Name != "SUM" || len(zones[1].Coordinates) != 1 {
		t.Errorf("zone 1 = %+v", zones[1])
	}
}

func TestParseActor(t *testing.T) {
	a, err := ParseActor([]byte(`{"id":42,"nombre":"Umbra","espiritus":[]}`))
	if err != nil {
		t.Fatalf("ParseActor: %v", err)
	}
	if a.ID != "42" || a.Name != "Umbra" {
		t.Errorf("actor = %+v", a)
	}
	if _, err := ParseActor([]byte(`{"nombre":"x"}`)); !errors.Is(err, ErrUnsupportedShape) {
		t.Errorf("missing id error = %v", err)
	}
}
