// Package payloads normalizes the loosely shaped JSON the game backend
// produces into canonical models. It is the only place that knows about
// alternate key spellings.
package payloads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

var (
	// ErrEmptyPayload is returned for blank input.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrUnsupportedShape is returned when the payload is neither an object nor an array of objects.
	ErrUnsupportedShape = errors.New("unsupported payload shape")
)

var (
	idKeys     = []string{"id", "ID", "Id", "_id"}
	nameKeys   = []string{"name", "displayName", "display_name", "nombre"}
	zoneKeys   = []string{"zoneId", "zone_id", "ubicacionId", "ubicacion_id"}
	zoneNested = []string{"zone", "ubicacion"}
	latKeys    = []string{"latitude", "lat", "latitud"}
	lngKeys    = []string{"longitude", "lng", "lon", "long", "longitud"}
	geoNested  = []string{"coordinate", "coordinates", "coordenada", "location", "ubicacionGeo"}
	posNested  = []string{"position", "posicion"}
	coordLists = []string{"coordinates", "coordenadas", "coords", "points"}
)

// ParseEntities accepts a single entity object or an array of them. Items
// without a usable id are skipped since they cannot be deduplicated.
func ParseEntities(data []byte) ([]models.Entity, error) {
	items, err := decodeObjects(data)
	if err != nil {
		return nil, err
	}

	entities := make([]models.Entity, 0, len(items))
	for _, obj := range items {
		e, ok := entityFromObject(obj)
		if !ok {
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// ZoneRecord is a zone as listed by the backend.
type ZoneRecord struct {
	ID          models.ZoneID
	Name        string
	Coordinates []models.LatLng
}

// ParseZones decodes the zone list returned by GET /zones.
func ParseZones(data []byte) ([]ZoneRecord, error) {
	items, err := decodeObjects(data)
	if err != nil {
		return nil, err
	}

	zones := make([]ZoneRecord, 0, len(items))
	for _, obj := range items {
		id, ok := stringField(obj, idKeys)
		if !ok {
			continue
		}
		name, _ := stringField(obj, nameKeys)
		z := ZoneRecord{ID: models.ZoneID(id), Name: name}
		for _, key := range coordLists {
			list, ok := obj[key].([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				if c, ok := item.(map[string]any); ok {
					if ll, ok := latLng(c); ok {
						z.Coordinates = append(z.Coordinates, ll)
					}
				}
			}
			break
		}
		zones = append(zones, z)
	}
	return zones, nil
}

func decodeObjects(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedShape, raw)
	}
}

func entityFromObject(obj map[string]any) (models.Entity, bool) {
	id, ok := stringField(obj, idKeys)
	if !ok {
		return models.Entity{}, false
	}

	e := models.Entity{ID: models.EntityID(id)}
	e.DisplayName, _ = stringField(obj, nameKeys)

	if zone, ok := stringField(obj, zoneKeys); ok {
		e.ZoneID = models.ZoneID(zone)
	} else {
		for _, key := range zoneNested {
			if nested, ok := obj[key].(map[string]any); ok {
				if zone, ok := stringField(nested, idKeys); ok {
					e.ZoneID = models.ZoneID(zone)
					break
				}
			}
		}
	}

	if ll, ok := latLng(obj); ok {
		e.World = &ll
	} else {
		for _, key := range geoNested {
			if nested, ok := obj[key].(map[string]any); ok {
				if ll, ok := latLng(nested); ok {
					e.World = &ll
					break
				}
			}
		}
	}

	if p, ok := point(obj); ok {
		e.Position = &p
	} else {
		for _, key := range posNested {
			if nested, ok := obj[key].(map[string]any); ok {
				if p, ok := point(nested); ok {
					e.Position = &p
					break
				}
			}
		}
	}

	return e, true
}

func latLng(obj map[string]any) (models.LatLng, bool) {
	lat, okLat := numberField(obj, latKeys)
	lng, okLng := numberField(obj, lngKeys)
	if !okLat || !okLng {
		return models.LatLng{}, false
	}
	return models.LatLng{Lat: lat, Lng: lng}, true
}

func point(obj map[string]any) (models.Point, bool) {
	x, okX := numberField(obj, []string{"x"})
	y, okY := numberField(obj, []string{"y"})
	if !okX || !okY {
		return models.Point{}, false
	}
	return models.Point{X: x, Y: y}, true
}

// stringField returns the first present key rendered as a string. Numbers
// keep their decimal form so 7 and "7" compare equal.
func stringField(obj map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case json.Number:
			return v.String(), true
		}
	}
	return "", false
}

func numberField(obj map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// ActorRecord is the owned actor as returned by GET /actor/{id}.
type ActorRecord struct {
	ID   string
	Name string
}

// ParseActor decodes a single actor object.
func ParseActor(data []byte) (ActorRecord, error) {
	items, err := decodeObjects(data)
	if err != nil {
		return ActorRecord{}, err
	}
	for _, obj := range items {
		if id, ok := stringField(obj, idKeys); ok {
			name, _ := stringField(obj, nameKeys)
			return ActorRecord{ID: id, Name: name}, nil
		}
	}
	return ActorRecord{}, fmt.Errorf("%w: actor without id", ErrUnsupportedShape)
}
