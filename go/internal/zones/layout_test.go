package zones

import (
	"strings"
	"testing"
)

func TestDefaultLayout(t *testing.T) {
	zones := DefaultLayout()
	if len(zones) != 11 {
		t.Fatalf("zones = %d, want 11", len(zones))
	}
	seen := map[string]bool{}
	for _, z := range zones {
		if z.Resolved {
			t.Errorf("zone %s resolved before load", z.Name)
		}
		if seen[z.Name] {
			t.Errorf("duplicate name %s", z.Name)
		}
		seen[z.Name] = true
	}
}

func TestParseLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "zones:\n  - id: a\n", "id and name are required"},
		{"duplicate id", "zones:\n  - {id: a, name: A}\n  - {id: a, name: B}\n", "duplicate id"},
		{"out of range", "zones:\n  - {id: a, name: A, x: 120}\n", "within [0,100]"},
		{"bad yaml", "zones: [", "failed to parse layout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayout([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseLayoutRotation(t *testing.T) {
	zones, err := ParseLayout([]byte("zones:\n  - {id: a, name: A, x: 1, y: 2, w: 3, h: 4, rotate: -22}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if zones[0].Screen.Rotation != -22 || zones[0].Screen.W != 3 {
		t.Errorf("screen = %+v", zones[0].Screen)
	}
}
