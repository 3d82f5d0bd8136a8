package zones

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/ghostwars/go/internal/models"
)

//go:embed layout.yaml
var defaultLayout []byte

type layoutFile struct {
	Zones []layoutZone `yaml:"zones"`
}

type layoutZone struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	models.ScreenRect `yaml:",inline"`
}

// DefaultLayout returns the built-in campus layout.
func DefaultLayout() []models.Zone {
	zones, err := ParseLayout(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("embedded layout is invalid: %v", err))
	}
	return zones
}

// LoadLayoutFile reads a layout in the same YAML format as the built-in one.
func LoadLayoutFile(path string) ([]models.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout decodes a YAML layout and validates it.
func ParseLayout(data []byte) ([]models.Zone, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	seen := make(map[string]bool, len(f.Zones))
	zones := make([]models.Zone, 0, len(f.Zones))
	for i, z := range f.Zones {
		if z.ID == "" || z.Name == "" {
			return nil, fmt.Errorf("layout zone %d: id and name are required", i)
		}
		if seen[z.ID] {
			return nil, fmt.Errorf("layout zone %d: duplicate id %s", i, z.ID)
		}
		seen[z.ID] = true
		if !inPercent(z.X) || !inPercent(z.Y) || !inPercent(z.W) || !inPercent(z.H) {
			return nil, fmt.Errorf("layout zone %q: rect values must be within [0,100]", z.Name)
		}
		zones = append(zones, models.Zone{
			ID:     models.ZoneID(z.ID),
			Name:   z.Name,
			Screen: z.ScreenRect,
		})
	}
	return zones, nil
}

func inPercent(v float64) bool {
	return v >= 0 && v <= 100
}
