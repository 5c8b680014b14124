// Package seed holds the built-in starting data: the default station
// templates and the demo layout.
package seed

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fieldplanner/planner/internal/planner"
)

//go:embed seeds.yaml
var seedsYAML []byte

type demoItem struct {
	ID            string  `yaml:"id"`
	Type          string  `yaml:"type"`
	SubType       string  `yaml:"subType"`
	X             float64 `yaml:"x"`
	Y             float64 `yaml:"y"`
	Rotation      float64 `yaml:"rotation"`
	FenceDistance float64 `yaml:"fenceDistance"`
	CreatedAt     int64   `yaml:"createdAt"`
}

type file struct {
	StationTemplates   []planner.Template `yaml:"stationTemplates"`
	EquipmentTemplates []planner.Template `yaml:"equipmentTemplates"`
	DemoLayout         []demoItem         `yaml:"demoLayout"`
}

var load = sync.OnceValues(func() (file, error) {
	var f file
	if err := yaml.Unmarshal(seedsYAML, &f); err != nil {
		return file{}, fmt.Errorf("parsing seeds.yaml: %w", err)
	}
	return f, nil
})

func mustLoad() file {
	f, err := load()
	if err != nil {
		panic(err)
	}
	return f
}

// StationTemplates returns a fresh copy of the default station templates.
func StationTemplates() []planner.Template {
	return cloneTemplates(mustLoad().StationTemplates)
}

// EquipmentTemplates returns the default equipment templates (none).
func EquipmentTemplates() []planner.Template {
	return cloneTemplates(mustLoad().EquipmentTemplates)
}

// DemoLayout returns the demo items: a regulation infield and a 200 ft
// full field.
func DemoLayout() []planner.PlacedItem {
	src := mustLoad().DemoLayout
	out := make([]planner.PlacedItem, 0, len(src))
	for _, d := range src {
		it := planner.PlacedItem{
			ID:            d.ID,
			Type:          planner.ItemType(d.Type),
			SubType:       d.SubType,
			X:             d.X,
			Y:             d.Y,
			Rotation:      d.Rotation,
			FenceDistance: d.FenceDistance,
			CreatedAt:     d.CreatedAt,
		}
		it.FillDefaults()
		out = append(out, it)
	}
	return out
}

func cloneTemplates(src []planner.Template) []planner.Template {
	out := make([]planner.Template, len(src))
	for i, t := range src {
		out[i] = t.Clone()
	}
	return out
}
