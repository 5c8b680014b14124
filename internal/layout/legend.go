package layout

import (
	"slices"

	"github.com/fieldplanner/planner/internal/planner"
)

type LegendStation struct {
	Name      string   `json:"name"`
	WidthFt   float64  `json:"widthFt"`
	HeightFt  float64  `json:"heightFt"`
	Color     string   `json:"color"`
	Equipment []string `json:"equipment"`
}

type LegendNote struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Legend is what the printable export lists next to the field image.
type Legend struct {
	Stations []LegendStation `json:"stations"`
	Notes    []LegendNote    `json:"notes"`
}

// BuildLegend collects stations and notes from items in list order.
func BuildLegend(items []planner.PlacedItem) Legend {
	l := Legend{Stations: []LegendStation{}, Notes: []LegendNote{}}
	for _, it := range items {
		it.FillDefaults()
		switch it.Type {
		case planner.ItemStation:
			l.Stations = append(l.Stations, LegendStation{
				Name:      it.StationName,
				WidthFt:   it.WidthFt,
				HeightFt:  it.HeightFt,
				Color:     it.Color,
				Equipment: append([]string{}, it.Equipment...),
			})
		case planner.ItemNote:
			l.Notes = append(l.Notes, LegendNote{Text: it.NoteText, Color: it.NoteColor})
		}
	}
	return l
}

func (s *Store) Legend() Legend { return BuildLegend(s.rep.Value()) }

// HasEquipment reports whether any station in the legend lists equipment.
func (l Legend) HasEquipment() bool {
	return slices.ContainsFunc(l.Stations, func(st LegendStation) bool { return len(st.Equipment) > 0 })
}
