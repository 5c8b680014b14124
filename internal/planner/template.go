package planner

import (
	"slices"
	"time"
)

// Template is a reusable preset for stations or equipment. Equipment is
// only meaningful for station templates.
type Template struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	WidthFt   float64  `json:"widthFt" yaml:"widthFt"`
	HeightFt  float64  `json:"heightFt" yaml:"heightFt"`
	Color     string   `json:"color" yaml:"color"`
	Equipment []string `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	CreatedAt int64    `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

func (t Template) Clone() Template {
	t.Equipment = slices.Clone(t.Equipment)
	return t
}

type TemplatePatch struct {
	Name      *string   `json:"name,omitempty"`
	WidthFt   *float64  `json:"widthFt,omitempty"`
	HeightFt  *float64  `json:"heightFt,omitempty"`
	Color     *string   `json:"color,omitempty"`
	Equipment *[]string `json:"equipment,omitempty"`
}

func (p TemplatePatch) Apply(t *Template) {
	set(&t.Name, p.Name)
	set(&t.WidthFt, p.WidthFt)
	set(&t.HeightFt, p.HeightFt)
	set(&t.Color, p.Color)
	if p.Equipment != nil {
		t.Equipment = slices.Clone(*p.Equipment)
	}
}

// StationItem builds the draft for placing a station template on the canvas.
func (t Template) StationItem(x, y float64) PlacedItem {
	return PlacedItem{
		Type:        ItemStation,
		StationName: t.Name,
		WidthFt:     t.WidthFt,
		HeightFt:    t.HeightFt,
		Color:       t.Color,
		Equipment:   slices.Clone(t.Equipment),
		X:           x,
		Y:           y,
	}
}

// EquipmentItem builds the draft for placing an equipment template.
func (t Template) EquipmentItem(x, y float64) PlacedItem {
	return PlacedItem{
		Type:          ItemEquipment,
		EquipmentName: t.Name,
		WidthFt:       t.WidthFt,
		HeightFt:      t.HeightFt,
		Color:         t.Color,
		X:             x,
		Y:             y,
	}
}

// Stamp sets CreatedAt if it is unset.
func (t *Template) Stamp(now time.Time) {
	if t.CreatedAt == 0 {
		t.CreatedAt = NowMillis(now)
	}
}
