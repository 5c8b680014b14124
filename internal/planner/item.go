package planner

import (
	"slices"
	"time"
)

type ItemType string

const (
	ItemSoftballInfield   ItemType = "softball-infield"
	ItemFullSoftballField ItemType = "full-softball-field"
	ItemStation           ItemType = "station"
	ItemNote              ItemType = "note"
	ItemCoach             ItemType = "coach"
	ItemEquipment         ItemType = "equipment"
	ItemOther             ItemType = "other"
)

// Known reports whether t is one of the defined variants.
func (t ItemType) Known() bool {
	switch t {
	case ItemSoftballInfield, ItemFullSoftballField, ItemStation,
		ItemNote, ItemCoach, ItemEquipment, ItemOther:
		return true
	}
	return false
}

// Defaults applied when an item is created or loaded.
const (
	DefaultStationName     = "Station"
	DefaultStationSizeFt   = 20.0
	DefaultStationColor    = "#3b82f6"
	DefaultEquipmentName   = "Equipment"
	DefaultEquipmentSizeFt = 5.0
	DefaultEquipmentColor  = "#6b7280"
	DefaultNoteText        = "Note"
	DefaultNoteColor       = "#fef3c7"
	DefaultFenceDistance   = 200.0
	LongFenceDistance      = 220.0
	DefaultInfieldSubType  = "regulation"
)

// PlacedItem is an entity on the canvas. X and Y are in canvas pixels;
// WidthFt and HeightFt are the physical footprint. Which of the optional
// fields are meaningful depends on Type.
type PlacedItem struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	SubType  string   `json:"subType,omitempty"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Rotation float64  `json:"rotation"`

	Label         string `json:"label,omitempty"`
	RequiresLabel bool   `json:"requiresLabel,omitempty"`
	IconPath      string `json:"iconPath,omitempty"`

	StationName   string   `json:"stationName,omitempty"`
	Equipment     []string `json:"equipment,omitempty"`
	NoteText      string   `json:"noteText,omitempty"`
	NoteColor     string   `json:"noteColor,omitempty"`
	EquipmentName string   `json:"equipmentName,omitempty"`

	WidthFt       float64 `json:"widthFt,omitempty"`
	HeightFt      float64 `json:"heightFt,omitempty"`
	Color         string  `json:"color,omitempty"`
	FenceDistance float64 `json:"fenceDistance,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// NewItem turns a draft into a stored item: a fresh id, createdAt and every
// variant default filled in. Any id already on the draft is ignored.
func NewItem(draft PlacedItem, now time.Time) PlacedItem {
	it := draft.Clone()
	it.ID = NewID("item")
	it.CreatedAt = NowMillis(now)
	it.UpdatedAt = 0
	it.FillDefaults()
	return it
}

// FillDefaults populates the per-variant defaults so consumers never need
// fallback values of their own.
func (it *PlacedItem) FillDefaults() {
	if it.Type == "" {
		it.Type = ItemOther
	}
	it.Rotation = NormalizeRotation(it.Rotation)

	switch it.Type {
	case ItemStation:
		if it.StationName == "" {
			it.StationName = DefaultStationName
		}
		if it.WidthFt <= 0 {
			it.WidthFt = DefaultStationSizeFt
		}
		if it.HeightFt <= 0 {
			it.HeightFt = DefaultStationSizeFt
		}
		if it.Color == "" {
			it.Color = DefaultStationColor
		}
	case ItemEquipment:
		if it.EquipmentName == "" {
			it.EquipmentName = DefaultEquipmentName
		}
		if it.WidthFt <= 0 {
			it.WidthFt = DefaultEquipmentSizeFt
		}
		if it.HeightFt <= 0 {
			it.HeightFt = DefaultEquipmentSizeFt
		}
		if it.Color == "" {
			it.Color = DefaultEquipmentColor
		}
	case ItemNote:
		if it.NoteText == "" {
			it.NoteText = DefaultNoteText
		}
		if it.NoteColor == "" {
			it.NoteColor = DefaultNoteColor
		}
	case ItemFullSoftballField:
		if it.FenceDistance <= 0 {
			it.FenceDistance = DefaultFenceDistance
			if it.SubType == "220ft" {
				it.FenceDistance = LongFenceDistance
			}
		}
	case ItemSoftballInfield:
		if it.SubType == "" {
			it.SubType = DefaultInfieldSubType
		}
	}
}

// Clone returns a copy that shares no slices with it.
func (it PlacedItem) Clone() PlacedItem {
	it.Equipment = slices.Clone(it.Equipment)
	return it
}

// ItemPatch is a partial update. Nil fields are left untouched; ID, Type and
// CreatedAt cannot be patched.
type ItemPatch struct {
	SubType  *string  `json:"subType,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`

	Label         *string `json:"label,omitempty"`
	RequiresLabel *bool   `json:"requiresLabel,omitempty"`
	IconPath      *string `json:"iconPath,omitempty"`

	StationName   *string   `json:"stationName,omitempty"`
	Equipment     *[]string `json:"equipment,omitempty"`
	NoteText      *string   `json:"noteText,omitempty"`
	NoteColor     *string   `json:"noteColor,omitempty"`
	EquipmentName *string   `json:"equipmentName,omitempty"`

	WidthFt       *float64 `json:"widthFt,omitempty"`
	HeightFt      *float64 `json:"heightFt,omitempty"`
	Color         *string  `json:"color,omitempty"`
	FenceDistance *float64 `json:"fenceDistance,omitempty"`
}

// Position is the patch used by a move.
func Position(x, y float64) ItemPatch {
	return ItemPatch{X: &x, Y: &y}
}

// Apply merges p into it and stamps UpdatedAt.
func (p ItemPatch) Apply(it *PlacedItem, now time.Time) {
	set(&it.SubType, p.SubType)
	set(&it.X, p.X)
	set(&it.Y, p.Y)
	if p.Rotation != nil {
		it.Rotation = NormalizeRotation(*p.Rotation)
	}
	set(&it.Label, p.Label)
	set(&it.RequiresLabel, p.RequiresLabel)
	set(&it.IconPath, p.IconPath)
	set(&it.StationName, p.StationName)
	if p.Equipment != nil {
		it.Equipment = slices.Clone(*p.Equipment)
	}
	set(&it.NoteText, p.NoteText)
	set(&it.NoteColor, p.NoteColor)
	set(&it.EquipmentName, p.EquipmentName)
	set(&it.WidthFt, p.WidthFt)
	set(&it.HeightFt, p.HeightFt)
	set(&it.Color, p.Color)
	set(&it.FenceDistance, p.FenceDistance)

	it.UpdatedAt = max(NowMillis(now), it.CreatedAt)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
