// Package field holds the fixed dimensions of the reference field and the
// conversions between physical feet and canvas pixels. All placed items live
// in pixel space; conversion is exact and never rounds.
package field

// Scale is the number of canvas pixels per foot.
const Scale = 3.0

// Football field, in feet.
const (
	FootballFieldLength   = 300.0
	FootballEndzoneLength = 30.0
	FootballTotalLength   = 360.0
	FootballWidth         = 160.0
	YardLineSpacing       = 15.0
	HashFromSideline      = 60.0
)

// Running track, in feet. TrackTotalWidth is one side.
const (
	TrackLaneWidth  = 5.25
	TrackLaneCount  = 8
	TrackTotalWidth = 42.0
)

// Canvas size in feet: field plus track on every side (244 x 444 ft).
const (
	CanvasWidthFt  = FootballWidth + TrackTotalWidth*2
	CanvasHeightFt = FootballTotalLength + TrackTotalWidth*2
)

// Center logo, in feet.
const (
	LogoWidthFt  = 150.0
	LogoHeightFt = 150.0
)

// Softball diamond, in feet.
const (
	SoftballBaseline       = 60.0
	SoftballPitchDistance  = 43.0
	SoftballCircleRadius   = 8.0
	SoftballBaseSize       = 2.0
	SoftballOutfieldRadius = 220.0
)

// Fixed icon sizes, already in pixels.
const (
	CoachSizePx     = 48.0
	EquipmentSizePx = 40.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func FeetToPixels(feet float64) float64 { return feet * Scale }

func PixelsToFeet(pixels float64) float64 { return pixels / Scale }

// FieldOrigin is the top-left corner of the football field, inset by the track.
func FieldOrigin() Point {
	return Point{
		X: FeetToPixels(TrackTotalWidth),
		Y: FeetToPixels(TrackTotalWidth),
	}
}

func FieldCenter() Point {
	o := FieldOrigin()
	return Point{
		X: o.X + FeetToPixels(FootballWidth)/2,
		Y: o.Y + FeetToPixels(FootballTotalLength)/2,
	}
}

// CanvasDimensions returns the canvas size in pixels (732 x 1332 at Scale 3).
func CanvasDimensions() Size {
	return Size{
		Width:  FeetToPixels(CanvasWidthFt),
		Height: FeetToPixels(CanvasHeightFt),
	}
}

// CanvasCenter is where items created from a form land by default.
func CanvasCenter() Point {
	c := CanvasDimensions()
	return Point{X: c.Width / 2, Y: c.Height / 2}
}

// ConstrainToCanvas clamps (x, y) so that an item of the given pixel size
// stays fully on the canvas.
func ConstrainToCanvas(x, y, itemWidth, itemHeight float64) Point {
	c := CanvasDimensions()
	return Point{
		X: max(0, min(x, c.Width-itemWidth)),
		Y: max(0, min(y, c.Height-itemHeight)),
	}
}
