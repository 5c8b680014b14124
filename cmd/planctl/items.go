package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fieldplanner/planner/internal/field"
	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/templates"
)

// defaultRotateStep matches a double-click on the canvas.
const defaultRotateStep = 45.0

func cmdItems(ctx context.Context, a *app, w io.Writer) error {
	s, err := a.layout(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tX\tY\tROTATION")
	for _, it := range s.Items() {
		typ := string(it.Type)
		if !it.Type.Known() {
			typ += " (unknown)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\t%g°\n", it.ID, typ, itemName(it), it.X, it.Y, it.Rotation)
	}
	return tw.Flush()
}

func itemName(it planner.PlacedItem) string {
	switch it.Type {
	case planner.ItemStation:
		return it.StationName
	case planner.ItemEquipment:
		return it.EquipmentName
	case planner.ItemNote:
		return it.NoteText
	}
	return it.Label
}

// footprint is the item's size on the canvas in pixels.
func footprint(it planner.PlacedItem) (w, h float64) {
	switch {
	case it.WidthFt > 0:
		return field.FeetToPixels(it.WidthFt), field.FeetToPixels(it.HeightFt)
	case it.Type == planner.ItemCoach:
		return field.CoachSizePx, field.CoachSizePx
	case it.Type == planner.ItemEquipment:
		return field.EquipmentSizePx, field.EquipmentSizePx
	}
	return 0, 0
}

func cmdPlace(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) != 2 && len(args) != 4 {
		return errors.New("usage: planctl place station|equipment <template> [x y]")
	}

	var open func(context.Context) (*templates.Store, error)
	switch args[0] {
	case "station":
		open = a.stationTemplates
	case "equipment":
		open = a.equipmentTemplates
	default:
		return fmt.Errorf("unknown template kind %q", args[0])
	}
	ts, err := open(ctx)
	if err != nil {
		return err
	}
	t, ok := findTemplate(ts, args[1])
	if !ok {
		return fmt.Errorf("no %s template %q", args[0], args[1])
	}

	at := field.CanvasCenter()
	if len(args) == 4 {
		if at, err = parsePoint(args[2], args[3]); err != nil {
			return err
		}
	}

	draft := t.StationItem(at.X, at.Y)
	if args[0] == "equipment" {
		draft = t.EquipmentItem(at.X, at.Y)
	}
	pw, ph := footprint(draft)
	p := field.ConstrainToCanvas(draft.X, draft.Y, pw, ph)
	draft.X, draft.Y = p.X, p.Y

	s, err := a.layout(ctx)
	if err != nil {
		return err
	}
	id := s.Add(draft)
	if err := a.flush(ctx, s.Flush, s.Status); err != nil {
		return err
	}
	fmt.Fprintf(w, "placed %s at %g,%g\n", id, p.X, p.Y)
	return nil
}

// findTemplate matches by id first, then by name ignoring case.
func findTemplate(s *templates.Store, ref string) (planner.Template, bool) {
	if t, ok := s.Get(ref); ok {
		return t, true
	}
	for _, t := range s.Templates() {
		if strings.EqualFold(t.Name, ref) {
			return t, true
		}
	}
	return planner.Template{}, false
}

func cmdMove(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) != 3 {
		return errors.New("usage: planctl move <id> <x> <y>")
	}
	at, err := parsePoint(args[1], args[2])
	if err != nil {
		return err
	}

	s, err := a.layout(ctx)
	if err != nil {
		return err
	}
	it, ok := s.Get(args[0])
	if !ok {
		return fmt.Errorf("no item %q", args[0])
	}
	pw, ph := footprint(it)
	p := field.ConstrainToCanvas(at.X, at.Y, pw, ph)
	s.Move(it.ID, p.X, p.Y)
	if err := a.flush(ctx, s.Flush, s.Status); err != nil {
		return err
	}
	fmt.Fprintf(w, "moved %s to %g,%g\n", it.ID, p.X, p.Y)
	return nil
}

func cmdRotate(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) != 1 && len(args) != 2 {
		return errors.New("usage: planctl rotate <id> [degrees]")
	}
	delta := defaultRotateStep
	if len(args) == 2 {
		var err error
		if delta, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("parsing degrees: %w", err)
		}
	}

	s, err := a.layout(ctx)
	if err != nil {
		return err
	}
	if !s.Rotate(args[0], delta) {
		return fmt.Errorf("no item %q", args[0])
	}
	if err := a.flush(ctx, s.Flush, s.Status); err != nil {
		return err
	}
	it, _ := s.Get(args[0])
	fmt.Fprintf(w, "rotated %s to %g°\n", it.ID, it.Rotation)
	return nil
}

func cmdRemove(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: planctl rm <id>")
	}
	s, err := a.layout(ctx)
	if err != nil {
		return err
	}
	if !s.Remove(args[0]) {
		return fmt.Errorf("no item %q", args[0])
	}
	if err := a.flush(ctx, s.Flush, s.Status); err != nil {
		return err
	}
	fmt.Fprintf(w, "removed %s\n", args[0])
	return nil
}

func parsePoint(xs, ys string) (field.Point, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return field.Point{}, fmt.Errorf("parsing x: %w", err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return field.Point{}, fmt.Errorf("parsing y: %w", err)
	}
	return field.Point{X: x, Y: y}, nil
}
