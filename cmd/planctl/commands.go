package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fieldplanner/planner/internal/field"
	"github.com/fieldplanner/planner/internal/layoutfile"
	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/replica"
	"github.com/fieldplanner/planner/internal/templates"
)

func cmdStatus(ctx context.Context, a *app, w io.Writer) error {
	items, err := a.layout(ctx)
	if err != nil {
		return err
	}
	stations, err := a.stationTemplates(ctx)
	if err != nil {
		return err
	}
	equipment, err := a.equipmentTemplates(ctx)
	if err != nil {
		return err
	}
	set, err := a.settings(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "scope\t%s\n", a.cfg.Scope)
	fmt.Fprintf(tw, "items\t%d\t%s\n", items.Len(), describe(items.Status()))
	fmt.Fprintf(tw, "station templates\t%d\t%s\n", len(stations.Templates()), describe(stations.Status()))
	fmt.Fprintf(tw, "equipment templates\t%d\t%s\n", len(equipment.Templates()), describe(equipment.Status()))

	st := set.Settings()
	logo := "none"
	if st.LogoURL != nil {
		logo = *st.LogoURL
	}
	fmt.Fprintf(tw, "logo\t%s (%g°)\t%s\n", logo, st.LogoRotation, describe(set.Status()))

	canvas, center := field.CanvasDimensions(), field.FieldCenter()
	fmt.Fprintf(tw, "canvas\t%g×%g px\tfield center %g,%g\n", canvas.Width, canvas.Height, center.X, center.Y)
	return tw.Flush()
}

func describe(st replica.Status) string {
	switch {
	case st.Err != nil:
		return "error: " + st.Err.Error()
	case st.Syncing:
		return "syncing"
	case st.Synced:
		return "synced"
	default:
		return "cached"
	}
}

func cmdExport(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	s, err := a.layout(ctx)
	if err != nil {
		return err
	}

	w := stdout
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return layoutfile.Export(w, s.Items(), time.Now())
}

func cmdImport(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: planctl import <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	items, err := layoutfile.Import(f)
	if err != nil {
		return err
	}

	s, err := a.layout(ctx)
	if err != nil {
		return err
	}
	s.ReplaceAll(items)
	if err := a.flush(ctx, s.Flush, s.Status); err != nil {
		return err
	}
	fmt.Fprintf(w, "imported %d items into %s\n", s.Len(), a.cfg.Scope)
	return nil
}

func cmdLegend(ctx context.Context, a *app, w io.Writer) error {
	s, err := a.layout(ctx)
	if err != nil {
		return err
	}
	legend := s.Legend()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(legend.Stations) > 0 {
		fmt.Fprintln(tw, "STATION\tSIZE\tCOLOR\tEQUIPMENT")
		for _, st := range legend.Stations {
			fmt.Fprintf(tw, "%s\t%g×%g ft\t%s\t%s\n", st.Name, st.WidthFt, st.HeightFt, st.Color, strings.Join(st.Equipment, ", "))
		}
	}
	if len(legend.Notes) > 0 {
		fmt.Fprintln(tw, "NOTE\tCOLOR")
		for _, n := range legend.Notes {
			fmt.Fprintf(tw, "%s\t%s\n", n.Text, n.Color)
		}
	}
	return tw.Flush()
}

func cmdTemplates(ctx context.Context, a *app, equipment bool, args []string, w io.Writer) error {
	open := a.stationTemplates
	if equipment {
		open = a.equipmentTemplates
	}
	s, err := open(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		if err := editTemplates(s, args, w); err != nil {
			return err
		}
		return a.flush(ctx, s.Flush, s.Status)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tCOLOR\tEQUIPMENT")
	for _, t := range s.Templates() {
		fmt.Fprintf(tw, "%s\t%s\t%g×%g ft\t%s\t%s\n", t.ID, t.Name, t.WidthFt, t.HeightFt, t.Color, strings.Join(t.Equipment, ", "))
	}
	return tw.Flush()
}

func editTemplates(s *templates.Store, args []string, w io.Writer) error {
	switch args[0] {
	case "save":
		if len(args) < 5 {
			return errors.New("usage: save <name> <widthFt> <heightFt> <color> [equipment...]")
		}
		width, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("parsing width: %w", err)
		}
		height, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("parsing height: %w", err)
		}
		id := s.Save(planner.Template{
			Name:      args[1],
			WidthFt:   width,
			HeightFt:  height,
			Color:     args[4],
			Equipment: args[5:],
		})
		fmt.Fprintf(w, "saved %s\n", id)
	case "rename":
		if len(args) != 3 {
			return errors.New("usage: rename <id> <name>")
		}
		if !s.Update(args[1], planner.TemplatePatch{Name: &args[2]}) {
			return fmt.Errorf("no template %q", args[1])
		}
		fmt.Fprintf(w, "renamed %s\n", args[1])
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: rm <id>")
		}
		if !s.Delete(args[1]) {
			return fmt.Errorf("no template %q", args[1])
		}
		fmt.Fprintf(w, "deleted %s\n", args[1])
	default:
		return fmt.Errorf("unknown templates action %q", args[0])
	}
	return nil
}

func cmdClear(ctx context.Context, a *app, w io.Writer) error {
	s, err := a.layout(ctx)
	if err != nil {
		return err
	}
	n := s.Len()
	s.Clear()
	if err := a.flush(ctx, s.Flush, s.Status); err != nil {
		return err
	}
	fmt.Fprintf(w, "removed %d items\n", n)
	return nil
}

func cmdLogo(ctx context.Context, a *app, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: planctl logo rotate|clear")
	}
	s, err := a.settings(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "rotate":
		deg := s.RotateLogo()
		fmt.Fprintf(w, "logo rotation %g°\n", deg)
	case "clear":
		s.ClearLogo()
		fmt.Fprintln(w, "logo removed")
	default:
		return fmt.Errorf("unknown logo action %q", args[0])
	}
	return a.flush(ctx, s.Flush, s.Status)
}

func cmdNames(a *app, args []string, w io.Writer) error {
	l := a.customEquipment()

	if len(args) > 0 {
		if len(args) != 2 {
			return errors.New("usage: planctl names [add|rm] <name>")
		}
		switch args[0] {
		case "add":
			if !l.Add(args[1]) {
				return fmt.Errorf("%q is empty or already listed", args[1])
			}
		case "rm":
			if !l.Remove(args[1]) {
				return fmt.Errorf("%q is not a custom name", args[1])
			}
		default:
			return fmt.Errorf("unknown names action %q", args[0])
		}
	}

	for _, name := range l.Options() {
		fmt.Fprintln(w, name)
	}
	return nil
}

func cmdLogin(a *app, w io.Writer) error {
	if a.client == nil {
		return errors.New("login needs PLANNER_URL, not PLANNER_DB")
	}
	if a.cfg.Password == "" {
		return errors.New("PLANNER_PASSWORD is not set")
	}
	fmt.Fprintln(w, a.client.Token())
	return nil
}

// cmdForget drops the scope's cached collections so the next command starts
// from the remote copy.
func cmdForget(a *app, w io.Writer) error {
	if a.sqlCache == nil {
		return errors.New("no local cache")
	}
	kinds := []persist.Kind{
		persist.KindLayout,
		persist.KindStationTemplates,
		persist.KindEquipmentTemplates,
		persist.KindSettings,
	}
	for _, k := range kinds {
		if err := a.sqlCache.Delete(persist.NewKey(k, a.cfg.Scope).CacheKey()); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "forgot cached %s collections\n", a.cfg.Scope)
	return nil
}
