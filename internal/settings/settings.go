// Package settings stores the per-scope display settings (center logo).
package settings

import (
	"context"
	"log/slog"

	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/replica"
)

// Store keeps one Settings record. The remote document's top-level fields
// are the record's fields.
type Store struct {
	rep *replica.Replica[planner.Settings]
}

func Open(ctx context.Context, cache persist.Cache, remote persist.Remote, scope string, logger *slog.Logger) *Store {
	return &Store{rep: replica.Open(ctx, cache, remote, replica.Options[planner.Settings]{
		Key:     persist.NewKey(persist.KindSettings, scope),
		Initial: planner.DefaultSettings,
		Logger:  logger,
	})}
}

func (s *Store) Settings() planner.Settings {
	v := s.rep.Value()
	if v.LogoURL != nil {
		u := *v.LogoURL
		v.LogoURL = &u
	}
	return v
}

func (s *Store) SetLogoURL(url string) {
	s.rep.Mutate(func(cur planner.Settings) planner.Settings {
		cur.LogoURL = &url
		return cur
	})
}

func (s *Store) ClearLogo() {
	s.rep.Mutate(func(cur planner.Settings) planner.Settings {
		cur.LogoURL = nil
		return cur
	})
}

func (s *Store) SetLogoRotation(deg float64) {
	s.rep.Mutate(func(cur planner.Settings) planner.Settings {
		cur.LogoRotation = planner.NormalizeRotation(deg)
		return cur
	})
}

// RotateLogo turns the logo a quarter turn clockwise.
func (s *Store) RotateLogo() float64 {
	var next float64
	s.rep.Mutate(func(cur planner.Settings) planner.Settings {
		cur.LogoRotation = planner.NormalizeRotation(cur.LogoRotation + 90)
		next = cur.LogoRotation
		return cur
	})
	return next
}

func (s *Store) Watch(fn func(planner.Settings)) func() { return s.rep.Watch(fn) }

func (s *Store) Status() replica.Status { return s.rep.Status() }

func (s *Store) Flush(ctx context.Context) error { return s.rep.Flush(ctx) }

func (s *Store) Close() { s.rep.Close() }
