// Package templates stores the reusable station and equipment presets.
// Station and equipment templates are separate collections with separate
// id namespaces.
package templates

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/replica"
	"github.com/fieldplanner/planner/internal/seed"
)

// Field is the remote document field holding the template list.
const Field = "templates"

type Store struct {
	rep      *replica.Replica[[]planner.Template]
	prefix   string
	defaults planner.Template
	now      func() time.Time

	seedOverride []planner.Template
	seedSet      bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSeed replaces the built-in seed list. A nil list disables seeding.
func WithSeed(list []planner.Template) Option {
	return func(s *Store) { s.seedOverride, s.seedSet = list, true }
}

// OpenStations opens the station templates of scope, seeding the built-in
// defaults on first use.
func OpenStations(ctx context.Context, cache persist.Cache, remote persist.Remote, scope string, logger *slog.Logger, opts ...Option) *Store {
	return open(ctx, cache, remote, persist.NewKey(persist.KindStationTemplates, scope), "template", planner.Template{
		WidthFt:  planner.DefaultStationSizeFt,
		HeightFt: planner.DefaultStationSizeFt,
		Color:    planner.DefaultStationColor,
	}, seed.StationTemplates, logger, opts)
}

// OpenEquipment opens the equipment templates of scope.
func OpenEquipment(ctx context.Context, cache persist.Cache, remote persist.Remote, scope string, logger *slog.Logger, opts ...Option) *Store {
	return open(ctx, cache, remote, persist.NewKey(persist.KindEquipmentTemplates, scope), "equipment", planner.Template{
		WidthFt:  planner.DefaultEquipmentSizeFt,
		HeightFt: planner.DefaultEquipmentSizeFt,
		Color:    planner.DefaultEquipmentColor,
	}, seed.EquipmentTemplates, logger, opts)
}

func open(ctx context.Context, cache persist.Cache, remote persist.Remote, key persist.Key, prefix string, defaults planner.Template, seedFn func() []planner.Template, logger *slog.Logger, opts []Option) *Store {
	s := &Store{prefix: prefix, defaults: defaults, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.seedSet {
		list := s.seedOverride
		seedFn = nil
		if list != nil {
			seedFn = func() []planner.Template { return slices.Clone(list) }
		}
	}

	ro := replica.Options[[]planner.Template]{
		Key:     key,
		Field:   Field,
		Initial: func() []planner.Template { return []planner.Template{} },
		Seed:    seedFn,
		Logger:  logger,
	}
	s.rep = replica.Open(ctx, cache, remote, ro)
	return s
}

// Save stores draft as a new template and returns its id. Missing size and
// color take the collection's defaults.
func (s *Store) Save(draft planner.Template) string {
	t := draft.Clone()
	t.ID = planner.NewID(s.prefix)
	t.CreatedAt = 0
	t.Stamp(s.now())
	if t.WidthFt <= 0 {
		t.WidthFt = s.defaults.WidthFt
	}
	if t.HeightFt <= 0 {
		t.HeightFt = s.defaults.HeightFt
	}
	if t.Color == "" {
		t.Color = s.defaults.Color
	}

	s.rep.Mutate(func(cur []planner.Template) []planner.Template {
		for slices.ContainsFunc(cur, func(x planner.Template) bool { return x.ID == t.ID }) {
			t.ID = planner.NewID(s.prefix)
		}
		return append(slices.Clone(cur), t)
	})
	return t.ID
}

// Update applies p to the template. It reports whether the template exists.
func (s *Store) Update(id string, p planner.TemplatePatch) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}
	var found bool
	s.rep.Mutate(func(cur []planner.Template) []planner.Template {
		next := slices.Clone(cur)
		for i := range next {
			if next[i].ID == id {
				t := next[i].Clone()
				p.Apply(&t)
				next[i] = t
				found = true
				break
			}
		}
		return next
	})
	return found
}

// Delete removes the template. It reports whether the template existed.
func (s *Store) Delete(id string) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}
	var found bool
	s.rep.Mutate(func(cur []planner.Template) []planner.Template {
		next := make([]planner.Template, 0, len(cur))
		for _, t := range cur {
			if t.ID == id {
				found = true
				continue
			}
			next = append(next, t)
		}
		return next
	})
	return found
}

func (s *Store) Get(id string) (planner.Template, bool) {
	cur := s.rep.Value()
	i := slices.IndexFunc(cur, func(t planner.Template) bool { return t.ID == id })
	if i < 0 {
		return planner.Template{}, false
	}
	return cur[i].Clone(), true
}

// Templates returns a copy of the list in insertion order.
func (s *Store) Templates() []planner.Template {
	cur := s.rep.Value()
	out := make([]planner.Template, len(cur))
	for i, t := range cur {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) Watch(fn func([]planner.Template)) func() {
	return s.rep.Watch(func([]planner.Template) { fn(s.Templates()) })
}

func (s *Store) Status() replica.Status { return s.rep.Status() }

func (s *Store) Flush(ctx context.Context) error { return s.rep.Flush(ctx) }

func (s *Store) Close() { s.rep.Close() }
