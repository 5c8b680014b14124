// Package layout is the store of items placed on one layout's canvas.
package layout

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/replica"
)

// Field is the remote document field holding the item list.
const Field = "items"

// Store holds the ordered item list of one scope. Every mutation updates
// memory, writes the local cache and queues a push of the whole list.
// Mutations of an id that is not present change nothing and persist nothing.
type Store struct {
	rep *replica.Replica[[]planner.PlacedItem]
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now for createdAt/updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the layout for scope from cache, then follows the remote
// document. A nil seed leaves a fresh layout empty.
func Open(ctx context.Context, cache persist.Cache, remote persist.Remote, scope string, seed []planner.PlacedItem, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}

	ro := replica.Options[[]planner.PlacedItem]{
		Key:     persist.NewKey(persist.KindLayout, scope),
		Field:   Field,
		Initial: func() []planner.PlacedItem { return []planner.PlacedItem{} },
		Logger:  logger,
	}
	if seed != nil {
		ro.Seed = func() []planner.PlacedItem { return Normalize(seed, s.now()) }
	}
	s.rep = replica.Open(ctx, cache, remote, ro)
	return s
}

// Add assigns a fresh id and createdAt to draft, fills the variant defaults
// and appends it. It returns the new id.
func (s *Store) Add(draft planner.PlacedItem) string {
	it := planner.NewItem(draft, s.now())
	s.rep.Mutate(func(cur []planner.PlacedItem) []planner.PlacedItem {
		for slices.ContainsFunc(cur, func(x planner.PlacedItem) bool { return x.ID == it.ID }) {
			it.ID = planner.NewID("item")
		}
		return append(slices.Clone(cur), it)
	})
	return it.ID
}

// Update merges p into the item and stamps updatedAt. It reports whether
// the item exists.
func (s *Store) Update(id string, p planner.ItemPatch) bool {
	return s.modify(id, func(it *planner.PlacedItem) {
		p.Apply(it, s.now())
	})
}

func (s *Store) Move(id string, x, y float64) bool {
	return s.Update(id, planner.Position(x, y))
}

// Rotate adds delta degrees to the item's rotation, wrapping into [0, 360).
func (s *Store) Rotate(id string, delta float64) bool {
	return s.modify(id, func(it *planner.PlacedItem) {
		r := it.Rotation + delta
		planner.ItemPatch{Rotation: &r}.Apply(it, s.now())
	})
}

// Remove deletes the item. It reports whether the item existed.
func (s *Store) Remove(id string) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}
	var found bool
	s.rep.Mutate(func(cur []planner.PlacedItem) []planner.PlacedItem {
		next := make([]planner.PlacedItem, 0, len(cur))
		for _, it := range cur {
			if it.ID == id {
				found = true
				continue
			}
			next = append(next, it)
		}
		return next
	})
	return found
}

func (s *Store) Clear() {
	s.rep.Replace([]planner.PlacedItem{})
}

// ReplaceAll swaps in a whole new list, as an import does. Items without
// an id, or repeating an earlier id, get a fresh one; defaults are filled.
func (s *Store) ReplaceAll(items []planner.PlacedItem) {
	next := Normalize(items, s.now())
	s.rep.Replace(next)
}

func (s *Store) Get(id string) (planner.PlacedItem, bool) {
	cur := s.rep.Value()
	i := slices.IndexFunc(cur, func(it planner.PlacedItem) bool { return it.ID == id })
	if i < 0 {
		return planner.PlacedItem{}, false
	}
	return cur[i].Clone(), true
}

// Items returns a copy of the list in insertion order.
func (s *Store) Items() []planner.PlacedItem {
	cur := s.rep.Value()
	out := make([]planner.PlacedItem, len(cur))
	for i, it := range cur {
		out[i] = it.Clone()
	}
	return out
}

func (s *Store) Len() int { return len(s.rep.Value()) }

// Watch calls fn with a copy of the list after every change.
func (s *Store) Watch(fn func([]planner.PlacedItem)) func() {
	return s.rep.Watch(func([]planner.PlacedItem) { fn(s.Items()) })
}

func (s *Store) Status() replica.Status { return s.rep.Status() }

func (s *Store) Flush(ctx context.Context) error { return s.rep.Flush(ctx) }

func (s *Store) Close() { s.rep.Close() }

func (s *Store) modify(id string, fn func(*planner.PlacedItem)) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}
	var found bool
	s.rep.Mutate(func(cur []planner.PlacedItem) []planner.PlacedItem {
		next := slices.Clone(cur)
		for i := range next {
			if next[i].ID == id {
				it := next[i].Clone()
				fn(&it)
				next[i] = it
				found = true
				break
			}
		}
		return next
	})
	return found
}

// Normalize gives every item a unique id and a createdAt and fills the
// variant defaults, keeping list order.
func Normalize(items []planner.PlacedItem, now time.Time) []planner.PlacedItem {
	out := make([]planner.PlacedItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		it = it.Clone()
		if it.ID == "" || seen[it.ID] {
			it.ID = planner.NewID("item")
		}
		if it.CreatedAt == 0 {
			it.CreatedAt = planner.NowMillis(now)
		}
		it.FillDefaults()
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
