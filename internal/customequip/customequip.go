// Package customequip remembers equipment names typed in by the user so
// they can be picked again for other stations. The list only lives in the
// local cache; writes are debounced.
package customequip

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fieldplanner/planner/internal/debounce"
	"github.com/fieldplanner/planner/internal/persist"
)

// CacheKey is the local cache record holding the list.
const CacheKey = "fieldPlanner_customEquipment"

// SaveDelay is how long the list must stay unchanged before it is written.
const SaveDelay = time.Second

// Builtin is the equipment offered before any custom names.
var Builtin = []string{
	"Cones",
	"Markers",
	"Hurdles",
	"Agility Ladder",
	"Balls",
	"Bats",
	"Tees",
	"Nets",
	"Resistance Bands",
	"Medicine Balls",
	"Buckets",
	"Throw Down Bases",
}

type List struct {
	cache  persist.Cache
	logger *slog.Logger
	save   *debounce.Timer

	mu    sync.Mutex
	names []string
}

// Load reads the saved list. A missing or unreadable record yields an
// empty list.
func Load(cache persist.Cache, logger *slog.Logger) *List {
	return LoadWithDelay(cache, logger, SaveDelay)
}

func LoadWithDelay(cache persist.Cache, logger *slog.Logger, delay time.Duration) *List {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &List{cache: cache, logger: logger, names: []string{}}
	l.save = debounce.New(delay, l.write)

	data, err := cache.Read(CacheKey)
	switch {
	case errors.Is(err, persist.ErrNotFound):
	case err != nil:
		logger.Warn("reading custom equipment", "error", err)
	default:
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			logger.Warn("decoding custom equipment", "error", err)
		} else if names != nil {
			l.names = names
		}
	}
	return l
}

// Add appends name after trimming it. Blank names and names already in the
// list, ignoring case, are skipped. It reports whether the list changed.
func (l *List) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	l.mu.Lock()
	if slices.ContainsFunc(l.names, func(n string) bool { return strings.EqualFold(n, name) }) {
		l.mu.Unlock()
		return false
	}
	l.names = append(slices.Clone(l.names), name)
	l.mu.Unlock()

	l.save.Arm()
	return true
}

// Remove deletes the exact name. It reports whether the list changed.
func (l *List) Remove(name string) bool {
	l.mu.Lock()
	i := slices.Index(l.names, name)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.names = slices.Delete(slices.Clone(l.names), i, i+1)
	l.mu.Unlock()

	l.save.Arm()
	return true
}

func (l *List) Clear() {
	l.mu.Lock()
	l.names = []string{}
	l.mu.Unlock()
	l.save.Arm()
}

func (l *List) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.names)
}

// Options is Builtin followed by the custom names not already in it.
func (l *List) Options() []string {
	out := slices.Clone(Builtin)
	for _, n := range l.Names() {
		if !slices.Contains(Builtin, n) {
			out = append(out, n)
		}
	}
	return out
}

// Flush writes a pending change now.
func (l *List) Flush() { l.save.Flush() }

// Close drops a pending write. Call Flush first to keep it.
func (l *List) Close() { l.save.Cancel() }

func (l *List) write() {
	names := l.Names()
	data, err := json.Marshal(names)
	if err != nil {
		l.logger.Warn("encoding custom equipment", "error", err)
		return
	}
	if err := l.cache.Write(CacheKey, data); err != nil {
		l.logger.Warn("writing custom equipment", "error", err)
	}
}
