// Package planner defines the core domain types of the field planner:
// placed items, reusable templates and per-scope settings.
package planner

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultScope is the layout/template scope used when none is given.
const DefaultScope = "default"

// NewID returns prefix_<uuid v7>. Version 7 ids carry a millisecond
// timestamp plus random bits, so they do not collide across restarts even
// when the wall clock steps backwards.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "_" + id.String()
}

// NowMillis returns t as epoch milliseconds, the timestamp unit stored on
// items and templates.
func NowMillis(t time.Time) int64 { return t.UnixMilli() }

// NormalizeRotation wraps degrees into [0, 360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
