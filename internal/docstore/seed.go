package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/seed"
)

// SeedDemo writes the demo layout to the default layout document if that
// document does not exist yet. It reports whether anything was written.
func (s *Store) SeedDemo(ctx context.Context) (bool, error) {
	key := persist.NewKey(persist.KindLayout, "")
	_, err := s.Get(ctx, key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, persist.ErrNotFound) {
		return false, err
	}

	items, err := json.Marshal(seed.DemoLayout())
	if err != nil {
		return false, fmt.Errorf("encoding demo layout: %w", err)
	}
	if _, err := s.Merge(ctx, key, map[string]json.RawMessage{"items": items}); err != nil {
		return false, fmt.Errorf("seeding demo layout: %w", err)
	}
	s.logger.Info("demo layout seeded", "key", key.String())
	return true, nil
}
