package templates_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/templates"
)

func flush(t *testing.T, s *templates.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
}

func TestStationSeedPersistsOnce(t *testing.T) {
	cache := persist.NewMemCache()
	remote := persist.NewMemRemote()
	key := persist.NewKey(persist.KindStationTemplates, "default")

	first := templates.OpenStations(context.Background(), cache, remote, "", nil)
	flush(t, first)
	require.Len(t, first.Templates(), 6)
	assert.Equal(t, "Throwing Warmups", first.Templates()[0].Name)
	first.Close()

	doc, err := remote.Get(context.Background(), key)
	require.NoError(t, err)
	var pushed []planner.Template
	require.NoError(t, json.Unmarshal(doc.Fields[templates.Field], &pushed))
	assert.Len(t, pushed, 6)

	second := templates.OpenStations(context.Background(), cache, remote, "", nil)
	defer second.Close()
	flush(t, second)
	assert.Len(t, second.Templates(), 6)
	assert.Equal(t, 1, remote.Merges(key))

	// A device with an empty cache picks the seeded list up from the remote.
	third := templates.OpenStations(context.Background(), persist.NewMemCache(), remote, "", nil)
	defer third.Close()
	flush(t, third)
	assert.Len(t, third.Templates(), 6)
	assert.Equal(t, 1, remote.Merges(key))
}

func TestEquipmentStartsEmpty(t *testing.T) {
	s := templates.OpenEquipment(context.Background(), persist.NewMemCache(), persist.NewMemRemote(), "", nil)
	defer s.Close()
	assert.Empty(t, s.Templates())
}

func TestSaveUpdateDelete(t *testing.T) {
	now := time.UnixMilli(1_771_000_000_000)
	s := templates.OpenStations(context.Background(), persist.NewMemCache(), persist.NewMemRemote(), "", nil,
		templates.WithSeed(nil),
		templates.WithClock(func() time.Time { return now }))
	defer s.Close()

	id := s.Save(planner.Template{Name: "Bunting", Equipment: []string{"Helmets"}})
	assert.True(t, strings.HasPrefix(id, "template_"))

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Bunting", got.Name)
	assert.Equal(t, planner.DefaultStationSizeFt, got.WidthFt)
	assert.Equal(t, planner.DefaultStationColor, got.Color)
	assert.Equal(t, now.UnixMilli(), got.CreatedAt)

	name := "Bunting Drills"
	equipment := []string{"Helmets", "Balls"}
	require.True(t, s.Update(id, planner.TemplatePatch{Name: &name, Equipment: &equipment}))
	got, _ = s.Get(id)
	assert.Equal(t, "Bunting Drills", got.Name)
	assert.Equal(t, []string{"Helmets", "Balls"}, got.Equipment)
	assert.Equal(t, now.UnixMilli(), got.CreatedAt)

	assert.False(t, s.Update("missing", planner.TemplatePatch{Name: &name}))

	require.True(t, s.Delete(id))
	_, ok = s.Get(id)
	assert.False(t, ok)
	assert.False(t, s.Delete(id))
}

func TestEquipmentDefaultsAndIDs(t *testing.T) {
	s := templates.OpenEquipment(context.Background(), persist.NewMemCache(), persist.NewMemRemote(), "", nil)
	defer s.Close()

	id := s.Save(planner.Template{Name: "L Screen", ID: "ignored"})
	assert.True(t, strings.HasPrefix(id, "equipment_"))

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, planner.DefaultEquipmentSizeFt, got.WidthFt)
	assert.Equal(t, planner.DefaultEquipmentSizeFt, got.HeightFt)
	assert.Equal(t, planner.DefaultEquipmentColor, got.Color)
}

func TestStationAndEquipmentAreSeparate(t *testing.T) {
	cache := persist.NewMemCache()
	remote := persist.NewMemRemote()
	stations := templates.OpenStations(context.Background(), cache, remote, "", nil, templates.WithSeed(nil))
	defer stations.Close()
	equipment := templates.OpenEquipment(context.Background(), cache, remote, "", nil)
	defer equipment.Close()

	sid := stations.Save(planner.Template{Name: "Station A"})
	eid := equipment.Save(planner.Template{Name: "Cones"})

	_, ok := equipment.Get(sid)
	assert.False(t, ok)
	_, ok = stations.Get(eid)
	assert.False(t, ok)
	assert.Len(t, stations.Templates(), 1)
	assert.Len(t, equipment.Templates(), 1)
}
