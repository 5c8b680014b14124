package seed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/seed"
)

func TestStationTemplates(t *testing.T) {
	got := seed.StationTemplates()
	require.Len(t, got, 6)

	assert.Equal(t, "template_1771124846287_kyv7vwhjj", got[0].ID)
	assert.Equal(t, "Throwing Warmups", got[0].Name)
	assert.Equal(t, 180.0, got[0].WidthFt)
	assert.Equal(t, 60.0, got[0].HeightFt)

	assert.Equal(t, "Tee Work", got[2].Name)
	assert.Equal(t, "#f97316", got[2].Color)
	assert.Len(t, got[2].Equipment, 5)
	assert.Equal(t, "4 Plates", got[2].Equipment[4])

	assert.Equal(t, "Pitching Lanes - 2P x 2C", got[3].Name)
	assert.Equal(t, "Baserunning H-> H", got[4].Name)

	ids := make(map[string]bool)
	for _, tpl := range got {
		ids[tpl.ID] = true
	}
	assert.Len(t, ids, 6)
}

func TestStationTemplatesAreCopies(t *testing.T) {
	a := seed.StationTemplates()
	a[0].Equipment[0] = "changed"
	b := seed.StationTemplates()
	assert.Equal(t, "Varsity Bucket of Balls", b[0].Equipment[0])
}

func TestEquipmentTemplatesEmpty(t *testing.T) {
	got := seed.EquipmentTemplates()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDemoLayout(t *testing.T) {
	got := seed.DemoLayout()
	require.Len(t, got, 2)

	assert.Equal(t, planner.ItemSoftballInfield, got[0].Type)
	assert.Equal(t, "regulation", got[0].SubType)
	assert.Equal(t, 601.5, got[0].X)
	assert.Equal(t, 225.0, got[0].Rotation)

	assert.Equal(t, planner.ItemFullSoftballField, got[1].Type)
	assert.Equal(t, 200.0, got[1].FenceDistance)
	assert.Equal(t, int64(1771175395826), got[1].CreatedAt)
}
