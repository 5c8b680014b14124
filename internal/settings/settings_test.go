package settings_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/settings"
)

var key = persist.NewKey(persist.KindSettings, "default")

func TestDefaults(t *testing.T) {
	s := settings.Open(context.Background(), persist.NewMemCache(), persist.NewMemRemote(), "", nil)
	defer s.Close()

	got := s.Settings()
	assert.Nil(t, got.LogoURL)
	assert.Equal(t, 90.0, got.LogoRotation)
}

func TestRotateLogo(t *testing.T) {
	s := settings.Open(context.Background(), persist.NewMemCache(), persist.NewMemRemote(), "", nil)
	defer s.Close()

	assert.Equal(t, 180.0, s.RotateLogo())
	assert.Equal(t, 270.0, s.RotateLogo())
	assert.Equal(t, 0.0, s.RotateLogo())
	assert.Equal(t, 90.0, s.RotateLogo())

	s.SetLogoRotation(-90)
	assert.Equal(t, 270.0, s.Settings().LogoRotation)
}

func TestLogoURLIsPushedAsTopLevelField(t *testing.T) {
	remote := persist.NewMemRemote()
	require.NoError(t, remote.Merge(context.Background(), key, map[string]json.RawMessage{
		"theme": json.RawMessage(`"dark"`),
	}))

	s := settings.Open(context.Background(), persist.NewMemCache(), remote, "", nil)
	defer s.Close()

	s.SetLogoURL("https://example.com/logo.png")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))

	doc, err := remote.Get(context.Background(), key)
	require.NoError(t, err)
	assert.JSONEq(t, `"https://example.com/logo.png"`, string(doc.Fields["logoUrl"]))
	assert.JSONEq(t, `90`, string(doc.Fields["logoRotation"]))
	assert.JSONEq(t, `"dark"`, string(doc.Fields["theme"]), "sibling fields survive the merge")

	s.ClearLogo()
	require.NoError(t, s.Flush(ctx))
	doc, _ = remote.Get(context.Background(), key)
	assert.JSONEq(t, `null`, string(doc.Fields["logoUrl"]))
}

func TestMissingRotationDefaultsTo90(t *testing.T) {
	remote := persist.NewMemRemote()
	require.NoError(t, remote.Merge(context.Background(), key, map[string]json.RawMessage{
		"logoUrl": json.RawMessage(`"data:image/png;base64,AAAA"`),
	}))

	s := settings.Open(context.Background(), persist.NewMemCache(), remote, "", nil)
	defer s.Close()

	got := s.Settings()
	require.NotNil(t, got.LogoURL)
	assert.Equal(t, "data:image/png;base64,AAAA", *got.LogoURL)
	assert.Equal(t, 90.0, got.LogoRotation)
}

func TestSettingsReturnsCopy(t *testing.T) {
	s := settings.Open(context.Background(), persist.NewMemCache(), persist.NewMemRemote(), "", nil)
	defer s.Close()

	s.SetLogoURL("a.png")
	got := s.Settings()
	*got.LogoURL = "b.png"
	assert.Equal(t, "a.png", *s.Settings().LogoURL)
}
