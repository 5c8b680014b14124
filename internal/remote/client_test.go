package remote_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldplanner/planner/internal/database"
	"github.com/fieldplanner/planner/internal/docstore"
	"github.com/fieldplanner/planner/internal/layout"
	"github.com/fieldplanner/planner/internal/migrations"
	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/planner"
	"github.com/fieldplanner/planner/internal/remote"
	"github.com/fieldplanner/planner/internal/server"
)

var settingsKey = persist.NewKey(persist.KindSettings, "default")

func startServer(t *testing.T, password string) string {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db))

	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}

	docs := docstore.New(db, docstore.NewBroker(), slog.Default())
	srv := server.New(":0", slog.Default(), server.Deps{Docs: docs, Gate: server.NewGate(db, hash)}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func newClient(t *testing.T, url string) *remote.Client {
	t.Helper()
	c, err := remote.New(url, nil, remote.WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := remote.New("ftp://example.com", nil)
	require.Error(t, err)
}

func TestGetMissing(t *testing.T) {
	c := newClient(t, startServer(t, ""))

	_, err := c.Get(context.Background(), settingsKey)
	require.ErrorIs(t, err, persist.ErrNotFound)
}

func TestLoginAndMerge(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, startServer(t, "changeme"))

	err := c.Merge(ctx, settingsKey, map[string]json.RawMessage{"logoRotation": json.RawMessage(`90`)})
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 401, se.Code)

	require.Error(t, c.Login(ctx, "wrong"))
	require.NoError(t, c.Login(ctx, "changeme"))
	assert.NotEmpty(t, c.Token())

	require.NoError(t, c.Merge(ctx, settingsKey, map[string]json.RawMessage{"logoRotation": json.RawMessage(`90`)}))
	require.NoError(t, c.Merge(ctx, settingsKey, map[string]json.RawMessage{"logoUrl": json.RawMessage(`"a.png"`)}))

	doc, err := c.Get(ctx, settingsKey)
	require.NoError(t, err)
	assert.True(t, doc.Exists)
	assert.JSONEq(t, `90`, string(doc.Fields["logoRotation"]))
	assert.JSONEq(t, `"a.png"`, string(doc.Fields["logoUrl"]))
}

func TestSubscribeFollowsChanges(t *testing.T) {
	ctx := context.Background()
	url := startServer(t, "")
	c := newClient(t, url)

	var (
		mu   sync.Mutex
		docs []persist.Document
	)
	stop := c.Subscribe(ctx, settingsKey, func(doc persist.Document, err error) {
		if err != nil {
			return
		}
		mu.Lock()
		docs = append(docs, doc)
		mu.Unlock()
	})
	defer stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(docs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, newClient(t, url).Merge(ctx, settingsKey, map[string]json.RawMessage{"logoUrl": json.RawMessage(`"b.png"`)}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(docs) == 2 && docs[1].Exists
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.False(t, docs[0].Exists)
	assert.JSONEq(t, `"b.png"`, string(docs[1].Fields["logoUrl"]))
	mu.Unlock()
}

func TestSubscribeReportsRejectedSession(t *testing.T) {
	c := newClient(t, startServer(t, "changeme"))

	errs := make(chan error, 8)
	stop := c.Subscribe(context.Background(), settingsKey, func(_ persist.Document, err error) {
		if err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	})

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
	stop()
}

func TestLayoutsSyncThroughServer(t *testing.T) {
	ctx := context.Background()
	url := startServer(t, "")

	a := layout.Open(ctx, persist.NewMemCache(), newClient(t, url), "", nil, nil)
	defer a.Close()
	b := layout.Open(ctx, persist.NewMemCache(), newClient(t, url), "", nil, nil)
	defer b.Close()

	id := a.Add(planner.PlacedItem{Type: planner.ItemStation, X: 100, Y: 120})
	require.Eventually(t, func() bool {
		_, ok := b.Get(id)
		return ok
	}, 3*time.Second, 10*time.Millisecond)

	require.True(t, b.Rotate(id, 90))
	require.Eventually(t, func() bool {
		it, _ := a.Get(id)
		return it.Rotation == 90
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Flush(ctx))
	assert.NoError(t, a.Status().Err)
	assert.True(t, a.Status().Synced)
}
