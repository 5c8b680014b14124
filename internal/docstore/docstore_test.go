package docstore_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplanner/planner/internal/database"
	"github.com/fieldplanner/planner/internal/docstore"
	"github.com/fieldplanner/planner/internal/layout"
	"github.com/fieldplanner/planner/internal/migrations"
	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/planner"
)

var layoutKey = persist.NewKey(persist.KindLayout, "default")

func newStore(t *testing.T) (*docstore.Store, *docstore.Broker) {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db))

	broker := docstore.NewBroker()
	return docstore.New(db, broker, slog.Default()), broker
}

func TestGetMissing(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Get(context.Background(), layoutKey)
	require.ErrorIs(t, err, persist.ErrNotFound)

	doc, err := s.Snapshot(context.Background(), layoutKey)
	require.NoError(t, err)
	assert.False(t, doc.Exists)
}

func TestMergeKeepsSiblingFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	key := persist.NewKey(persist.KindSettings, "default")

	_, err := s.Merge(ctx, key, map[string]json.RawMessage{
		"logoUrl":      json.RawMessage(`"a.png"`),
		"logoRotation": json.RawMessage(`90`),
	})
	require.NoError(t, err)

	doc, err := s.Merge(ctx, key, map[string]json.RawMessage{
		"logoUrl": json.RawMessage(`null`),
	})
	require.NoError(t, err)
	assert.True(t, doc.Exists)
	assert.False(t, doc.UpdatedAt.IsZero())

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(got.Fields["logoUrl"]))
	assert.JSONEq(t, `90`, string(got.Fields["logoRotation"]))
	assert.True(t, doc.UpdatedAt.Equal(got.UpdatedAt))
}

// stallNotifier holds the first publish until released and records the
// order in which snapshots were published.
type stallNotifier struct {
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	seen []string
}

func (n *stallNotifier) Subscribe(context.Context, string) (<-chan []byte, func(), error) {
	return make(chan []byte), func() {}, nil
}

func (n *stallNotifier) Publish(_ context.Context, _ string, data []byte) error {
	var doc persist.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	n.mu.Lock()
	first := len(n.seen) == 0
	n.seen = append(n.seen, string(doc.Fields["items"]))
	n.mu.Unlock()
	if first {
		close(n.started)
		<-n.release
	}
	return nil
}

func TestMergePublishesInCommitOrder(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db))

	n := &stallNotifier{started: make(chan struct{}), release: make(chan struct{})}
	s := docstore.New(db, n, slog.Default())

	var wg sync.WaitGroup
	wg.Go(func() {
		_, err := s.Merge(ctx, layoutKey, map[string]json.RawMessage{"items": json.RawMessage(`["first"]`)})
		assert.NoError(t, err)
	})
	<-n.started

	wg.Go(func() {
		_, err := s.Merge(ctx, layoutKey, map[string]json.RawMessage{"items": json.RawMessage(`["second"]`)})
		assert.NoError(t, err)
	})
	time.Sleep(50 * time.Millisecond)
	close(n.release)
	wg.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Equal(t, []string{`["first"]`, `["second"]`}, n.seen)

	doc, err := s.Get(ctx, layoutKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["second"]`, string(doc.Fields["items"]))
}

func TestScopesAndKindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	_, err := s.Merge(ctx, persist.NewKey(persist.KindLayout, "spring"), map[string]json.RawMessage{"items": json.RawMessage(`[]`)})
	require.NoError(t, err)

	_, err = s.Get(ctx, persist.NewKey(persist.KindLayout, "default"))
	require.ErrorIs(t, err, persist.ErrNotFound)
	_, err = s.Get(ctx, persist.NewKey(persist.KindStationTemplates, "spring"))
	require.ErrorIs(t, err, persist.ErrNotFound)
}

func TestSubscribeStartsWithSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, broker := newStore(t)

	ch, unsub, err := s.Subscribe(ctx, layoutKey)
	require.NoError(t, err)
	defer unsub()

	var first persist.Document
	require.NoError(t, json.Unmarshal(<-ch, &first))
	assert.False(t, first.Exists)

	_, err = s.Merge(ctx, layoutKey, map[string]json.RawMessage{"items": json.RawMessage(`[{"id":"a"}]`)})
	require.NoError(t, err)

	select {
	case data := <-ch:
		var doc persist.Document
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.True(t, doc.Exists)
		assert.JSONEq(t, `[{"id":"a"}]`, string(doc.Fields["items"]))
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after merge")
	}

	unsub()
	assert.Zero(t, broker.Subscribers(layoutKey.String()))
}

func TestBrokerKeepsLatest(t *testing.T) {
	ctx := context.Background()
	b := docstore.NewBroker()
	ch, unsub, err := b.Subscribe(ctx, "t")
	require.NoError(t, err)

	for _, msg := range []string{"1", "2", "3"} {
		require.NoError(t, b.Publish(ctx, "t", []byte(msg)))
	}
	assert.Equal(t, "3", string(<-ch))

	unsub()
	_, ok := <-ch
	assert.False(t, ok, "channel closed on unsubscribe")
	require.NoError(t, b.Publish(ctx, "t", []byte("4")))
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	seeded, err := s.SeedDemo(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	doc, err := s.Get(ctx, layoutKey)
	require.NoError(t, err)
	var items []planner.PlacedItem
	require.NoError(t, json.Unmarshal(doc.Fields["items"], &items))
	require.Len(t, items, 2)
	assert.Equal(t, "item_1771175375920_sv3e10qxe", items[0].ID)

	seeded, err = s.SeedDemo(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestLocalRemoteSyncsTwoStores(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	remote := docstore.NewLocal(s)

	a := layout.Open(ctx, persist.NewMemCache(), remote, "", nil, nil)
	defer a.Close()
	b := layout.Open(ctx, persist.NewMemCache(), remote, "", nil, nil)
	defer b.Close()

	id := a.Add(planner.PlacedItem{Type: planner.ItemCoach, X: 10, Y: 20})

	require.Eventually(t, func() bool {
		_, ok := b.Get(id)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	b.Move(id, 30, 40)
	require.Eventually(t, func() bool {
		it, _ := a.Get(id)
		return it.X == 30 && it.Y == 40
	}, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, a.Status().Err)
	assert.NoError(t, b.Status().Err)
}

func TestRedisNotifier(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n := docstore.NewRedisNotifier(rdb)

	ch, unsub, err := n.Subscribe(ctx, "test/"+t.Name())
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, n.Publish(ctx, "test/"+t.Name(), []byte(`{"exists":true}`)))
	select {
	case data := <-ch:
		assert.JSONEq(t, `{"exists":true}`, string(data))
	case <-ctx.Done():
		t.Fatal("no message from redis")
	}
}
