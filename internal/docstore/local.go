package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fieldplanner/planner/internal/persist"
)

// Local exposes a Store as a persist.Remote for stores running inside the
// server process.
type Local struct {
	store *Store
}

func NewLocal(store *Store) *Local {
	return &Local{store: store}
}

func (l *Local) Get(ctx context.Context, key persist.Key) (persist.Document, error) {
	return l.store.Get(ctx, key)
}

func (l *Local) Merge(ctx context.Context, key persist.Key, fields map[string]json.RawMessage) error {
	_, err := l.store.Merge(ctx, key, fields)
	return err
}

// Subscribe delivers snapshots on a separate goroutine, in order.
func (l *Local) Subscribe(ctx context.Context, key persist.Key, fn func(persist.Document, error)) func() {
	ctx, cancel := context.WithCancel(ctx)

	ch, unsub, err := l.store.Subscribe(ctx, key)
	if err != nil {
		cancel()
		go fn(persist.Document{}, err)
		return func() {}
	}

	go func() {
		for data := range ch {
			var doc persist.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				fn(persist.Document{}, err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			fn(doc, nil)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			unsub()
		})
	}
	context.AfterFunc(ctx, stop)
	return stop
}
