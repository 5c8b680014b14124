// Package replica keeps one collection in memory and mirrors it to a local
// cache and a remote document.
//
// On Open the value is read from the cache so callers never wait on the
// network, then a remote subscription is started. Every remote snapshot that
// carries a payload overwrites memory and the cache. Every local mutation
// writes the cache synchronously and queues a push of the whole value to the
// remote. Pushes are sent one at a time in mutation order. There is no
// conflict resolution: whichever write reaches the remote last wins.
package replica

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/fieldplanner/planner/internal/persist"
)

// Status is the sync state exposed to the UI.
type Status struct {
	// Loaded is set once the local cache has been read.
	Loaded bool
	// Synced is set once a remote snapshot has been received.
	Synced bool
	// Syncing is true while pushes are queued or in flight.
	Syncing bool
	// Err is the last *persist.SyncError. It is cleared by the next
	// successful push or snapshot.
	Err error
}

type Options[T any] struct {
	Key persist.Key
	// Field is the document field holding the value. When empty the value
	// is an object whose fields are the document's fields.
	Field string
	// Initial returns the value used before anything is loaded.
	Initial func() T
	// Seed, when set, returns the value installed if neither the cache nor
	// the remote has one. The seed is persisted like any mutation.
	Seed   func() T
	Logger *slog.Logger
}

type Replica[T any] struct {
	key     persist.Key
	field   string
	initial func() T
	seed    func() T
	cache   persist.Cache
	remote  persist.Remote
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	stop   func()
	wake   chan struct{}
	done   chan struct{}

	mu         sync.Mutex
	value      T
	status     Status
	cached     bool
	mutated    bool
	closed     bool
	queue      []map[string]json.RawMessage
	inflight   bool
	pushFailed bool
	deferred   *T
	idle       chan struct{}
	idleClosed bool
	watchers   map[int]func(T)
	nextWatch  int
}

// Open loads the cached value and subscribes to the remote document. It
// never fails: cache problems are logged and remote problems show up in
// Status.
func Open[T any](ctx context.Context, cache persist.Cache, remote persist.Remote, opts Options[T]) *Replica[T] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	initial := opts.Initial
	if initial == nil {
		initial = func() T {
			var zero T
			return zero
		}
	}

	r := &Replica[T]{
		key:      opts.Key,
		field:    opts.Field,
		initial:  initial,
		seed:     opts.Seed,
		cache:    cache,
		remote:   remote,
		logger:   logger.With("key", opts.Key.String()),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		idle:     make(chan struct{}),
		watchers: make(map[int]func(T)),
	}
	close(r.idle)
	r.idleClosed = true
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.value = initial()
	if v, ok := r.readCache(); ok {
		r.value = v
		r.cached = true
	}
	r.status.Loaded = true

	go r.run()
	r.stop = remote.Subscribe(r.ctx, r.key, r.onSnapshot)
	return r
}

func (r *Replica[T]) Key() persist.Key { return r.key }

// Value returns the current value. Callers must treat it as read-only.
func (r *Replica[T]) Value() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

func (r *Replica[T]) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.Syncing = len(r.queue) > 0 || r.inflight
	return s
}

// Mutate replaces the value with fn(current). fn must not modify its
// argument in place. Memory is updated first, then the cache is written,
// then a push of the new value is queued.
func (r *Replica[T]) Mutate(fn func(T) T) {
	r.mu.Lock()
	v := r.mutateLocked(fn)
	watchers := r.watchersLocked()
	r.mu.Unlock()

	notify(watchers, v)
}

// Replace is Mutate with a constant value.
func (r *Replica[T]) Replace(v T) {
	r.Mutate(func(T) T { return v })
}

// Watch registers fn to be called with the new value after every change,
// local or remote. The returned func removes it.
func (r *Replica[T]) Watch(fn func(T)) func() {
	r.mu.Lock()
	id := r.nextWatch
	r.nextWatch++
	r.watchers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
	}
}

// Flush blocks until every queued push has been attempted.
func (r *Replica[T]) Flush(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the subscription and drops queued pushes. A push already in
// flight is cancelled and its outcome ignored. Later remote changes no
// longer reach the replica; local mutations still update memory and cache.
func (r *Replica[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.queue = nil
	r.markIdleLocked()
	r.mu.Unlock()

	r.stop()
	r.cancel()
	<-r.done
}

func (r *Replica[T]) mutateLocked(fn func(T) T) T {
	r.value = fn(r.value)
	r.mutated = true
	r.writeCache(r.value)

	if r.closed {
		return r.value
	}
	fields, err := r.encode(r.value)
	if err != nil {
		r.logger.Error("encoding value for push", "error", err)
		return r.value
	}
	r.queue = append(r.queue, fields)
	if r.idleClosed {
		r.idle = make(chan struct{})
		r.idleClosed = false
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return r.value
}

func (r *Replica[T]) onSnapshot(doc persist.Document, err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.status.Err = &persist.SyncError{Op: "subscribe", Key: r.key, Err: err}
		r.mu.Unlock()
		r.logger.Error("remote subscription failed", "error", err)
		return
	}

	r.status.Synced = true
	r.status.Err = nil
	pending := len(r.queue) > 0 || r.inflight

	v, ok, derr := r.decode(doc)
	if derr != nil {
		r.logger.Warn("ignoring malformed remote document", "error", derr)
		ok = false
	}

	switch {
	case !ok:
		if derr != nil || r.seed == nil || r.cached || r.mutated || pending {
			r.mu.Unlock()
			return
		}
		r.logger.Info("seeding empty collection")
		v = r.mutateLocked(func(T) T { return r.seed() })
	case pending:
		// Kept until the queue drains. Applied only if the last push failed.
		r.deferred = &v
		r.mu.Unlock()
		r.logger.Debug("remote snapshot deferred, local writes pending")
		return
	default:
		r.value = v
		r.writeCache(v)
	}

	watchers := r.watchersLocked()
	r.mu.Unlock()
	notify(watchers, v)
}

func (r *Replica[T]) run() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
		}

		for {
			r.mu.Lock()
			if r.closed {
				r.mu.Unlock()
				return
			}
			if len(r.queue) == 0 {
				if v, ok := r.drainDeferredLocked(); ok {
					// Watchers hear about it before Flush returns.
					watchers := r.watchersLocked()
					r.mu.Unlock()
					r.logger.Info("push failed, applied deferred remote snapshot")
					notify(watchers, v)
					continue
				}
				r.markIdleLocked()
				r.mu.Unlock()
				break
			}
			fields := r.queue[0]
			r.queue = r.queue[1:]
			r.inflight = true
			r.mu.Unlock()

			err := r.remote.Merge(r.ctx, r.key, fields)

			r.mu.Lock()
			r.inflight = false
			if r.closed {
				r.mu.Unlock()
				return
			}
			r.pushFailed = err != nil
			if err != nil {
				r.status.Err = &persist.SyncError{Op: "push", Key: r.key, Err: err}
			} else {
				r.status.Err = nil
			}
			r.mu.Unlock()

			if err != nil {
				r.logger.Error("remote push failed", "error", err)
			}
		}
	}
}

// drainDeferredLocked installs the snapshot skipped while pushes were
// pending when the last push did not reach the remote. After a successful
// push the remote holds our value and the snapshot is stale.
func (r *Replica[T]) drainDeferredLocked() (T, bool) {
	d := r.deferred
	r.deferred = nil
	if d == nil || !r.pushFailed {
		var zero T
		return zero, false
	}
	r.value = *d
	r.writeCache(r.value)
	return r.value, true
}

func (r *Replica[T]) markIdleLocked() {
	if !r.idleClosed {
		close(r.idle)
		r.idleClosed = true
	}
}

func (r *Replica[T]) watchersLocked() []func(T) {
	return slices.Collect(maps.Values(r.watchers))
}

func notify[T any](watchers []func(T), v T) {
	for _, fn := range watchers {
		fn(v)
	}
}

func (r *Replica[T]) readCache() (T, bool) {
	var v T
	data, err := r.cache.Read(r.key.CacheKey())
	if errors.Is(err, persist.ErrNotFound) {
		return v, false
	}
	if err != nil {
		r.logger.Warn("reading local cache", "error", err)
		return v, false
	}
	v = r.initial()
	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.Warn("decoding local cache", "error", err)
		return r.initial(), false
	}
	return v, true
}

func (r *Replica[T]) writeCache(v T) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("encoding local cache", "error", err)
		return
	}
	if err := r.cache.Write(r.key.CacheKey(), data); err != nil {
		r.logger.Warn("writing local cache", "error", err)
	}
}

func (r *Replica[T]) encode(v T) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if r.field != "" {
		return map[string]json.RawMessage{r.field: data}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// decode extracts the value from a snapshot. ok is false when the document
// carries no payload.
func (r *Replica[T]) decode(doc persist.Document) (v T, ok bool, err error) {
	if !doc.Exists {
		return v, false, nil
	}
	var data []byte
	if r.field != "" {
		raw, found := doc.Fields[r.field]
		if !found || string(raw) == "null" {
			return v, false, nil
		}
		data = raw
	} else {
		if len(doc.Fields) == 0 {
			return v, false, nil
		}
		if data, err = json.Marshal(doc.Fields); err != nil {
			return v, false, err
		}
	}

	v = r.initial()
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}
