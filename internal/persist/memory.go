package persist

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemCache is an in-memory Cache. Failures can be injected for tests.
type MemCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func NewMemCache() *MemCache {
	return &MemCache{data: make(map[string][]byte)}
}

func (c *MemCache) Read(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, &StorageError{Op: "read", Key: key, Err: c.readErr}
	}
	v, ok := c.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (c *MemCache) Write(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return &StorageError{Op: "write", Key: key, Err: c.writeErr}
	}
	c.data[key] = slices.Clone(data)
	c.writes++
	return nil
}

// FailReads makes every Read fail with err; nil restores normal behaviour.
func (c *MemCache) FailReads(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
}

// FailWrites makes every Write fail with err; nil restores normal behaviour.
func (c *MemCache) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// Writes reports how many writes succeeded.
func (c *MemCache) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// MemRemote is an in-memory Remote with synchronous change delivery. It
// stands in for the server in tests and when running without a network.
type MemRemote struct {
	mu       sync.Mutex
	docs     map[Key]Document
	subs     map[Key]map[int]func(Document, error)
	nextSub  int
	mergeErr error
	merges   map[Key]int
	gate     chan struct{}
	now      func() time.Time
}

func NewMemRemote() *MemRemote {
	return &MemRemote{
		docs:   make(map[Key]Document),
		subs:   make(map[Key]map[int]func(Document, error)),
		merges: make(map[Key]int),
		now:    time.Now,
	}
}

func (m *MemRemote) Get(_ context.Context, key Key) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[key]
	if !ok {
		return Document{}, ErrNotFound
	}
	return d.Clone(), nil
}

func (m *MemRemote) Merge(ctx context.Context, key Key, fields map[string]json.RawMessage) error {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	if m.mergeErr != nil {
		err := m.mergeErr
		m.mu.Unlock()
		return err
	}
	d := m.docs[key].Clone()
	if d.Fields == nil {
		d.Fields = make(map[string]json.RawMessage, len(fields))
	}
	maps.Copy(d.Fields, fields)
	d.Exists = true
	d.UpdatedAt = m.now().UTC()
	m.docs[key] = d
	m.merges[key]++
	fns := slices.Collect(maps.Values(m.subs[key]))
	m.mu.Unlock()

	for _, fn := range fns {
		fn(d.Clone(), nil)
	}
	return nil
}

func (m *MemRemote) Subscribe(ctx context.Context, key Key, fn func(Document, error)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	if m.subs[key] == nil {
		m.subs[key] = make(map[int]func(Document, error))
	}
	m.subs[key][id] = fn
	d := m.docs[key].Clone()
	m.mu.Unlock()

	fn(d, nil)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[key], id)
			if len(m.subs[key]) == 0 {
				delete(m.subs, key)
			}
			m.mu.Unlock()
		})
	}
	context.AfterFunc(ctx, stop)
	return stop
}

// FailMerges makes every Merge fail with err; nil restores normal behaviour.
func (m *MemRemote) FailMerges(err error) {
	m.mu.Lock()
	m.mergeErr = err
	m.mu.Unlock()
}

// Disconnect delivers err to every subscriber of key without ending the
// subscriptions, as a dropped connection would.
func (m *MemRemote) Disconnect(key Key, err error) {
	m.mu.Lock()
	fns := slices.Collect(maps.Values(m.subs[key]))
	m.mu.Unlock()
	for _, fn := range fns {
		fn(Document{}, err)
	}
}

// Pause blocks all merges until Resume is called.
func (m *MemRemote) Pause() {
	m.mu.Lock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
	m.mu.Unlock()
}

func (m *MemRemote) Resume() {
	m.mu.Lock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
	m.mu.Unlock()
}

// Merges reports how many successful merges key has received.
func (m *MemRemote) Merges(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merges[key]
}

// Subscribers reports the number of live subscriptions on key.
func (m *MemRemote) Subscribers(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[key])
}
