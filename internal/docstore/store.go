// Package docstore is the server side of document sync: one JSON document
// per (kind, scope) in SQLite, merged at the top level on write, with every
// new snapshot published to subscribers.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/fieldplanner/planner/internal/persist"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db       *sql.DB
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	// Per-key write locks keep publish order equal to commit order.
	mu    sync.Mutex
	locks map[persist.Key]*sync.Mutex
}

// New expects the documents table from migrations to exist.
func New(db *sql.DB, notifier Notifier, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[persist.Key]*sync.Mutex),
	}
}

// Get returns the document, or persist.ErrNotFound.
func (s *Store) Get(ctx context.Context, key persist.Key) (persist.Document, error) {
	return get(ctx, s.db, key)
}

// Snapshot is Get with a missing document reported as Exists == false.
func (s *Store) Snapshot(ctx context.Context, key persist.Key) (persist.Document, error) {
	doc, err := s.Get(ctx, key)
	if errors.Is(err, persist.ErrNotFound) {
		return persist.Document{}, nil
	}
	return doc, err
}

// Merge sets the given top-level fields, keeps the others, stamps
// updatedAt and publishes the result.
func (s *Store) Merge(ctx context.Context, key persist.Key, fields map[string]json.RawMessage) (persist.Document, error) {
	unlock := s.lock(key)
	defer unlock()

	doc, err := s.modify(ctx, key, func(d *persist.Document) {
		maps.Copy(d.Fields, fields)
	})
	if err != nil {
		return persist.Document{}, err
	}
	s.publish(ctx, key, doc)
	return doc, nil
}

// Subscribe streams encoded snapshots of key. The first value received is
// the current snapshot.
func (s *Store) Subscribe(ctx context.Context, key persist.Key) (<-chan []byte, func(), error) {
	ch, unsub, err := s.notifier.Subscribe(ctx, key.String())
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", key, err)
	}

	doc, err := s.Snapshot(ctx, key)
	if err != nil {
		unsub()
		return nil, nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		unsub()
		return nil, nil, err
	}

	out := make(chan []byte, 1)
	out <- data
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, unsub, nil
}

func (s *Store) lock(key persist.Key) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = new(sync.Mutex)
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Store) publish(ctx context.Context, key persist.Key, doc persist.Document) {
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("encoding snapshot", "key", key.String(), "error", err)
		return
	}
	if err := s.notifier.Publish(ctx, key.String(), data); err != nil {
		s.logger.Error("publishing snapshot", "key", key.String(), "error", err)
	}
}

// modify loads a document, applies fn, and saves it in a transaction.
func (s *Store) modify(ctx context.Context, key persist.Key, fn func(*persist.Document)) (persist.Document, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return persist.Document{}, err
	}
	defer tx.Rollback()

	doc, err := get(ctx, tx, key)
	if err != nil && !errors.Is(err, persist.ErrNotFound) {
		return persist.Document{}, err
	}
	if doc.Fields == nil {
		doc.Fields = make(map[string]json.RawMessage)
	}

	fn(&doc)
	doc.Exists = true
	doc.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return persist.Document{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (kind, scope, data, updated_at) VALUES (?, ?, jsonb(?), ?)
		 ON CONFLICT(kind, scope) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(key.Kind), key.Scope, string(data), doc.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return persist.Document{}, fmt.Errorf("saving %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return persist.Document{}, err
	}
	return doc, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q querier, key persist.Key) (persist.Document, error) {
	var data, updatedAt string
	err := q.QueryRowContext(ctx,
		`SELECT json(data), updated_at FROM documents WHERE kind = ? AND scope = ?`,
		string(key.Kind), key.Scope,
	).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return persist.Document{}, persist.ErrNotFound
	}
	if err != nil {
		return persist.Document{}, fmt.Errorf("loading %s: %w", key, err)
	}

	doc := persist.Document{Exists: true}
	if err := json.Unmarshal([]byte(data), &doc.Fields); err != nil {
		return persist.Document{}, fmt.Errorf("decoding %s: %w", key, err)
	}
	if doc.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return persist.Document{}, fmt.Errorf("decoding %s updated_at: %w", key, err)
	}
	return doc, nil
}
