package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fieldplanner/planner/internal/config"
	"github.com/fieldplanner/planner/internal/customequip"
	"github.com/fieldplanner/planner/internal/database"
	"github.com/fieldplanner/planner/internal/docstore"
	"github.com/fieldplanner/planner/internal/layout"
	"github.com/fieldplanner/planner/internal/migrations"
	"github.com/fieldplanner/planner/internal/persist"
	"github.com/fieldplanner/planner/internal/remote"
	"github.com/fieldplanner/planner/internal/replica"
	"github.com/fieldplanner/planner/internal/settings"
	"github.com/fieldplanner/planner/internal/templates"
)

// app holds the open cache and remote. Stores are opened on demand so a
// command only subscribes to what it touches.
type app struct {
	cfg    *config.ClientConfig
	logger *slog.Logger
	cache    persist.Cache
	sqlCache *persist.SQLCache
	remote   persist.Remote
	client *remote.Client

	closers []func()
}

func openApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	a := &app{cfg: cfg, logger: logger}

	cacheDB, err := database.Open(ctx, cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	a.closers = append(a.closers, func() { cacheDB.Close() })
	if a.sqlCache, err = persist.NewSQLCache(ctx, cacheDB); err != nil {
		a.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	a.cache = a.sqlCache

	if cfg.DBPath != "" {
		a.remote, err = openLocal(ctx, cfg.DBPath, logger, a)
	} else {
		a.remote, err = a.openClient(ctx)
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openLocal(ctx context.Context, path string, logger *slog.Logger, a *app) (persist.Remote, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening planner database: %w", err)
	}
	a.closers = append(a.closers, func() { db.Close() })
	if err := migrations.Run(ctx, db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return docstore.NewLocal(docstore.New(db, docstore.NewBroker(), logger)), nil
}

func (a *app) openClient(ctx context.Context) (persist.Remote, error) {
	c, err := remote.New(a.cfg.ServerURL, a.logger)
	if err != nil {
		return nil, err
	}
	if a.cfg.Password != "" {
		if err := c.Login(ctx, a.cfg.Password); err != nil {
			return nil, err
		}
	}
	a.client = c
	return c, nil
}

func (a *app) layout(ctx context.Context) (*layout.Store, error) {
	s := layout.Open(ctx, a.cache, a.remote, a.cfg.Scope, nil, a.logger)
	a.closers = append(a.closers, s.Close)
	return s, a.waitSynced(ctx, s.Status)
}

func (a *app) stationTemplates(ctx context.Context) (*templates.Store, error) {
	s := templates.OpenStations(ctx, a.cache, a.remote, a.cfg.Scope, a.logger)
	a.closers = append(a.closers, s.Close)
	return s, a.waitSynced(ctx, s.Status)
}

func (a *app) equipmentTemplates(ctx context.Context) (*templates.Store, error) {
	s := templates.OpenEquipment(ctx, a.cache, a.remote, a.cfg.Scope, a.logger)
	a.closers = append(a.closers, s.Close)
	return s, a.waitSynced(ctx, s.Status)
}

func (a *app) settings(ctx context.Context) (*settings.Store, error) {
	s := settings.Open(ctx, a.cache, a.remote, a.cfg.Scope, a.logger)
	a.closers = append(a.closers, s.Close)
	return s, a.waitSynced(ctx, s.Status)
}

func (a *app) customEquipment() *customequip.List {
	l := customequip.Load(a.cache, a.logger)
	a.closers = append(a.closers, l.Flush)
	return l
}

// waitSynced blocks until the store has seen a remote snapshot. A sync
// error ends the wait; the store keeps its cached value.
func (a *app) waitSynced(ctx context.Context, status func() replica.Status) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for {
		st := status()
		if st.Synced {
			return nil
		}
		if st.Err != nil {
			a.logger.Warn("working from cache", "error", st.Err)
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("waiting for sync: %w", ctx.Err())
			}
			return ctx.Err()
		case <-t.C:
		}
	}
}

// flush waits for pending pushes and reports a failed one.
func (a *app) flush(ctx context.Context, flush func(context.Context) error, status func() replica.Status) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	if err := flush(ctx); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	if err := status().Err; err != nil {
		return err
	}
	return nil
}

// Close releases stores in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
