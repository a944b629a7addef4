// Package app wires configuration into the runtime dependencies shared by
// the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cclens/cclens/internal/api"
	"github.com/cclens/cclens/internal/config"
	"github.com/cclens/cclens/internal/pricing"
	"github.com/cclens/cclens/internal/reader"
	"github.com/cclens/cclens/internal/store"
	"github.com/cclens/cclens/internal/usage"
	"github.com/cclens/cclens/internal/watch"
	"github.com/cclens/cclens/internal/window"
)

// Deps bundles the constructed runtime pieces.
type Deps struct {
	Engine   *usage.Engine
	Store    *store.Store
	Location *time.Location
	Plan     window.Plan
	Roots    []string

	log *slog.Logger
}

// Build constructs everything the server needs from configuration.
func Build(cfg *config.Config, log *slog.Logger) (*Deps, error) {
	deps, err := BuildQueryOnly(cfg, log)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		return nil, err
	}
	deps.Store = st
	return deps, nil
}

// BuildQueryOnly constructs the engine without the SQLite store, for CLI
// report commands.
func BuildQueryOnly(cfg *config.Config, log *slog.Logger) (*Deps, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	plan, err := window.ParsePlan(cfg.Plan)
	if err != nil {
		return nil, err
	}
	table, err := rateTable(cfg, log)
	if err != nil {
		return nil, err
	}

	engine := usage.NewEngine(reader.New(cfg.Logs.Roots...), usage.Options{
		Table:    table,
		Location: loc,
		Plan:     plan,
		Logger:   log,
	})
	return &Deps{
		Engine:   engine,
		Location: loc,
		Plan:     plan,
		Roots:    cfg.Logs.Roots,
		log:      log,
	}, nil
}

func rateTable(cfg *config.Config, log *slog.Logger) (*pricing.Table, error) {
	if cfg.Pricing.RatesFile != "" {
		table, err := pricing.LoadFile(cfg.Pricing.RatesFile)
		if err != nil {
			return nil, fmt.Errorf("loading rates: %w", err)
		}
		return table, nil
	}
	if !cfg.Pricing.Offline {
		table, err := pricing.NewFetcher().Table()
		if err == nil {
			return table, nil
		}
		log.Warn("online price fetch failed, using embedded rates", "error", err)
	}
	return pricing.Default(), nil
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.Store != nil {
		d.Store.Close()
	}
}

// WatchAndNotify runs the log watcher and forwards change notifications to
// the API server until the context ends. Watch failures degrade to a
// poll-free server rather than killing it.
func (d *Deps) WatchAndNotify(ctx context.Context, srv *api.Server) {
	w, err := watch.New(d.Roots, d.log)
	if err != nil {
		d.log.Warn("file watching disabled", "error", err)
		return
	}
	go func() {
		for range w.C {
			srv.NotifyChanged(ctx)
		}
	}()
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		d.log.Warn("watcher stopped", "error", err)
	}
}
