// Package usage wires the reader, deduplicator and pricing resolver into a
// query engine over the local usage history.
package usage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/cclens/cclens/internal/aggregate"
	"github.com/cclens/cclens/internal/dedupe"
	"github.com/cclens/cclens/internal/model"
	"github.com/cclens/cclens/internal/pricing"
	"github.com/cclens/cclens/internal/reader"
	"github.com/cclens/cclens/internal/window"
)

// Source yields new usage events relative to a cursor. *reader.Reader
// satisfies it.
type Source interface {
	ReadSince(ctx context.Context, cur reader.Cursor) ([]model.UsageEvent, reader.Cursor, reader.Stats, error)
}

// Engine caches priced, deduplicated events keyed by the reader cursor and
// answers usage queries from them. Queries are pure reads over an immutable
// snapshot; concurrent callers are safe.
type Engine struct {
	source Source
	table  *pricing.Table
	loc    *time.Location
	plan   window.Plan
	log    *slog.Logger

	mu     sync.Mutex
	events []model.PricedUsageEvent
	cursor reader.Cursor
	seen   *dedupe.Set
	stats  reader.Stats
}

// Options configure an Engine. Zero values fall back to the embedded rate
// table, local time, custom plan and the default logger.
type Options struct {
	Table    *pricing.Table
	Location *time.Location
	Plan     window.Plan
	Logger   *slog.Logger
}

// NewEngine builds an engine over a source.
func NewEngine(source Source, opts Options) *Engine {
	if opts.Table == nil {
		opts.Table = pricing.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Plan == "" {
		opts.Plan = window.PlanCustom
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		source: source,
		table:  opts.Table,
		loc:    opts.Location,
		plan:   opts.Plan,
		log:    opts.Logger,
		seen:   dedupe.NewSet(),
	}
}

// Refresh reads whatever is new from the source, dedupes and prices it, and
// folds it into the cached snapshot. Re-reading the same lines is a no-op
// because the dedupe set persists across refreshes. Returns the number of
// events added.
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, cursor, stats, err := e.source.ReadSince(ctx, e.cursor)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, ev := range raw {
		if !e.seen.Observe(ev) {
			continue
		}
		e.events = append(e.events, e.table.Price(ev))
		added++
	}
	e.cursor = cursor
	e.stats.Files = stats.Files
	e.stats.Lines += stats.Lines
	e.stats.Malformed += stats.Malformed
	e.stats.Skipped += stats.Skipped

	if added > 0 {
		e.log.Debug("usage refreshed", "new_events", added, "total_events", len(e.events))
	}
	return added, nil
}

// snapshot returns the current event slice. The slice is append-only and
// events are immutable, so readers can use it without holding the lock.
func (e *Engine) snapshot(ctx context.Context) ([]model.PricedUsageEvent, reader.Stats, error) {
	if _, err := e.Refresh(ctx); err != nil {
		return nil, reader.Stats{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[:len(e.events):len(e.events)], e.stats, nil
}

// Summary returns the overall rollup for the filtered range.
func (e *Engine) Summary(ctx context.Context, f aggregate.Filters) (aggregate.Summary, reader.Stats, error) {
	events, stats, err := e.snapshot(ctx)
	if err != nil {
		return aggregate.Summary{}, reader.Stats{}, err
	}
	return aggregate.Run(events, f, e.loc).Summary, stats, nil
}

// Daily returns per-day buckets, newest first.
func (e *Engine) Daily(ctx context.Context, f aggregate.Filters) ([]aggregate.PeriodUsage, error) {
	events, _, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.Run(events, f, e.loc).Daily, nil
}

// Monthly returns per-month buckets, newest first.
func (e *Engine) Monthly(ctx context.Context, f aggregate.Filters) ([]aggregate.PeriodUsage, error) {
	events, _, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.Run(events, f, e.loc).Monthly, nil
}

// ModelBreakdown returns per-model totals, highest cost first.
func (e *Engine) ModelBreakdown(ctx context.Context, f aggregate.Filters) ([]aggregate.ModelSummary, error) {
	events, _, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.Run(events, f, e.loc).Models, nil
}

// Sessions returns per-session totals, most recent activity first.
func (e *Engine) Sessions(ctx context.Context, f aggregate.Filters) ([]aggregate.SessionUsage, error) {
	events, _, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.Run(events, f, e.loc).Sessions, nil
}

// CurrentWindow reconstructs rolling windows and reports the active one
// against the plan ceiling, evaluated at now.
func (e *Engine) CurrentWindow(ctx context.Context, f aggregate.Filters, now time.Time) (window.Report, error) {
	events, _, err := e.snapshot(ctx)
	if err != nil {
		return window.Report{}, err
	}
	if f.Project != "" {
		scoped := make([]model.PricedUsageEvent, 0, len(events))
		for _, ev := range events {
			if ev.ProjectPath == f.Project {
				scoped = append(scoped, ev)
			}
		}
		events = scoped
	}
	blocks := window.Fold(events, now)
	return window.Snapshot(blocks, now, e.plan.Limit(blocks)), nil
}

// Projects lists the distinct project paths seen in the history.
func (e *Engine) Projects(ctx context.Context) ([]string, error) {
	events, _, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, ev := range events {
		if ev.ProjectPath != "" {
			set[ev.ProjectPath] = struct{}{}
		}
	}
	out := lo.Keys(set)
	sort.Strings(out)
	return out, nil
}
