// Package aggregate folds priced usage events into reporting views: overall
// summary, daily, monthly, per-model, and per-session rollups.
package aggregate

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/cclens/cclens/internal/model"
)

// Filters narrows an aggregation pass. Zero values mean unfiltered.
type Filters struct {
	Project string
	Since   time.Time
	Until   time.Time
}

func (f Filters) match(e model.PricedUsageEvent) bool {
	if f.Project != "" && e.ProjectPath != f.Project {
		return false
	}
	if !e.Timestamp.IsZero() {
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			return false
		}
		if !f.Until.IsZero() && !e.Timestamp.Before(f.Until) {
			return false
		}
	} else if !f.Since.IsZero() || !f.Until.IsZero() {
		// Date-filtered queries cannot place undated events.
		return false
	}
	return true
}

// ModelStat is one model's share inside a period bucket.
type ModelStat struct {
	Model  string            `json:"model"`
	Tokens model.TokenCounts `json:"tokens"`
	Cost   decimal.Decimal   `json:"cost"`
	Events int               `json:"events"`
}

// PeriodUsage is one daily or monthly bucket.
type PeriodUsage struct {
	Period    string                `json:"period"` // "2025-06-01" or "2025-06"
	Tokens    model.TokenCounts     `json:"tokens"`
	Cost      decimal.Decimal       `json:"cost"`
	Events    int                   `json:"events"`
	Estimated bool                  `json:"estimated"`
	ByModel   map[string]*ModelStat `json:"by_model"`
}

// ModelSummary is one model's totals across the whole filtered range.
type ModelSummary struct {
	Model     string            `json:"model"`
	Tokens    model.TokenCounts `json:"tokens"`
	Cost      decimal.Decimal   `json:"cost"`
	Events    int               `json:"events"`
	CostShare float64           `json:"cost_share"`
	Estimated bool              `json:"estimated"`
}

// SessionUsage is one session's totals.
type SessionUsage struct {
	SessionID   string            `json:"session_id"`
	ProjectPath string            `json:"project_path"`
	Tokens      model.TokenCounts `json:"tokens"`
	Cost        decimal.Decimal   `json:"cost"`
	Events      int               `json:"events"`
	FirstSeen   time.Time         `json:"first_seen"`
	LastSeen    time.Time         `json:"last_seen"`
}

// Summary is the overall rollup for the filtered range.
type Summary struct {
	Tokens               model.TokenCounts `json:"tokens"`
	Cost                 decimal.Decimal   `json:"cost"`
	Events               int               `json:"events"`
	Sessions             int               `json:"sessions"`
	Models               []string          `json:"models"`
	FirstEvent           time.Time         `json:"first_event"`
	LastEvent            time.Time         `json:"last_event"`
	Estimated            bool              `json:"estimated"`
	UnresolvedTimestamps int               `json:"unresolved_timestamps"`
}

// Result carries every view produced by one aggregation pass.
type Result struct {
	Summary  Summary
	Daily    []PeriodUsage
	Monthly  []PeriodUsage
	Models   []ModelSummary
	Sessions []SessionUsage
}

// Run folds events into all views in a single pass. Calendar bucketing uses
// loc; events with a zero timestamp are counted in overall and model views
// but never land in a date bucket.
func Run(events []model.PricedUsageEvent, filters Filters, loc *time.Location) Result {
	if loc == nil {
		loc = time.Local
	}

	days := make(map[string]*PeriodUsage)
	months := make(map[string]*PeriodUsage)
	models := make(map[string]*ModelSummary)
	sessions := make(map[string]*SessionUsage)
	summary := Summary{Cost: decimal.Zero}

	for _, e := range events {
		if !filters.match(e) {
			continue
		}

		summary.Tokens.Add(e.Tokens)
		summary.Cost = summary.Cost.Add(e.Cost)
		summary.Events++
		summary.Estimated = summary.Estimated || e.Estimated

		ms, ok := models[e.Model]
		if !ok {
			ms = &ModelSummary{Model: e.Model, Cost: decimal.Zero}
			models[e.Model] = ms
		}
		ms.Tokens.Add(e.Tokens)
		ms.Cost = ms.Cost.Add(e.Cost)
		ms.Events++
		ms.Estimated = ms.Estimated || e.Estimated

		if e.SessionID != "" {
			su, ok := sessions[e.SessionID]
			if !ok {
				su = &SessionUsage{SessionID: e.SessionID, ProjectPath: e.ProjectPath, Cost: decimal.Zero}
				sessions[e.SessionID] = su
			}
			su.Tokens.Add(e.Tokens)
			su.Cost = su.Cost.Add(e.Cost)
			su.Events++
			if !e.Timestamp.IsZero() {
				if su.FirstSeen.IsZero() || e.Timestamp.Before(su.FirstSeen) {
					su.FirstSeen = e.Timestamp
				}
				if e.Timestamp.After(su.LastSeen) {
					su.LastSeen = e.Timestamp
				}
			}
		}

		if e.Timestamp.IsZero() {
			summary.UnresolvedTimestamps++
			continue
		}

		local := e.Timestamp.In(loc)
		if summary.FirstEvent.IsZero() || e.Timestamp.Before(summary.FirstEvent) {
			summary.FirstEvent = e.Timestamp
		}
		if e.Timestamp.After(summary.LastEvent) {
			summary.LastEvent = e.Timestamp
		}

		bucket(days, local.Format("2006-01-02"), e)
		bucket(months, local.Format("2006-01"), e)
	}

	summary.Sessions = len(sessions)
	summary.Models = lo.Keys(models)
	sort.Strings(summary.Models)

	return Result{
		Summary:  summary,
		Daily:    sortPeriods(lo.Values(days)),
		Monthly:  sortPeriods(lo.Values(months)),
		Models:   sortModels(lo.Values(models), summary.Cost),
		Sessions: sortSessions(lo.Values(sessions)),
	}
}

func bucket(m map[string]*PeriodUsage, period string, e model.PricedUsageEvent) {
	p, ok := m[period]
	if !ok {
		p = &PeriodUsage{Period: period, Cost: decimal.Zero, ByModel: make(map[string]*ModelStat)}
		m[period] = p
	}
	p.Tokens.Add(e.Tokens)
	p.Cost = p.Cost.Add(e.Cost)
	p.Events++
	p.Estimated = p.Estimated || e.Estimated

	st, ok := p.ByModel[e.Model]
	if !ok {
		st = &ModelStat{Model: e.Model, Cost: decimal.Zero}
		p.ByModel[e.Model] = st
	}
	st.Tokens.Add(e.Tokens)
	st.Cost = st.Cost.Add(e.Cost)
	st.Events++
}

// sortPeriods orders newest first, cost descending on equal periods.
func sortPeriods(ps []*PeriodUsage) []PeriodUsage {
	out := make([]PeriodUsage, 0, len(ps))
	for _, p := range ps {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period > out[j].Period
		}
		return out[i].Cost.GreaterThan(out[j].Cost)
	})
	return out
}

func sortModels(ms []*ModelSummary, totalCost decimal.Decimal) []ModelSummary {
	out := make([]ModelSummary, 0, len(ms))
	for _, m := range ms {
		s := *m
		if totalCost.IsPositive() {
			share, _ := s.Cost.Div(totalCost).Float64()
			s.CostShare = share
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Cost.Equal(out[j].Cost) {
			return out[i].Cost.GreaterThan(out[j].Cost)
		}
		return out[i].Model < out[j].Model
	})
	return out
}

func sortSessions(ss []*SessionUsage) []SessionUsage {
	out := make([]SessionUsage, 0, len(ss))
	for _, s := range ss {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}
