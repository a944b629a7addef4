// Package pricing resolves per-model token rates and computes event costs.
// Rates are stored in USD per million tokens as decimals; cost arithmetic
// stays in decimal until presentation.
package pricing

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cclens/cclens/internal/model"
)

// Resolution says how a rate was matched to a model.
type Resolution int

const (
	// RateExact means a rate row whose effective range contains the event
	// timestamp.
	RateExact Resolution = iota
	// RateLatest means the newest rate row for the model, used when no row
	// covers the timestamp.
	RateLatest
	// RateNormalized means the model matched after canonical-name collapsing.
	RateNormalized
	// RateFallback means the designated fallback rate; costs derived from it
	// are flagged as estimates.
	RateFallback
)

// Rate is one versioned pricing row. Zero EffectiveUntil means open-ended.
// All rate fields are USD per million tokens.
type Rate struct {
	Model          string
	EffectiveFrom  time.Time
	EffectiveUntil time.Time
	Input          decimal.Decimal
	Output         decimal.Decimal
	CacheCreation  decimal.Decimal
	CacheRead      decimal.Decimal
	Version        string
}

func (r Rate) covers(at time.Time) bool {
	if at.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveUntil.IsZero() || at.Before(r.EffectiveUntil)
}

// Cost computes the USD cost of the given token counts under this rate.
// Per-million rates multiply exactly via a -6 shift; no float division.
func (r Rate) Cost(tc model.TokenCounts) decimal.Decimal {
	cost := decimal.Zero
	for _, part := range []struct {
		rate  decimal.Decimal
		count int64
	}{
		{r.Input, tc.InputTokens},
		{r.Output, tc.OutputTokens},
		{r.CacheCreation, tc.CacheCreationTokens},
		{r.CacheRead, tc.CacheReadTokens},
	} {
		if part.count == 0 {
			continue
		}
		cost = cost.Add(part.rate.Mul(decimal.NewFromInt(part.count)).Shift(-6))
	}
	return cost
}

// Table holds versioned rates indexed by model, plus a fallback rate for
// models no row matches.
type Table struct {
	rates     map[string][]Rate // sorted by EffectiveFrom ascending
	canonical map[string]string // canonical key -> model name
	fallback  Rate
}

// NewTable builds a table from rate rows and a fallback.
func NewTable(rows []Rate, fallback Rate) *Table {
	t := &Table{
		rates:     make(map[string][]Rate),
		canonical: make(map[string]string),
		fallback:  fallback,
	}
	for _, r := range rows {
		t.rates[r.Model] = append(t.rates[r.Model], r)
		t.canonical[model.CanonicalKey(r.Model)] = r.Model
	}
	for m := range t.rates {
		rs := t.rates[m]
		sort.Slice(rs, func(i, j int) bool { return rs[i].EffectiveFrom.Before(rs[j].EffectiveFrom) })
	}
	return t
}

// Resolve finds the rate for a model at a point in time. Resolution order:
// effective-range match, latest row for the model, canonical-name match,
// fallback. A zero timestamp skips the range check and takes the latest row.
func (t *Table) Resolve(modelName string, at time.Time) (Rate, Resolution) {
	if rows, ok := t.rates[modelName]; ok {
		if !at.IsZero() {
			for i := len(rows) - 1; i >= 0; i-- {
				if rows[i].covers(at) {
					return rows[i], RateExact
				}
			}
		}
		return rows[len(rows)-1], RateLatest
	}
	if name, ok := t.lookupCanonical(modelName); ok {
		rows := t.rates[name]
		if !at.IsZero() {
			for i := len(rows) - 1; i >= 0; i-- {
				if rows[i].covers(at) {
					return rows[i], RateNormalized
				}
			}
		}
		return rows[len(rows)-1], RateNormalized
	}
	return t.fallback, RateFallback
}

// lookupCanonical matches by canonical key, then by the longest known
// canonical key that prefixes the model's. Dated releases like
// "claude-sonnet-4-20250514" resolve to their base model this way.
func (t *Table) lookupCanonical(modelName string) (string, bool) {
	key := model.CanonicalKey(modelName)
	if name, ok := t.canonical[key]; ok {
		return name, true
	}
	best := ""
	bestLen := 0
	for ck, name := range t.canonical {
		if len(ck) > bestLen && strings.HasPrefix(key, ck) {
			best, bestLen = name, len(ck)
		}
	}
	return best, bestLen > 0
}

// Price attaches a resolved cost to an event.
func (t *Table) Price(e model.UsageEvent) model.PricedUsageEvent {
	rate, res := t.Resolve(e.Model, e.Timestamp)
	return model.PricedUsageEvent{
		UsageEvent:  e,
		Cost:        rate.Cost(e.Tokens),
		RateVersion: rate.Version,
		Estimated:   res == RateFallback,
	}
}

// PriceAll prices a batch of events.
func (t *Table) PriceAll(events []model.UsageEvent) []model.PricedUsageEvent {
	out := make([]model.PricedUsageEvent, 0, len(events))
	for _, e := range events {
		out = append(out, t.Price(e))
	}
	return out
}

type rateFile struct {
	Rates []struct {
		Model          string  `yaml:"model"`
		EffectiveFrom  string  `yaml:"effective_from"`
		EffectiveUntil string  `yaml:"effective_until"`
		Input          float64 `yaml:"input"`
		Output         float64 `yaml:"output"`
		CacheCreation  float64 `yaml:"cache_creation"`
		CacheRead      float64 `yaml:"cache_read"`
	} `yaml:"rates"`
}

// LoadFile reads a YAML rates file and merges its rows over the default
// table. Rates in the file are USD per million tokens.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rates file: %w", err)
	}
	var rf rateFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rates file: %w", err)
	}

	rows := defaultRates()
	for _, row := range rf.Rates {
		r := Rate{
			Model:         row.Model,
			Input:         decimal.NewFromFloat(row.Input),
			Output:        decimal.NewFromFloat(row.Output),
			CacheCreation: decimal.NewFromFloat(row.CacheCreation),
			CacheRead:     decimal.NewFromFloat(row.CacheRead),
			Version:       "file:" + path,
		}
		if row.EffectiveFrom != "" {
			r.EffectiveFrom, err = time.Parse("2006-01-02", row.EffectiveFrom)
			if err != nil {
				return nil, fmt.Errorf("rate %s: bad effective_from: %w", row.Model, err)
			}
		}
		if row.EffectiveUntil != "" {
			r.EffectiveUntil, err = time.Parse("2006-01-02", row.EffectiveUntil)
			if err != nil {
				return nil, fmt.Errorf("rate %s: bad effective_until: %w", row.Model, err)
			}
		}
		rows = append(rows, r)
	}
	return NewTable(rows, defaultFallback()), nil
}
