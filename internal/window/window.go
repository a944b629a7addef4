// Package window reconstructs 5-hour rolling rate-limit windows from usage
// history. Windows are derived, never stored: the same events and clock
// always produce the same blocks.
package window

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cclens/cclens/internal/model"
)

// Duration is the provider's rolling rate-limit window length.
const Duration = 5 * time.Hour

// Block is one reconstructed window. EndTime is exclusive: an event at
// exactly EndTime belongs to the next window. A window never extends; only
// an event outside it opens a new one.
type Block struct {
	ID            string            `json:"id"` // start time, RFC3339
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	ActualEndTime time.Time         `json:"actual_end_time"` // last event inside
	IsActive      bool              `json:"is_active"`
	Tokens        model.TokenCounts `json:"tokens"`
	Cost          decimal.Decimal   `json:"cost"`
	Models        []string          `json:"models"`
	Events        int               `json:"events"`
}

// Fold derives window blocks from events. Events are sorted ascending by
// timestamp first; undated events cannot be placed in a window and are
// dropped. The last block is active iff now is before its EndTime, so a
// window closes by clock alone even with no further events.
func Fold(events []model.PricedUsageEvent, now time.Time) []Block {
	dated := make([]model.PricedUsageEvent, 0, len(events))
	for _, e := range events {
		if !e.Timestamp.IsZero() {
			dated = append(dated, e)
		}
	}
	sort.Slice(dated, func(i, j int) bool { return dated[i].Timestamp.Before(dated[j].Timestamp) })

	var blocks []Block
	var cur *Block
	modelSet := make(map[string]struct{})
	for _, e := range dated {
		if cur == nil || !e.Timestamp.Before(cur.EndTime) {
			if cur != nil {
				cur.Models = sortedKeys(modelSet)
				blocks = append(blocks, *cur)
			}
			start := e.Timestamp
			cur = &Block{
				ID:        start.UTC().Format(time.RFC3339),
				StartTime: start,
				EndTime:   start.Add(Duration),
				Cost:      decimal.Zero,
			}
			modelSet = make(map[string]struct{})
		}
		cur.Tokens.Add(e.Tokens)
		cur.Cost = cur.Cost.Add(e.Cost)
		cur.Events++
		cur.ActualEndTime = e.Timestamp
		modelSet[e.Model] = struct{}{}
	}
	if cur != nil {
		cur.Models = sortedKeys(modelSet)
		cur.IsActive = now.Before(cur.EndTime)
		blocks = append(blocks, *cur)
	}
	return blocks
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report describes the current rate-limit position. Timing fields are nil
// when no window is active.
type Report struct {
	HasActiveWindow   bool              `json:"has_active_window"`
	WindowStart       *time.Time        `json:"window_start,omitempty"`
	ResetTime         *time.Time        `json:"reset_time,omitempty"`
	LastActivity      *time.Time        `json:"last_activity,omitempty"`
	MinutesUntilReset float64           `json:"minutes_until_reset"`
	Tokens            model.TokenCounts `json:"tokens"`
	Cost              decimal.Decimal   `json:"cost"`
	Messages          int               `json:"messages"`
	Limit             int64             `json:"limit,omitempty"`
	Remaining         int64             `json:"remaining,omitempty"`
	PercentUsed       float64           `json:"percent_used,omitempty"`
	BurnRate          *BurnRate         `json:"burn_rate,omitempty"`
	Projection        *Projection       `json:"projection,omitempty"`
}

// Snapshot builds a Report from folded blocks. limit <= 0 means no known
// plan ceiling, leaving Limit, Remaining and PercentUsed unset.
func Snapshot(blocks []Block, now time.Time, limit int64) Report {
	rep := Report{Cost: decimal.Zero}
	if len(blocks) == 0 {
		return rep
	}
	last := blocks[len(blocks)-1]
	if !last.IsActive {
		return rep
	}

	rep.HasActiveWindow = true
	start := last.StartTime
	reset := last.EndTime
	activity := last.ActualEndTime
	rep.WindowStart = &start
	rep.ResetTime = &reset
	rep.LastActivity = &activity
	if mins := reset.Sub(now).Minutes(); mins > 0 {
		rep.MinutesUntilReset = mins
	}
	rep.Tokens = last.Tokens
	rep.Cost = last.Cost
	rep.Messages = last.Events

	if limit > 0 {
		rep.Limit = limit
		rep.Remaining = limit - last.Tokens.Total()
		if rep.Remaining < 0 {
			rep.Remaining = 0
		}
		rep.PercentUsed = float64(last.Tokens.Total()) / float64(limit) * 100
	}

	if br := Rate(last, now); br != nil {
		rep.BurnRate = br
		rep.Projection = Project(last, *br, now)
	}
	return rep
}
