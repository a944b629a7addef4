package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenCounts holds the four independently priced token categories.
type TokenCounts struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
}

// Total returns the sum across all four token kinds.
func (tc TokenCounts) Total() int64 {
	return tc.InputTokens + tc.OutputTokens + tc.CacheCreationTokens + tc.CacheReadTokens
}

// Add accumulates another set of counts into tc.
func (tc *TokenCounts) Add(other TokenCounts) {
	tc.InputTokens += other.InputTokens
	tc.OutputTokens += other.OutputTokens
	tc.CacheCreationTokens += other.CacheCreationTokens
	tc.CacheReadTokens += other.CacheReadTokens
}

// IsZero reports whether every token kind is zero.
func (tc TokenCounts) IsZero() bool {
	return tc.InputTokens == 0 && tc.OutputTokens == 0 &&
		tc.CacheCreationTokens == 0 && tc.CacheReadTokens == 0
}

// UsageEvent is one accounted unit of assistant usage, normalized from a
// single raw log record. Immutable once produced by the reader.
//
// A zero Timestamp means the source timestamp could not be resolved; such
// events are still counted in model and overall totals but excluded from
// date-bucketed views.
type UsageEvent struct {
	Timestamp   time.Time
	SessionID   string
	ProjectPath string
	Model       string
	MessageID   string
	RequestID   string
	Tokens      TokenCounts
}

// PricedUsageEvent is a UsageEvent with its resolved cost attached.
type PricedUsageEvent struct {
	UsageEvent
	// Cost in USD, computed with decimal arithmetic so accumulation over
	// thousands of events does not drift. Round at presentation only.
	Cost        decimal.Decimal
	RateVersion string
	// Estimated is set when the cost came from the fallback rate rather
	// than a rate row for the event's model.
	Estimated bool
}
