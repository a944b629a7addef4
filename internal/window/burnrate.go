package window

import (
	"time"

	"github.com/shopspring/decimal"
)

// BurnRate is the consumption rate inside the active window.
type BurnRate struct {
	TokensPerMinute float64         `json:"tokens_per_minute"`
	CostPerHour     decimal.Decimal `json:"cost_per_hour"`
}

// Projection extrapolates the burn rate out to the window reset.
type Projection struct {
	TotalTokens      int64           `json:"total_tokens"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	RemainingMinutes float64         `json:"remaining_minutes"`
}

// Rate computes the active window's burn rate, measured from window start to
// now. Windows younger than a minute have no meaningful rate.
func Rate(b Block, now time.Time) *BurnRate {
	if !b.IsActive {
		return nil
	}
	elapsed := now.Sub(b.StartTime)
	if elapsed < time.Minute {
		return nil
	}
	minutes := elapsed.Minutes()
	perMin := b.Cost.Div(decimal.NewFromFloat(minutes))
	return &BurnRate{
		TokensPerMinute: float64(b.Tokens.Total()) / minutes,
		CostPerHour:     perMin.Mul(decimal.NewFromInt(60)),
	}
}

// Project assumes the burn rate holds until reset and returns the window's
// projected totals.
func Project(b Block, rate BurnRate, now time.Time) *Projection {
	remaining := b.EndTime.Sub(now).Minutes()
	if remaining < 0 {
		remaining = 0
	}
	projectedCost := b.Cost.Add(
		rate.CostPerHour.Div(decimal.NewFromInt(60)).Mul(decimal.NewFromFloat(remaining)))
	return &Projection{
		TotalTokens:      b.Tokens.Total() + int64(rate.TokensPerMinute*remaining),
		TotalCost:        projectedCost,
		RemainingMinutes: remaining,
	}
}
