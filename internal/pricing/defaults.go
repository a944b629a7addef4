package pricing

import (
	"github.com/shopspring/decimal"
)

// defaultRates is the embedded rate table, USD per million tokens. Cache
// creation is 1.25x input and cache read 0.1x input across the lineup.
func defaultRates() []Rate {
	mk := func(m string, in, out float64) Rate {
		input := decimal.NewFromFloat(in)
		return Rate{
			Model:         m,
			Input:         input,
			Output:        decimal.NewFromFloat(out),
			CacheCreation: input.Mul(decimal.NewFromFloat(1.25)),
			CacheRead:     input.Mul(decimal.NewFromFloat(0.1)),
			Version:       "builtin",
		}
	}
	return []Rate{
		mk("claude-opus-4-5", 5, 25),
		mk("claude-opus-4-1", 15, 75),
		mk("claude-opus-4", 15, 75),
		mk("claude-3-opus", 15, 75),
		mk("claude-sonnet-4-5", 3, 15),
		mk("claude-sonnet-4", 3, 15),
		mk("claude-3-7-sonnet", 3, 15),
		mk("claude-3-5-sonnet", 3, 15),
		mk("claude-haiku-4-5", 1, 5),
		mk("claude-3-5-haiku", 0.8, 4),
		mk("claude-3-haiku", 0.25, 1.25),
	}
}

// defaultFallback prices unknown models at sonnet-class rates; costs derived
// from it are flagged as estimates.
func defaultFallback() Rate {
	return Rate{
		Model:         "fallback",
		Input:         decimal.NewFromInt(3),
		Output:        decimal.NewFromInt(15),
		CacheCreation: decimal.NewFromFloat(3.75),
		CacheRead:     decimal.NewFromFloat(0.30),
		Version:       "fallback",
	}
}

// Default returns the embedded rate table.
func Default() *Table {
	return NewTable(defaultRates(), defaultFallback())
}
