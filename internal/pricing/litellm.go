package pricing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const litellmURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// Fetcher pulls current model prices from the LiteLLM community dataset and
// caches them for an hour. It is opt-in; the embedded table is the default.
type Fetcher struct {
	client *http.Client

	mu        sync.Mutex
	cached    *Table
	fetchedAt time.Time
}

// NewFetcher returns a fetcher with a 10s request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 10 * time.Second}}
}

type litellmEntry struct {
	InputCostPerToken              float64 `json:"input_cost_per_token"`
	OutputCostPerToken             float64 `json:"output_cost_per_token"`
	CacheCreationInputTokenCost    float64 `json:"cache_creation_input_token_cost"`
	CacheReadInputTokenCost        float64 `json:"cache_read_input_token_cost"`
	LitellmProvider                string  `json:"litellm_provider"`
}

// Table fetches (or returns the cached) online rate table. The dataset's
// per-token prices convert to per-million with a +6 shift.
func (f *Fetcher) Table() (*Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil && time.Since(f.fetchedAt) < time.Hour {
		return f.cached, nil
	}

	resp, err := f.client.Get(litellmURL)
	if err != nil {
		return nil, fmt.Errorf("fetching model prices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching model prices: status %d", resp.StatusCode)
	}

	var entries map[string]litellmEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding model prices: %w", err)
	}

	rows := defaultRates()
	for name, e := range entries {
		if e.LitellmProvider != "anthropic" || !strings.HasPrefix(name, "claude") {
			continue
		}
		if e.InputCostPerToken == 0 && e.OutputCostPerToken == 0 {
			continue
		}
		rows = append(rows, Rate{
			Model:         name,
			Input:         decimal.NewFromFloat(e.InputCostPerToken).Shift(6),
			Output:        decimal.NewFromFloat(e.OutputCostPerToken).Shift(6),
			CacheCreation: decimal.NewFromFloat(e.CacheCreationInputTokenCost).Shift(6),
			CacheRead:     decimal.NewFromFloat(e.CacheReadInputTokenCost).Shift(6),
			Version:       "litellm",
		})
	}
	f.cached = NewTable(rows, defaultFallback())
	f.fetchedAt = time.Now()
	return f.cached, nil
}
