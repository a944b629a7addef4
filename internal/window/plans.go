package window

import (
	"fmt"
	"sort"
)

// Plan is a subscription tier with a per-window token ceiling.
type Plan string

const (
	PlanPro    Plan = "pro"
	PlanMax5x  Plan = "max5x"
	PlanMax20x Plan = "max20x"
	// PlanCustom estimates the ceiling from observed history.
	PlanCustom Plan = "custom"
)

var planLimits = map[Plan]int64{
	PlanPro:    44_000,
	PlanMax5x:  220_000,
	PlanMax20x: 880_000,
}

// limitHitThreshold marks a completed window as having neared its ceiling.
const limitHitThreshold = 0.95

// ParsePlan validates a plan name.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanPro, PlanMax5x, PlanMax20x, PlanCustom:
		return Plan(s), nil
	case "":
		return PlanCustom, nil
	}
	return "", fmt.Errorf("unknown plan %q (want pro, max5x, max20x or custom)", s)
}

// Limit returns the token ceiling for a plan. For the custom plan the
// ceiling is estimated from completed window history.
func (p Plan) Limit(history []Block) int64 {
	if lim, ok := planLimits[p]; ok {
		return lim
	}
	return estimateLimit(history)
}

// estimateLimit takes the P90 of completed window token totals, preferring
// windows that came within limitHitThreshold of a known tier ceiling. Floors
// at the pro tier so sparse history does not report a tiny budget.
func estimateLimit(history []Block) int64 {
	var totals []int64
	var nearLimit []int64
	for _, b := range history {
		if b.IsActive || b.Tokens.IsZero() {
			continue
		}
		total := b.Tokens.Total()
		totals = append(totals, total)
		for _, lim := range planLimits {
			if float64(total) >= float64(lim)*limitHitThreshold {
				nearLimit = append(nearLimit, total)
				break
			}
		}
	}
	sample := totals
	if len(nearLimit) > 0 {
		sample = nearLimit
	}
	est := percentile90(sample)
	if floor := planLimits[PlanPro]; est < floor {
		return floor
	}
	return est
}

// percentile90 is the nearest-rank P90.
func percentile90(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := (len(sorted)*90 + 99) / 100 // ceil(0.9n)
	return sorted[rank-1]
}
