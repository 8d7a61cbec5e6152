package billing

import (
	"fmt"
	"math"

	"github.com/radio-t/doc-podcast/podcast"
)

// billing defaults: unit price and margin over raw external cost
const (
	// DefaultMargin is the share of the unit price kept as margin
	DefaultMargin = 0.6
	// DefaultPerUnitRate is the raw-cost value of one billing unit in USD
	DefaultPerUnitRate = 0.005
)

// external service pricing in USD per token
const (
	inputTokenPrice  = 2.50 / 1_000_000
	outputTokenPrice = 10.00 / 1_000_000
)

// pre-flight estimate heuristics: tokens from input size alone, no calls
const (
	estimatedBytesPerToken = 4
	// generated dialogue roughly mirrors the source in token count
	estimatedOutputRatio = 1.0
)

// ceilEpsilon guards the unit ceiling against float representation noise
const ceilEpsilon = 1e-9

// Accountant converts raw external-service cost into internal billing units
// with margin, and checks period usage against subscriber limits.
type Accountant struct {
	margin float64
	rate   float64
}

// NewAccountant creates a new accountant. Margin must sit strictly between 0
// and 1 and the rate must be positive; anything else falls back to defaults.
func NewAccountant(margin, rate float64) *Accountant {
	if margin <= 0 || margin >= 1 {
		margin = DefaultMargin
	}
	if rate <= 0 {
		rate = DefaultPerUnitRate
	}
	return &Accountant{margin: margin, rate: rate}
}

// Units converts raw cost into billing units: ceil(cost / (1-margin) / rate).
// Zero or negative cost is zero units; the function is monotonically
// non-decreasing in cost.
func (a *Accountant) Units(cost float64) int {
	if cost <= 0 {
		return 0
	}
	return int(math.Ceil(cost/(1-a.margin)/a.rate - ceilEpsilon))
}

// Cost computes the raw external cost of the given token usage.
func (a *Accountant) Cost(u podcast.Usage) float64 {
	return float64(u.InputTokens)*inputTokenPrice + float64(u.OutputTokens)*outputTokenPrice
}

// Estimate derives a pre-flight usage estimate from the document size alone,
// without making any external call. Used by the quota check before the run
// is allowed to start.
func (a *Accountant) Estimate(docBytes int) podcast.Usage {
	in := docBytes / estimatedBytesPerToken
	out := int(float64(in) * estimatedOutputRatio)
	u := podcast.Usage{InputTokens: in, OutputTokens: out}
	u.TotalCost = a.Cost(u)
	return u
}

// Actual fills in the cost of real token usage collected during a run.
func (a *Accountant) Actual(u podcast.Usage) podcast.Usage {
	u.TotalCost = a.Cost(u)
	return u
}

// Limits holds a subscriber's per-period allowances.
type Limits struct {
	Articles int
	Units    int
}

// PeriodUsage is what a subscriber has consumed in the current period.
type PeriodUsage struct {
	Articles int
	Units    int
}

// QuotaExceededError reports which allowance a run would exceed, with the
// figures a client needs to display remaining/limit data.
type QuotaExceededError struct {
	Kind  string // "articles" or "units"
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: used %d of %d", e.Kind, e.Used, e.Limit)
}

// CheckQuota verifies that current usage plus the estimate fits both limits.
// A non-nil result means the run must not start and no external call may be
// made.
func (a *Accountant) CheckQuota(current PeriodUsage, estimate podcast.Usage, limits Limits) error {
	if current.Articles+1 > limits.Articles {
		return &QuotaExceededError{Kind: "articles", Used: current.Articles, Limit: limits.Articles}
	}
	if current.Units+a.Units(estimate.TotalCost) > limits.Units {
		return &QuotaExceededError{Kind: "units", Used: current.Units, Limit: limits.Units}
	}
	return nil
}
