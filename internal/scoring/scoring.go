// Package scoring computes the deterministic trust/value score of a company
// from its current fact set. Identical inputs always produce identical
// outputs; the engine holds no state and performs no I/O.
package scoring

import (
	"math"
	"time"
)

// Tunable weights. The shape of the formula (log-scale diminishing returns,
// flat bonuses, flag penalties) is the contract; the numbers are heuristics.
const (
	baseScore = 20

	revenueUnit   = 1_000 // RON, log taken over revenue/unit
	revenueWeight = 5.0
	revenueCap    = 30.0

	employeeWeight = 6.0
	employeeCap    = 15.0

	websiteBonus   = 5
	ageBonusYears  = 5
	ageBonus       = 5
	profitBonus    = 5
	profitPenalty  = 5
	minScore       = 0
	maxScore       = 100
	lowHeadcount   = 3
	freshnessLimit = 180 * 24 * time.Hour

	// Confidence weights
	confidencePerSource = 10
	confidenceSourceCap = 40
	confidenceFreshness = 20
	confidenceVerified  = 25
	confidenceClaimed   = 15

	// Valuation multiples
	revenueMultipleLow   = 0.8
	revenueMultipleHigh  = 1.6
	perEmployeeValueLow  = 50_000
	perEmployeeValueHigh = 120_000
)

// Facts is the snapshot of everything the engine scores from.
type Facts struct {
	Revenue   *int64
	Profit    *int64
	Employees *int
	Website   *string
	FoundedAt *time.Time

	Verified     bool
	ClaimedBy    int // approved claims
	SourceCount  int // distinct provenance sources
	LastSeenAt   *time.Time
	AbuseSignals []string // appended verbatim as risk flags

	// Now anchors age/freshness computation so results are reproducible.
	Now time.Time
}

// Result is the scored outcome.
type Result struct {
	Score      int
	Confidence int
	RiskFlags  []string
	Valuation  *ValuationRange
}

// ValuationRange is a coarse estimate; Low < High always holds.
type ValuationRange struct {
	Low  int64
	High int64
}

// Score computes the deterministic score, confidence and risk flags.
func Score(f Facts) Result {
	score := float64(baseScore)

	if f.Revenue != nil && *f.Revenue > 0 {
		contribution := revenueWeight * math.Log10(float64(*f.Revenue)/revenueUnit+1)
		score += math.Min(contribution, revenueCap)
	}
	if f.Employees != nil && *f.Employees > 0 {
		contribution := employeeWeight * math.Log10(float64(*f.Employees)+1)
		score += math.Min(contribution, employeeCap)
	}
	if f.Website != nil && *f.Website != "" {
		score += websiteBonus
	}
	if f.FoundedAt != nil && f.Now.Sub(*f.FoundedAt) >= time.Duration(ageBonusYears)*365*24*time.Hour {
		score += ageBonus
	}
	if f.Profit != nil {
		if *f.Profit > 0 {
			score += profitBonus
		} else if *f.Profit < 0 {
			score -= profitPenalty
		}
	}

	return Result{
		Score:      clamp(int(math.Round(score))),
		Confidence: confidence(f),
		RiskFlags:  riskFlags(f),
		Valuation:  valuation(f),
	}
}

// confidence measures breadth/freshness/approval of contributing facts,
// independently of the score's magnitude.
func confidence(f Facts) int {
	c := 0

	sources := f.SourceCount * confidencePerSource
	if sources > confidenceSourceCap {
		sources = confidenceSourceCap
	}
	c += sources

	if f.LastSeenAt != nil && f.Now.Sub(*f.LastSeenAt) <= freshnessLimit {
		c += confidenceFreshness
	}
	if f.Verified {
		c += confidenceVerified
	}
	if f.ClaimedBy > 0 {
		c += confidenceClaimed
	}

	if c > maxScore {
		c = maxScore
	}
	return c
}

func riskFlags(f Facts) []string {
	var flags []string
	if f.Revenue == nil {
		flags = append(flags, "missing_revenue")
	}
	if f.Website == nil || *f.Website == "" {
		flags = append(flags, "missing_website")
	}
	if f.Employees != nil && *f.Employees < lowHeadcount {
		flags = append(flags, "low_headcount")
	}
	flags = append(flags, f.AbuseSignals...)
	return flags
}

// valuation uses a revenue multiple when revenue is known, falling back to a
// per-employee multiple.
func valuation(f Facts) *ValuationRange {
	if f.Revenue != nil && *f.Revenue > 0 {
		return &ValuationRange{
			Low:  int64(float64(*f.Revenue) * revenueMultipleLow),
			High: int64(float64(*f.Revenue) * revenueMultipleHigh),
		}
	}
	if f.Employees != nil && *f.Employees > 0 {
		return &ValuationRange{
			Low:  int64(*f.Employees) * perEmployeeValueLow,
			High: int64(*f.Employees) * perEmployeeValueHigh,
		}
	}
	return nil
}

func clamp(v int) int {
	if v < minScore {
		return minScore
	}
	if v > maxScore {
		return maxScore
	}
	return v
}
