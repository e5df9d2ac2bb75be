// Package risk reduces simulated trajectories into risk measures: collapse
// probability, drawdown, Value-at-Risk, recovery dynamics and shock
// clustering. Every function is pure and reads its inputs only.
package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/finscope/walletsim/internal/domain"
)

// Level classifies an ensemble's collapse probability.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Collapse probability thresholds; each is an exclusive upper bound and
// critical is the catch-all.
var (
	thresholdLow      = decimal.RequireFromString("0.10")
	thresholdModerate = decimal.RequireFromString("0.25")
	thresholdHigh     = decimal.RequireFromString("0.50")
)

var hundred = decimal.NewFromInt(100)

// ClassifyLevel maps a collapse probability onto a risk level.
func ClassifyLevel(collapseProbability decimal.Decimal) Level {
	switch {
	case collapseProbability.LessThan(thresholdLow):
		return LevelLow
	case collapseProbability.LessThan(thresholdModerate):
		return LevelModerate
	case collapseProbability.LessThan(thresholdHigh):
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Report is the composed risk packet for one ensemble.
type Report struct {
	CollapseProbability    decimal.Decimal `json:"collapse_probability"`
	AverageCollapseDay     int             `json:"average_collapse_day"`
	RecoveryRate           decimal.Decimal `json:"recovery_rate"`
	MaxDrawdownPct         decimal.Decimal `json:"max_drawdown_pct"`
	ValueAtRisk            decimal.Decimal `json:"value_at_risk"`
	ConditionalValueAtRisk decimal.Decimal `json:"conditional_value_at_risk"`
	AverageRecoverySlope   int             `json:"average_recovery_slope"`
	ShockClusteringDensity decimal.Decimal `json:"shock_clustering_density"`
	Level                  Level           `json:"level"`
}

// tailPercentile is the tail used for the composed report's VaR/CVaR: the
// conventional 95% confidence level on final balances.
const tailPercentile = 0.05

// Analyze computes the full risk packet for an ensemble.
func Analyze(ensemble domain.Ensemble) (*Report, error) {
	if err := ensemble.Validate(); err != nil {
		return nil, err
	}

	probability, err := CollapseProbability(ensemble)
	if err != nil {
		return nil, err
	}
	averageDay, err := AverageCollapseDay(ensemble)
	if err != nil {
		return nil, err
	}
	recovery, err := RecoveryRate(ensemble)
	if err != nil {
		return nil, err
	}
	drawdown, err := MaxDrawdown(ensemble)
	if err != nil {
		return nil, err
	}
	valueAtRisk, err := ValueAtRisk(ensemble, tailPercentile)
	if err != nil {
		return nil, err
	}
	conditional, err := ConditionalValueAtRisk(ensemble, tailPercentile)
	if err != nil {
		return nil, err
	}
	slope, err := AverageRecoverySlope(ensemble)
	if err != nil {
		return nil, err
	}

	density := decimal.Zero
	for i := range ensemble {
		d, err := ShockClusteringDensity(&ensemble[i])
		if err != nil {
			return nil, err
		}
		density = density.Add(d)
	}
	density = density.Div(decimal.NewFromInt(int64(len(ensemble)))).Round(4)

	return &Report{
		CollapseProbability:    probability,
		AverageCollapseDay:     averageDay,
		RecoveryRate:           recovery,
		MaxDrawdownPct:         drawdown,
		ValueAtRisk:            valueAtRisk,
		ConditionalValueAtRisk: conditional,
		AverageRecoverySlope:   slope,
		ShockClusteringDensity: density,
		Level:                  ClassifyLevel(probability),
	}, nil
}

// CollapseDay returns the first day index with a negative balance. A
// trajectory collapses at most once; later dips do not count again.
func CollapseDay(t *domain.Trajectory) (int, bool) {
	for _, state := range t.States {
		if state.Balance.IsNegative() {
			return state.Day, true
		}
	}
	return 0, false
}

// Recovered reports whether any day after the collapse day closed with a
// positive balance, regardless of later zero crossings.
func Recovered(t *domain.Trajectory) bool {
	day, collapsed := CollapseDay(t)
	if !collapsed {
		return false
	}
	for _, state := range t.States {
		if state.Day > day && state.Balance.IsPositive() {
			return true
		}
	}
	return false
}

// CollapseProbability is the fraction of trajectories with a detected
// collapse, reported to 4 decimal places.
func CollapseProbability(ensemble domain.Ensemble) (decimal.Decimal, error) {
	if err := ensemble.Validate(); err != nil {
		return decimal.Zero, err
	}
	collapsed := 0
	for i := range ensemble {
		if _, ok := CollapseDay(&ensemble[i]); ok {
			collapsed++
		}
	}
	return decimal.NewFromInt(int64(collapsed)).
		Div(decimal.NewFromInt(int64(len(ensemble)))).
		Round(4), nil
}

// AverageCollapseDay is the mean collapse day across collapsed
// trajectories, rounded to the nearest integer; 0 if none collapsed.
func AverageCollapseDay(ensemble domain.Ensemble) (int, error) {
	if err := ensemble.Validate(); err != nil {
		return 0, err
	}
	sum, collapsed := 0, 0
	for i := range ensemble {
		if day, ok := CollapseDay(&ensemble[i]); ok {
			sum += day
			collapsed++
		}
	}
	if collapsed == 0 {
		return 0, nil
	}
	mean := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(collapsed)))
	return int(mean.Round(0).IntPart()), nil
}

// RecoveryRate is the fraction of collapsed trajectories that later
// recovered; 1.0 when nothing collapsed.
func RecoveryRate(ensemble domain.Ensemble) (decimal.Decimal, error) {
	if err := ensemble.Validate(); err != nil {
		return decimal.Zero, err
	}
	collapsed, recovered := 0, 0
	for i := range ensemble {
		if _, ok := CollapseDay(&ensemble[i]); !ok {
			continue
		}
		collapsed++
		if Recovered(&ensemble[i]) {
			recovered++
		}
	}
	if collapsed == 0 {
		return decimal.NewFromInt(1), nil
	}
	return decimal.NewFromInt(int64(recovered)).
		Div(decimal.NewFromInt(int64(collapsed))).
		Round(4), nil
}

// MaxDrawdown is the worst peak-to-trough decline observed on any day of
// any trajectory, as a percentage rounded to 2 decimal places. Peak and
// trough only ever extend over a trajectory's lifetime; they never reset.
func MaxDrawdown(ensemble domain.Ensemble) (decimal.Decimal, error) {
	if err := ensemble.Validate(); err != nil {
		return decimal.Zero, err
	}
	worst := decimal.Zero
	for i := range ensemble {
		states := ensemble[i].States
		peak := states[0].Balance
		trough := states[0].Balance
		for _, state := range states {
			if state.Balance.GreaterThan(peak) {
				peak = state.Balance
			}
			if state.Balance.LessThan(trough) {
				trough = state.Balance
			}
			if !peak.IsPositive() {
				continue
			}
			drawdown := peak.Sub(trough).Div(peak)
			if drawdown.GreaterThan(worst) {
				worst = drawdown
			}
		}
	}
	return worst.Mul(hundred).Round(2), nil
}

// sortedFinalBalances returns all final-day balances ascending.
func sortedFinalBalances(ensemble domain.Ensemble) []decimal.Decimal {
	finals := ensemble.FinalBalances()
	sort.Slice(finals, func(i, j int) bool { return finals[i].LessThan(finals[j]) })
	return finals
}

// percentileIndex applies the floor(n*p) indexing rule shared by VaR and
// the percentile statistics, clamped to the last element so p=1 is defined.
func percentileIndex(n int, p float64) int {
	idx := int(math.Floor(float64(n) * p))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func validatePercentile(p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("%w: percentile %v outside [0,1]", domain.ErrInvalidInput, p)
	}
	return nil
}

// ValueAtRisk is the final-day balance at sorted index floor(n*p), clamped
// to zero from below.
func ValueAtRisk(ensemble domain.Ensemble, p float64) (decimal.Decimal, error) {
	if err := ensemble.Validate(); err != nil {
		return decimal.Zero, err
	}
	if err := validatePercentile(p); err != nil {
		return decimal.Zero, err
	}
	finals := sortedFinalBalances(ensemble)
	value := finals[percentileIndex(len(finals), p)]
	if value.IsNegative() {
		return decimal.Zero, nil
	}
	return value, nil
}

// ConditionalValueAtRisk is the mean of the sorted final balances from the
// worst outcome through index floor(n*p) inclusive — the expected loss
// given the tail.
func ConditionalValueAtRisk(ensemble domain.Ensemble, p float64) (decimal.Decimal, error) {
	if err := ensemble.Validate(); err != nil {
		return decimal.Zero, err
	}
	if err := validatePercentile(p); err != nil {
		return decimal.Zero, err
	}
	finals := sortedFinalBalances(ensemble)
	idx := percentileIndex(len(finals), p)
	sum := decimal.Zero
	for _, balance := range finals[:idx+1] {
		sum = sum.Add(balance)
	}
	return sum.Div(decimal.NewFromInt(int64(idx + 1))).Truncate(domain.AmountPrecision), nil
}

// ShockClusteringDensity is the fraction of a trajectory's days where the
// day's own balance is negative or the most recent history entry carried a
// negative balance — how often negative-balance conditions appear across
// the observation window.
func ShockClusteringDensity(t *domain.Trajectory) (decimal.Decimal, error) {
	if err := t.Validate(); err != nil {
		return decimal.Zero, err
	}
	hits := 0
	for i := range t.States {
		state := &t.States[i]
		if state.Balance.IsNegative() {
			hits++
			continue
		}
		if last, ok := state.LastHistoryEntry(); ok && last.Balance.IsNegative() {
			hits++
		}
	}
	return decimal.NewFromInt(int64(hits)).
		Div(decimal.NewFromInt(int64(len(t.States)))).
		Round(4), nil
}

// RecoverySlope is the number of days between the first collapse and the
// first later day with a non-negative balance; -1 if the trajectory never
// collapsed or never came back.
func RecoverySlope(t *domain.Trajectory) (int, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	day, collapsed := CollapseDay(t)
	if !collapsed {
		return -1, nil
	}
	for _, state := range t.States {
		if state.Day > day && !state.Balance.IsNegative() {
			return state.Day - day, nil
		}
	}
	return -1, nil
}

// AverageRecoverySlope is the mean of all positive per-trajectory recovery
// slopes, rounded to the nearest integer; 0 if none are positive.
func AverageRecoverySlope(ensemble domain.Ensemble) (int, error) {
	if err := ensemble.Validate(); err != nil {
		return 0, err
	}
	sum, count := 0, 0
	for i := range ensemble {
		slope, err := RecoverySlope(&ensemble[i])
		if err != nil {
			return 0, err
		}
		if slope > 0 {
			sum += slope
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	mean := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(count)))
	return int(mean.Round(0).IntPart()), nil
}
