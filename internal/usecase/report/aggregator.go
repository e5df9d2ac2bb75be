// Package report reduces an ensemble to descriptive statistics and composes
// the risk packet into the single reporting object handed to the
// presentation layer.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/usecase/liquidation"
	"github.com/finscope/walletsim/internal/usecase/risk"
)

// CreditTier buckets a credit score for reporting.
type CreditTier string

const (
	CreditTierExcellent CreditTier = "excellent"
	CreditTierGood      CreditTier = "good"
	CreditTierFair      CreditTier = "fair"
	CreditTierPoor      CreditTier = "poor"
	CreditTierBad       CreditTier = "bad"
)

// creditTierFloors is the single threshold table used both for the tier
// distribution and the tier-lookup helper, so the two can never drift.
var creditTierFloors = []struct {
	tier  CreditTier
	floor int
}{
	{CreditTierExcellent, 750},
	{CreditTierGood, 670},
	{CreditTierFair, 580},
	{CreditTierPoor, 450},
	{CreditTierBad, math.MinInt},
}

// CreditTierFor maps a credit score onto its reporting tier.
func CreditTierFor(score int) CreditTier {
	for _, entry := range creditTierFloors {
		if score >= entry.floor {
			return entry.tier
		}
	}
	return CreditTierBad
}

// RiskLevelFor is the presentation-layer lookup for risk levels. It defers
// to the risk engine's classification so both layers share one table.
func RiskLevelFor(collapseProbability decimal.Decimal) risk.Level {
	return risk.ClassifyLevel(collapseProbability)
}

// BalanceStatistics summarizes the ensemble's final-day balances.
type BalanceStatistics struct {
	Mean   decimal.Decimal `json:"mean"`
	Median decimal.Decimal `json:"median"`
	P5     decimal.Decimal `json:"p5"`
	P95    decimal.Decimal `json:"p95"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	StdDev decimal.Decimal `json:"std_dev"`
}

// CreditStatistics summarizes the ensemble's final-day credit scores.
type CreditStatistics struct {
	MeanScore    decimal.Decimal            `json:"mean_score"`
	Distribution map[CreditTier]decimal.Decimal `json:"distribution"` // percentages summing to 100
}

// AssetStatistics summarizes holdings across the ensemble's final states.
type AssetStatistics struct {
	AverageNetAssetValue  decimal.Decimal `json:"average_net_asset_value"`
	AverageLiquidityRatio decimal.Decimal `json:"average_liquidity_ratio"`
}

// Report is the complete reporting packet for one ensemble run.
type Report struct {
	Balances BalanceStatistics `json:"balances"`
	Credit   CreditStatistics  `json:"credit"`
	Assets   AssetStatistics   `json:"assets"`
	Risk     risk.Report       `json:"risk"`
}

// Aggregator composes ensemble statistics. Asset valuation needs the
// liquidation engine for base-currency conversion.
type Aggregator struct {
	engine *liquidation.Engine
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(engine *liquidation.Engine) *Aggregator {
	return &Aggregator{engine: engine}
}

// Aggregate reduces an ensemble into the full reporting packet. The rate
// table values final-day assets; now resolves asset locks for the
// liquidity ratio.
func (a *Aggregator) Aggregate(ensemble domain.Ensemble, table *domain.ExchangeRateTable, now time.Time) (*Report, error) {
	if err := ensemble.Validate(); err != nil {
		return nil, err
	}

	riskReport, err := risk.Analyze(ensemble)
	if err != nil {
		return nil, err
	}

	balances, err := balanceStatistics(ensemble)
	if err != nil {
		return nil, err
	}
	credit := creditStatistics(ensemble)

	assets, err := a.assetStatistics(ensemble, table, now)
	if err != nil {
		return nil, err
	}

	return &Report{
		Balances: balances,
		Credit:   credit,
		Assets:   assets,
		Risk:     *riskReport,
	}, nil
}

// percentileIndex mirrors the floor(n*p) rule the risk engine uses for VaR,
// clamped to the last element.
func percentileIndex(n int, p float64) int {
	idx := int(math.Floor(float64(n) * p))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func balanceStatistics(ensemble domain.Ensemble) (BalanceStatistics, error) {
	finals := ensemble.FinalBalances()
	sort.Slice(finals, func(i, j int) bool { return finals[i].LessThan(finals[j]) })
	n := len(finals)
	count := decimal.NewFromInt(int64(n))

	sum := decimal.Zero
	for _, balance := range finals {
		sum = sum.Add(balance)
	}
	mean := sum.Div(count)

	// Population standard deviation. Decimal has no square root, so the
	// variance crosses through float64; the error stays far below the
	// 6-decimal reporting precision.
	variance := decimal.Zero
	for _, balance := range finals {
		diff := balance.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(count)
	stddev := decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))

	return BalanceStatistics{
		Mean:   mean.Truncate(domain.AmountPrecision),
		Median: finals[percentileIndex(n, 0.5)],
		P5:     finals[percentileIndex(n, 0.05)],
		P95:    finals[percentileIndex(n, 0.95)],
		Min:    finals[0],
		Max:    finals[n-1],
		StdDev: stddev.Truncate(domain.AmountPrecision),
	}, nil
}

func creditStatistics(ensemble domain.Ensemble) CreditStatistics {
	counts := make(map[CreditTier]int, len(creditTierFloors))
	sum := 0
	for i := range ensemble {
		score := ensemble[i].Final().CreditScore
		sum += score
		counts[CreditTierFor(score)]++
	}

	n := decimal.NewFromInt(int64(len(ensemble)))
	distribution := make(map[CreditTier]decimal.Decimal, len(creditTierFloors))
	for _, entry := range creditTierFloors {
		distribution[entry.tier] = decimal.NewFromInt(int64(counts[entry.tier])).
			Mul(decimal.NewFromInt(100)).
			Div(n).
			Round(2)
	}

	return CreditStatistics{
		MeanScore:    decimal.NewFromInt(int64(sum)).Div(n).Round(2),
		Distribution: distribution,
	}
}

func (a *Aggregator) assetStatistics(ensemble domain.Ensemble, table *domain.ExchangeRateTable, now time.Time) (AssetStatistics, error) {
	navSum := decimal.Zero
	ratioSum := decimal.Zero
	for i := range ensemble {
		final := ensemble[i].Final()
		nav, err := a.engine.NetAssetValue(table, final.Assets)
		if err != nil {
			return AssetStatistics{}, err
		}
		ratio, err := a.engine.LiquidityRatio(table, &final, now)
		if err != nil {
			return AssetStatistics{}, err
		}
		navSum = navSum.Add(nav)
		ratioSum = ratioSum.Add(ratio)
	}

	n := decimal.NewFromInt(int64(len(ensemble)))
	return AssetStatistics{
		AverageNetAssetValue:  navSum.Div(n).Truncate(domain.AmountPrecision),
		AverageLiquidityRatio: ratioSum.Div(n).Truncate(domain.AmountPrecision),
	}, nil
}
