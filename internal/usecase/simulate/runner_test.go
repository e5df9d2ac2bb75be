package simulate

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/metrics"
	"github.com/finscope/walletsim/internal/usecase/report"
	"github.com/finscope/walletsim/internal/usecase/risk"
)

func testRunner(spend int64) *Runner {
	cashFlow := CashFlowFunc(nil)
	if spend != 0 {
		cashFlow = func(day int, state *domain.WalletState) decimal.Decimal {
			return decimal.NewFromInt(spend)
		}
	}
	stepper := NewStepper(usdEngine(), startDate, cashFlow, nil)
	return NewRunner(stepper, nil, metrics.NewCollector())
}

func testPortfolio() []domain.Asset {
	return []domain.Asset{
		{Name: "Checking", Amount: decimal.NewFromInt(2000), Currency: "USD", LiquidityClass: domain.LiquidityClassLiquid},
		{Name: "Bond Fund", Amount: decimal.NewFromInt(5000), Currency: "USD", Volatility: 0.05, LiquidityClass: domain.LiquidityClassYield},
		{Name: "Index Fund", Amount: decimal.NewFromInt(3000), Currency: "EUR", Volatility: 0.3, LiquidityClass: domain.LiquidityClassVolatile},
	}
}

func TestRun_ProducesWellFormedEnsemble(t *testing.T) {
	runner := testRunner(-150)
	cfg := RunConfig{Days: 30, EnsembleSize: 20, Workers: 4, Seed: 1234, RateVolatility: 0.02}

	ensemble, err := runner.Run(context.Background(), initialState("1000", testPortfolio()...), usdTable(), cfg)
	require.NoError(t, err)

	require.Len(t, ensemble, 20)
	for i := range ensemble {
		require.NoError(t, ensemble[i].Validate(), "trajectory %d", i)
		assert.Equal(t, 31, ensemble[i].Days(), "day 0 plus 30 simulated days")
		for d, state := range ensemble[i].States {
			require.NoError(t, state.Validate(), "trajectory %d day %d", i, d)
			assert.Equal(t, d, state.Day)
		}
	}
}

func TestRun_SameSeedSameEnsemble(t *testing.T) {
	cfg := RunConfig{Days: 15, EnsembleSize: 8, Workers: 3, Seed: 99, RateVolatility: 0.05}
	initial := initialState("500", testPortfolio()...)

	first, err := testRunner(-100).Run(context.Background(), initial, usdTable(), cfg)
	require.NoError(t, err)
	second, err := testRunner(-100).Run(context.Background(), initial, usdTable(), cfg)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].Days(), second[i].Days())
		for d := range first[i].States {
			a, b := first[i].States[d], second[i].States[d]
			require.True(t, a.Balance.Equal(b.Balance), "trajectory %d day %d balance", i, d)
			require.Len(t, b.Assets, len(a.Assets))
			for j := range a.Assets {
				require.True(t, a.Assets[j].Amount.Equal(b.Assets[j].Amount),
					"trajectory %d day %d asset %d", i, d, j)
			}
		}
	}
}

func TestRun_WorkerCountDoesNotChangeResults(t *testing.T) {
	initial := initialState("500", testPortfolio()...)

	serial, err := testRunner(-100).Run(context.Background(), initial, usdTable(),
		RunConfig{Days: 10, EnsembleSize: 6, Workers: 1, Seed: 7, RateVolatility: 0.05})
	require.NoError(t, err)
	parallel, err := testRunner(-100).Run(context.Background(), initial, usdTable(),
		RunConfig{Days: 10, EnsembleSize: 6, Workers: 6, Seed: 7, RateVolatility: 0.05})
	require.NoError(t, err)

	for i := range serial {
		for d := range serial[i].States {
			require.True(t, serial[i].States[d].Balance.Equal(parallel[i].States[d].Balance),
				"trajectory %d day %d", i, d)
		}
	}
}

func TestRun_TrajectoriesDivergeFromEachOther(t *testing.T) {
	runner := testRunner(0)
	cfg := RunConfig{Days: 10, EnsembleSize: 2, Workers: 2, Seed: 42, RateVolatility: 0}

	ensemble, err := runner.Run(context.Background(), initialState("1000", testPortfolio()...), usdTable(), cfg)
	require.NoError(t, err)

	// Different derived seeds must shock the volatile asset differently.
	a := ensemble[0].Final().Assets[2].Amount
	b := ensemble[1].Final().Assets[2].Amount
	assert.False(t, a.Equal(b), "both trajectories ended with %s", a)
}

func TestRun_InvalidConfigRejected(t *testing.T) {
	runner := testRunner(0)
	initial := initialState("1000")

	for _, cfg := range []RunConfig{
		{Days: 0, EnsembleSize: 5},
		{Days: 5, EnsembleSize: 0},
		{Days: 5, EnsembleSize: 5, RateVolatility: -1},
	} {
		_, err := runner.Run(context.Background(), initial, usdTable(), cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "config %+v", cfg)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testRunner(0).Run(ctx, initialState("1000"), usdTable(),
		RunConfig{Days: 200, EnsembleSize: 500, Workers: 2, Seed: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

// End-to-end: a seeded run through the full pipeline produces an identical
// report both times.
func TestRun_EndToEndReportReproducible(t *testing.T) {
	cfg := RunConfig{Days: 40, EnsembleSize: 25, Workers: 5, Seed: 2024, RateVolatility: 0.03}
	initial := initialState("800", testPortfolio()...)
	aggregator := report.NewAggregator(usdEngine())

	var reports [2]*report.Report
	for i := range reports {
		ensemble, err := testRunner(-120).Run(context.Background(), initial, usdTable(), cfg)
		require.NoError(t, err)
		reports[i], err = aggregator.Aggregate(ensemble, usdTable(), startDate.AddDate(0, 0, cfg.Days))
		require.NoError(t, err)
	}

	assert.True(t, reports[0].Balances.Mean.Equal(reports[1].Balances.Mean))
	assert.True(t, reports[0].Balances.StdDev.Equal(reports[1].Balances.StdDev))
	assert.True(t, reports[0].Risk.CollapseProbability.Equal(reports[1].Risk.CollapseProbability))
	assert.True(t, reports[0].Risk.ValueAtRisk.Equal(reports[1].Risk.ValueAtRisk))
	assert.Equal(t, reports[0].Risk.Level, reports[1].Risk.Level)

	// Sanity on the composed packet's ranges.
	p := reports[0].Risk.CollapseProbability
	assert.True(t, p.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, p.LessThanOrEqual(decimal.NewFromInt(1)))
	if p.IsZero() {
		assert.True(t, reports[0].Risk.RecoveryRate.Equal(decimal.NewFromInt(1)))
	}
	assert.Contains(t, []risk.Level{risk.LevelLow, risk.LevelModerate, risk.LevelHigh, risk.LevelCritical},
		reports[0].Risk.Level)
}
