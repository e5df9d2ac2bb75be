package simulate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/usecase/fx"
	"github.com/finscope/walletsim/internal/usecase/liquidation"
)

var startDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func usdEngine() *liquidation.Engine {
	return liquidation.NewEngine(fx.NewResolver(), "USD")
}

func usdTable() *domain.ExchangeRateTable {
	table := domain.NewExchangeRateTable(map[string]decimal.Decimal{
		domain.PairKey("EUR", "USD"): decimal.RequireFromString("1.08"),
	}, startDate)
	return &table
}

func initialState(balance string, assets ...domain.Asset) domain.WalletState {
	return domain.WalletState{
		Day:         0,
		Balance:     decimal.RequireFromString(balance),
		Assets:      assets,
		CreditScore: 700,
	}
}

func TestStep_MaintainsHistoryInvariant(t *testing.T) {
	stepper := NewStepper(usdEngine(), startDate, nil, nil)
	state := initialState("1000")

	for day := 1; day <= 5; day++ {
		next, err := stepper.Step(&state, int64(day)*100, usdTable())
		require.NoError(t, err)
		assert.Equal(t, day, next.Day)
		require.Len(t, next.History, day, "history carries one snapshot per prior day")
		assert.Equal(t, day-1, next.History[day-1].Day)
		state = next
	}

	assert.NoError(t, state.Validate())
}

func TestStep_DoesNotMutatePriorState(t *testing.T) {
	stepper := NewStepper(usdEngine(), startDate, nil, nil)
	prior := initialState("1000", domain.Asset{
		Name:           "Index Fund",
		Amount:         decimal.NewFromInt(100),
		Currency:       "USD",
		Volatility:     0.5,
		LiquidityClass: domain.LiquidityClassVolatile,
	})

	_, err := stepper.Step(&prior, 42, usdTable())
	require.NoError(t, err)

	assert.Equal(t, 0, prior.Day)
	assert.True(t, prior.Balance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, prior.Assets[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, prior.History)
}

func TestStep_CashFlowAppliesBeforeLiquidation(t *testing.T) {
	// A -$500 day against a $100 balance forces a $400 liquidation from
	// the liquid asset; no penalty, so the balance lands exactly at zero.
	spend := func(day int, state *domain.WalletState) decimal.Decimal {
		return decimal.NewFromInt(-500)
	}
	stepper := NewStepper(usdEngine(), startDate, spend, nil)
	state := initialState("100", domain.Asset{
		Name:           "Checking",
		Amount:         decimal.NewFromInt(1000),
		Currency:       "USD",
		LiquidityClass: domain.LiquidityClassLiquid,
	})

	next, err := stepper.Step(&state, 1, usdTable())
	require.NoError(t, err)

	assert.True(t, next.Balance.IsZero(), "balance %s", next.Balance)
	assert.True(t, next.Assets[0].Amount.Equal(decimal.NewFromInt(600)), "asset %s", next.Assets[0].Amount)
}

func TestStep_InsolvencyBecomesNegativeBalance(t *testing.T) {
	spend := func(day int, state *domain.WalletState) decimal.Decimal {
		return decimal.NewFromInt(-1000)
	}
	stepper := NewStepper(usdEngine(), startDate, spend, nil)
	state := initialState("100") // nothing to liquidate

	next, err := stepper.Step(&state, 1, usdTable())
	require.NoError(t, err, "insolvency is a state, not an error")
	assert.True(t, next.Balance.Equal(decimal.NewFromInt(-900)), "balance %s", next.Balance)
}

func TestStep_CreditHookObservesNextState(t *testing.T) {
	var sawNegative bool
	credit := func(day int, prev, next *domain.WalletState) int {
		if next.Balance.IsNegative() {
			sawNegative = true
			return prev.CreditScore - 50
		}
		return prev.CreditScore
	}
	spend := func(day int, state *domain.WalletState) decimal.Decimal {
		return decimal.NewFromInt(-2000)
	}
	stepper := NewStepper(usdEngine(), startDate, spend, credit)
	state := initialState("100")

	next, err := stepper.Step(&state, 1, usdTable())
	require.NoError(t, err)
	assert.True(t, sawNegative)
	assert.Equal(t, 650, next.CreditScore)
}

func TestStep_SameSeedSameOutcome(t *testing.T) {
	stepper := NewStepper(usdEngine(), startDate, nil, nil)
	state := initialState("1000",
		domain.Asset{Name: "Index Fund", Amount: decimal.NewFromInt(100), Currency: "USD", Volatility: 0.4, LiquidityClass: domain.LiquidityClassVolatile},
		domain.Asset{Name: "Bond Fund", Amount: decimal.NewFromInt(200), Currency: "USD", Volatility: 0.1, LiquidityClass: domain.LiquidityClassYield},
	)

	a, err := stepper.Step(&state, 777, usdTable())
	require.NoError(t, err)
	b, err := stepper.Step(&state, 777, usdTable())
	require.NoError(t, err)

	require.Len(t, b.Assets, len(a.Assets))
	for i := range a.Assets {
		assert.True(t, a.Assets[i].Amount.Equal(b.Assets[i].Amount), "asset %d diverged", i)
	}
	assert.True(t, a.Balance.Equal(b.Balance))
}

func TestStep_RejectsBrokenHistoryInvariant(t *testing.T) {
	stepper := NewStepper(usdEngine(), startDate, nil, nil)
	broken := domain.WalletState{
		Day:     3,
		Balance: decimal.NewFromInt(100),
		History: []domain.DailySnapshot{{Day: 0}},
	}

	_, err := stepper.Step(&broken, 1, usdTable())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
