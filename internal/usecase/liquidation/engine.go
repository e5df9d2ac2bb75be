// Package liquidation revalues a holder's assets under seeded stochastic
// shocks, accrues yield, and sells assets in liquidity-priority order to
// cover a cash deficit.
package liquidation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/rng"
	"github.com/finscope/walletsim/internal/usecase/fx"
)

// Annualized yield band for yield-class assets, accrued daily at rate/365.
const (
	yieldRateMin = 0.02
	yieldRateMax = 0.05
)

var (
	one         = decimal.NewFromInt(1)
	daysPerYear = decimal.NewFromInt(365)
)

// RevalueAssets applies one seeded stochastic shock per asset, in array
// order, and returns a new slice; the input is never mutated.
//
// For each asset a uniform draw u maps to a shock in [-volatility,
// +volatility) and the new quantity is max(0, amount*(1+shock)) truncated to
// the reproducibility precision. The draw order matches array order exactly:
// the same seed and input always reproduce byte-identical output, which is
// what makes recorded seeds replayable.
func RevalueAssets(assets []domain.Asset, seed int64) []domain.Asset {
	g := rng.New(seed)
	out := domain.CloneAssets(assets)
	for i := range out {
		shock := (2*g.Float64() - 1) * out[i].Volatility
		revalued := out[i].Amount.Mul(one.Add(decimal.NewFromFloat(shock))).Truncate(domain.AmountPrecision)
		if revalued.IsNegative() {
			revalued = decimal.Zero
		}
		out[i].Amount = revalued
	}
	return out
}

// ApplyYield accrues one day of yield on yield-class assets and returns a
// new slice; other classes pass through unchanged and consume no draw.
//
// The daily accrual is amount*(rate/365) with rate drawn uniformly from the
// annualized [2%, 5%] band, one draw per yield asset in array order, under
// the same determinism contract as RevalueAssets.
func ApplyYield(assets []domain.Asset, seed int64) []domain.Asset {
	g := rng.New(seed)
	out := domain.CloneAssets(assets)
	for i := range out {
		if out[i].LiquidityClass != domain.LiquidityClassYield {
			continue
		}
		rate := decimal.NewFromFloat(g.Range(yieldRateMin, yieldRateMax))
		accrued := out[i].Amount.Mul(rate).Div(daysPerYear)
		out[i].Amount = out[i].Amount.Add(accrued).Truncate(domain.AmountPrecision)
	}
	return out
}

// Engine values and liquidates assets against a base currency.
type Engine struct {
	resolver     *fx.Resolver
	baseCurrency string
}

// NewEngine creates an Engine that converts all proceeds and valuations
// into the given base currency.
func NewEngine(resolver *fx.Resolver, baseCurrency string) *Engine {
	return &Engine{resolver: resolver, baseCurrency: baseCurrency}
}

// BaseCurrency returns the currency all proceeds and valuations resolve to.
func (e *Engine) BaseCurrency() string {
	return e.baseCurrency
}

// LiquidateForDeficit sells assets to cover a required base-currency cash
// deficit and returns the unmet remainder plus the depleted asset list.
//
// Logic:
//  1. Walk classes in waterfall order (liquid -> yield -> volatile ->
//     illiquid); within a class, array order.
//  2. Skip assets locked at the given date; they are not sellable at all.
//  3. Sell up to min(asset.amount, remainingDeficit) units, convert the
//     proceeds to the base currency, apply the class penalty, subtract the
//     net proceeds from the remaining deficit.
//  4. Stop the instant the deficit reaches zero.
//
// The caller's slice is never mutated; the returned slice is an independent
// copy. A positive remainder is not an error — it signals insolvency, which
// the caller turns into a negative balance.
func (e *Engine) LiquidateForDeficit(table *domain.ExchangeRateTable, assets []domain.Asset, deficit decimal.Decimal, now time.Time) (decimal.Decimal, []domain.Asset, error) {
	if deficit.IsNegative() {
		return decimal.Zero, nil, fmt.Errorf("%w: deficit cannot be negative, got %s", domain.ErrInvalidInput, deficit)
	}

	out := domain.CloneAssets(assets)
	remaining := deficit

	for _, class := range domain.LiquidationOrder {
		for i := range out {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			asset := &out[i]
			if asset.LiquidityClass != class || asset.Locked(now) || asset.Amount.IsZero() {
				continue
			}

			sellUnits := decimal.Min(asset.Amount, remaining)
			proceeds, err := e.resolver.Convert(table, sellUnits, asset.Currency, e.baseCurrency)
			if err != nil {
				return decimal.Zero, nil, fmt.Errorf("liquidating %s: %w", asset.Name, err)
			}
			net := proceeds.Mul(one.Sub(class.LiquidationPenalty())).Truncate(domain.AmountPrecision)

			asset.Amount = asset.Amount.Sub(sellUnits)
			remaining = remaining.Sub(net)
		}
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
	}

	// Conversion can overshoot the need when the asset trades above par
	// against the base currency; the deficit is covered either way.
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return remaining, out, nil
}

// NetAssetValue sums all asset quantities converted to the base currency.
func (e *Engine) NetAssetValue(table *domain.ExchangeRateTable, assets []domain.Asset) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range assets {
		value, err := e.resolver.Convert(table, assets[i].Amount, assets[i].Currency, e.baseCurrency)
		if err != nil {
			return decimal.Zero, fmt.Errorf("valuing %s: %w", assets[i].Name, err)
		}
		total = total.Add(value)
	}
	return total.Truncate(domain.AmountPrecision), nil
}

// LiquidityRatio is liquidFunds / totalWealth, where liquidFunds sums only
// unlocked liquid-class assets in base currency and totalWealth is cash
// balance plus net asset value. Defined as 0 when totalWealth is zero and
// clamped into [0, 1].
func (e *Engine) LiquidityRatio(table *domain.ExchangeRateTable, state *domain.WalletState, now time.Time) (decimal.Decimal, error) {
	liquid := decimal.Zero
	for i := range state.Assets {
		asset := &state.Assets[i]
		if asset.LiquidityClass != domain.LiquidityClassLiquid || asset.Locked(now) {
			continue
		}
		value, err := e.resolver.Convert(table, asset.Amount, asset.Currency, e.baseCurrency)
		if err != nil {
			return decimal.Zero, fmt.Errorf("valuing %s: %w", asset.Name, err)
		}
		liquid = liquid.Add(value)
	}

	nav, err := e.NetAssetValue(table, state.Assets)
	if err != nil {
		return decimal.Zero, err
	}
	totalWealth := state.Balance.Add(nav)
	if totalWealth.IsZero() {
		return decimal.Zero, nil
	}

	ratio := liquid.Div(totalWealth).Truncate(domain.AmountPrecision)
	if ratio.GreaterThan(one) {
		return one, nil
	}
	if ratio.IsNegative() {
		return decimal.Zero, nil
	}
	return ratio, nil
}
