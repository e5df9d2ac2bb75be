package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountPrecision is the number of decimal places every monetary quantity is
// truncated to. Truncation (not rounding) keeps seeded simulation runs
// byte-reproducible across platforms.
const AmountPrecision = 6

// LiquidityClass controls both the liquidation order of an asset and the
// penalty applied to its sale proceeds.
type LiquidityClass string

const (
	LiquidityClassLiquid   LiquidityClass = "LIQUID"
	LiquidityClassYield    LiquidityClass = "YIELD"
	LiquidityClassVolatile LiquidityClass = "VOLATILE"
	LiquidityClassIlliquid LiquidityClass = "ILLIQUID"
)

// LiquidationOrder is the fixed waterfall priority: liquid assets are sold
// first, illiquid assets last.
var LiquidationOrder = []LiquidityClass{
	LiquidityClassLiquid,
	LiquidityClassYield,
	LiquidityClassVolatile,
	LiquidityClassIlliquid,
}

var liquidationPenalties = map[LiquidityClass]decimal.Decimal{
	LiquidityClassLiquid:   decimal.Zero,
	LiquidityClassYield:    decimal.NewFromFloat(0.02),
	LiquidityClassVolatile: decimal.NewFromFloat(0.05),
	LiquidityClassIlliquid: decimal.NewFromFloat(0.10),
}

// LiquidationPenalty returns the fraction of sale proceeds lost when an asset
// of this class is force-sold.
func (c LiquidityClass) LiquidationPenalty() decimal.Decimal {
	return liquidationPenalties[c]
}

// Valid reports whether the class is one of the four known liquidity classes.
func (c LiquidityClass) Valid() bool {
	_, ok := liquidationPenalties[c]
	return ok
}

// Asset represents a single holding in a wallet.
// Quantities are mutated daily by revaluation, yield and liquidation, but an
// asset is never destroyed — at worst its amount is driven to zero.
type Asset struct {
	ID             uuid.UUID
	Name           string
	Amount         decimal.Decimal // non-negative quantity, truncated to AmountPrecision
	Currency       string          // denominating currency code, e.g. "USD"
	Volatility     float64         // daily shock magnitude coefficient in [0,1]
	LiquidityClass LiquidityClass
	LockedUntil    *time.Time      // nil if never locked
	BaseValue      decimal.Decimal // cost basis; read by the tax collaborator, never mutated here
}

// Locked reports whether the asset is still under its lock at the given date.
// Locked assets are excluded from the liquidation pool entirely.
func (a *Asset) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Validate ensures the asset adheres to domain rules
// Returns an error if validation fails
func (a *Asset) Validate() error {
	if a.Name == "" {
		return errors.New("asset name cannot be empty")
	}
	if a.Currency == "" {
		return errors.New("asset currency cannot be empty")
	}
	if a.Amount.IsNegative() {
		return errors.New("asset amount cannot be negative")
	}
	if a.Volatility < 0 || a.Volatility > 1 {
		return errors.New("asset volatility must be in [0,1]")
	}
	if !a.LiquidityClass.Valid() {
		return errors.New("asset liquidity class is unknown")
	}
	return nil
}

// CloneAssets returns an independent copy of the asset slice. Decimal values
// are immutable, so a shallow per-element copy is sufficient.
func CloneAssets(assets []Asset) []Asset {
	out := make([]Asset, len(assets))
	copy(out, assets)
	return out
}
