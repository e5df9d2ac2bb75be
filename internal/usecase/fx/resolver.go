// Package fx resolves currency conversions against an explicit exchange
// rate table: direct pairs, reverse pairs via reciprocal, and one-hop
// indirect paths through a fixed priority list of intermediary currencies.
//
// The search depth is deliberately bounded at one hop. Deeper search would
// change the reproducibility of existing seeded scenarios, so the bound is
// part of the contract, not an optimization.
package fx

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/rng"
)

// defaultIntermediaries are tried in priority order for one-hop resolution.
// Earlier entries win when both satisfy a pair.
var defaultIntermediaries = []string{"USD", "EUR"}

var one = decimal.NewFromInt(1)

// Resolver converts amounts between currencies. It holds no rate state of
// its own; every call takes the table to resolve against, so a single
// day's table can be shared read-only across parallel workers.
type Resolver struct {
	intermediaries []string
}

// NewResolver creates a resolver. With no arguments the standard
// intermediary priority list (USD, then EUR) is used.
func NewResolver(intermediaries ...string) *Resolver {
	if len(intermediaries) == 0 {
		intermediaries = defaultIntermediaries
	}
	return &Resolver{intermediaries: intermediaries}
}

// Convert resolves amount from one currency into another and truncates the
// result to the reproducibility precision.
//
// Resolution order:
//  1. Same currency: truncate and return, no lookup.
//  2. Direct pair FROM/TO.
//  3. Reverse pair TO/FROM, multiplied by its reciprocal.
//  4. One hop through the first intermediary X with both FROM/X and X/TO
//     stored as forward pairs.
//
// Returns domain.ErrRateNotFound if no path exists.
func (r *Resolver) Convert(table *domain.ExchangeRateTable, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount.Truncate(domain.AmountPrecision), nil
	}
	rate, err := r.lookupRate(table, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Truncate(domain.AmountPrecision), nil
}

// Rate returns the effective conversion rate for a pair, truncated to the
// reproducibility precision. Same-currency pairs resolve to 1.
func (r *Resolver) Rate(table *domain.ExchangeRateTable, from, to string) (decimal.Decimal, error) {
	if from == to {
		return one, nil
	}
	rate, err := r.lookupRate(table, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Truncate(domain.AmountPrecision), nil
}

// lookupRate resolves the untruncated rate so Convert can truncate only the
// final product.
func (r *Resolver) lookupRate(table *domain.ExchangeRateTable, from, to string) (decimal.Decimal, error) {
	if rate, ok := table.Rate(domain.PairKey(from, to)); ok {
		return rate, nil
	}
	if reverse, ok := table.Rate(domain.PairKey(to, from)); ok {
		return one.Div(reverse), nil
	}
	for _, via := range r.intermediaries {
		if via == from || via == to {
			continue
		}
		first, ok := table.Rate(domain.PairKey(from, via))
		if !ok {
			continue
		}
		second, ok := table.Rate(domain.PairKey(via, to))
		if !ok {
			continue
		}
		return first.Mul(second), nil
	}
	return decimal.Zero, fmt.Errorf("%w for pair %s", domain.ErrRateNotFound, domain.PairKey(from, to))
}

// PerturbRates applies an independent symmetric shock in
// [-magnitude/2, +magnitude/2) to every stored pair rate and returns the
// next table version stamped with the given time. Derived (reverse and
// indirect) rates are never stored, so they shift implicitly with their
// source pairs.
//
// Pairs are perturbed in sorted key order so the generator's draw sequence
// maps onto pairs deterministically. The generator must come from a stream
// distinct from asset revaluation so currency and asset noise stay
// independent.
func PerturbRates(table *domain.ExchangeRateTable, magnitude float64, g *rng.Generator, at time.Time) domain.ExchangeRateTable {
	next := table.Snapshot()
	for _, key := range next.PairKeys() {
		shock := decimal.NewFromFloat(g.Symmetric(magnitude))
		perturbed := next.Rates[key].Mul(one.Add(shock)).Truncate(domain.AmountPrecision)
		if !perturbed.IsPositive() {
			// A rate shocked to zero or below would poison every
			// conversion; keep the previous value instead.
			continue
		}
		next.Rates[key] = perturbed
	}
	next.Version = table.Version + 1
	next.UpdatedAt = at
	return next
}
