package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateTable maps ordered currency-pair keys ("FROM/TO") to positive
// rates. Only one direction per pair is stored; reverse and one-hop indirect
// rates are derived by the fx resolver, never written back.
//
// The table is an explicit, versioned value: every mutation produces a new
// table rather than editing shared state, so a single day's table can be
// broadcast read-only across parallel trajectory workers.
type ExchangeRateTable struct {
	Rates     map[string]decimal.Decimal
	Version   uint64
	UpdatedAt time.Time
}

// PairKey builds the ordered lookup key for a currency pair.
func PairKey(from, to string) string {
	return from + "/" + to
}

// NewExchangeRateTable copies the given pair rates into a fresh version-0
// table stamped with the given time.
func NewExchangeRateTable(rates map[string]decimal.Decimal, at time.Time) ExchangeRateTable {
	t := ExchangeRateTable{
		Rates:     make(map[string]decimal.Decimal, len(rates)),
		UpdatedAt: at,
	}
	for k, v := range rates {
		t.Rates[k] = v
	}
	return t
}

// Rate looks up the stored forward rate for a pair key.
func (t *ExchangeRateTable) Rate(key string) (decimal.Decimal, bool) {
	r, ok := t.Rates[key]
	return r, ok
}

// PairKeys returns the stored pair keys in sorted order. Perturbation and
// serialization iterate in this order so that seeded runs stay reproducible
// regardless of map iteration order.
func (t *ExchangeRateTable) PairKeys() []string {
	keys := make([]string, 0, len(t.Rates))
	for k := range t.Rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns an independent deep copy of the table, used to capture a
// scenario before perturbation so it can be replayed later.
func (t *ExchangeRateTable) Snapshot() ExchangeRateTable {
	out := ExchangeRateTable{
		Rates:     make(map[string]decimal.Decimal, len(t.Rates)),
		Version:   t.Version,
		UpdatedAt: t.UpdatedAt,
	}
	for k, v := range t.Rates {
		out.Rates[k] = v
	}
	return out
}

// Restore replaces the table's contents wholesale from a snapshot.
func (t *ExchangeRateTable) Restore(snap ExchangeRateTable) {
	restored := snap.Snapshot()
	t.Rates = restored.Rates
	t.Version = restored.Version
	t.UpdatedAt = restored.UpdatedAt
}

// Validate ensures the table adheres to domain rules
// Returns an error if validation fails
func (t *ExchangeRateTable) Validate() error {
	for k, v := range t.Rates {
		if !v.IsPositive() {
			return fmt.Errorf("%w: rate for pair %s must be positive", ErrInvalidInput, k)
		}
	}
	return nil
}
