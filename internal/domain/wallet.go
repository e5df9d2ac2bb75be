package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailySnapshot is the compact record of one prior simulated day, kept in a
// WalletState's history for volatility estimation and shock clustering.
type DailySnapshot struct {
	Day           int
	Balance       decimal.Decimal
	NetAssetValue decimal.Decimal
	CreditScore   int
}

// WalletState is the full snapshot of one ensemble member on one simulated
// day: signed base-currency cash balance, holdings, debts, credit score and
// the ordered history of prior days for the same run.
//
// Invariant: len(History) == Day for any syntactically valid state; day 0
// carries an empty history.
type WalletState struct {
	Day         int
	Balance     decimal.Decimal
	Assets      []Asset
	Liabilities []Liability
	CreditScore int
	History     []DailySnapshot
}

// Validate ensures the wallet state adheres to domain rules
// Returns an error if validation fails
func (w *WalletState) Validate() error {
	if w.Day < 0 {
		return fmt.Errorf("%w: wallet day index cannot be negative", ErrInvalidInput)
	}
	if len(w.History) != w.Day {
		return fmt.Errorf("%w: wallet history has %d entries, want %d (one per prior day)",
			ErrInvalidInput, len(w.History), w.Day)
	}
	for i := range w.Assets {
		if err := w.Assets[i].Validate(); err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
	}
	return nil
}

// LastHistoryEntry returns the most recent prior-day snapshot, or false if
// the state has no history yet.
func (w *WalletState) LastHistoryEntry() (DailySnapshot, bool) {
	if len(w.History) == 0 {
		return DailySnapshot{}, false
	}
	return w.History[len(w.History)-1], true
}

// Clone returns an independent copy of the state. Mutating the copy's
// assets, liabilities or history never touches the original.
func (w *WalletState) Clone() WalletState {
	out := *w
	out.Assets = CloneAssets(w.Assets)
	out.Liabilities = make([]Liability, len(w.Liabilities))
	copy(out.Liabilities, w.Liabilities)
	out.History = make([]DailySnapshot, len(w.History))
	copy(out.History, w.History)
	return out
}

// Trajectory is one simulated run: an ordered sequence of WalletState, one
// per day. Immutable once produced; the risk layer reads it only.
type Trajectory struct {
	ID     uuid.UUID
	States []WalletState
}

// Days returns the number of simulated days in the trajectory.
func (t *Trajectory) Days() int {
	return len(t.States)
}

// Final returns the last-day state. Callers must validate the trajectory
// is non-empty first.
func (t *Trajectory) Final() WalletState {
	return t.States[len(t.States)-1]
}

// Validate ensures the trajectory adheres to domain rules
// Returns an error if validation fails
func (t *Trajectory) Validate() error {
	if len(t.States) == 0 {
		return fmt.Errorf("%w: trajectory has no days", ErrInvalidInput)
	}
	return nil
}

// Ensemble is a set of trajectories analyzed together. All members share the
// same day count by convention; the analytics layer does not enforce it.
type Ensemble []Trajectory

// Validate ensures the ensemble adheres to domain rules
// Returns an error if validation fails
func (e Ensemble) Validate() error {
	if len(e) == 0 {
		return fmt.Errorf("%w: ensemble has no trajectories", ErrInvalidInput)
	}
	for i := range e {
		if err := e[i].Validate(); err != nil {
			return fmt.Errorf("trajectory %d: %w", i, err)
		}
	}
	return nil
}

// FinalBalances collects each trajectory's final-day balance, in ensemble
// order.
func (e Ensemble) FinalBalances() []decimal.Decimal {
	out := make([]decimal.Decimal, len(e))
	for i := range e {
		out[i] = e[i].Final().Balance
	}
	return out
}
