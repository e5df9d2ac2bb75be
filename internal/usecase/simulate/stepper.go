// Package simulate drives the day-by-day state transition and produces
// trajectory ensembles. The Stepper implements the day-stepper collaborator
// contract: prior state plus a deterministic seed and that day's rate table
// in, updated state out. The Runner fans trajectories out across workers.
package simulate

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/usecase/liquidation"
)

// CashFlowFunc supplies the day's net external cash flow (income minus
// spending) in base currency. It stands in for the income/expense
// collaborators, which read the state but never write into it.
type CashFlowFunc func(day int, state *domain.WalletState) decimal.Decimal

// CreditScoreFunc supplies the day's updated credit score given the prior
// and tentative next state. It stands in for the credit collaborator; the
// score formula itself is not part of this engine.
type CreditScoreFunc func(day int, prev, next *domain.WalletState) int

func noCashFlow(int, *domain.WalletState) decimal.Decimal { return decimal.Zero }

func carryCreditScore(_ int, prev, _ *domain.WalletState) int { return prev.CreditScore }

// Stepper advances a wallet state by one simulated day.
type Stepper struct {
	engine      *liquidation.Engine
	startDate   time.Time
	cashFlow    CashFlowFunc
	creditScore CreditScoreFunc
}

// NewStepper creates a Stepper. startDate anchors day 0 so asset lock dates
// resolve against concrete calendar days. Nil collaborator hooks default to
// zero cash flow and an unchanged credit score.
func NewStepper(engine *liquidation.Engine, startDate time.Time, cashFlow CashFlowFunc, creditScore CreditScoreFunc) *Stepper {
	if cashFlow == nil {
		cashFlow = noCashFlow
	}
	if creditScore == nil {
		creditScore = carryCreditScore
	}
	return &Stepper{
		engine:      engine,
		startDate:   startDate,
		cashFlow:    cashFlow,
		creditScore: creditScore,
	}
}

// Step produces the next day's WalletState from the prior one.
//
// Logic:
//  1. Revalue assets under the day seed, then accrue yield under seed+1
//     (the two draws are logically independent streams).
//  2. Apply the day's external cash flow to the balance.
//  3. On a negative balance, liquidate through the waterfall; whatever
//     deficit remains becomes the (negative) balance — insolvency, not an
//     error.
//  4. Let the credit collaborator update the score.
//  5. Append the prior day's snapshot to the history, preserving the
//     invariant len(History) == Day.
//
// The prior state is read only; the returned state is independently owned.
func (s *Stepper) Step(prev *domain.WalletState, daySeed int64, table *domain.ExchangeRateTable) (domain.WalletState, error) {
	if err := prev.Validate(); err != nil {
		return domain.WalletState{}, fmt.Errorf("prior state: %w", err)
	}

	next := prev.Clone()
	next.Day = prev.Day + 1
	date := s.startDate.AddDate(0, 0, next.Day)

	next.Assets = liquidation.RevalueAssets(next.Assets, daySeed)
	next.Assets = liquidation.ApplyYield(next.Assets, daySeed+1)

	next.Balance = next.Balance.Add(s.cashFlow(next.Day, prev)).Truncate(domain.AmountPrecision)

	if next.Balance.IsNegative() {
		deficit := next.Balance.Neg()
		remaining, assets, err := s.engine.LiquidateForDeficit(table, next.Assets, deficit, date)
		if err != nil {
			return domain.WalletState{}, fmt.Errorf("day %d: %w", next.Day, err)
		}
		next.Assets = assets
		next.Balance = remaining.Neg()
	}

	next.CreditScore = s.creditScore(next.Day, prev, &next)

	nav, err := s.engine.NetAssetValue(table, prev.Assets)
	if err != nil {
		return domain.WalletState{}, fmt.Errorf("day %d: %w", next.Day, err)
	}
	next.History = append(next.History, domain.DailySnapshot{
		Day:           prev.Day,
		Balance:       prev.Balance,
		NetAssetValue: nav,
		CreditScore:   prev.CreditScore,
	})

	return next, nil
}
