package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LiabilityType tags the kind of debt a holder carries.
type LiabilityType string

const (
	LiabilityTypeLoan       LiabilityType = "LOAN"
	LiabilityTypeCreditLine LiabilityType = "CREDIT_LINE"
	LiabilityTypeMortgage   LiabilityType = "MORTGAGE"
)

// Liability represents a debt position. It is owned and mutated by the
// external credit/debt collaborator; this engine only reads it (for net
// worth and reporting).
type Liability struct {
	ID               uuid.UUID
	Type             LiabilityType
	PrincipalBalance decimal.Decimal // non-negative
	InterestRate     decimal.Decimal // annualized, e.g. 0.18 for 18% APR
	Currency         string
	MinimumPayment   decimal.Decimal // zero if no minimum is set
	CreatedAt        time.Time
}

// Validate ensures the liability adheres to domain rules
// Returns an error if validation fails
func (l *Liability) Validate() error {
	if l.PrincipalBalance.IsNegative() {
		return errors.New("liability principal balance cannot be negative")
	}
	if l.Currency == "" {
		return errors.New("liability currency cannot be empty")
	}
	return nil
}
