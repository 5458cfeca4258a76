package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CloseEpsilon is the residual balance tolerated when closing an account.
// Balances are stored with 2 decimal places, so anything below this is
// rounding noise rather than real money.
var CloseEpsilon = decimal.RequireFromString("0.0001")

// Account is a customer account. Balance is only ever mutated through a
// ledger movement; it always equals the signed sum of the account's entries.
type Account struct {
	Number             int64
	Type               string
	SubType            string
	Balance            decimal.Decimal
	InterestRateCredit *decimal.Decimal
	InterestRateDebit  *decimal.Decimal
	OverdraftLimit     *decimal.Decimal
	IsActive           bool
	DateOpened         time.Time
}

// AvailableFunds is the amount the account may spend: the balance plus the
// overdraft limit, which acts as an allowed negative-balance floor. A missing
// limit means no overdraft.
func (a *Account) AvailableFunds() decimal.Decimal {
	if a.OverdraftLimit == nil {
		return a.Balance
	}
	return a.Balance.Add(*a.OverdraftLimit)
}

// CanClose reports whether the account balance is close enough to zero for
// the account to be closed.
func (a *Account) CanClose() bool {
	return a.Balance.Abs().LessThanOrEqual(CloseEpsilon)
}
