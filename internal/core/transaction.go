package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction marks which side of a movement a ledger entry records.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// EntryType classifies a movement.
type EntryType string

const (
	EntryDeposit    EntryType = "deposit"
	EntryWithdrawal EntryType = "withdrawal"
	EntryTransfer   EntryType = "transfer"
	EntryFee        EntryType = "fee"
)

// Outcome records whether the movement committed. Under the current policy
// rejected movements write no rows at all, so new entries are always
// success; the value survives for historical data.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
)

// LedgerEntry is one immutable side of a money movement. A successful
// movement produces exactly two entries sharing a reference: one out entry
// on the sender and one in entry on the recipient, with the same amount and
// timestamp. Entries are append-only.
type LedgerEntry struct {
	ID               int64
	Reference        string
	Amount           decimal.Decimal
	RunningBalance   decimal.Decimal
	DateTime         time.Time
	Description      string
	Type             EntryType
	SenderAccount    int64
	RecipientAccount int64
	Direction        Direction
	Outcome          Outcome
}

// AccountNumber is the account this entry belongs to, as picked out by the
// entry's direction.
func (e *LedgerEntry) AccountNumber() int64 {
	if e.Direction == DirectionOut {
		return e.SenderAccount
	}
	return e.RecipientAccount
}

// SignedAmount is the amount as it affects the owning account's balance:
// negative for out entries, positive for in entries.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionOut {
		return e.Amount.Neg()
	}
	return e.Amount
}

// ValidEntryType reports whether t is one of the known classifications.
func ValidEntryType(t EntryType) bool {
	switch t {
	case EntryDeposit, EntryWithdrawal, EntryTransfer, EntryFee:
		return true
	}
	return false
}
