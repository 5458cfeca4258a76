package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
)

// Storage defines how accounts, ledger entries, memberships and users are
// persisted. Plain reads run outside any unit of work; every state change
// goes through Atomically.
type Storage interface {
	// Atomically runs fn inside one all-or-nothing unit of work. If fn
	// returns an error nothing fn did through tx is visible afterwards.
	// Store-level aborts are reported as core.ErrTransientStore.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	GetAccount(ctx context.Context, number int64) (*core.Account, error)
	ListAccountsForUser(ctx context.Context, userID int) ([]*core.Account, error)

	ListEntries(ctx context.Context, accountNumber int64) ([]*core.LedgerEntry, error)
	EntriesByReference(ctx context.Context, reference string) ([]*core.LedgerEntry, error)

	ListHolders(ctx context.Context, accountNumber int64) ([]*core.Membership, error)

	CreateUser(ctx context.Context, firstName, surname, email, password string) (*core.User, error)
	GetUser(ctx context.Context, id int) (*core.User, error)
}

// Tx is the view of the store inside one unit of work. LockAccount takes a
// row-level lock held until the unit of work ends; two units of work locking
// the same account serialize. Callers locking two accounts must lock them in
// ascending account-number order.
type Tx interface {
	LockAccount(ctx context.Context, number int64) (*core.Account, error)
	CreateAccount(ctx context.Context, acc *core.Account) error
	UpdateBalance(ctx context.Context, number int64, balance decimal.Decimal) error
	SetActive(ctx context.Context, number int64, active bool) error
	SetOverdraftLimit(ctx context.Context, number int64, limit *decimal.Decimal) error

	// NextAccountNumber allocates a fresh account number. Numbers are never
	// reused, even when the unit of work rolls back.
	NextAccountNumber(ctx context.Context) (int64, error)

	AppendEntry(ctx context.Context, e *core.LedgerEntry) error

	GetUser(ctx context.Context, id int) (*core.User, error)
	GetMembership(ctx context.Context, accountNumber int64, userID int) (*core.Membership, error)
	AccountRoles(ctx context.Context, accountNumber int64) ([]core.Role, error)
	AddMembership(ctx context.Context, m *core.Membership) error
	RemoveMembership(ctx context.Context, accountNumber int64, userID int) error
}
