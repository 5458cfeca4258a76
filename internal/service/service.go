package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

// Service is the ledger and transfer core: money movement, account
// lifecycle and holder management. Callers hand it validated, typed inputs;
// parsing request payloads is their problem.
type Service interface {
	Transfer(ctx context.Context, from, to int64, amount decimal.Decimal, entryType core.EntryType, description string) (*core.LedgerEntry, *core.LedgerEntry, error)

	OpenAccount(ctx context.Context, ownerID int, accountType, subType string, creditRate, debitRate, overdraftLimit *decimal.Decimal) (*core.Account, error)
	SetActive(ctx context.Context, accountNumber int64, active bool) error
	SetOverdraftLimit(ctx context.Context, accountNumber int64, limit *decimal.Decimal) error

	AddHolder(ctx context.Context, accountNumber int64, userID int) (*core.Membership, error)
	RemoveHolder(ctx context.Context, accountNumber int64, userID int) error
	ListHolders(ctx context.Context, accountNumber int64) ([]*core.Membership, error)

	GetAccount(ctx context.Context, accountNumber int64) (*core.Account, error)
	ListAccountsForUser(ctx context.Context, userID int) ([]*core.Account, error)
	ListEntries(ctx context.Context, accountNumber int64) ([]*core.LedgerEntry, error)
	EntriesByReference(ctx context.Context, reference string) ([]*core.LedgerEntry, error)

	CreateUser(ctx context.Context, firstName, surname, email, password string) (*core.User, error)
	GetUser(ctx context.Context, id int) (*core.User, error)
}

type service struct {
	store  storage.Storage
	logger *slog.Logger
}

func New(store storage.Storage, logger *slog.Logger) Service {
	return &service{store: store, logger: logger}
}

func (s *service) GetAccount(ctx context.Context, accountNumber int64) (*core.Account, error) {
	return s.store.GetAccount(ctx, accountNumber)
}

func (s *service) ListAccountsForUser(ctx context.Context, userID int) ([]*core.Account, error) {
	return s.store.ListAccountsForUser(ctx, userID)
}

func (s *service) ListEntries(ctx context.Context, accountNumber int64) ([]*core.LedgerEntry, error) {
	return s.store.ListEntries(ctx, accountNumber)
}

func (s *service) EntriesByReference(ctx context.Context, reference string) ([]*core.LedgerEntry, error) {
	return s.store.EntriesByReference(ctx, reference)
}

func (s *service) ListHolders(ctx context.Context, accountNumber int64) ([]*core.Membership, error) {
	return s.store.ListHolders(ctx, accountNumber)
}

func (s *service) CreateUser(ctx context.Context, firstName, surname, email, password string) (*core.User, error) {
	return s.store.CreateUser(ctx, firstName, surname, email, password)
}

func (s *service) GetUser(ctx context.Context, id int) (*core.User, error) {
	return s.store.GetUser(ctx, id)
}
