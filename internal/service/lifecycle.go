package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

// OpenAccount creates an account with balance zero and makes the owner its
// primary holder, both inside one unit of work. The account number comes
// from a forward-only sequence, so numbers are unique and never reused even
// if the open rolls back.
func (s *service) OpenAccount(ctx context.Context, ownerID int, accountType, subType string, creditRate, debitRate, overdraftLimit *decimal.Decimal) (*core.Account, error) {
	if overdraftLimit != nil && overdraftLimit.IsNegative() {
		return nil, core.ErrInvalidOverdraft
	}

	var acc *core.Account
	err := s.store.Atomically(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, ownerID); err != nil {
			return err
		}

		number, err := tx.NextAccountNumber(ctx)
		if err != nil {
			return err
		}

		acc = &core.Account{
			Number:             number,
			Type:               accountType,
			SubType:            subType,
			Balance:            decimal.Zero,
			InterestRateCredit: creditRate,
			InterestRateDebit:  debitRate,
			OverdraftLimit:     overdraftLimit,
			IsActive:           true,
			DateOpened:         time.Now().UTC(),
		}
		if err := tx.CreateAccount(ctx, acc); err != nil {
			return err
		}

		return tx.AddMembership(ctx, &core.Membership{
			AccountNumber: number,
			UserID:        ownerID,
			Role:          core.RolePrimaryHolder,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account opened",
		"account", acc.Number, "owner", ownerID, "type", accountType)
	return acc, nil
}

// SetActive toggles the account's active flag. Closing requires the balance
// to be zero within core.CloseEpsilon; reactivating a closed account is
// always allowed. Memberships and ledger history are untouched either way.
// The account row lock keeps a close from interleaving with an in-flight
// transfer's balance mutation.
func (s *service) SetActive(ctx context.Context, accountNumber int64, active bool) error {
	err := s.store.Atomically(ctx, func(tx storage.Tx) error {
		acc, err := tx.LockAccount(ctx, accountNumber)
		if err != nil {
			return err
		}
		if !active && acc.IsActive && !acc.CanClose() {
			return fmt.Errorf("account %d balance %s: %w",
				accountNumber, acc.Balance.String(), core.ErrNonZeroBalanceClose)
		}
		return tx.SetActive(ctx, accountNumber, active)
	})
	if err != nil {
		return err
	}

	s.logger.Info("account status changed", "account", accountNumber, "active", active)
	return nil
}

// SetOverdraftLimit replaces the account's overdraft limit. A nil limit
// removes the overdraft entirely.
func (s *service) SetOverdraftLimit(ctx context.Context, accountNumber int64, limit *decimal.Decimal) error {
	if limit != nil && limit.IsNegative() {
		return core.ErrInvalidOverdraft
	}

	err := s.store.Atomically(ctx, func(tx storage.Tx) error {
		if _, err := tx.LockAccount(ctx, accountNumber); err != nil {
			return err
		}
		return tx.SetOverdraftLimit(ctx, accountNumber, limit)
	})
	if err != nil {
		return err
	}

	s.logger.Info("overdraft limit changed", "account", accountNumber)
	return nil
}
