package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

// Transfer moves amount from one account to another and records both sides
// of the movement as immutable ledger entries sharing one reference and
// timestamp. Every check and mutation runs inside a single unit of work with
// both account rows locked, so concurrent transfers over the same accounts
// serialize and validate against committed balances. A rejected transfer
// writes nothing: no entries, no balance change.
func (s *service) Transfer(ctx context.Context, from, to int64, amount decimal.Decimal, entryType core.EntryType, description string) (*core.LedgerEntry, *core.LedgerEntry, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return nil, nil, err
	}
	if entryType == "" {
		entryType = core.EntryTransfer
	}
	if !core.ValidEntryType(entryType) {
		return nil, nil, fmt.Errorf("%q: %w", entryType, core.ErrInvalidEntryType)
	}
	if from == to {
		return nil, nil, core.ErrSameAccountTransfer
	}

	var srcEntry, dstEntry *core.LedgerEntry
	err := s.store.Atomically(ctx, func(tx storage.Tx) error {
		src, dst, err := lockPair(ctx, tx, from, to)
		if err != nil {
			return err
		}
		if !src.IsActive {
			return fmt.Errorf("sender account %d: %w", from, core.ErrAccountInactive)
		}
		if !dst.IsActive {
			return fmt.Errorf("recipient account %d: %w", to, core.ErrAccountInactive)
		}
		if amount.GreaterThan(src.AvailableFunds()) {
			return fmt.Errorf("account %d: %w", from, core.ErrInsufficientFunds)
		}

		newSrc := src.Balance.Sub(amount)
		newDst := dst.Balance.Add(amount)
		if !newSrc.Add(newDst).Equal(src.Balance.Add(dst.Balance)) {
			s.logger.Error("transfer does not conserve money",
				"from", from, "to", to, "amount", amount.String())
			return fmt.Errorf("transfer %d->%d: %w", from, to, core.ErrInvariantViolation)
		}

		if err := tx.UpdateBalance(ctx, from, newSrc); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, to, newDst); err != nil {
			return err
		}

		// One reference and one timestamp tie the two sides together.
		reference := uuid.NewString()
		now := time.Now().UTC()

		srcEntry = &core.LedgerEntry{
			Reference:        reference,
			Amount:           amount,
			RunningBalance:   newSrc,
			DateTime:         now,
			Description:      description,
			Type:             entryType,
			SenderAccount:    from,
			RecipientAccount: to,
			Direction:        core.DirectionOut,
			Outcome:          core.OutcomeSuccess,
		}
		dstEntry = &core.LedgerEntry{
			Reference:        reference,
			Amount:           amount,
			RunningBalance:   newDst,
			DateTime:         now,
			Description:      description,
			Type:             entryType,
			SenderAccount:    from,
			RecipientAccount: to,
			Direction:        core.DirectionIn,
			Outcome:          core.OutcomeSuccess,
		}
		if err := tx.AppendEntry(ctx, srcEntry); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, dstEntry)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("transfer completed",
		"from", from, "to", to, "amount", amount.String(), "reference", srcEntry.Reference)
	return srcEntry, dstEntry, nil
}

// lockPair locks both account rows in ascending account-number order, the
// fixed global order that keeps two opposite transfers between the same pair
// of accounts from deadlocking.
func lockPair(ctx context.Context, tx storage.Tx, from, to int64) (src, dst *core.Account, err error) {
	first, second := from, to
	if first > second {
		first, second = second, first
	}

	a, err := tx.LockAccount(ctx, first)
	if err != nil {
		return nil, nil, fmt.Errorf("account %d: %w", first, err)
	}
	b, err := tx.LockAccount(ctx, second)
	if err != nil {
		return nil, nil, fmt.Errorf("account %d: %w", second, err)
	}

	if a.Number == from {
		return a, b, nil
	}
	return b, a, nil
}
