package service

import (
	"context"
	"errors"
	"fmt"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

// AddHolder links a user to an account. The new holder's role is decided by
// the roles already on the account (see core.NextRole). The account row is
// locked so concurrent holder changes on the same account serialize and the
// role decision never works from a stale set.
func (s *service) AddHolder(ctx context.Context, accountNumber int64, userID int) (*core.Membership, error) {
	var m *core.Membership
	err := s.store.Atomically(ctx, func(tx storage.Tx) error {
		if _, err := tx.LockAccount(ctx, accountNumber); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}

		_, err := tx.GetMembership(ctx, accountNumber, userID)
		if err == nil {
			return fmt.Errorf("user %d on account %d: %w", userID, accountNumber, core.ErrAlreadyLinked)
		}
		if !errors.Is(err, core.ErrMembershipNotFound) {
			return err
		}

		roles, err := tx.AccountRoles(ctx, accountNumber)
		if err != nil {
			return err
		}

		m = &core.Membership{
			AccountNumber: accountNumber,
			UserID:        userID,
			Role:          core.NextRole(roles),
		}
		return tx.AddMembership(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("holder added",
		"account", accountNumber, "user", userID, "role", string(m.Role))
	return m, nil
}

// RemoveHolder deletes a membership row. The primary holder can never be
// removed; remaining holders keep their roles, nobody is re-promoted.
func (s *service) RemoveHolder(ctx context.Context, accountNumber int64, userID int) error {
	err := s.store.Atomically(ctx, func(tx storage.Tx) error {
		if _, err := tx.LockAccount(ctx, accountNumber); err != nil {
			return err
		}

		m, err := tx.GetMembership(ctx, accountNumber, userID)
		if err != nil {
			return err
		}
		if m.Role == core.RolePrimaryHolder {
			return fmt.Errorf("user %d on account %d: %w", userID, accountNumber, core.ErrRemovePrimaryHolder)
		}
		return tx.RemoveMembership(ctx, accountNumber, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("holder removed", "account", accountNumber, "user", userID)
	return nil
}
