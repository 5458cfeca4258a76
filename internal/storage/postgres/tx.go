package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

var _ storage.Tx = (*pgTx)(nil)

// pgTx wraps one database transaction. Row locks taken here are released on
// commit or rollback.
type pgTx struct {
	tx *sql.Tx
}

// LockAccount reads the account row under FOR UPDATE, blocking any other
// unit of work touching the same account until this one finishes.
func (t *pgTx) LockAccount(ctx context.Context, number int64) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`
	acc, err := scanAccount(t.tx.QueryRowContext(ctx, q, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (t *pgTx) CreateAccount(ctx context.Context, acc *core.Account) error {
	const ins = `INSERT INTO accounts
		(account_number, account_type, account_sub_type, balance,
		 interest_rate_credit, interest_rate_debit, overdraft_limit, is_active, date_opened)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.tx.ExecContext(ctx, ins, acc.Number, acc.Type, acc.SubType, acc.Balance,
		nullDecimal(acc.InterestRateCredit), nullDecimal(acc.InterestRateDebit),
		nullDecimal(acc.OverdraftLimit), acc.IsActive, acc.DateOpened)
	if err != nil {
		return fmt.Errorf("create account %d: %w", acc.Number, err)
	}
	return nil
}

func (t *pgTx) UpdateBalance(ctx context.Context, number int64, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1 WHERE account_number = $2`, balance, number)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *pgTx) SetActive(ctx context.Context, number int64, active bool) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET is_active = $1 WHERE account_number = $2`, active, number)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *pgTx) SetOverdraftLimit(ctx context.Context, number int64, limit *decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET overdraft_limit = $1 WHERE account_number = $2`, nullDecimal(limit), number)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// NextAccountNumber draws from the account-number sequence. Sequence values
// survive rollback, so numbers are never reused.
func (t *pgTx) NextAccountNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := t.tx.QueryRowContext(ctx, `SELECT nextval('account_number_seq')`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *pgTx) AppendEntry(ctx context.Context, e *core.LedgerEntry) error {
	const ins = `INSERT INTO transactions
		(reference, amount, running_balance, date_time, description, type,
		 sender_account_number, recipient_account_number, direction, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	return t.tx.QueryRowContext(ctx, ins, e.Reference, e.Amount, e.RunningBalance,
		e.DateTime, nullIfEmpty(e.Description), e.Type,
		e.SenderAccount, e.RecipientAccount, e.Direction, e.Outcome).Scan(&e.ID)
}

func (t *pgTx) GetUser(ctx context.Context, id int) (*core.User, error) {
	const q = `SELECT id, first_name, surname, email FROM users WHERE id = $1`
	var u core.User
	err := t.tx.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.FirstName, &u.Surname, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (t *pgTx) GetMembership(ctx context.Context, accountNumber int64, userID int) (*core.Membership, error) {
	const q = `SELECT account_number, user_id, role FROM account_users
		WHERE account_number = $1 AND user_id = $2`
	var m core.Membership
	err := t.tx.QueryRowContext(ctx, q, accountNumber, userID).Scan(&m.AccountNumber, &m.UserID, &m.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (t *pgTx) AccountRoles(ctx context.Context, accountNumber int64) ([]core.Role, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT role FROM account_users WHERE account_number = $1`, accountNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []core.Role
	for rows.Next() {
		var r core.Role
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (t *pgTx) AddMembership(ctx context.Context, m *core.Membership) error {
	const ins = `INSERT INTO account_users (account_number, user_id, role) VALUES ($1, $2, $3)`
	_, err := t.tx.ExecContext(ctx, ins, m.AccountNumber, m.UserID, m.Role)
	return err
}

func (t *pgTx) RemoveMembership(ctx context.Context, accountNumber int64, userID int) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM account_users WHERE account_number = $1 AND user_id = $2`, accountNumber, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrMembershipNotFound
	}
	return nil
}

// Helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}
