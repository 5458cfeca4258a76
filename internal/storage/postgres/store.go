package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

var _ storage.Storage = (*Store)(nil)

// Store persists the ledger in PostgreSQL.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Atomically runs fn in one database transaction at read-committed
// isolation. Row locks taken through Tx.LockAccount are held until commit or
// rollback. Store-level aborts surface as core.ErrTransientStore so callers
// know the whole call is safe to retry.
func (s *Store) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", core.ErrTransientStore, err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		if core.KindOf(err) != core.KindUnknown {
			return err
		}
		if isTransient(err) {
			return fmt.Errorf("%w: %v", core.ErrTransientStore, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrTransientStore, err)
	}
	return nil
}

// isTransient reports whether err is a store failure worth retrying:
// serialization failure, deadlock, or a connection-class error.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return true
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return true
		}
	}
	return errors.Is(err, sql.ErrConnDone)
}

type scanner interface {
	Scan(dest ...any) error
}

const accountColumns = `account_number, account_type, account_sub_type, balance,
	interest_rate_credit, interest_rate_debit, overdraft_limit, is_active, date_opened`

func scanAccount(row scanner) (*core.Account, error) {
	var (
		a                        core.Account
		credit, debit, overdraft decimal.NullDecimal
	)
	err := row.Scan(&a.Number, &a.Type, &a.SubType, &a.Balance,
		&credit, &debit, &overdraft, &a.IsActive, &a.DateOpened)
	if err != nil {
		return nil, err
	}
	if credit.Valid {
		a.InterestRateCredit = &credit.Decimal
	}
	if debit.Valid {
		a.InterestRateDebit = &debit.Decimal
	}
	if overdraft.Valid {
		a.OverdraftLimit = &overdraft.Decimal
	}
	return &a, nil
}

const entryColumns = `id, reference, amount, running_balance, date_time, description,
	type, sender_account_number, recipient_account_number, direction, outcome`

func scanEntry(row scanner) (*core.LedgerEntry, error) {
	var (
		e    core.LedgerEntry
		desc sql.NullString
	)
	err := row.Scan(&e.ID, &e.Reference, &e.Amount, &e.RunningBalance, &e.DateTime,
		&desc, &e.Type, &e.SenderAccount, &e.RecipientAccount, &e.Direction, &e.Outcome)
	if err != nil {
		return nil, err
	}
	e.Description = desc.String
	return &e, nil
}

// GetAccount retrieves an account by number, without locking it.
func (s *Store) GetAccount(ctx context.Context, number int64) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	acc, err := scanAccount(s.db.QueryRowContext(ctx, q, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

// ListAccountsForUser returns every account the user holds a membership on.
func (s *Store) ListAccountsForUser(ctx context.Context, userID int) ([]*core.Account, error) {
	q := `SELECT ` + accountColumns + `
		FROM accounts a
		JOIN account_users au ON a.account_number = au.account_number
		WHERE au.user_id = $1
		ORDER BY a.account_number`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ListEntries returns the account's ledger entries, most recent first.
func (s *Store) ListEntries(ctx context.Context, accountNumber int64) ([]*core.LedgerEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM transactions
		WHERE (sender_account_number = $1 AND direction = 'out')
		   OR (recipient_account_number = $1 AND direction = 'in')
		ORDER BY date_time DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, accountNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EntriesByReference returns every entry recorded under a movement
// reference: both sides for a transfer.
func (s *Store) EntriesByReference(ctx context.Context, reference string) ([]*core.LedgerEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM transactions WHERE reference = $1 ORDER BY direction DESC`
	rows, err := s.db.QueryContext(ctx, q, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, core.ErrMovementNotFound
	}
	return res, nil
}

// ListHolders returns the memberships for an account, primary holder first.
func (s *Store) ListHolders(ctx context.Context, accountNumber int64) ([]*core.Membership, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`, accountNumber).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.ErrAccountNotFound
	}

	q := `SELECT account_number, user_id, role FROM account_users
		WHERE account_number = $1 ORDER BY role`
	rows, err := s.db.QueryContext(ctx, q, accountNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*core.Membership
	for rows.Next() {
		var m core.Membership
		if err := rows.Scan(&m.AccountNumber, &m.UserID, &m.Role); err != nil {
			return nil, err
		}
		res = append(res, &m)
	}
	return res, rows.Err()
}

// CreateUser adds a user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, firstName, surname, email, password string) (*core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	const ins = `INSERT INTO users (first_name, surname, email, password) VALUES ($1, $2, $3, $4) RETURNING id`
	var id int
	if err := s.db.QueryRowContext(ctx, ins, firstName, surname, email, string(hash)).Scan(&id); err != nil {
		return nil, err
	}
	return &core.User{ID: id, FirstName: firstName, Surname: surname, Email: email}, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id int) (*core.User, error) {
	const q = `SELECT id, first_name, surname, email FROM users WHERE id = $1`
	var u core.User
	err := s.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.FirstName, &u.Surname, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
