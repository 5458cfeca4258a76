package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

// Store provides in-memory persistence for accounts, ledger entries,
// memberships and users. It implements the same contract as the postgres
// store and is used by tests and local runs.
type Store struct {
	mu sync.Mutex

	accounts    map[int64]*core.Account
	entries     []*core.LedgerEntry
	memberships map[int64][]core.Membership
	users       map[int]*core.User
	passwords   map[int]string

	nextUserID  int
	nextEntryID int64
	// accountSeq only moves forward, even when a unit of work rolls back,
	// so account numbers are never reused.
	accountSeq int64
}

var _ storage.Storage = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[int64]*core.Account),
		memberships: make(map[int64][]core.Membership),
		users:       make(map[int]*core.User),
		passwords:   make(map[int]string),
	}
}

// Atomically runs fn against a working copy of the store under the store
// lock. The copy replaces the live state only when fn succeeds, so a failed
// unit of work leaves no trace.
func (s *Store) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		store:       s,
		accounts:    make(map[int64]*core.Account, len(s.accounts)),
		memberships: make(map[int64][]core.Membership, len(s.memberships)),
		entries:     s.entries,
	}
	for n, acc := range s.accounts {
		cp := *acc
		tx.accounts[n] = &cp
	}
	for n, ms := range s.memberships {
		tx.memberships[n] = append([]core.Membership(nil), ms...)
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.accounts = tx.accounts
	s.memberships = tx.memberships
	s.entries = tx.entries
	return nil
}

// GetAccount retrieves an account by number.
func (s *Store) GetAccount(ctx context.Context, number int64) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[number]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

// ListAccountsForUser returns the accounts the user holds, in account-number
// order.
func (s *Store) ListAccountsForUser(ctx context.Context, userID int) ([]*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*core.Account
	for number, ms := range s.memberships {
		for _, m := range ms {
			if m.UserID == userID {
				cp := *s.accounts[number]
				list = append(list, &cp)
				break
			}
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Number < list[j].Number })
	return list, nil
}

// ListEntries returns the account's ledger entries, most recent first.
func (s *Store) ListEntries(ctx context.Context, accountNumber int64) ([]*core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*core.LedgerEntry
	for _, e := range s.entries {
		if e.AccountNumber() == accountNumber {
			cp := *e
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].DateTime.Equal(list[j].DateTime) {
			return list[i].DateTime.After(list[j].DateTime)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

// EntriesByReference returns every entry recorded under a movement
// reference: both sides for a transfer.
func (s *Store) EntriesByReference(ctx context.Context, reference string) ([]*core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*core.LedgerEntry
	for _, e := range s.entries {
		if e.Reference == reference {
			cp := *e
			list = append(list, &cp)
		}
	}
	if len(list) == 0 {
		return nil, core.ErrMovementNotFound
	}
	return list, nil
}

// ListHolders returns the memberships for an account.
func (s *Store) ListHolders(ctx context.Context, accountNumber int64) ([]*core.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountNumber]; !ok {
		return nil, core.ErrAccountNotFound
	}
	var list []*core.Membership
	for _, m := range s.memberships[accountNumber] {
		cp := m
		list = append(list, &cp)
	}
	return list, nil
}

// CreateUser adds a user with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, firstName, surname, email, password string) (*core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	u := &core.User{ID: s.nextUserID, FirstName: firstName, Surname: surname, Email: email}
	s.users[u.ID] = u
	s.passwords[u.ID] = string(hash)
	cp := *u
	return &cp, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id int) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// memTx is the working copy one unit of work mutates. The store lock is held
// for the whole unit of work, so operations are trivially serialized and row
// locks reduce to an existence check.
type memTx struct {
	store       *Store
	accounts    map[int64]*core.Account
	memberships map[int64][]core.Membership
	entries     []*core.LedgerEntry
}

var _ storage.Tx = (*memTx)(nil)

func (t *memTx) LockAccount(ctx context.Context, number int64) (*core.Account, error) {
	acc, ok := t.accounts[number]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (t *memTx) CreateAccount(ctx context.Context, acc *core.Account) error {
	cp := *acc
	t.accounts[acc.Number] = &cp
	return nil
}

func (t *memTx) UpdateBalance(ctx context.Context, number int64, balance decimal.Decimal) error {
	acc, ok := t.accounts[number]
	if !ok {
		return core.ErrAccountNotFound
	}
	acc.Balance = balance
	return nil
}

func (t *memTx) SetActive(ctx context.Context, number int64, active bool) error {
	acc, ok := t.accounts[number]
	if !ok {
		return core.ErrAccountNotFound
	}
	acc.IsActive = active
	return nil
}

func (t *memTx) SetOverdraftLimit(ctx context.Context, number int64, limit *decimal.Decimal) error {
	acc, ok := t.accounts[number]
	if !ok {
		return core.ErrAccountNotFound
	}
	if limit == nil {
		acc.OverdraftLimit = nil
	} else {
		cp := *limit
		acc.OverdraftLimit = &cp
	}
	return nil
}

func (t *memTx) NextAccountNumber(ctx context.Context) (int64, error) {
	t.store.accountSeq++
	return t.store.accountSeq, nil
}

func (t *memTx) AppendEntry(ctx context.Context, e *core.LedgerEntry) error {
	t.store.nextEntryID++
	cp := *e
	cp.ID = t.store.nextEntryID
	e.ID = cp.ID
	t.entries = append(t.entries, &cp)
	return nil
}

func (t *memTx) GetUser(ctx context.Context, id int) (*core.User, error) {
	u, ok := t.store.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (t *memTx) GetMembership(ctx context.Context, accountNumber int64, userID int) (*core.Membership, error) {
	for _, m := range t.memberships[accountNumber] {
		if m.UserID == userID {
			cp := m
			return &cp, nil
		}
	}
	return nil, core.ErrMembershipNotFound
}

func (t *memTx) AccountRoles(ctx context.Context, accountNumber int64) ([]core.Role, error) {
	var roles []core.Role
	for _, m := range t.memberships[accountNumber] {
		roles = append(roles, m.Role)
	}
	return roles, nil
}

func (t *memTx) AddMembership(ctx context.Context, m *core.Membership) error {
	t.memberships[m.AccountNumber] = append(t.memberships[m.AccountNumber], *m)
	return nil
}

func (t *memTx) RemoveMembership(ctx context.Context, accountNumber int64, userID int) error {
	ms := t.memberships[accountNumber]
	for i, m := range ms {
		if m.UserID == userID {
			t.memberships[accountNumber] = append(ms[:i:i], ms[i+1:]...)
			return nil
		}
	}
	return core.ErrMembershipNotFound
}
