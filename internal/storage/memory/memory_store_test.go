package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
)

var errBoom = errors.New("boom")

func seedAccount(t *testing.T, s *Store, balance string) int64 {
	t.Helper()
	ctx := context.Background()
	var number int64
	err := s.Atomically(ctx, func(tx storage.Tx) error {
		var err error
		number, err = tx.NextAccountNumber(ctx)
		if err != nil {
			return err
		}
		return tx.CreateAccount(ctx, &core.Account{
			Number:     number,
			Type:       "current",
			SubType:    "standard",
			Balance:    decimal.RequireFromString(balance),
			IsActive:   true,
			DateOpened: time.Now().UTC(),
		})
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return number
}

func TestAtomicallyRollback(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	number := seedAccount(t, s, "100.00")

	err := s.Atomically(ctx, func(tx storage.Tx) error {
		if err := tx.UpdateBalance(ctx, number, decimal.RequireFromString("1.00")); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, &core.LedgerEntry{
			Reference:        "ref-rolled-back",
			Amount:           decimal.RequireFromString("99.00"),
			RunningBalance:   decimal.RequireFromString("1.00"),
			DateTime:         time.Now().UTC(),
			Type:             core.EntryWithdrawal,
			SenderAccount:    number,
			RecipientAccount: number,
			Direction:        core.DirectionOut,
			Outcome:          core.OutcomeSuccess,
		}); err != nil {
			return err
		}
		if err := tx.AddMembership(ctx, &core.Membership{AccountNumber: number, UserID: 7, Role: core.RoleJointHolder}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Atomically = %v, want errBoom", err)
	}

	acc, err := s.GetAccount(ctx, number)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !acc.Balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("balance = %s, want 100.00 after rollback", acc.Balance)
	}
	entries, err := s.ListEntries(ctx, number)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("%d entries survived the rollback", len(entries))
	}
	holders, err := s.ListHolders(ctx, number)
	if err != nil {
		t.Fatalf("ListHolders: %v", err)
	}
	if len(holders) != 0 {
		t.Fatalf("%d memberships survived the rollback", len(holders))
	}
}

func TestAccountNumbersNeverReused(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := seedAccount(t, s, "0")

	// A rolled-back unit of work still consumes a number.
	err := s.Atomically(ctx, func(tx storage.Tx) error {
		if _, err := tx.NextAccountNumber(ctx); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Atomically = %v, want errBoom", err)
	}

	second := seedAccount(t, s, "0")
	if second != first+2 {
		t.Fatalf("second account number = %d, want %d (rolled-back number burned)", second, first+2)
	}
}

func TestListEntriesOrdering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	number := seedAccount(t, s, "0")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := s.Atomically(ctx, func(tx storage.Tx) error {
		for i, ts := range []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)} {
			e := &core.LedgerEntry{
				Reference:        "ref",
				Amount:           decimal.New(int64(i+1), 0),
				RunningBalance:   decimal.Zero,
				DateTime:         ts,
				Type:             core.EntryDeposit,
				SenderAccount:    number,
				RecipientAccount: number,
				Direction:        core.DirectionIn,
				Outcome:          core.OutcomeSuccess,
			}
			if err := tx.AppendEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Atomically: %v", err)
	}

	entries, err := s.ListEntries(ctx, number)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].DateTime.After(entries[i-1].DateTime) {
			t.Fatalf("entries not in most-recent-first order: %v before %v",
				entries[i-1].DateTime, entries[i].DateTime)
		}
	}
	if entries[0].ID <= entries[2].ID {
		t.Fatalf("ids not descending: first %d, last %d", entries[0].ID, entries[2].ID)
	}
}

func TestEntriesByReference(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := seedAccount(t, s, "0")
	b := seedAccount(t, s, "0")

	now := time.Now().UTC()
	err := s.Atomically(ctx, func(tx storage.Tx) error {
		for _, e := range []*core.LedgerEntry{
			{Reference: "shared", Amount: decimal.New(5, 0), DateTime: now, Type: core.EntryTransfer,
				SenderAccount: a, RecipientAccount: b, Direction: core.DirectionOut, Outcome: core.OutcomeSuccess},
			{Reference: "shared", Amount: decimal.New(5, 0), DateTime: now, Type: core.EntryTransfer,
				SenderAccount: a, RecipientAccount: b, Direction: core.DirectionIn, Outcome: core.OutcomeSuccess},
		} {
			if err := tx.AppendEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Atomically: %v", err)
	}

	entries, err := s.EntriesByReference(ctx, "shared")
	if err != nil {
		t.Fatalf("EntriesByReference: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	if _, err := s.EntriesByReference(ctx, "missing"); !errors.Is(err, core.ErrMovementNotFound) {
		t.Fatalf("unknown reference = %v, want ErrMovementNotFound", err)
	}
}

func TestUsers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Ada", "Okafor", "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("user id not allocated")
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Fatalf("email = %q", got.Email)
	}

	if _, err := s.GetUser(ctx, 999); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("unknown user = %v, want ErrUserNotFound", err)
	}
}
