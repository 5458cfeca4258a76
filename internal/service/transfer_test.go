package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"retail-bank/internal/core"
	"retail-bank/internal/storage"
	"retail-bank/internal/storage/memory"
)

func testService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger), store
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// openAccount creates a fresh user and opens an account for them.
func openAccount(t *testing.T, svc Service) *core.Account {
	t.Helper()
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, "Test", "Holder", uuid.NewString()+"@example.com", "secret")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	acc, err := svc.OpenAccount(ctx, u.ID, "current", "standard", nil, nil, nil)
	if err != nil {
		t.Fatalf("OpenAccount: %v", err)
	}
	return acc
}

// fund credits an account directly through the store, recording a deposit
// entry so the ledger still replays to the stored balance.
func fund(t *testing.T, store *memory.Store, number int64, amount string) {
	t.Helper()
	ctx := context.Background()
	err := store.Atomically(ctx, func(tx storage.Tx) error {
		acc, err := tx.LockAccount(ctx, number)
		if err != nil {
			return err
		}
		newBal := acc.Balance.Add(d(amount))
		if err := tx.UpdateBalance(ctx, number, newBal); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, &core.LedgerEntry{
			Reference:        uuid.NewString(),
			Amount:           d(amount),
			RunningBalance:   newBal,
			DateTime:         time.Now().UTC(),
			Type:             core.EntryDeposit,
			SenderAccount:    number,
			RecipientAccount: number,
			Direction:        core.DirectionIn,
			Outcome:          core.OutcomeSuccess,
		})
	})
	if err != nil {
		t.Fatalf("fund account %d: %v", number, err)
	}
}

func balance(t *testing.T, svc Service, number int64) decimal.Decimal {
	t.Helper()
	acc, err := svc.GetAccount(context.Background(), number)
	if err != nil {
		t.Fatalf("GetAccount(%d): %v", number, err)
	}
	return acc.Balance
}

func TestTransferConservation(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	src := openAccount(t, svc)
	dst := openAccount(t, svc)
	fund(t, store, src.Number, "100.00")
	fund(t, store, dst.Number, "20.00")

	srcEntry, dstEntry, err := svc.Transfer(ctx, src.Number, dst.Number, d("30.50"), core.EntryTransfer, "rent")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if !srcEntry.Amount.Equal(dstEntry.Amount) {
		t.Fatalf("amounts differ: %s vs %s", srcEntry.Amount, dstEntry.Amount)
	}
	if srcEntry.Direction != core.DirectionOut || dstEntry.Direction != core.DirectionIn {
		t.Fatalf("directions = %s/%s, want out/in", srcEntry.Direction, dstEntry.Direction)
	}
	if !srcEntry.DateTime.Equal(dstEntry.DateTime) {
		t.Fatalf("timestamps differ: %v vs %v", srcEntry.DateTime, dstEntry.DateTime)
	}
	if srcEntry.Reference != dstEntry.Reference {
		t.Fatalf("references differ: %s vs %s", srcEntry.Reference, dstEntry.Reference)
	}

	srcBal, dstBal := balance(t, svc, src.Number), balance(t, svc, dst.Number)
	if !srcBal.Equal(d("69.50")) || !dstBal.Equal(d("50.50")) {
		t.Fatalf("balances = %s / %s, want 69.50 / 50.50", srcBal, dstBal)
	}
	if !srcEntry.RunningBalance.Equal(srcBal) || !dstEntry.RunningBalance.Equal(dstBal) {
		t.Fatalf("running balances %s / %s do not match stored balances %s / %s",
			srcEntry.RunningBalance, dstEntry.RunningBalance, srcBal, dstBal)
	}
	// Total money is unchanged.
	if total := srcBal.Add(dstBal); !total.Equal(d("120.00")) {
		t.Fatalf("total = %s, want 120.00", total)
	}
}

func TestTransferRejections(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	src := openAccount(t, svc)
	dst := openAccount(t, svc)
	closed := openAccount(t, svc)
	fund(t, store, src.Number, "100.00")
	if err := svc.SetActive(ctx, closed.Number, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	tests := []struct {
		name    string
		from    int64
		to      int64
		amount  decimal.Decimal
		wantErr error
	}{
		{"zero amount", src.Number, dst.Number, d("0"), core.ErrInvalidAmount},
		{"negative amount", src.Number, dst.Number, d("-5"), core.ErrInvalidAmount},
		{"three decimal places", src.Number, dst.Number, d("1.005"), core.ErrInvalidAmount},
		{"self transfer", src.Number, src.Number, d("10"), core.ErrSameAccountTransfer},
		{"unknown sender", 9999, dst.Number, d("10"), core.ErrAccountNotFound},
		{"unknown recipient", src.Number, 9999, d("10"), core.ErrAccountNotFound},
		{"inactive recipient", src.Number, closed.Number, d("10"), core.ErrAccountInactive},
		{"insufficient funds", src.Number, dst.Number, d("100.01"), core.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Transfer(ctx, tt.from, tt.to, tt.amount, core.EntryTransfer, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Transfer = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No rejection touched the ledger: balances unchanged, no entries
	// beyond the funding deposit.
	if got := balance(t, svc, src.Number); !got.Equal(d("100.00")) {
		t.Fatalf("source balance = %s, want 100.00", got)
	}
	if got := balance(t, svc, dst.Number); !got.Equal(d("0")) {
		t.Fatalf("destination balance = %s, want 0", got)
	}
	entries, err := svc.ListEntries(ctx, src.Number)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("source has %d entries, want only the funding deposit", len(entries))
	}
}

func TestTransferInactiveSender(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	src := openAccount(t, svc)
	dst := openAccount(t, svc)
	fund(t, store, src.Number, "50.00")

	// Drain and close the sender, then try to move money out of it.
	if _, _, err := svc.Transfer(ctx, src.Number, dst.Number, d("50.00"), core.EntryTransfer, ""); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := svc.SetActive(ctx, src.Number, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	_, _, err := svc.Transfer(ctx, src.Number, dst.Number, d("1.00"), core.EntryTransfer, "")
	if !errors.Is(err, core.ErrAccountInactive) {
		t.Fatalf("Transfer from closed account = %v, want ErrAccountInactive", err)
	}
}

func TestTransferOverdraft(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	src := openAccount(t, svc)
	dst := openAccount(t, svc)
	fund(t, store, src.Number, "10.00")

	limit := d("50.00")
	if err := svc.SetOverdraftLimit(ctx, src.Number, &limit); err != nil {
		t.Fatalf("SetOverdraftLimit: %v", err)
	}

	// Within balance + overdraft: allowed, balance goes negative.
	if _, _, err := svc.Transfer(ctx, src.Number, dst.Number, d("40.00"), core.EntryTransfer, ""); err != nil {
		t.Fatalf("Transfer within overdraft: %v", err)
	}
	if got := balance(t, svc, src.Number); !got.Equal(d("-30.00")) {
		t.Fatalf("balance = %s, want -30.00", got)
	}

	// Beyond the floor: rejected.
	_, _, err := svc.Transfer(ctx, src.Number, dst.Number, d("20.01"), core.EntryTransfer, "")
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("Transfer past overdraft = %v, want ErrInsufficientFunds", err)
	}
}

func TestRunningBalanceReplay(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	a := openAccount(t, svc)
	b := openAccount(t, svc)
	c := openAccount(t, svc)
	fund(t, store, a.Number, "500.00")
	fund(t, store, b.Number, "100.00")

	moves := []struct {
		from, to int64
		amount   string
	}{
		{a.Number, b.Number, "120.00"},
		{b.Number, c.Number, "75.50"},
		{a.Number, c.Number, "0.01"},
		{c.Number, a.Number, "30.00"},
		{b.Number, a.Number, "1.99"},
	}
	for _, m := range moves {
		if _, _, err := svc.Transfer(ctx, m.from, m.to, d(m.amount), core.EntryTransfer, ""); err != nil {
			t.Fatalf("Transfer %d->%d %s: %v", m.from, m.to, m.amount, err)
		}
	}

	for _, number := range []int64{a.Number, b.Number, c.Number} {
		entries, err := svc.ListEntries(ctx, number)
		if err != nil {
			t.Fatalf("ListEntries(%d): %v", number, err)
		}
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.SignedAmount())
		}
		if got := balance(t, svc, number); !sum.Equal(got) {
			t.Fatalf("account %d: replayed sum %s != stored balance %s", number, sum, got)
		}
	}
}

func TestConcurrentTransfersSameSource(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	src := openAccount(t, svc)
	dst := openAccount(t, svc)
	fund(t, store, src.Number, "100.00")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Transfer(ctx, src.Number, dst.Number, d("60.00"), core.EntryTransfer, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, core.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("got %d successes and %d rejections, want exactly 1 of each", ok, insufficient)
	}
	if got := balance(t, svc, src.Number); !got.Equal(d("40.00")) {
		t.Fatalf("source balance = %s, want 40.00 (never negative)", got)
	}
}

func TestConcurrentOpposingTransfers(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	a := openAccount(t, svc)
	b := openAccount(t, svc)
	fund(t, store, a.Number, "1000.00")
	fund(t, store, b.Number, "1000.00")

	const n = 100
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for range n {
		go func() {
			defer wg.Done()
			svc.Transfer(ctx, a.Number, b.Number, d("1.00"), core.EntryTransfer, "")
		}()
		go func() {
			defer wg.Done()
			svc.Transfer(ctx, b.Number, a.Number, d("0.50"), core.EntryTransfer, "")
		}()
	}
	wg.Wait()

	total := balance(t, svc, a.Number).Add(balance(t, svc, b.Number))
	if !total.Equal(d("2000.00")) {
		t.Fatalf("total = %s, want 2000.00", total)
	}
	if got := balance(t, svc, a.Number); !got.Equal(d("950.00")) {
		t.Fatalf("account a balance = %s, want 950.00", got)
	}
}

func TestEntriesByReference(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	src := openAccount(t, svc)
	dst := openAccount(t, svc)
	fund(t, store, src.Number, "25.00")

	srcEntry, _, err := svc.Transfer(ctx, src.Number, dst.Number, d("25.00"), core.EntryTransfer, "")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	entries, err := svc.EntriesByReference(ctx, srcEntry.Reference)
	if err != nil {
		t.Fatalf("EntriesByReference: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	if _, err := svc.EntriesByReference(ctx, uuid.NewString()); !errors.Is(err, core.ErrMovementNotFound) {
		t.Fatalf("unknown reference = %v, want ErrMovementNotFound", err)
	}
}
