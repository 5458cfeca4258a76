package core

import "errors"

var (
	// Validation failures: the request itself is bad. Nothing is mutated.
	ErrInvalidAmount       = errors.New("amount must be positive with at most 2 decimal places")
	ErrInvalidEntryType    = errors.New("unknown transaction type")
	ErrSameAccountTransfer = errors.New("cannot transfer funds to the same account")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrUserNotFound        = errors.New("user not found")
	ErrMovementNotFound    = errors.New("movement not found")
	ErrInvalidOverdraft    = errors.New("overdraft limit must not be negative")

	// Conflicts: the request is well-formed but clashes with current state.
	ErrAlreadyLinked       = errors.New("user is already linked to this account")
	ErrMembershipNotFound  = errors.New("user is not linked to this account")
	ErrRemovePrimaryHolder = errors.New("cannot remove the primary holder")
	ErrNonZeroBalanceClose = errors.New("cannot close account due to balance")

	// ErrTransientStore wraps a store failure that aborted the unit of work.
	// No partial effect exists, so the caller may retry the whole call.
	ErrTransientStore = errors.New("transient store failure")

	// ErrInvariantViolation marks a state the core must never produce, such
	// as a committed movement whose sides do not balance. It indicates a
	// defect, not a caller problem.
	ErrInvariantViolation = errors.New("ledger invariant violated")
)

// Kind buckets errors for callers that only need to know how to react:
// reject, reject-as-conflict, retry, or page someone.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindTransient
	KindInvariant
)

// KindOf classifies err into the error taxonomy. Unrecognized errors are
// KindUnknown and should be treated as internal failures.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidEntryType),
		errors.Is(err, ErrSameAccountTransfer),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrMovementNotFound),
		errors.Is(err, ErrInvalidOverdraft):
		return KindValidation
	case errors.Is(err, ErrAlreadyLinked),
		errors.Is(err, ErrMembershipNotFound),
		errors.Is(err, ErrRemovePrimaryHolder),
		errors.Is(err, ErrNonZeroBalanceClose):
		return KindConflict
	case errors.Is(err, ErrTransientStore):
		return KindTransient
	case errors.Is(err, ErrInvariantViolation):
		return KindInvariant
	default:
		return KindUnknown
	}
}
