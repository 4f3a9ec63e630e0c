package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected matches every per-order rejection. A rejected order never
	// touches the book or the ledger.
	ErrRejected = errors.New("order rejected")

	ErrInsufficientFunds    = fmt.Errorf("%w: insufficient funds", ErrRejected)
	ErrInsufficientHoldings = fmt.Errorf("%w: insufficient holdings", ErrRejected)
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be positive", ErrRejected)
	ErrInvalidPrice         = fmt.Errorf("%w: price must be positive", ErrRejected)
	ErrUnknownTrader        = fmt.Errorf("%w: unknown trader", ErrRejected)
	ErrInvalidAsset         = fmt.Errorf("%w: invalid asset", ErrRejected)
	ErrInvalidSide          = fmt.Errorf("%w: invalid side", ErrRejected)

	// ErrInvariantViolation means the book or index is corrupt. It is never
	// recoverable; callers must stop processing.
	ErrInvariantViolation = errors.New("invariant violation")

	ErrDuplicateTrader = errors.New("duplicate trader name")
)

type RejectionError struct {
	OrderID    uint64
	TraderName string
	Reason     error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order %d from %s: %v", e.OrderID, e.TraderName, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolation}, args...)...)
}
