package ledger

import (
	"context"
	"fmt"
	"strconv"
)

// Repository manages the ledger and its balance projection
type Repository interface {
	// Append records the entry and applies it to the balance in one atomic step.
	// A debit that would take the balance below zero returns ErrInsufficientPoints and
	// leaves the balance unchanged. A repeated (account, reason, reference) returns ErrDuplicateEntry.
	Append(ctx context.Context, entry *Entry) error
	Balance(ctx context.Context, accountID int64) (int64, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*Entry, error)
	CountByAccount(ctx context.Context, accountID int64) (int64, error)
}

// ErrDuplicateEntry indicates the (account, reason, reference) key was already recorded
type ErrDuplicateEntry struct {
	AccountID   int64
	Reason      Reason
	ReferenceID string
}

func (e ErrDuplicateEntry) Error() string {
	return fmt.Sprintf("duplicate ledger entry: account %s reason %s reference %s",
		strconv.FormatInt(e.AccountID, 10), e.Reason, e.ReferenceID)
}

// Is implements the errors.Is interface; a zero-valued target matches any duplicate
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t == (ErrDuplicateEntry{}) {
		return true
	}
	return e == t
}
