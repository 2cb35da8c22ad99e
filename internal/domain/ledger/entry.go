// Package ledger models the append-only points ledger. Balances are derived from entries
// and must never go negative.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidAmount      = errors.New("points amount must be positive")
)

// Reason classifies why points moved
type Reason string

const (
	ReasonRegistrationBonus Reason = "registration_bonus"
	ReasonBookingEarn       Reason = "booking_earn"
	ReasonReviewEarn        Reason = "review_earn"
	ReasonPostCost          Reason = "post_cost"
	ReasonAdjustment        Reason = "adjustment"
)

// Valid reports whether r is a known reason
func (r Reason) Valid() bool {
	switch r {
	case ReasonRegistrationBonus, ReasonBookingEarn, ReasonReviewEarn, ReasonPostCost, ReasonAdjustment:
		return true
	}
	return false
}

// Entry is one signed movement of points. Entries are never updated or deleted.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	AccountID   int64     `json:"account_id"`
	Amount      int64     `json:"amount"`
	Reason      Reason    `json:"reason"`
	ReferenceID string    `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCredit builds an entry adding amount points
func NewCredit(accountID, amount int64, reason Reason, referenceID string, now time.Time) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return newEntry(accountID, amount, reason, referenceID, now), nil
}

// NewDebit builds an entry removing amount points
func NewDebit(accountID, amount int64, reason Reason, referenceID string, now time.Time) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return newEntry(accountID, -amount, reason, referenceID, now), nil
}

func newEntry(accountID, amount int64, reason Reason, referenceID string, now time.Time) *Entry {
	if referenceID == "" {
		referenceID = uuid.NewString()
	}
	return &Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   now,
	}
}

// IsDebit reports whether the entry removes points
func (e *Entry) IsDebit() bool {
	return e.Amount < 0
}
