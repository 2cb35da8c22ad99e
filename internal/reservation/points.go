package reservation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/kerya-reservation-engine/internal/domain/store"
	"github.com/kerya-reservation-engine/internal/logger"
	"github.com/kerya-reservation-engine/internal/policy"
)

// Points grants and spends points through the append-only ledger
type Points struct {
	store     store.Store
	rules     policy.PointsRules
	clock     func() time.Time
	txTimeout time.Duration
	logger    *slog.Logger
}

func NewPoints(logger *slog.Logger, st store.Store, rules policy.PointsRules, txTimeout time.Duration, opts ...Option) *Points {
	o := buildOptions(opts)
	return &Points{
		store:     st,
		rules:     rules,
		clock:     o.clock,
		txTimeout: txTimeout,
		logger:    logger,
	}
}

// Credit adds points. Replaying a recorded (account, reason, reference) succeeds without effect.
func (p *Points) Credit(ctx context.Context, accountID, amount int64, reason ledger.Reason, referenceID string) error {
	entry, err := ledger.NewCredit(accountID, amount, reason, referenceID, p.clock())
	if err != nil {
		return err
	}
	return p.append(ctx, entry)
}

// Debit removes points, failing with ErrInsufficientPoints when the balance is too low
func (p *Points) Debit(ctx context.Context, accountID, amount int64, reason ledger.Reason, referenceID string) error {
	entry, err := ledger.NewDebit(accountID, amount, reason, referenceID, p.clock())
	if err != nil {
		return err
	}
	return p.append(ctx, entry)
}

// GrantRegistrationBonus is keyed by the account id, so each account gets it once
func (p *Points) GrantRegistrationBonus(ctx context.Context, accountID int64) error {
	if p.rules.RegistrationBonus == 0 {
		return nil
	}
	return p.Credit(ctx, accountID, p.rules.RegistrationBonus, ledger.ReasonRegistrationBonus, strconv.FormatInt(accountID, 10))
}

func (p *Points) GrantReviewEarn(ctx context.Context, accountID int64, reviewID string) error {
	if p.rules.ReviewEarn == 0 {
		return nil
	}
	return p.Credit(ctx, accountID, p.rules.ReviewEarn, ledger.ReasonReviewEarn, reviewID)
}

func (p *Points) ChargePost(ctx context.Context, accountID int64, postID string) error {
	return p.Debit(ctx, accountID, p.rules.PostCost, ledger.ReasonPostCost, postID)
}

func (p *Points) Adjust(ctx context.Context, accountID, amount int64, referenceID string) error {
	switch {
	case amount > 0:
		return p.Credit(ctx, accountID, amount, ledger.ReasonAdjustment, referenceID)
	case amount < 0:
		return p.Debit(ctx, accountID, -amount, ledger.ReasonAdjustment, referenceID)
	default:
		return ledger.ErrInvalidAmount
	}
}

func (p *Points) Balance(ctx context.Context, accountID int64) (int64, error) {
	return p.store.Ledger().Balance(ctx, accountID)
}

func (p *Points) Entries(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Entry, int64, error) {
	entries, err := p.store.Ledger().ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := p.store.Ledger().CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (p *Points) append(ctx context.Context, entry *ledger.Entry) error {
	log := logger.WithCorrelation(p.logger, shared.CorrelationIDFrom(ctx))

	err := runTx(ctx, p.store, p.txTimeout, func(ctx context.Context, tx store.Repositories) error {
		return tx.Ledger().Append(ctx, entry)
	})
	switch {
	case err == nil:
		log.Info("Points recorded",
			"account_id", entry.AccountID,
			"amount", entry.Amount,
			"reason", string(entry.Reason),
			"reference_id", entry.ReferenceID,
		)
		return nil
	case errors.Is(err, ledger.ErrDuplicateEntry{}):
		log.Info("Points already recorded", "account_id", entry.AccountID, "reason", string(entry.Reason), "reference_id", entry.ReferenceID)
		return nil
	case errors.Is(err, ledger.ErrInsufficientPoints):
		return err
	default:
		log.Error("Failed to record points", "account_id", entry.AccountID, "reason", string(entry.Reason), "error", err)
		return err
	}
}
