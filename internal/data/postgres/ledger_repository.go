package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/kerya-reservation-engine/internal/platform/persistence"
)

// LedgerRepository implements ledger.Repository with an append-only point_entries table
// and a point_balances projection maintained in the same transaction.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) *LedgerRepository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append must run inside a transaction: when a debit is rejected the inserted entry is
// discarded by the caller's rollback.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	insert := `
		INSERT INTO point_entries (id, account_id, amount, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, reason, reference_id) DO NOTHING
		RETURNING id
	`

	var inserted uuid.UUID
	err := r.querier.QueryRow(ctx, insert,
		entry.ID,
		entry.AccountID,
		entry.Amount,
		string(entry.Reason),
		entry.ReferenceID,
		entry.CreatedAt,
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrDuplicateEntry{AccountID: entry.AccountID, Reason: entry.Reason, ReferenceID: entry.ReferenceID}
		}
		r.logger.Error("Failed to append ledger entry", "account_id", entry.AccountID, "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if entry.IsDebit() {
		return r.debit(ctx, entry)
	}
	return r.credit(ctx, entry)
}

func (r *LedgerRepository) credit(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO point_balances (account_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE
		SET balance = point_balances.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.querier.Exec(ctx, query, entry.AccountID, entry.Amount, entry.CreatedAt); err != nil {
		r.logger.Error("Failed to credit point balance", "account_id", entry.AccountID, "error", err)
		return fmt.Errorf("failed to credit point balance: %w", err)
	}
	return nil
}

func (r *LedgerRepository) debit(ctx context.Context, entry *ledger.Entry) error {
	query := `
		UPDATE point_balances
		SET balance = balance + $2, updated_at = $3
		WHERE account_id = $1 AND balance + $2 >= 0
	`

	result, err := r.querier.Exec(ctx, query, entry.AccountID, entry.Amount, entry.CreatedAt)
	if err != nil {
		if persistence.SQLState(err) == persistence.CodeCheckViolation {
			return ledger.ErrInsufficientPoints
		}
		r.logger.Error("Failed to debit point balance", "account_id", entry.AccountID, "error", err)
		return fmt.Errorf("failed to debit point balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrInsufficientPoints
	}
	return nil
}

// Balance returns the projected balance; an account without entries has zero points
func (r *LedgerRepository) Balance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := r.querier.QueryRow(ctx, `SELECT balance FROM point_balances WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.logger.Error("Failed to read point balance", "account_id", accountID, "error", err)
		return 0, fmt.Errorf("failed to read point balance: %w", err)
	}
	return balance, nil
}

// ListByAccount returns the account's entries, newest first
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, amount, reason, reference_id, created_at
		FROM point_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		var (
			e      ledger.Entry
			reason string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &reason, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Reason = ledger.Reason(reason)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

func (r *LedgerRepository) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM point_entries WHERE account_id = $1`, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID, "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}
