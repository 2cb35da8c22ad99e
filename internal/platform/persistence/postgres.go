package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kerya-reservation-engine/internal/config"
	"github.com/kerya-reservation-engine/internal/domain/shared"
)

// SQLSTATE codes the store reacts to
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeUniqueViolation      = "23505"
	CodeExclusionViolation   = "23P01"
	CodeCheckViolation       = "23514"
)

// Querier supports database operations for both pool and transactions
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// txBeginner is satisfied by *pgxpool.Pool and by pgxmock pools
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ Querier = (*pgxpool.Pool)(nil)
var _ Querier = (pgx.Tx)(nil)
var _ txBeginner = (*pgxpool.Pool)(nil)

type PostgresDB struct {
	pool         *pgxpool.Pool
	beginner     txBeginner
	logger       *slog.Logger
	maxAttempts  int
	retryBackoff time.Duration
}

func NewPostgresDB(ctx context.Context, logger *slog.Logger, cfg *config.PostgresConfig) (*PostgresDB, error) {
	if err := RunMigrations(cfg.URL, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	logger.Info("Connected to PostgreSQL", "max_conns", cfg.MaxConns, "tx_max_retries", cfg.TxMaxRetries)

	return &PostgresDB{
		pool:         pool,
		beginner:     pool,
		logger:       logger,
		maxAttempts:  cfg.TxMaxRetries,
		retryBackoff: cfg.TxRetryBackoff,
	}, nil
}

func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *PostgresDB) Close() {
	db.pool.Close()
	db.logger.Info("Closed PostgreSQL connection")
}

// ExecuteTx runs fn in a transaction, rolling back on error or panic. Transactions
// aborted by a serialization failure or deadlock are re-run from scratch up to the
// configured number of attempts; after that shared.ErrUnavailable is returned.
func (db *PostgresDB) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	attempts := db.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := db.executeOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= attempts {
			db.logger.Error("Transaction retries exhausted", "attempts", attempt, "error", err)
			return fmt.Errorf("%w: %d attempts: %v", shared.ErrUnavailable, attempt, err)
		}

		db.logger.Warn("Retrying transaction after transient conflict", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", shared.ErrUnavailable, ctx.Err())
		case <-time.After(db.retryBackoff * time.Duration(attempt)):
		}
	}
}

func (db *PostgresDB) executeOnce(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %w, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

// IsRetryable reports whether err is a transient conflict worth re-running the transaction for
func IsRetryable(err error) bool {
	code := SQLState(err)
	return code == CodeSerializationFailure || code == CodeDeadlockDetected
}

// SQLState extracts the PostgreSQL error code, or "" when err is not a server error
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
