// Package scheduler periodically completes stays whose check-out has passed.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kerya-reservation-engine/internal/config"
	"github.com/kerya-reservation-engine/internal/domain/booking"
	"github.com/panjf2000/ants/v2"
)

// Completer is the part of the reservation engine the scheduler drives
type Completer interface {
	DueForCompletion(ctx context.Context, limit int) ([]uuid.UUID, error)
	CompleteBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
}

// CompletionScheduler sweeps due bookings on an interval and completes them on a worker pool
type CompletionScheduler struct {
	completer Completer
	pool      *ants.Pool
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewCompletionScheduler(
	completer Completer,
	schedulerCfg *config.SchedulerConfig,
	poolCfg *config.WorkerPoolConfig,
	logger *slog.Logger,
) (*CompletionScheduler, error) {
	pool, err := ants.NewPool(poolCfg.Size)
	if err != nil {
		return nil, err
	}

	return &CompletionScheduler{
		completer: completer,
		pool:      pool,
		interval:  schedulerCfg.CompletionInterval,
		batchSize: schedulerCfg.CompletionBatchSize,
		logger:    logger,
	}, nil
}

// Start runs sweeps until ctx is cancelled
func (s *CompletionScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting completion scheduler", "interval", s.interval, "batch_size", s.batchSize)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Completion scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep completes one batch of due bookings and returns how many completed.
// A booking that fails is left for the next sweep.
func (s *CompletionScheduler) Sweep(ctx context.Context) int {
	ids, err := s.completer.DueForCompletion(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to list bookings due for completion", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
	)
	for _, id := range ids {
		id := id
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if _, err := s.completer.CompleteBooking(ctx, id); err != nil {
				s.logger.Error("Failed to complete booking", "booking_id", id.String(), "error", err)
				return
			}
			completed.Add(1)
		})
		if err != nil {
			wg.Done()
			s.logger.Error("Failed to submit booking to worker pool", "booking_id", id.String(), "error", err)
		}
	}
	wg.Wait()

	n := int(completed.Load())
	s.logger.Info("Completion sweep finished", "due", len(ids), "completed", n)
	return n
}

// Shutdown releases the worker pool
func (s *CompletionScheduler) Shutdown() {
	s.logger.Info("Shutting down completion worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}
