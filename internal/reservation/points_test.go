package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kerya-reservation-engine/internal/data/memory"
	"github.com/kerya-reservation-engine/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoints(t *testing.T) *Points {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return NewPoints(logger, memory.NewStore(), testRules().Points, time.Second, WithClock(func() time.Time { return now }))
}

func TestPoints_GrantsAreIdempotent(t *testing.T) {
	p := newTestPoints(t)
	ctx := context.Background()

	require.NoError(t, p.GrantRegistrationBonus(ctx, renterID))
	require.NoError(t, p.GrantRegistrationBonus(ctx, renterID))
	require.NoError(t, p.GrantReviewEarn(ctx, renterID, "review-1"))
	require.NoError(t, p.GrantReviewEarn(ctx, renterID, "review-1"))
	require.NoError(t, p.GrantReviewEarn(ctx, renterID, "review-2"))

	balance, err := p.Balance(ctx, renterID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	entries, total, err := p.Entries(ctx, renterID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 3)
}

func TestPoints_ChargePost(t *testing.T) {
	p := newTestPoints(t)
	ctx := context.Background()

	err := p.ChargePost(ctx, renterID, "post-1")
	assert.ErrorIs(t, err, ledger.ErrInsufficientPoints)

	require.NoError(t, p.Adjust(ctx, renterID, 15, "support-1"))
	require.NoError(t, p.ChargePost(ctx, renterID, "post-1"))
	require.NoError(t, p.ChargePost(ctx, renterID, "post-1"), "replayed charge is a no-op")

	err = p.ChargePost(ctx, renterID, "post-2")
	assert.ErrorIs(t, err, ledger.ErrInsufficientPoints)

	balance, err := p.Balance(ctx, renterID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestPoints_Adjust(t *testing.T) {
	p := newTestPoints(t)
	ctx := context.Background()

	assert.ErrorIs(t, p.Adjust(ctx, renterID, 0, "zero"), ledger.ErrInvalidAmount)

	require.NoError(t, p.Adjust(ctx, renterID, 40, "grant"))
	require.NoError(t, p.Adjust(ctx, renterID, -25, "claw-back"))
	assert.ErrorIs(t, p.Adjust(ctx, renterID, -16, "too-much"), ledger.ErrInsufficientPoints)

	balance, err := p.Balance(ctx, renterID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)
}

func TestPoints_ConcurrentChargesNeverOverdraw(t *testing.T) {
	p := newTestPoints(t)
	ctx := context.Background()
	require.NoError(t, p.Adjust(ctx, renterID, 50, "seed"))

	var charged int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := p.ChargePost(ctx, renterID, fmt.Sprintf("post-%d", i))
			switch {
			case err == nil:
				atomic.AddInt32(&charged, 1)
			case !errors.Is(err, ledger.ErrInsufficientPoints):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(5), charged)
	balance, err := p.Balance(ctx, renterID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}
