package services

import (
	"context"
	"testing"
	"time"

	"carddraw/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDrawService(ledger LedgerClient, flags FlagStore) *DrawService {
	return NewDrawService(DrawServiceConfig{
		Ledger: ledger,
		Flags:  flags,
		Delay:  (&noDelay{}).Delay,
		Slot:   fixedSlot(1),
	})
}

func TestDrawService_Controller(t *testing.T) {
	ctx := context.Background()
	svc := newTestDrawService(&fakeLedger{}, newMemFlags())

	t.Run("reuses the controller per device and category", func(t *testing.T) {
		a, err := svc.Controller(ctx, "dev-1", models.CategoryWildcard)
		require.NoError(t, err)
		b, err := svc.Controller(ctx, "dev-1", models.CategoryWildcard)
		require.NoError(t, err)
		assert.Same(t, a, b)

		c, err := svc.Controller(ctx, "dev-1", models.CategoryPenalty)
		require.NoError(t, err)
		assert.NotSame(t, a, c)

		d, err := svc.Controller(ctx, "dev-2", models.CategoryWildcard)
		require.NoError(t, err)
		assert.NotSame(t, a, d)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.Controller(ctx, "dev-1", "bonus")
		assert.ErrorIs(t, err, models.ErrUnknownCategory)
	})
}

func TestDrawService_MountsFromDurableFlag(t *testing.T) {
	ctx := context.Background()
	flags := newMemFlags()
	svc := newTestDrawService(&fakeLedger{}, flags)

	ctrl, err := svc.Controller(ctx, "dev-1", models.CategoryPenalty)
	require.NoError(t, err)
	ctrl.SetTeamName("Alpha")
	ctrl.VerifyTeam(ctx)
	require.Equal(t, models.PhaseRecorded, ctrl.SpinCard(ctx).Phase())

	svc.ClearSession("dev-1")
	assert.Zero(t, svc.SessionCount())

	fresh, err := svc.Controller(ctx, "dev-1", models.CategoryPenalty)
	require.NoError(t, err)
	assert.NotSame(t, ctrl, fresh)
	assert.Equal(t, models.PhaseAlreadyParticipated, fresh.Snapshot().Phase())
}

func TestDrawService_CleanUpInactiveSessions(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{block: make(chan struct{})}
	svc := newTestDrawService(ledger, newMemFlags())
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Controller(ctx, "idle", models.CategoryWildcard)
	require.NoError(t, err)
	busy, err := svc.Controller(ctx, "busy", models.CategoryWildcard)
	require.NoError(t, err)

	busy.SetTeamName("Alpha")
	done := make(chan struct{})
	go func() {
		busy.VerifyTeam(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return busy.Snapshot().IsVerifying }, time.Second, time.Millisecond)

	now = now.Add(2 * time.Hour)
	removed := svc.CleanUpInactiveSessions(time.Hour)

	assert.Equal(t, 1, removed, "only the idle session is dropped")
	assert.Equal(t, 1, svc.SessionCount())

	close(ledger.block)
	<-done
}
