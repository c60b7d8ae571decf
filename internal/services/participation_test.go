package services

import (
	"context"
	"errors"
	"testing"

	"carddraw/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParticipation(t *testing.T) {
	ctx := context.Background()

	t.Run("key is prefix plus category", func(t *testing.T) {
		p := NewParticipation(newMemFlags(), "dev", "")
		assert.Equal(t, "codeArena_participated_wildcard", p.StorageKey(models.CategoryWildcard))

		custom := NewParticipation(newMemFlags(), "dev", "event42_")
		assert.Equal(t, "event42_penalty", custom.StorageKey(models.CategoryPenalty))
	})

	t.Run("defaults to false and marks idempotently", func(t *testing.T) {
		flags := newMemFlags()
		p := NewParticipation(flags, "dev", "")
		assert.False(t, p.HasParticipated(ctx, models.CategoryPenalty))

		p.MarkParticipated(ctx, models.CategoryPenalty)
		p.MarkParticipated(ctx, models.CategoryPenalty)

		assert.True(t, p.HasParticipated(ctx, models.CategoryPenalty))
		assert.False(t, p.HasParticipated(ctx, models.CategoryWildcard))
		assert.Equal(t, "true", flags.get("dev", "codeArena_participated_penalty"))
	})

	t.Run("devices do not share flags", func(t *testing.T) {
		flags := newMemFlags()
		NewParticipation(flags, "dev-a", "").MarkParticipated(ctx, models.CategoryPenalty)
		assert.False(t, NewParticipation(flags, "dev-b", "").HasParticipated(ctx, models.CategoryPenalty))
	})

	t.Run("storage errors degrade", func(t *testing.T) {
		flags := newMemFlags()
		flags.getErr = errors.New("locked")
		flags.setErr = errors.New("locked")
		p := NewParticipation(flags, "dev", "")

		assert.NotPanics(t, func() { p.MarkParticipated(ctx, models.CategoryPenalty) })
		assert.False(t, p.HasParticipated(ctx, models.CategoryPenalty))
	})

	t.Run("nil store is a no-op", func(t *testing.T) {
		p := NewParticipation(nil, "dev", "")
		p.MarkParticipated(ctx, models.CategoryPenalty)
		assert.False(t, p.HasParticipated(ctx, models.CategoryPenalty))

		var nilP *Participation
		assert.False(t, nilP.HasParticipated(ctx, models.CategoryPenalty))
	})
}
