package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

func enqueueAt(t *testing.T, s *Store, id string, ts time.Time) {
	t.Helper()
	require.NoError(t, s.Enqueue(context.Background(), &domain.Mutation{
		Timestamp: ts,
		ID:        id,
		Entity:    domain.KindBook,
		EntityID:  "bk_" + id,
		Type:      domain.MutationUpdate,
	}))
}

func TestEnqueueValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Enqueue(ctx, &domain.Mutation{ID: "m1", Entity: "bogus", EntityID: "x", Type: domain.MutationCreate})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	err = s.Enqueue(ctx, &domain.Mutation{Entity: domain.KindBook, Type: domain.MutationCreate})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestPendingTimestampOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	// Enqueue out of order on purpose.
	enqueueAt(t, s, "m3", base.Add(2*time.Second))
	enqueueAt(t, s, "m1", base)
	enqueueAt(t, s, "m2", base.Add(time.Second))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "m1", pending[0].ID)
	assert.Equal(t, "m2", pending[1].ID)
	assert.Equal(t, "m3", pending[2].ID)
}

func TestPendingOrderSubSecond(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Nanosecond-apart writes must still replay in order. A naive RFC 3339
	// key would sort "…T12:00:00.5Z" after "…T12:00:00.25Z".
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	enqueueAt(t, s, "m2", base.Add(500*time.Millisecond))
	enqueueAt(t, s, "m1", base.Add(250*time.Millisecond))
	enqueueAt(t, s, "m3", base.Add(time.Second))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "m1", pending[0].ID)
	assert.Equal(t, "m2", pending[1].ID)
	assert.Equal(t, "m3", pending[2].ID)
}

func TestMarkSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	enqueueAt(t, s, "m1", base)
	enqueueAt(t, s, "m2", base.Add(time.Millisecond))

	require.NoError(t, s.MarkSynced(ctx, []string{"m1", "m_unknown"}))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m2", pending[0].ID)

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkFailedKeepsEntryPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueAt(t, s, "m1", time.Now())

	require.NoError(t, s.MarkFailed(ctx, []string{"m1"}, "remote returned 500"))
	require.NoError(t, s.MarkFailed(ctx, []string{"m1"}, "remote returned 503"))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1, "failed entries stay in the queue")
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "remote returned 503", pending[0].LastError)
}

func TestPurgeSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := range 5 {
		enqueueAt(t, s, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Millisecond))
	}

	require.NoError(t, s.MarkSynced(ctx, []string{"m0", "m1", "m2"}))

	removed, err := s.PurgeSynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// Nothing synced left, purge is a no-op.
	removed, err = s.PurgeSynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueAt(t, s, "m1", time.Now())
	require.NoError(t, s.ClearQueue(ctx))

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMutationKeyOrdering(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		earlier time.Time
		later   time.Time
	}{
		{base, base.Add(time.Nanosecond)},
		{base.Add(250 * time.Millisecond), base.Add(500 * time.Millisecond)},
		{base.Add(999 * time.Millisecond), base.Add(time.Second)},
		{base, base.Add(24 * time.Hour)},
	}
	for _, tc := range cases {
		a := mutationKey(tc.earlier, "m")
		b := mutationKey(tc.later, "m")
		assert.Less(t, string(a), string(b), "key order must match timestamp order")
	}
}
