package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func newTestBook(id, title string) *domain.Book {
	book := &domain.Book{
		Title:   title,
		Authors: []string{"Test Author"},
	}
	book.ID = id
	book.InitTimestamps()
	return book
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp, err := s.GetCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp, "fresh store has no checkpoint")

	want := &domain.SyncCheckpoint{
		LastSyncTime: time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
		PendingCount: 2,
	}
	require.NoError(t, s.SetCheckpoint(ctx, want))

	got, err := s.GetCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LastSyncTime.Equal(want.LastSyncTime))
	assert.Equal(t, 2, got.PendingCount)

	require.NoError(t, s.ClearCheckpoint(ctx))
	got, err = s.GetCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeviceIDStable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.DeviceID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := s.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second, "device id must be stable across calls")
}

func TestUserSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetUserSettings(ctx, "u1")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	settings, err := s.GetOrCreateUserSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", settings.UserID)

	settings.Theme = "dark"
	settings.MarkDirty()
	require.NoError(t, s.UpsertUserSettings(ctx, settings))

	got, err := s.GetUserSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Theme)
	assert.True(t, got.SyncPending)
}

func TestUpsertUserSettingsRequiresUserID(t *testing.T) {
	s := newTestStore(t)

	err := s.UpsertUserSettings(context.Background(), &domain.UserSettings{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestSnapshotExportImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, "bk_1", newTestBook("bk_1", "Dune")))
	require.NoError(t, s.Books.Create(ctx, "bk_2", newTestBook("bk_2", "Hyperion")))

	rating := &domain.Rating{BookID: "bk_1", Value: 5}
	rating.ID = "rt_1"
	rating.InitTimestamps()
	require.NoError(t, s.Ratings.Create(ctx, "rt_1", rating))

	settings := domain.NewUserSettings("u1")
	require.NoError(t, s.UpsertUserSettings(ctx, settings))

	snap, err := s.ExportSnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, snap.Books, 2)
	assert.Len(t, snap.Ratings, 1)
	require.NotNil(t, snap.Settings)

	// Simulate force resync: wipe, then restore from the snapshot.
	require.NoError(t, s.DropUserData(ctx))

	count, err := s.Books.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, s.ImportSnapshot(ctx, snap))

	books, err := s.Books.All(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)

	got, err := s.Ratings.GetByIndex(ctx, "book", "bk_1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Value)

	restored, err := s.GetUserSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", restored.UserID)
}

func TestDropUserDataClearsQueueAndCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, &domain.Mutation{
		ID:       "mut_1",
		Entity:   domain.KindBook,
		EntityID: "bk_1",
		Type:     domain.MutationCreate,
	}))
	require.NoError(t, s.SetCheckpoint(ctx, &domain.SyncCheckpoint{LastSyncTime: time.Now()}))

	require.NoError(t, s.DropUserData(ctx))

	pending, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	cp, err := s.GetCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)

	// The install identity survives a data wipe.
	id, err := s.DeviceID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
