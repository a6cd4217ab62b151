package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

func TestEntityCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := newTestBook("bk_1", "Dune")
	book.ISBN = "9780441013593"
	require.NoError(t, s.Books.Create(ctx, "bk_1", book))

	got, err := s.Books.Get(ctx, "bk_1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, []string{"Test Author"}, got.Authors)
}

func TestEntityCreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Books.Create(ctx, "bk_1", newTestBook("bk_1", "Dune")))

	err := s.Books.Create(ctx, "bk_1", newTestBook("bk_1", "Dune again"))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestEntityGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Books.Get(context.Background(), "bk_missing")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestEntityPutUpsertsAndReindexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := newTestBook("bk_1", "Dune")
	book.ISBN = "9780441013593"
	require.NoError(t, s.Books.Put(ctx, "bk_1", book))

	// Replaying the same record must be a no-op, not an error.
	require.NoError(t, s.Books.Put(ctx, "bk_1", book))

	got, err := s.Books.GetByIndex(ctx, "isbn", "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, "bk_1", got.ID)

	// Changing the ISBN must drop the old index key.
	book.ISBN = "9780441013594"
	require.NoError(t, s.Books.Put(ctx, "bk_1", book))

	_, err = s.Books.GetByIndex(ctx, "isbn", "9780441013593")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	got, err = s.Books.GetByIndex(ctx, "isbn", "9780441013594")
	require.NoError(t, err)
	assert.Equal(t, "bk_1", got.ID)
}

func TestEntityDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := newTestBook("bk_1", "Dune")
	book.ISBN = "9780441013593"
	require.NoError(t, s.Books.Create(ctx, "bk_1", book))

	require.NoError(t, s.Books.Delete(ctx, "bk_1"))
	require.NoError(t, s.Books.Delete(ctx, "bk_1"), "second delete must not error")

	_, err := s.Books.Get(ctx, "bk_1")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	// Index keys go with the record.
	_, err = s.Books.GetByIndex(ctx, "isbn", "9780441013593")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestEntityListSkipsIndexKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"bk_1", "bk_2", "bk_3"} {
		book := newTestBook(id, "Book "+id)
		book.ISBN = "isbn-" + id
		require.NoError(t, s.Books.Create(ctx, id, book))
	}

	books, err := s.Books.All(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 3, "index keys must not surface as records")

	count, err := s.Books.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEntityMultiValueIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	log := &domain.ReadingLog{BookID: "bk_1", Status: domain.StatusReading}
	log.ID = "log_1"
	log.InitTimestamps()
	require.NoError(t, s.ReadingLogs.Create(ctx, "log_1", log))

	got, err := s.ReadingLogs.GetByIndex(ctx, "book", "bk_1")
	require.NoError(t, err)
	assert.Equal(t, "log_1", got.ID)
}
