package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := NewIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func indexedBook(id, title string, authors ...string) *domain.Book {
	book := &domain.Book{Title: title, Authors: authors}
	book.ID = id
	book.InitTimestamps()
	return book
}

func TestIndexAndSearchBook(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	book := indexedBook("bk_1", "The Left Hand of Darkness", "Ursula K. Le Guin")
	book.Subjects = []string{"science fiction"}
	require.NoError(t, idx.IndexBook(ctx, book))
	require.NoError(t, idx.IndexBook(ctx, indexedBook("bk_2", "Cooking for Two")))

	result, err := idx.Search(ctx, Params{Query: "darkness"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "bk_1", result.Hits[0].ID)
	assert.Equal(t, "The Left Hand of Darkness", result.Hits[0].Title)

	byAuthor, err := idx.Search(ctx, Params{Query: "le guin"})
	require.NoError(t, err)
	require.NotEmpty(t, byAuthor.Hits)
	assert.Equal(t, "bk_1", byAuthor.Hits[0].ID)
}

func TestSearchFuzzyMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(ctx, indexedBook("bk_1", "Hyperion", "Dan Simmons")))

	result, err := idx.Search(ctx, Params{Query: "hyperoin"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits, "one-edit typos should still match")
	assert.Equal(t, "bk_1", result.Hits[0].ID)
}

func TestEmptyQueryBrowsesAll(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(ctx, indexedBook("bk_1", "Dune")))
	require.NoError(t, idx.IndexBook(ctx, indexedBook("bk_2", "Hyperion")))

	result, err := idx.Search(ctx, Params{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestDeleteBookRemovesHit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(ctx, indexedBook("bk_1", "Dune")))
	require.NoError(t, idx.DeleteBook(ctx, "bk_1"))

	result, err := idx.Search(ctx, Params{Query: "dune"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestReindexReplacesDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	book := indexedBook("bk_1", "Working Title")
	require.NoError(t, idx.IndexBook(ctx, book))

	book.Title = "Final Title"
	require.NoError(t, idx.IndexBook(ctx, book))

	stale, err := idx.Search(ctx, Params{Query: "working"})
	require.NoError(t, err)
	assert.Empty(t, stale.Hits)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestRebuild(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(ctx, indexedBook("bk_old", "Stale")))

	require.NoError(t, idx.Rebuild(ctx, []*domain.Book{
		indexedBook("bk_1", "Dune"),
		indexedBook("bk_2", "Hyperion"),
	}))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	stale, err := idx.Search(ctx, Params{Query: "stale"})
	require.NoError(t, err)
	assert.Empty(t, stale.Hits)
}
