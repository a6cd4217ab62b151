package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/domain"
)

func fieldByName(t *testing.T, p *Preview, name string) FieldComparison {
	t.Helper()
	for _, f := range p.Fields {
		if f.Field == name {
			return f
		}
	}
	t.Fatalf("field %q not in preview", name)
	return FieldComparison{}
}

func TestPreviewMerge(t *testing.T) {
	existing, fetched := localBook(), fetchedBook()

	preview, err := PreviewMerge(existing, fetched)
	require.NoError(t, err)

	// Publisher differs on both sides: a real conflict.
	publisher := fieldByName(t, preview, "publisher")
	assert.True(t, publisher.Conflict)
	assert.Equal(t, "Chilton Books", publisher.ExistingValue)
	assert.Equal(t, "Ace Books", publisher.FetchedValue)

	// ISBN only exists on the fetched side: fillable, not a conflict.
	isbn := fieldByName(t, preview, "isbn")
	assert.False(t, isbn.Conflict)
	assert.False(t, isbn.HasExisting)
	assert.True(t, isbn.HasFetched)

	// Title matches exactly.
	title := fieldByName(t, preview, "title")
	assert.False(t, title.Conflict)

	assert.Positive(t, preview.Conflicts)
	assert.Positive(t, preview.Fillable)
	assert.Positive(t, preview.Matched)
	assert.Equal(t, len(preview.Fields), preview.Total)
}

func TestPreviewSkipsBookkeeping(t *testing.T) {
	existing, fetched := localBook(), fetchedBook()
	existing.MarkDirty()

	preview, err := PreviewMerge(existing, fetched)
	require.NoError(t, err)

	for _, f := range preview.Fields {
		assert.NotContains(t, []string{"id", "created_at", "updated_at", "sync_pending", "last_synced_at", "deleted_at"}, f.Field)
	}
}

func TestPreviewMutatesNothing(t *testing.T) {
	existing, fetched := localBook(), fetchedBook()
	wantAuthors := append([]string(nil), existing.Authors...)

	_, err := PreviewMerge(existing, fetched)
	require.NoError(t, err)

	assert.Equal(t, wantAuthors, existing.Authors)
	assert.False(t, existing.SyncPending)
	assert.Equal(t, "Deluxe Edition", fetched.Subtitle)
}

func TestPreviewRequiresBothSides(t *testing.T) {
	_, err := PreviewMerge[domain.Book](localBook(), nil)
	assert.Error(t, err)

	_, err = PreviewMerge[domain.Book](nil, fetchedBook())
	assert.Error(t, err)
}
