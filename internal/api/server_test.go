package api

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/remote"
	"github.com/shelfmark/shelfmark/internal/search"
	"github.com/shelfmark/shelfmark/internal/service"
	"github.com/shelfmark/shelfmark/internal/store"
	shelfsync "github.com/shelfmark/shelfmark/internal/sync"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// testServer wraps the control API server for handler tests. The remote is
// left unconfigured: sync endpoints answer, they just report local-only mode.
type testServer struct {
	*Server
	api humatest.TestAPI
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dataPath := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := store.Open(filepath.Join(dataPath, "db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: dataPath, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	v := validation.New()
	client := remote.New(config.RemoteConfig{}, "dev_test", nil, logger)
	t.Cleanup(client.Close)
	manager := shelfsync.NewManager(st, client, v, logger, shelfsync.Options{UserID: "u1"})

	catalog := service.NewCatalogService(st, v, logger, manager)
	shelf := service.NewShelfService(st, v, logger, manager)
	settings := service.NewSettingsService(st, v, logger, manager, "u1")

	s := NewServer(st, catalog, shelf, settings, manager, idx, logger)
	return &testServer{Server: s, api: humatest.Wrap(t, s.api)}
}

func (ts *testServer) createBook(t *testing.T, body map[string]any) BookResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/books", body)
	require.Equal(t, http.StatusOK, resp.Code, "create failed: %s", resp.Body.String())

	var book BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &book))
	return book
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))

	assert.Equal(t, "degraded", health.Status, "no remote configured")
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "healthy", health.Components["search"].Status)
	assert.Equal(t, "degraded", health.Components["remote"].Status)
}

func TestBookLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, map[string]any{
		"title":    "Dune",
		"isbn":     "978-0-441-01359-3",
		"language": "English",
		"authors":  []string{"Frank Herbert"},
	})
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "9780441013593", book.ISBN, "ISBN comes back normalized")
	assert.Equal(t, "en", book.Language)
	assert.True(t, book.SyncPending)

	resp := ts.api.Get("/api/v1/books/" + book.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/books/isbn/978-0441013593")
	require.Equal(t, http.StatusOK, resp.Code, "ISBN lookup accepts any format")

	resp = ts.api.Put("/api/v1/books/"+book.ID, map[string]any{
		"title":   "Dune (Deluxe)",
		"isbn":    "9780441013593",
		"authors": []string{"Frank Herbert"},
	})
	require.Equal(t, http.StatusOK, resp.Code, "update failed: %s", resp.Body.String())

	var updated BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "Dune (Deluxe)", updated.Title)

	resp = ts.api.Delete("/api/v1/books/" + book.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/books/" + book.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateBookValidationError(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/books", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "VALIDATION", apiErr.Code)
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	ts := setupTestServer(t)

	ts.createBook(t, map[string]any{"title": "Dune", "isbn": "9780441013593"})

	resp := ts.api.Post("/api/v1/books", map[string]any{
		"title": "Dune again",
		"isbn":  "978-0441013593",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestMergePreview(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, map[string]any{
		"title":     "Dune",
		"publisher": "Chilton Books",
	})

	resp := ts.api.Post("/api/v1/books/"+book.ID+"/merge/preview", map[string]any{
		"title":     "Dune",
		"publisher": "Ace Books",
		"isbn":      "9780441013593",
	})
	require.Equal(t, http.StatusOK, resp.Code, "preview failed: %s", resp.Body.String())

	var preview struct {
		Conflicts int `json:"conflicts"`
		Fillable  int `json:"fillable"`
		Matched   int `json:"matched"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &preview))
	assert.Equal(t, 1, preview.Conflicts, "publisher differs")
	assert.Equal(t, 1, preview.Fillable, "isbn only on the fetched side")
	assert.GreaterOrEqual(t, preview.Matched, 1, "title matches")
}

func TestMergeBookKeepFetched(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, map[string]any{
		"title":     "Dune",
		"publisher": "Chilton Books",
		"authors":   []string{"Frank Herbert"},
	})

	resp := ts.api.Post("/api/v1/books/"+book.ID+"/merge", map[string]any{
		"strategy": "keep-fetched",
		"fetched": map[string]any{
			"title":     "Dune",
			"publisher": "Ace Books",
			"authors":   []string{"F. Herbert"},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, "merge failed: %s", resp.Body.String())

	var merged BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &merged))
	assert.Equal(t, book.ID, merged.ID, "identity survives the merge")
	assert.Equal(t, "Ace Books", merged.Publisher)
	assert.Equal(t, []string{"Frank Herbert", "F. Herbert"}, merged.Authors, "authors union, local first")
	assert.True(t, merged.SyncPending)
}

func TestMergeBookRejectsInvalidResult(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, map[string]any{"title": "Dune"})

	// keep-fetched with an out-of-range page count merges to an invalid
	// record; the write-back gate refuses it and the local book survives.
	resp := ts.api.Post("/api/v1/books/"+book.ID+"/merge", map[string]any{
		"strategy": "keep-fetched",
		"fetched":  map[string]any{"title": "Dune", "page_count": -12},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "MERGE_REJECTED", apiErr.Code)

	resp = ts.api.Get("/api/v1/books/" + book.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	var kept BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &kept))
	assert.Equal(t, "Dune", kept.Title)
}

func TestTagAndCollectionRoutes(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, map[string]any{"title": "Dune"})

	resp := ts.api.Post("/api/v1/tags", map[string]any{"name": "Slow Burn"})
	require.Equal(t, http.StatusOK, resp.Code, "create tag failed: %s", resp.Body.String())

	var tag TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tag))
	assert.Equal(t, "slow-burn", tag.Slug)

	resp = ts.api.Post("/api/v1/tags/"+tag.ID+"/books", map[string]any{"book_id": book.ID})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/tags")
	require.Equal(t, http.StatusOK, resp.Code)

	var tagList struct {
		Tags []TagResponse `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tagList))
	require.Len(t, tagList.Tags, 1)
	assert.Equal(t, []string{book.ID}, tagList.Tags[0].BookIDs)

	resp = ts.api.Post("/api/v1/collections", map[string]any{
		"name":        "TBR 2026",
		"description": "To read this year",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var col CollectionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &col))

	resp = ts.api.Post("/api/v1/collections/"+col.ID+"/books", map[string]any{"book_id": book.ID})
	require.Equal(t, http.StatusOK, resp.Code)

	var withBook CollectionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &withBook))
	assert.Equal(t, []string{book.ID}, withBook.BookIDs)
}

func TestReadingLogRoutes(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, map[string]any{"title": "Dune"})

	resp := ts.api.Post("/api/v1/books/" + book.ID + "/reading-logs")
	require.Equal(t, http.StatusOK, resp.Code, "start reading failed: %s", resp.Body.String())

	var log ReadingLogResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &log))
	assert.Equal(t, "reading", log.Status)
	assert.NotNil(t, log.StartedAt)

	resp = ts.api.Patch("/api/v1/reading-logs/"+log.ID, map[string]any{
		"status": "finished",
		"rating": 5,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var done ReadingLogResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &done))
	assert.Equal(t, "finished", done.Status)
	assert.NotNil(t, done.FinishedAt)
	require.NotNil(t, done.Rating)
	assert.Equal(t, 5, *done.Rating)
}

func TestRatingRoute(t *testing.T) {
	ts := setupTestServer(t)

	book := ts.createBook(t, map[string]any{"title": "Dune"})

	resp := ts.api.Put("/api/v1/books/"+book.ID+"/rating", map[string]any{"value": 4})
	require.Equal(t, http.StatusOK, resp.Code)

	var rating RatingResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rating))
	assert.Equal(t, 4, rating.Value)

	resp = ts.api.Put("/api/v1/books/"+book.ID+"/rating", map[string]any{"value": 5})
	require.Equal(t, http.StatusOK, resp.Code)

	var again RatingResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &again))
	assert.Equal(t, rating.ID, again.ID, "re-rating replaces, never duplicates")
}

func TestSettingsRoutes(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/settings")
	require.Equal(t, http.StatusOK, resp.Code)

	var settings SettingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &settings))
	assert.Equal(t, "u1", settings.UserID)
	assert.Equal(t, "system", settings.Theme, "defaults created on first access")

	resp = ts.api.Put("/api/v1/settings", map[string]any{
		"default_sort":      "author",
		"theme":             "dark",
		"sync_interval_min": 30,
		"sync_enabled":      true,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var updated SettingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "dark", updated.Theme)
	assert.True(t, updated.SyncPending)
}

func TestSearchRoute(t *testing.T) {
	ts := setupTestServer(t)

	ts.createBook(t, map[string]any{
		"title":   "Hyperion",
		"authors": []string{"Dan Simmons"},
	})
	ts.createBook(t, map[string]any{"title": "Dune"})

	resp := ts.api.Get("/api/v1/search?q=hyperion")
	require.Equal(t, http.StatusOK, resp.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Hyperion", result.Hits[0].Title)

	resp = ts.api.Get("/api/v1/search")
	require.Equal(t, http.StatusOK, resp.Code)

	var browse search.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &browse))
	assert.Len(t, browse.Hits, 2, "empty query browses everything")
}

func TestSyncStatusRoute(t *testing.T) {
	ts := setupTestServer(t)

	ts.createBook(t, map[string]any{"title": "Dune"})

	resp := ts.api.Get("/api/v1/sync/status")
	require.Equal(t, http.StatusOK, resp.Code)

	var status SyncStatusResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.Equal(t, "idle", status.State)
	assert.False(t, status.RemoteConfigured)
	assert.Equal(t, 1, status.PendingCount)
	assert.Nil(t, status.LastSyncTime, "never synced")
}

func TestSyncRoutesOfflineWithoutRemote(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/sync")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "OFFLINE", apiErr.Code)

	resp = ts.api.Post("/api/v1/sync/resync")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
