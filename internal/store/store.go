// Package store implements the local durable store for the Shelfmark catalog:
// entity tables, the mutation queue, the sync checkpoint, and the schema
// version guard, all on a single Badger database.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark/internal/domain"
)

// Key prefixes for entity tables. Everything else (queue, checkpoint, meta)
// has its own prefix in its own file.
const (
	bookPrefix       = "book:"
	ratingPrefix     = "rating:"
	tagPrefix        = "tag:"
	collectionPrefix = "collection:"
	readingLogPrefix = "readinglog:"
	settingsPrefix   = "settings:"
)

// SearchIndexer is the interface for updating the search index.
// Store uses this to keep search in sync without depending on the search
// implementation. Set via SetSearchIndexer after store creation to avoid a
// circular dependency.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexBook is a no-op.
func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopSearchIndexer) DeleteBook(context.Context, string) error { return nil }

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	searchIndexer SearchIndexer

	// Entity tables.
	Books       *Entity[domain.Book]
	Ratings     *Entity[domain.Rating]
	Tags        *Entity[domain.Tag]
	Collections *Entity[domain.Collection]
	ReadingLogs *Entity[domain.ReadingLog]
}

// Open opens (or creates) the store at the given path and stamps the schema
// version. The schema version guard must have approved the path first; Open
// still refuses a store written by newer code as a backstop.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Queue entries must be durable before Enqueue returns
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:            db,
		logger:        logger,
		searchIndexer: NoopSearchIndexer{},
	}

	if err := s.stampSchemaVersion(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.Books = NewEntity[domain.Book](s, bookPrefix).
		WithIndex("isbn", func(b *domain.Book) []string {
			if b.ISBN == "" {
				return nil
			}
			return []string{b.ISBN}
		})
	s.Ratings = NewEntity[domain.Rating](s, ratingPrefix).
		WithIndex("book", func(r *domain.Rating) []string {
			return []string{r.BookID}
		})
	s.Tags = NewEntity[domain.Tag](s, tagPrefix).
		WithIndex("slug", func(t *domain.Tag) []string {
			return []string{t.Slug}
		})
	s.Collections = NewEntity[domain.Collection](s, collectionPrefix)
	s.ReadingLogs = NewEntity[domain.ReadingLog](s, readingLogPrefix).
		WithIndex("book", func(l *domain.ReadingLog) []string {
			return []string{l.BookID}
		})

	if logger != nil {
		logger.Info("local store opened", "path", path, "schema_version", CodeVersion)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing local store")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// This is set after store creation to avoid circular dependencies
// (store needs to exist before the search service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	if indexer == nil {
		indexer = NoopSearchIndexer{}
	}
	s.searchIndexer = indexer
}

// IndexBook forwards to the configured search indexer.
func (s *Store) IndexBook(ctx context.Context, book *domain.Book) error {
	return s.searchIndexer.IndexBook(ctx, book)
}

// DeleteBookFromIndex forwards to the configured search indexer.
func (s *Store) DeleteBookFromIndex(ctx context.Context, bookID string) error {
	return s.searchIndexer.DeleteBook(ctx, bookID)
}

// Helper methods for database operations.

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// delete removes a key from the database.
func (s *Store) delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dropPrefix removes every key under the given prefix.
func (s *Store) dropPrefix(prefix string) error {
	return s.db.DropPrefix([]byte(prefix))
}
