package service

import (
	"context"
	"log/slog"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/id"
	"github.com/shelfmark/shelfmark/internal/merge"
	"github.com/shelfmark/shelfmark/internal/normalize"
	"github.com/shelfmark/shelfmark/internal/store"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// CatalogService owns book CRUD: validate, normalize, persist, queue for
// sync, keep the search index current.
type CatalogService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
	trigger   SyncTrigger
}

// NewCatalogService creates a catalog service. trigger may be nil for
// local-only operation.
func NewCatalogService(s *store.Store, v *validation.Validator, logger *slog.Logger, trigger SyncTrigger) *CatalogService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	return &CatalogService{store: s, validator: v, logger: logger, trigger: trigger}
}

// CreateBook validates and stores a new book, and queues it for sync.
func (s *CatalogService) CreateBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.normalizeBook(book)
	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}

	if book.ISBN != "" {
		if _, err := s.store.Books.GetByIndex(ctx, "isbn", book.ISBN); err == nil {
			return nil, domainerrors.AlreadyExists("a book with this ISBN already exists")
		} else if !domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
	}

	book.ID = id.MustGenerate(id.PrefixBook)
	book.InitTimestamps()
	book.MarkDirty()

	if err := s.store.Books.Create(ctx, book.ID, book); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindBook, book.ID, domain.MutationCreate, book); err != nil {
		return nil, err
	}
	if err := s.store.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}

	s.logger.Info("book created", "book_id", book.ID, "title", book.Title)
	return book, nil
}

// GetBook retrieves a book by ID.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return s.store.Books.Get(ctx, bookID)
}

// GetBookByISBN retrieves a book by its (normalized) ISBN.
func (s *CatalogService) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return s.store.Books.GetByIndex(ctx, "isbn", normalize.ISBN(isbn))
}

// ListBooks returns the whole catalog.
func (s *CatalogService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.store.Books.All(ctx)
}

// UpdateBook validates and stores changes to an existing book.
func (s *CatalogService) UpdateBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, err := s.store.Books.Get(ctx, book.ID)
	if err != nil {
		return nil, err
	}

	s.normalizeBook(book)
	// Identity and provenance survive client-supplied updates.
	book.CreatedAt = existing.CreatedAt
	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}

	book.Touch()
	book.MarkDirty()
	if err := s.store.Books.Put(ctx, book.ID, book); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindBook, book.ID, domain.MutationUpdate, book); err != nil {
		return nil, err
	}
	if err := s.store.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to reindex book", "book_id", book.ID, "error", err)
	}

	return book, nil
}

// DeleteBook removes a book and queues the deletion for sync. Idempotent.
func (s *CatalogService) DeleteBook(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.store.Books.Delete(ctx, bookID); err != nil {
		return err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindBook, bookID, domain.MutationDelete, nil); err != nil {
		return err
	}
	if err := s.store.DeleteBookFromIndex(ctx, bookID); err != nil {
		s.logger.Warn("failed to deindex book", "book_id", bookID, "error", err)
	}

	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// PreviewBookMerge compares a stored book against fetched metadata field by
// field without changing anything.
func (s *CatalogService) PreviewBookMerge(ctx context.Context, bookID string, fetched *domain.Book) (*merge.Preview, error) {
	existing, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	s.normalizeBook(fetched)
	return merge.PreviewMerge(existing, fetched)
}

// MergeBook resolves a stored book against fetched metadata using the given
// strategy and stores the result. The merged record is queued for sync like
// any other update.
func (s *CatalogService) MergeBook(ctx context.Context, bookID string, fetched *domain.Book, strategy merge.Strategy, actions map[string]merge.FieldAction) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	s.normalizeBook(fetched)

	merged, err := merge.MergeValidated(s.validator, existing, fetched, strategy, actions)
	if err != nil {
		return nil, err
	}

	merged.Touch()
	if err := s.store.Books.Put(ctx, merged.ID, merged); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindBook, merged.ID, domain.MutationUpdate, merged); err != nil {
		return nil, err
	}
	if err := s.store.IndexBook(ctx, merged); err != nil {
		s.logger.Warn("failed to reindex book", "book_id", merged.ID, "error", err)
	}

	s.logger.Info("book merged", "book_id", merged.ID, "strategy", strategy)
	return merged, nil
}

// normalizeBook cleans up client-supplied metadata before validation.
func (s *CatalogService) normalizeBook(book *domain.Book) {
	book.ISBN = normalize.ISBN(book.ISBN)
	book.Language = normalize.LanguageCode(book.Language)
}
