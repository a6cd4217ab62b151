package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/id"
	"github.com/shelfmark/shelfmark/internal/normalize"
	"github.com/shelfmark/shelfmark/internal/store"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// ShelfService owns the reading life around books: ratings, tags,
// collections, and reading logs.
type ShelfService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
	trigger   SyncTrigger
}

// NewShelfService creates a shelf service.
func NewShelfService(s *store.Store, v *validation.Validator, logger *slog.Logger, trigger SyncTrigger) *ShelfService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	return &ShelfService{store: s, validator: v, logger: logger, trigger: trigger}
}

// RateBook sets the user's rating for a book, replacing any previous rating.
func (s *ShelfService) RateBook(ctx context.Context, bookID string, value int) (*domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.store.Books.Get(ctx, bookID); err != nil {
		return nil, err
	}

	rating, err := s.store.Ratings.GetByIndex(ctx, "book", bookID)
	mutationType := domain.MutationUpdate
	switch {
	case domainerrors.Is(err, domainerrors.ErrNotFound):
		rating = &domain.Rating{BookID: bookID}
		rating.ID = id.MustGenerate(id.PrefixRating)
		rating.InitTimestamps()
		mutationType = domain.MutationCreate
	case err != nil:
		return nil, err
	}

	rating.Value = value
	if err := s.validator.Validate(rating); err != nil {
		return nil, err
	}

	rating.Touch()
	rating.MarkDirty()
	if err := s.store.Ratings.Put(ctx, rating.ID, rating); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindRating, rating.ID, mutationType, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

// CreateTag creates a tag with a normalized slug.
func (s *ShelfService) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tag := &domain.Tag{Name: name, Slug: normalize.Slug(name)}
	if err := s.validator.Validate(tag); err != nil {
		return nil, err
	}

	if _, err := s.store.Tags.GetByIndex(ctx, "slug", tag.Slug); err == nil {
		return nil, domainerrors.AlreadyExists("a tag with this name already exists")
	} else if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	tag.ID = id.MustGenerate(id.PrefixTag)
	tag.InitTimestamps()
	tag.MarkDirty()
	if err := s.store.Tags.Create(ctx, tag.ID, tag); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindTag, tag.ID, domain.MutationCreate, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// TagBook attaches a tag to a book. Adding an already-attached tag is a no-op.
func (s *ShelfService) TagBook(ctx context.Context, tagID, bookID string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.store.Books.Get(ctx, bookID); err != nil {
		return nil, err
	}

	tag, err := s.store.Tags.Get(ctx, tagID)
	if err != nil {
		return nil, err
	}
	for _, existing := range tag.BookIDs {
		if existing == bookID {
			return tag, nil
		}
	}

	tag.BookIDs = append(tag.BookIDs, bookID)
	tag.Touch()
	tag.MarkDirty()
	if err := s.store.Tags.Put(ctx, tag.ID, tag); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindTag, tag.ID, domain.MutationUpdate, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// CreateCollection creates a named collection.
func (s *ShelfService) CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	col := &domain.Collection{Name: name, Description: description}
	if err := s.validator.Validate(col); err != nil {
		return nil, err
	}

	col.ID = id.MustGenerate(id.PrefixCollection)
	col.InitTimestamps()
	col.MarkDirty()
	if err := s.store.Collections.Create(ctx, col.ID, col); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindCollection, col.ID, domain.MutationCreate, col); err != nil {
		return nil, err
	}
	return col, nil
}

// AddToCollection puts a book into a collection.
func (s *ShelfService) AddToCollection(ctx context.Context, collectionID, bookID string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.store.Books.Get(ctx, bookID); err != nil {
		return nil, err
	}

	col, err := s.store.Collections.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !col.AddBook(bookID) {
		return col, nil
	}

	col.Touch()
	col.MarkDirty()
	if err := s.store.Collections.Put(ctx, col.ID, col); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindCollection, col.ID, domain.MutationUpdate, col); err != nil {
		return nil, err
	}
	return col, nil
}

// StartReading opens a reading log for a book.
func (s *ShelfService) StartReading(ctx context.Context, bookID string) (*domain.ReadingLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.store.Books.Get(ctx, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	log := &domain.ReadingLog{
		BookID:    bookID,
		Status:    domain.StatusReading,
		StartedAt: &now,
	}
	log.ID = id.MustGenerate(id.PrefixReadingLog)
	log.InitTimestamps()
	log.MarkDirty()

	if err := s.validator.Validate(log); err != nil {
		return nil, err
	}
	if err := s.store.ReadingLogs.Create(ctx, log.ID, log); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindReadingLog, log.ID, domain.MutationCreate, log); err != nil {
		return nil, err
	}
	return log, nil
}

// UpdateReadingStatus moves a reading log to a new status, closing it with a
// finish time when the book is done or abandoned.
func (s *ShelfService) UpdateReadingStatus(ctx context.Context, logID string, status domain.ReadingStatus, rating *int) (*domain.ReadingLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domainerrors.Validation("unknown reading status")
	}

	log, err := s.store.ReadingLogs.Get(ctx, logID)
	if err != nil {
		return nil, err
	}

	log.Status = status
	if rating != nil {
		log.Rating = rating
	}
	if status == domain.StatusFinished || status == domain.StatusAbandoned {
		now := time.Now()
		log.FinishedAt = &now
	}
	if err := s.validator.Validate(log); err != nil {
		return nil, err
	}

	log.Touch()
	log.MarkDirty()
	if err := s.store.ReadingLogs.Put(ctx, log.ID, log); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindReadingLog, log.ID, domain.MutationUpdate, log); err != nil {
		return nil, err
	}
	return log, nil
}
