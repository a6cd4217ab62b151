package sync

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"time"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/id"
	"github.com/shelfmark/shelfmark/internal/merge"
	"github.com/shelfmark/shelfmark/internal/remote"
	"github.com/shelfmark/shelfmark/internal/store"
)

// applyChangeSet lands pulled remote records in the local store.
//
// Per record: absent locally means insert; present with no pending local
// mutation means the remote wins outright; present with a pending mutation
// goes through the merge engine with keep-fetched - the server is
// authoritative but union fields preserve local additions - and the merged
// record is re-queued for propagation.
func (m *Manager) applyChangeSet(ctx context.Context, cs *remote.ChangeSet, pending map[string]bool, result *Result) error {
	now := time.Now()

	if err := applyRecords(ctx, m, m.store.Books, domain.KindBook, cs.Books, pending, now, result); err != nil {
		return err
	}
	if err := applyRecords(ctx, m, m.store.Ratings, domain.KindRating, cs.Ratings, pending, now, result); err != nil {
		return err
	}
	if err := applyRecords(ctx, m, m.store.Tags, domain.KindTag, cs.Tags, pending, now, result); err != nil {
		return err
	}
	if err := applyRecords(ctx, m, m.store.Collections, domain.KindCollection, cs.Collections, pending, now, result); err != nil {
		return err
	}
	if err := applyRecords(ctx, m, m.store.ReadingLogs, domain.KindReadingLog, cs.ReadingLogs, pending, now, result); err != nil {
		return err
	}
	if cs.Settings != nil {
		if err := m.applySettings(ctx, cs.Settings, pending, now, result); err != nil {
			return err
		}
	}

	return m.applyDeletions(ctx, cs.Deleted, result)
}

// syncedRecord is what every pulled record satisfies: identity plus local
// sync bookkeeping.
type syncedRecord interface {
	RecordID() string
	MarkSynced(at time.Time)
}

// applyRecords applies one kind's changed records. Generic function rather
// than method: methods cannot carry type parameters.
func applyRecords[T any, PT interface {
	*T
	syncedRecord
}](ctx context.Context, m *Manager, table *store.Entity[T], kind domain.Kind, records []PT, pending map[string]bool, now time.Time, result *Result) error {
	for _, fetched := range records {
		fetchedID := fetched.RecordID()

		local, err := table.Get(ctx, fetchedID)
		switch {
		case domainerrors.Is(err, domainerrors.ErrNotFound):
			fetched.MarkSynced(now)
			if err := table.Put(ctx, fetchedID, (*T)(fetched)); err != nil {
				return err
			}
			m.indexIfBook(ctx, (*T)(fetched))
			result.Applied++

		case err != nil:
			return err

		case !pending[string(kind)+":"+fetchedID]:
			// Nothing local in flight: remote wins.
			fetched.MarkSynced(now)
			if err := table.Put(ctx, fetchedID, (*T)(fetched)); err != nil {
				return err
			}
			m.indexIfBook(ctx, (*T)(fetched))
			result.Applied++

		default:
			merged, err := merge.MergeValidated(m.validator, local, (*T)(fetched), merge.KeepFetched, nil)
			if err != nil {
				if domainerrors.Is(err, domainerrors.ErrMergeRejected) {
					// Keep the local record; the pending mutation will
					// re-push it and the remote can sort itself out.
					m.logger.Warn("merge rejected, keeping local record",
						"entity", kind, "entity_id", fetchedID, "error", err)
					result.Conflicts++
					continue
				}
				return err
			}
			if err := table.Put(ctx, fetchedID, merged); err != nil {
				return err
			}
			m.indexIfBook(ctx, merged)
			if err := m.enqueueMerged(ctx, kind, fetchedID, merged); err != nil {
				return err
			}
			result.Merged++
		}
	}
	return nil
}

// applySettings is the singleton variant of applyRecords.
func (m *Manager) applySettings(ctx context.Context, fetched *domain.UserSettings, pending map[string]bool, now time.Time, result *Result) error {
	local, err := m.store.GetUserSettings(ctx, m.userID)
	switch {
	case domainerrors.Is(err, domainerrors.ErrNotFound):
		fetched.UserID = m.userID
		fetched.MarkSynced(now)
		if err := m.store.UpsertUserSettings(ctx, fetched); err != nil {
			return err
		}
		result.Applied++
		return nil

	case err != nil:
		return err
	}

	if !pending[string(domain.KindSettings)+":"+m.userID] {
		fetched.UserID = m.userID
		fetched.MarkSynced(now)
		if err := m.store.UpsertUserSettings(ctx, fetched); err != nil {
			return err
		}
		result.Applied++
		return nil
	}

	merged, err := merge.MergeValidated(m.validator, local, fetched, merge.KeepFetched, nil)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrMergeRejected) {
			m.logger.Warn("settings merge rejected, keeping local", "error", err)
			result.Conflicts++
			return nil
		}
		return err
	}
	if err := m.store.UpsertUserSettings(ctx, merged); err != nil {
		return err
	}
	if err := m.enqueueMerged(ctx, domain.KindSettings, m.userID, merged); err != nil {
		return err
	}
	result.Merged++
	return nil
}

// applyDeletions removes records deleted remotely. Entity deletes are
// idempotent, so re-applying a deletion from an overlapping window is safe.
func (m *Manager) applyDeletions(ctx context.Context, deleted map[domain.Kind][]string, result *Result) error {
	for kind, ids := range deleted {
		for _, entityID := range ids {
			var err error
			switch kind {
			case domain.KindBook:
				err = m.store.Books.Delete(ctx, entityID)
				if err == nil {
					if idxErr := m.store.DeleteBookFromIndex(ctx, entityID); idxErr != nil {
						m.logger.Warn("failed to deindex book", "book_id", entityID, "error", idxErr)
					}
				}
			case domain.KindRating:
				err = m.store.Ratings.Delete(ctx, entityID)
			case domain.KindTag:
				err = m.store.Tags.Delete(ctx, entityID)
			case domain.KindCollection:
				err = m.store.Collections.Delete(ctx, entityID)
			case domain.KindReadingLog:
				err = m.store.ReadingLogs.Delete(ctx, entityID)
			case domain.KindSettings:
				err = m.store.DeleteUserSettings(ctx, entityID)
			default:
				m.logger.Warn("deletion for unknown entity kind", "kind", kind, "entity_id", entityID)
				continue
			}
			if err != nil {
				return err
			}
			result.Deleted++
		}
	}
	return nil
}

// indexIfBook keeps the search index current with pulled records. Index
// failures degrade search, not sync.
func (m *Manager) indexIfBook(ctx context.Context, record any) {
	book, ok := record.(*domain.Book)
	if !ok {
		return
	}
	if err := m.store.IndexBook(ctx, book); err != nil {
		m.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}

// enqueueMerged re-queues a merged record: it carries local-only values the
// remote has not seen, so the next push must deliver it.
func (m *Manager) enqueueMerged(ctx context.Context, kind domain.Kind, entityID string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return m.store.Enqueue(ctx, &domain.Mutation{
		Timestamp: time.Now(),
		ID:        id.MustGenerate(id.PrefixMutation),
		Entity:    kind,
		EntityID:  entityID,
		Type:      domain.MutationUpdate,
		Payload:   jsontext.Value(payload),
	})
}
