package store

import (
	"context"
	"encoding/json/v2"
	"fmt"

	"github.com/shelfmark/shelfmark/internal/domain"
)

// entityPrefixes are the prefixes that hold user catalog data. The queue,
// checkpoint and meta keys are deliberately not in this list - a snapshot
// replaces the catalog, not the sync bookkeeping.
var entityPrefixes = []string{
	bookPrefix,
	ratingPrefix,
	tagPrefix,
	collectionPrefix,
	readingLogPrefix,
	settingsPrefix,
}

// ExportSnapshot collects the entire local catalog into a single snapshot.
func (s *Store) ExportSnapshot(ctx context.Context, userID string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}

	var err error
	if snap.Books, err = s.Books.All(ctx); err != nil {
		return nil, fmt.Errorf("export books: %w", err)
	}
	if snap.Ratings, err = s.Ratings.All(ctx); err != nil {
		return nil, fmt.Errorf("export ratings: %w", err)
	}
	if snap.Tags, err = s.Tags.All(ctx); err != nil {
		return nil, fmt.Errorf("export tags: %w", err)
	}
	if snap.Collections, err = s.Collections.All(ctx); err != nil {
		return nil, fmt.Errorf("export collections: %w", err)
	}
	if snap.ReadingLogs, err = s.ReadingLogs.All(ctx); err != nil {
		return nil, fmt.Errorf("export reading logs: %w", err)
	}

	settings, err := s.GetUserSettings(ctx, userID)
	if err == nil {
		snap.Settings = settings
	}

	return snap, nil
}

// ImportSnapshot replaces the entire local catalog with the snapshot's
// contents. The force-resync path calls this after DropUserData with the
// remote's authoritative state.
//
// Writes go through a Badger write batch rather than one transaction per
// record; a snapshot can hold thousands of entities and a single transaction
// would overflow Badger's transaction size limit.
func (s *Store) ImportSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	write := func(prefix, id string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal snapshot record: %w", err)
		}
		return wb.Set([]byte(prefix+id), data)
	}

	for _, b := range snap.Books {
		if err := write(bookPrefix, b.ID, b); err != nil {
			return err
		}
	}
	for _, r := range snap.Ratings {
		if err := write(ratingPrefix, r.ID, r); err != nil {
			return err
		}
	}
	for _, t := range snap.Tags {
		if err := write(tagPrefix, t.ID, t); err != nil {
			return err
		}
	}
	for _, c := range snap.Collections {
		if err := write(collectionPrefix, c.ID, c); err != nil {
			return err
		}
	}
	for _, l := range snap.ReadingLogs {
		if err := write(readingLogPrefix, l.ID, l); err != nil {
			return err
		}
	}
	if snap.Settings != nil {
		if err := write(settingsPrefix, snap.Settings.UserID, snap.Settings); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush snapshot import: %w", err)
	}

	// The batch bypasses the Entity layer, so rebuild index keys after it
	// lands.
	if err := s.rebuildIndexes(ctx, snap); err != nil {
		return err
	}

	for _, b := range snap.Books {
		if err := s.searchIndexer.IndexBook(ctx, b); err != nil && s.logger != nil {
			s.logger.Warn("failed to index imported book", "book_id", b.ID, "error", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("snapshot imported",
			"records", snap.Counts(),
			"books", len(snap.Books),
			"reading_logs", len(snap.ReadingLogs),
		)
	}
	return nil
}

// DropUserData removes every catalog record, queue entry, and the checkpoint.
// The schema version and device ID survive - they describe the install, not
// the catalog.
func (s *Store) DropUserData(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, prefix := range entityPrefixes {
		if err := s.dropPrefix(prefix); err != nil {
			return fmt.Errorf("drop %q: %w", prefix, err)
		}
	}
	if err := s.dropPrefix(mutationPrefix); err != nil {
		return fmt.Errorf("drop mutation queue: %w", err)
	}
	if err := s.ClearCheckpoint(ctx); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}

	if s.logger != nil {
		s.logger.Warn("dropped all local user data")
	}
	return nil
}

// rebuildIndexes re-derives secondary index keys for snapshot records.
// Import always follows DropUserData, so there are no stale keys to clear.
func (s *Store) rebuildIndexes(ctx context.Context, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var entries [][2]string
	for _, b := range snap.Books {
		entries = append(entries, s.Books.indexEntries(b.ID, b)...)
	}
	for _, r := range snap.Ratings {
		entries = append(entries, s.Ratings.indexEntries(r.ID, r)...)
	}
	for _, t := range snap.Tags {
		entries = append(entries, s.Tags.indexEntries(t.ID, t)...)
	}
	for _, l := range snap.ReadingLogs {
		entries = append(entries, s.ReadingLogs.indexEntries(l.ID, l)...)
	}
	if len(entries) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, entry := range entries {
		if err := wb.Set([]byte(entry[0]), []byte(entry[1])); err != nil {
			return fmt.Errorf("rebuild index key: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush index rebuild: %w", err)
	}
	return nil
}
