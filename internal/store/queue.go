package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

const mutationPrefix = "mutation:"

// mutationKey builds a queue key whose lexicographic order equals timestamp
// order, so a plain prefix scan replays the queue in the order the local
// writes happened. Same-timestamp entries tie-break on the operation ID.
//
// Format: mutation:{YYYY-MM-DDTHH:MM:SS.NNNNNNNNNZ}:{id}
// The fixed-width zero-padded nanoseconds are what make the sort work.
func mutationKey(timestamp time.Time, id string) []byte {
	ts := timestamp.UTC().Format("2006-01-02T15:04:05") + fmt.Sprintf(".%09d", timestamp.Nanosecond()) + "Z"
	return fmt.Appendf(nil, "%s%s:%s", mutationPrefix, ts, id)
}

// Enqueue appends a mutation to the durable queue. The store is opened with
// SyncWrites, so the entry is on disk before this returns - a crash after a
// local write can never lose the intent to propagate it.
func (s *Store) Enqueue(ctx context.Context, m *domain.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.Entity.Valid() {
		return domainerrors.Validation(fmt.Sprintf("unknown entity kind %q", m.Entity))
	}
	if m.ID == "" || m.EntityID == "" {
		return domainerrors.Validation("mutation requires id and entity_id")
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal mutation: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mutationKey(m.Timestamp, m.ID), data)
	})
	if err != nil {
		return fmt.Errorf("enqueue mutation: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("mutation queued",
			"mutation_id", m.ID,
			"type", m.Type,
			"entity", m.Entity,
			"entity_id", m.EntityID,
		)
	}
	return nil
}

// Pending returns all unsynced mutations in ascending timestamp order.
// This is the order they are replayed against the remote, which matters for
// create-then-update sequences on the same entity.
func (s *Store) Pending(ctx context.Context) ([]*domain.Mutation, error) {
	var pending []*domain.Mutation
	err := s.iterateQueue(ctx, func(m *domain.Mutation, _ []byte) error {
		if !m.Synced {
			pending = append(pending, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// PendingCount returns the number of unsynced queue entries.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	count := 0
	err := s.iterateQueue(ctx, func(m *domain.Mutation, _ []byte) error {
		if !m.Synced {
			count++
		}
		return nil
	})
	return count, err
}

// MarkSynced flips the synced flag on the given queue entries.
// Unknown IDs are ignored - the queue may already have been purged.
func (s *Store) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	return s.rewriteQueue(ctx, func(m *domain.Mutation) bool {
		if !want[m.ID] || m.Synced {
			return false
		}
		m.Synced = true
		return true
	})
}

// MarkFailed records a failed push attempt on the given queue entries.
// The entries stay unsynced and are retried on the next cycle; a failed
// operation is never silently dropped.
func (s *Store) MarkFailed(ctx context.Context, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	return s.rewriteQueue(ctx, func(m *domain.Mutation) bool {
		if !want[m.ID] {
			return false
		}
		m.Attempts++
		m.LastError = reason
		return true
	})
}

// PurgeSynced deletes queue entries that have been acknowledged by the
// remote. Returns the number of entries removed.
func (s *Store) PurgeSynced(ctx context.Context) (int, error) {
	var doomed [][]byte
	err := s.iterateQueue(ctx, func(m *domain.Mutation, key []byte) error {
		if m.Synced {
			doomed = append(doomed, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(doomed) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge synced mutations: %w", err)
	}
	return len(doomed), nil
}

// ClearQueue removes every queue entry, synced or not.
// Only the force-resync recovery path calls this.
func (s *Store) ClearQueue(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dropPrefix(mutationPrefix)
}

// iterateQueue walks the queue in key (= timestamp) order.
func (s *Store) iterateQueue(ctx context.Context, fn func(m *domain.Mutation, key []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(mutationPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(mutationPrefix)); it.ValidForPrefix([]byte(mutationPrefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var m domain.Mutation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			})
			if err != nil {
				return fmt.Errorf("unmarshal mutation: %w", err)
			}
			if err := fn(&m, it.Item().Key()); err != nil {
				return err
			}
		}
		return nil
	})
}

// rewriteQueue rewrites entries the update func reports as changed.
func (s *Store) rewriteQueue(ctx context.Context, update func(*domain.Mutation) bool) error {
	type change struct {
		key  []byte
		data []byte
	}
	var changes []change

	err := s.iterateQueue(ctx, func(m *domain.Mutation, key []byte) error {
		if !update(m) {
			return nil
		}
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal mutation: %w", err)
		}
		changes = append(changes, change{key: append([]byte(nil), key...), data: data})
		return nil
	})
	if err != nil {
		return err
	}

	if len(changes) == 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, c := range changes {
			if err := txn.Set(c.key, c.data); err != nil {
				return err
			}
		}
		return nil
	})
}
