// Package domain contains the core business entities for the Shelfmark personal library catalog.
package domain

import "time"

// Syncable provides common fields for entities that participate in
// synchronization. This gets embedded in any domain type that syncs with the
// remote catalog to keep things (hopefully) simple.
//
// SyncPending and LastSyncedAt are local bookkeeping only: the merge engine
// and the CRUD write path set them, the sync manager clears them. They never
// participate in field-level merging, hence the merge:"-" tags.
type Syncable struct {
	CreatedAt    time.Time  `json:"created_at" merge:"immutable"`
	UpdatedAt    time.Time  `json:"updated_at" merge:"-"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" merge:"-"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" merge:"-"`
	ID           string     `json:"id" merge:"immutable"`
	SyncPending  bool       `json:"sync_pending" merge:"-"`
}

// RecordID returns the entity's identifier. Lets generic sync code read the
// ID off any embedded record without reflection.
func (s *Syncable) RecordID() string {
	return s.ID
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (s *Syncable) Touch() {
	s.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (s *Syncable) InitTimestamps() {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// IsDeleted returns true if this entity has been soft-deleted.
func (s *Syncable) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted marks this entity as soft-deleted by setting DeletedAt to now.
// This also updates UpdatedAt so the deletion appears in delta sync queries.
func (s *Syncable) MarkDeleted() {
	now := time.Now()
	s.DeletedAt = &now
	s.UpdatedAt = now
}

// MarkDirty flags the entity as having local changes that the remote has not
// seen. Clearing LastSyncedAt guarantees a later sync cycle picks it up even
// if the flag is lost.
func (s *Syncable) MarkDirty() {
	s.SyncPending = true
	s.LastSyncedAt = nil
}

// MarkSynced records a successful propagation to the remote.
func (s *Syncable) MarkSynced(at time.Time) {
	s.SyncPending = false
	s.LastSyncedAt = &at
}
