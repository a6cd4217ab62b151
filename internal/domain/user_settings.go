package domain

import "time"

// UserSettings contains catalog-wide preferences. Singleton per user, keyed by
// UserID rather than a generated entity ID, which is why it does not embed
// Syncable.
type UserSettings struct {
	UpdatedAt    time.Time  `json:"updated_at" merge:"-"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" merge:"-"`
	UserID       string     `json:"user_id" merge:"immutable"`
	DefaultSort  string     `json:"default_sort"`
	Theme        string     `json:"theme"`
	SyncInterval int        `json:"sync_interval_min" validate:"omitempty,gte=0"`
	SyncEnabled  bool       `json:"sync_enabled"`
	SyncPending  bool       `json:"sync_pending" merge:"-"`
}

// NewUserSettings creates settings with sensible defaults.
func NewUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:       userID,
		DefaultSort:  "title",
		Theme:        "system",
		SyncEnabled:  true,
		SyncInterval: 15,
		UpdatedAt:    time.Now(),
	}
}

// RecordID returns the owning user's ID; settings are keyed by user.
func (s *UserSettings) RecordID() string {
	return s.UserID
}

// MarkDirty flags the settings as changed locally since the last sync.
func (s *UserSettings) MarkDirty() {
	s.SyncPending = true
	s.LastSyncedAt = nil
}

// MarkSynced records a successful propagation to the remote.
func (s *UserSettings) MarkSynced(at time.Time) {
	s.SyncPending = false
	s.LastSyncedAt = &at
}

// Touch updates the UpdatedAt timestamp.
func (s *UserSettings) Touch() {
	s.UpdatedAt = time.Now()
}
