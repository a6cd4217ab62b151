package remote

import (
	"time"

	"github.com/shelfmark/shelfmark/internal/domain"
)

// OperationStatus is the remote's verdict on one pushed operation.
type OperationStatus string

// Operation statuses.
const (
	OpSuccess  OperationStatus = "success"
	OpFailed   OperationStatus = "failed"
	OpConflict OperationStatus = "conflict"
)

// OperationResult reports the outcome of a single pushed operation.
type OperationResult struct {
	ID       string          `json:"id"`
	Status   OperationStatus `json:"status"`
	Entity   domain.Kind     `json:"entity"`
	EntityID string          `json:"entity_id"`
	Error    string          `json:"error,omitempty"`
}

// Accepted reports whether the remote considers the operation applied.
// Conflicts count: the remote recorded the operation and resolved it its own
// way, so replaying the entry would be pointless.
func (r *OperationResult) Accepted() bool {
	return r.Status == OpSuccess || r.Status == OpConflict
}

// PushResult is the response to a batch push.
type PushResult struct {
	Results []OperationResult `json:"results"`
}

// ChangeSet carries everything that changed remotely since a boundary,
// per kind, plus the IDs of records deleted remotely.
type ChangeSet struct {
	Books       []*domain.Book         `json:"books,omitempty"`
	Ratings     []*domain.Rating       `json:"ratings,omitempty"`
	Tags        []*domain.Tag          `json:"tags,omitempty"`
	Collections []*domain.Collection   `json:"collections,omitempty"`
	ReadingLogs []*domain.ReadingLog   `json:"reading_logs,omitempty"`
	Settings    *domain.UserSettings   `json:"settings,omitempty"`
	Deleted     map[domain.Kind][]string `json:"deleted,omitempty"`
}

// Empty reports whether the change set carries nothing to apply.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Books) == 0 && len(cs.Ratings) == 0 && len(cs.Tags) == 0 &&
		len(cs.Collections) == 0 && len(cs.ReadingLogs) == 0 &&
		cs.Settings == nil && len(cs.Deleted) == 0
}

// FullSyncResult is the response to a full snapshot upload.
type FullSyncResult struct {
	Success  bool      `json:"success"`
	SyncedAt time.Time `json:"synced_at"`
}

// StatusInfo is the remote's view of this account's sync state.
type StatusInfo struct {
	Status            string     `json:"status"` // ready | syncing | error
	LastSync          *time.Time `json:"last_sync,omitempty"`
	PendingOperations int        `json:"pending_operations"`
	Conflicts         int        `json:"conflicts"`
}

// Drifted reports whether the remote still holds unresolved state after a
// clean push - the reconcile step uses this to decide on a full upload.
func (s *StatusInfo) Drifted() bool {
	return s.PendingOperations > 0 || s.Conflicts > 0
}

// pushRequest is the wire shape for the batch push.
type pushRequest struct {
	DeviceID   string             `json:"device_id,omitempty"`
	Operations []*domain.Mutation `json:"operations"`
}

// fullSyncRequest is the wire shape for the snapshot upload.
type fullSyncRequest struct {
	DeviceID string           `json:"device_id,omitempty"`
	Snapshot *domain.Snapshot `json:"snapshot"`
}
