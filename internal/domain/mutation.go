package domain

import (
	"encoding/json/jsontext"
	"time"
)

// Kind identifies which entity table a record or mutation belongs to.
type Kind string

// Entity kinds.
const (
	KindBook       Kind = "book"
	KindRating     Kind = "rating"
	KindTag        Kind = "tag"
	KindCollection Kind = "collection"
	KindReadingLog Kind = "reading_log"
	KindSettings   Kind = "settings"
)

// Kinds lists every entity kind in a stable order.
// Used when iterating all tables (full resync, snapshot export).
func Kinds() []Kind {
	return []Kind{KindBook, KindRating, KindTag, KindCollection, KindReadingLog, KindSettings}
}

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindBook, KindRating, KindTag, KindCollection, KindReadingLog, KindSettings:
		return true
	}
	return false
}

// MutationType is the kind of local write a mutation represents.
type MutationType string

// Mutation types.
const (
	MutationCreate MutationType = "create"
	MutationUpdate MutationType = "update"
	MutationDelete MutationType = "delete"
)

// Mutation is one entry in the durable mutation queue: an intent to change the
// remote catalog. Entries are append-only and immutable once written, except
// for the sync bookkeeping fields (Synced, Attempts, LastError) which the sync
// manager updates as it drains the queue.
//
// Delivery is at-least-once. The remote applies operations idempotently per
// entity ID, so duplicate entries are harmless.
type Mutation struct {
	Timestamp time.Time      `json:"timestamp"`
	ID        string         `json:"id"`
	Entity    Kind           `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Type      MutationType   `json:"type"`
	LastError string         `json:"last_error,omitempty"`
	Payload   jsontext.Value `json:"payload,omitempty"`
	Attempts  int            `json:"attempts"`
	Synced    bool           `json:"synced"`
}

// SyncCheckpoint describes the last successful pull boundary.
// Single record per user, mutated only by the sync manager.
type SyncCheckpoint struct {
	LastSyncTime time.Time `json:"last_sync_time"`
	PendingCount int       `json:"pending_count"`
}
