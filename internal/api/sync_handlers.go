package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	shelfsync "github.com/shelfmark/shelfmark/internal/sync"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "triggerSync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Run sync",
		Description: "Runs one sync cycle. Returns immediately with coalesced=true when a cycle is already in flight",
		Tags:        []string{"Sync"},
	}, s.handleTriggerSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSyncStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Get sync status",
		Description: "Returns the sync manager state, queue depth, and last checkpoint",
		Tags:        []string{"Sync"},
	}, s.handleGetSyncStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "forceResync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/resync",
		Summary:     "Force resync",
		Description: "Drops the local catalog and rebuilds it from the remote's authoritative state. Pending local changes are discarded",
		Tags:        []string{"Sync"},
	}, s.handleForceResync)
}

// === DTOs ===

// SyncResultOutput wraps a sync cycle result for Huma.
type SyncResultOutput struct {
	Body shelfsync.Result
}

// SyncStatusResponse describes the local sync state.
type SyncStatusResponse struct {
	State            string     `json:"state" doc:"Sync manager state: idle or syncing"`
	RemoteConfigured bool       `json:"remote_configured" doc:"Whether a remote endpoint is set up"`
	PendingCount     int        `json:"pending_count" doc:"Unsynced mutations in the queue"`
	LastSyncTime     *time.Time `json:"last_sync_time,omitempty" doc:"Pull boundary of the last successful cycle"`
}

// SyncStatusOutput wraps a sync status response for Huma.
type SyncStatusOutput struct {
	Body SyncStatusResponse
}

// === Handlers ===

func (s *Server) handleTriggerSync(ctx context.Context, _ *struct{}) (*SyncResultOutput, error) {
	result, err := s.syncer.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncResultOutput{Body: *result}, nil
}

func (s *Server) handleGetSyncStatus(ctx context.Context, _ *struct{}) (*SyncStatusOutput, error) {
	pending, err := s.store.PendingCount(ctx)
	if err != nil {
		return nil, err
	}

	resp := SyncStatusResponse{
		State:            string(s.syncer.State()),
		RemoteConfigured: s.syncer.Configured(),
		PendingCount:     pending,
	}

	cp, err := s.store.GetCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		resp.LastSyncTime = &cp.LastSyncTime
	}

	return &SyncStatusOutput{Body: resp}, nil
}

func (s *Server) handleForceResync(ctx context.Context, _ *struct{}) (*SyncResultOutput, error) {
	result, err := s.syncer.ForceResync(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncResultOutput{Body: *result}, nil
}
