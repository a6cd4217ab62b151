package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark/internal/domain"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get settings",
		Description: "Returns the user's settings, creating defaults on first access",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Update settings",
		Description: "Replaces the user's settings and queues them for sync",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)
}

// === DTOs ===

// SettingsResponse contains user settings in API responses.
type SettingsResponse struct {
	UserID       string    `json:"user_id" doc:"Owning user ID"`
	DefaultSort  string    `json:"default_sort" doc:"Default catalog sort order"`
	Theme        string    `json:"theme" doc:"UI theme preference"`
	SyncInterval int       `json:"sync_interval_min" doc:"Background sync interval in minutes"`
	SyncEnabled  bool      `json:"sync_enabled" doc:"Whether background sync runs"`
	SyncPending  bool      `json:"sync_pending" doc:"Whether local changes await sync"`
	UpdatedAt    time.Time `json:"updated_at" doc:"Last update time"`
}

// SettingsOutput wraps a settings response for Huma.
type SettingsOutput struct {
	Body SettingsResponse
}

// UpdateSettingsInput wraps the settings update request for Huma.
type UpdateSettingsInput struct {
	Body struct {
		DefaultSort  string `json:"default_sort" doc:"Default catalog sort order"`
		Theme        string `json:"theme" doc:"UI theme preference"`
		SyncInterval int    `json:"sync_interval_min" minimum:"0" doc:"Background sync interval in minutes"`
		SyncEnabled  bool   `json:"sync_enabled" doc:"Whether background sync runs"`
	}
}

func toSettingsResponse(settings *domain.UserSettings) SettingsResponse {
	return SettingsResponse{
		UserID:       settings.UserID,
		DefaultSort:  settings.DefaultSort,
		Theme:        settings.Theme,
		SyncInterval: settings.SyncInterval,
		SyncEnabled:  settings.SyncEnabled,
		SyncPending:  settings.SyncPending,
		UpdatedAt:    settings.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: toSettingsResponse(settings)}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	updated, err := s.settings.Update(ctx, &domain.UserSettings{
		DefaultSort:  input.Body.DefaultSort,
		Theme:        input.Body.Theme,
		SyncInterval: input.Body.SyncInterval,
		SyncEnabled:  input.Body.SyncEnabled,
	})
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: toSettingsResponse(updated)}, nil
}
