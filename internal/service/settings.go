package service

import (
	"context"
	"log/slog"

	"github.com/shelfmark/shelfmark/internal/domain"
	"github.com/shelfmark/shelfmark/internal/store"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// SettingsService manages the user's catalog-wide preferences.
type SettingsService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
	trigger   SyncTrigger
	userID    string
}

// NewSettingsService creates a settings service for the install's user.
func NewSettingsService(s *store.Store, v *validation.Validator, logger *slog.Logger, trigger SyncTrigger, userID string) *SettingsService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	return &SettingsService{store: s, validator: v, logger: logger, trigger: trigger, userID: userID}
}

// Get returns the user's settings, creating defaults on first access.
func (s *SettingsService) Get(ctx context.Context) (*domain.UserSettings, error) {
	return s.store.GetOrCreateUserSettings(ctx, s.userID)
}

// Update validates and stores new settings, queueing them for sync.
func (s *SettingsService) Update(ctx context.Context, settings *domain.UserSettings) (*domain.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings.UserID = s.userID
	if err := s.validator.Validate(settings); err != nil {
		return nil, err
	}

	settings.Touch()
	settings.MarkDirty()
	if err := s.store.UpsertUserSettings(ctx, settings); err != nil {
		return nil, err
	}
	if err := enqueueMutation(ctx, s.store, s.trigger, domain.KindSettings, s.userID, domain.MutationUpdate, settings); err != nil {
		return nil, err
	}

	s.logger.Info("settings updated", "user_id", s.userID)
	return settings, nil
}
