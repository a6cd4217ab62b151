package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

// GetUserSettings retrieves settings for a user.
// Returns ErrNotFound if no settings exist yet.
func (s *Store) GetUserSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var settings domain.UserSettings
	err := s.get([]byte(settingsPrefix+userID), &settings)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.NotFound("user settings not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user settings: %w", err)
	}
	return &settings, nil
}

// UpsertUserSettings creates or replaces settings for a user.
func (s *Store) UpsertUserSettings(ctx context.Context, settings *domain.UserSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if settings.UserID == "" {
		return domainerrors.Validation("settings require a user_id")
	}
	if err := s.set([]byte(settingsPrefix+settings.UserID), settings); err != nil {
		return fmt.Errorf("upsert user settings: %w", err)
	}
	return nil
}

// GetOrCreateUserSettings returns existing settings or persists defaults.
func (s *Store) GetOrCreateUserSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	settings, err := s.GetUserSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	settings = domain.NewUserSettings(userID)
	if err := s.UpsertUserSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// DeleteUserSettings removes a user's settings. Idempotent.
func (s *Store) DeleteUserSettings(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(settingsPrefix + userID))
}
