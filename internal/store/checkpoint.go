package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/shelfmark/shelfmark/internal/domain"
)

const (
	checkpointKey = "sync:checkpoint"
	deviceIDKey   = "meta:device_id"
)

// GetCheckpoint returns the last successful pull boundary, or nil when no
// sync cycle has completed yet (first run, or after a force resync).
func (s *Store) GetCheckpoint(ctx context.Context) (*domain.SyncCheckpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cp domain.SyncCheckpoint
	err := s.get([]byte(checkpointKey), &cp)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return &cp, nil
}

// SetCheckpoint records a successful sync cycle boundary.
// Only the sync manager calls this.
func (s *Store) SetCheckpoint(ctx context.Context, cp *domain.SyncCheckpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.set([]byte(checkpointKey), cp); err != nil {
		return fmt.Errorf("set checkpoint: %w", err)
	}
	return nil
}

// ClearCheckpoint removes the checkpoint so the next sync does a full
// lookback pull. Used by force resync.
func (s *Store) ClearCheckpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(checkpointKey))
}

// DeviceID returns this install's stable device identifier, generating and
// persisting one on first call. The remote uses it to tell devices apart in
// its conflict accounting.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var deviceID string
	err := s.get([]byte(deviceIDKey), &deviceID)
	if err == nil {
		return deviceID, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("get device id: %w", err)
	}

	deviceID = uuid.New().String()
	if err := s.set([]byte(deviceIDKey), deviceID); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("generated device id", "device_id", deviceID)
	}
	return deviceID, nil
}
