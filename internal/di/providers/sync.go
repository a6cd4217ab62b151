package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/logger"
	shelfsync "github.com/shelfmark/shelfmark/internal/sync"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// SyncManagerHandle wraps the sync manager with its background loop for
// lifecycle management.
type SyncManagerHandle struct {
	*shelfsync.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SyncManagerHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideSyncManager provides the sync manager with its background loop
// running. An unconfigured remote is fine: cycles fail fast as offline and
// the queue accumulates.
func ProvideSyncManager(i do.Injector) (*SyncManagerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clientHandle := do.MustInvoke[*RemoteClientHandle](i)
	v := do.MustInvoke[*validation.Validator](i)

	manager := shelfsync.NewManager(storeHandle.Store, clientHandle.Client, v, log.Logger, shelfsync.Options{
		UserID:        cfg.Remote.UserID,
		Lookback:      cfg.Sync.Lookback,
		Interval:      cfg.Sync.Interval,
		ProbeInterval: cfg.Sync.ProbeInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	if clientHandle.Configured() {
		// Drain whatever the queue accumulated while the daemon was down.
		manager.Trigger("startup")
	}

	log.Info("Sync manager started", "interval", cfg.Sync.Interval, "lookback", cfg.Sync.Lookback)

	return &SyncManagerHandle{Manager: manager, cancel: cancel}, nil
}
