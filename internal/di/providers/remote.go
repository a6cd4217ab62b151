package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/logger"
	"github.com/shelfmark/shelfmark/internal/remote"
)

// RemoteClientHandle wraps the sync endpoint client with shutdown capability.
type RemoteClientHandle struct {
	*remote.Client
}

// Shutdown implements do.Shutdownable.
func (h *RemoteClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideRemoteClient provides the sync endpoint client, identified by the
// install's persistent device ID.
func ProvideRemoteClient(i do.Injector) (*RemoteClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	deviceID, err := storeHandle.DeviceID(context.Background())
	if err != nil {
		return nil, err
	}

	client := remote.New(cfg.Remote, deviceID, remote.StaticToken(cfg.Remote.Token), log.Logger)
	if client.Configured() {
		log.Info("Remote sync configured", "base_url", cfg.Remote.BaseURL, "device_id", deviceID)
	} else {
		log.Info("No remote configured, running local-only", "device_id", deviceID)
	}

	return &RemoteClientHandle{Client: client}, nil
}
