package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark/internal/config"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/logger"
	"github.com/shelfmark/shelfmark/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore runs the schema version guard and opens the local store.
//
// A store the guard rejects gets normalized: deleted and recreated. That is
// deliberate data loss on the reset path - the catalog comes back from the
// remote on the next sync, and an unsupported schema cannot be read anyway.
// Normalization fails with ErrResetBlocked when another Shelfmark session
// holds the store open.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Storage.DataPath, "db")

	check, err := store.CheckVersion(dbPath)
	if err != nil {
		return nil, err
	}
	if !check.IsValid {
		log.Warn("local store schema unsupported, resetting",
			"stored_version", check.StoredVersion,
			"code_version", check.CodeVersion,
		)
		if err := store.NormalizeVersion(dbPath, log.Logger); err != nil {
			if domainerrors.Is(err, domainerrors.ErrResetBlocked) {
				log.Error("store reset blocked, close other Shelfmark sessions first")
			}
			return nil, err
		}
	}

	db, err := store.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	return &StoreHandle{Store: db}, nil
}
