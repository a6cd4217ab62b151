package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/logger"
	"github.com/shelfmark/shelfmark/internal/service"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// ProvideCatalogService provides the book catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	syncHandle := do.MustInvoke[*SyncManagerHandle](i)

	return service.NewCatalogService(storeHandle.Store, v, log.Logger, syncHandle.Manager), nil
}

// ProvideShelfService provides the ratings, tags, collections, and reading
// log service.
func ProvideShelfService(i do.Injector) (*service.ShelfService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	syncHandle := do.MustInvoke[*SyncManagerHandle](i)

	return service.NewShelfService(storeHandle.Store, v, log.Logger, syncHandle.Manager), nil
}

// ProvideSettingsService provides the user settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	syncHandle := do.MustInvoke[*SyncManagerHandle](i)

	return service.NewSettingsService(storeHandle.Store, v, log.Logger, syncHandle.Manager, cfg.Remote.UserID), nil
}
