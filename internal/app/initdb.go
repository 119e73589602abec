package app

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/cafestock/config"
	"github.com/talkincode/cafestock/internal/storage"
	"go.uber.org/zap"
)

// openBackend opens the key-value store selected by the storage config
func openBackend(cfg *config.AppConfig) (storage.Backend, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		return storage.NewMemoryBackend(), nil
	case "", "bolt":
		backend, err := storage.OpenBolt(cfg.StoragePath(), cfg.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		zap.L().Info("bolt store opened", zap.String("namespace", "app"), zap.String("path", backend.Path()))
		return backend, nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// checkStore reports the store state at startup and trims surplus backups
func (a *Application) checkStore() {
	usage := a.store.Usage()
	zap.L().Info("store usage",
		zap.String("namespace", "app"),
		zap.String("size", usage.TotalSizeFormatted),
		zap.Int("items", usage.ItemCount),
		zap.Int("products", a.inventory.Count()))

	if removed := a.store.PruneBackups(a.appConfig.Storage.BackupPrefix, a.appConfig.Storage.BackupKeep); removed > 0 {
		zap.L().Info("old backups removed", zap.String("namespace", "app"), zap.Int("count", removed))
	}
}
