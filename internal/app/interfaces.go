package app

import (
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/talkincode/cafestock/config"
	"github.com/talkincode/cafestock/internal/inventory"
	"github.com/talkincode/cafestock/internal/storage"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the key-value store
type StoreProvider interface {
	Store() *storage.Manager
	// DiskUsage reports the filesystem holding the data directory
	DiskUsage() (*disk.UsageStat, error)
}

// InventoryProvider provides the product collection
type InventoryProvider interface {
	Inventory() *inventory.Service
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// BackupProvider manages store snapshots
type BackupProvider interface {
	CreateBackup() (string, error)
	RestoreBackup(key string) error
	Backups() []string
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	ConfigProvider
	StoreProvider
	InventoryProvider
	SchedulerProvider
	BackupProvider

	// RunJobNow runs a background job by name immediately
	RunJobNow(name string) error
	JobNames() []string
}
