package app

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/disk"
	"go.uber.org/zap"
)

const (
	JobBackup       = "backup"
	JobLowStock     = "low-stock"
	JobStorageUsage = "storage-usage"
)

// usageWarnRatio of the quota triggers a storage warning
const usageWarnRatio = 0.8

// diskWarnPercent of the data filesystem in use triggers a disk warning
const diskWarnPercent = 90.0

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	a.jobs = map[string]func(){
		JobBackup:       a.SchedBackupTask,
		JobLowStock:     func() { a.SchedLowStockTask() },
		JobStorageUsage: a.SchedStorageUsageTask,
	}

	specs := map[string]string{
		JobBackup:       a.appConfig.Storage.BackupCron,
		JobLowStock:     a.appConfig.Inventory.LowStockCron,
		JobStorageUsage: "@every 30m",
	}
	for name, spec := range specs {
		if spec == "" {
			continue
		}
		if _, err := a.sched.AddFunc(spec, a.jobs[name]); err != nil {
			zap.S().Errorf("init job %s error %s", name, err.Error())
		}
	}
}

// JobNames lists the jobs RunJobNow accepts
func (a *Application) JobNames() []string {
	names := make([]string, 0, len(a.jobs))
	for name := range a.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunJobNow triggers a job immediately by name
func (a *Application) RunJobNow(name string) error {
	job, ok := a.jobs[name]
	if !ok {
		return errors.Errorf("unknown job %q", name)
	}
	zap.L().Info("job triggered", zap.String("namespace", "app"), zap.String("job", name))
	job()
	return nil
}

// SchedBackupTask snapshots the store when products changed since the last run
func (a *Application) SchedBackupTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	if !a.dirty.Swap(false) {
		return
	}
	if _, err := a.CreateBackup(); err != nil {
		a.dirty.Store(true)
		zap.L().Error("scheduled backup failed", zap.String("namespace", "app"), zap.Error(err))
		return
	}
	a.store.PruneBackups(a.appConfig.Storage.BackupPrefix, a.appConfig.Storage.BackupKeep)
}

// SchedLowStockTask logs the products at or below the threshold and warns every
// attached view. It returns the number of low stock products.
func (a *Application) SchedLowStockTask() int {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	low := a.inventory.LowStock()
	if len(low) == 0 {
		return 0
	}
	names := make([]string, 0, len(low))
	for _, p := range low {
		names = append(names, p.Name)
	}
	zap.L().Warn("products with low stock",
		zap.String("namespace", "app"),
		zap.Int("count", len(low)),
		zap.Strings("products", names))
	for _, c := range a.attachedControllers() {
		c.ReportLowStock()
	}
	return len(low)
}

// SchedStorageUsageTask logs store usage and warns near the quota or when the
// filesystem holding the data directory runs low
func (a *Application) SchedStorageUsageTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	usage := a.store.Usage()
	fields := []zap.Field{
		zap.String("namespace", "app"),
		zap.String("size", usage.TotalSizeFormatted),
		zap.Int64("quota", usage.Quota),
		zap.Int("items", usage.ItemCount),
	}
	if usage.Quota > 0 && float64(usage.TotalSize) >= float64(usage.Quota)*usageWarnRatio {
		zap.L().Warn("store is close to its quota", fields...)
	} else {
		zap.L().Debug("store usage", fields...)
	}

	du, err := a.DiskUsage()
	if err != nil {
		zap.L().Warn("disk usage unavailable", zap.String("namespace", "app"), zap.Error(err))
		return
	}
	diskFields := []zap.Field{
		zap.String("namespace", "app"),
		zap.String("path", du.Path),
		zap.Uint64("free", du.Free),
		zap.Float64("used_percent", du.UsedPercent),
	}
	if du.UsedPercent >= diskWarnPercent || du.Free < uint64(usage.Quota) {
		zap.L().Warn("data disk is running low", diskFields...)
		return
	}
	zap.L().Debug("data disk usage", diskFields...)
}

// DiskUsage reports the filesystem of the data directory, or of its nearest
// existing parent when the directory has not been created yet
func (a *Application) DiskUsage() (*disk.UsageStat, error) {
	path := a.appConfig.GetDataDir()
	for {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}
	du, err := disk.Usage(path)
	if err != nil {
		return nil, errors.Wrapf(err, "disk usage of %s", path)
	}
	return du, nil
}
