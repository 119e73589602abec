package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/cafestock/config"
	"github.com/talkincode/cafestock/internal/controller"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/events"
	"github.com/talkincode/cafestock/internal/view/console"
)

func testConfig(t *testing.T, backend string) *config.AppConfig {
	t.Helper()
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.Logger.FileEnable = false
	cfg.Storage.Backend = backend
	cfg.Controller.LowStockDelay = time.Hour
	return cfg
}

func newTestApp(t *testing.T, backend string) *Application {
	t.Helper()
	cfg := testConfig(t, backend)
	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	t.Cleanup(a.Release)
	return a
}

func draft(name string, stock int) domain.Draft {
	typ := domain.TypeDrink
	category := "Té"
	price := 3200.0
	return domain.Draft{Name: &name, Type: &typ, Category: &category, Price: &price, Stock: &stock}
}

func TestInitSeedsCatalog(t *testing.T) {
	a := newTestApp(t, "memory")
	assert.Equal(t, 8, a.Inventory().Count())
	assert.False(t, a.Dirty())
	assert.Equal(t, []string{JobBackup, JobLowStock, JobStorageUsage}, a.JobNames())
	assert.NotEmpty(t, a.Scheduler().Entries())
	assert.Same(t, a.Bus(), a.Inventory().Bus())
}

func TestInitRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t, "redis")
	assert.Error(t, NewApplication(cfg).Init(cfg))
}

func TestBackupJobRunsOnlyWhenDirty(t *testing.T) {
	a := newTestApp(t, "memory")

	require.NoError(t, a.RunJobNow(JobBackup))
	assert.Empty(t, a.Backups())

	_, err := a.Inventory().Add(draft("Té Verde", 9))
	require.NoError(t, err)
	a.Relay().Wait()
	assert.True(t, a.Dirty())

	require.NoError(t, a.RunJobNow(JobBackup))
	assert.Len(t, a.Backups(), 1)
	assert.False(t, a.Dirty())

	require.NoError(t, a.RunJobNow(JobBackup))
	assert.Len(t, a.Backups(), 1)

	assert.Error(t, a.RunJobNow("nope"))
}

func TestBackupPruning(t *testing.T) {
	a := newTestApp(t, "memory")
	a.Config().Storage.BackupKeep = 2
	for i := 0; i < 4; i++ {
		_, err := a.Inventory().Add(draft("Té "+string(rune('A'+i)), 9))
		require.NoError(t, err)
		a.Relay().Wait()
		a.SchedBackupTask()
		time.Sleep(2 * time.Millisecond)
	}
	assert.Len(t, a.Backups(), 2)
}

func TestRestoreBackupReloadsProducts(t *testing.T) {
	a := newTestApp(t, "memory")
	key, err := a.CreateBackup()
	require.NoError(t, err)

	require.NoError(t, a.Inventory().Clear())
	assert.Zero(t, a.Inventory().Count())

	require.NoError(t, a.RestoreBackup(key))
	assert.Equal(t, 8, a.Inventory().Count())

	assert.Error(t, a.RestoreBackup("cafeteria_products"))
	assert.Error(t, a.RestoreBackup(a.Config().Storage.BackupPrefix+"missing"))
}

func TestRestoreBackupNotifiesControllers(t *testing.T) {
	a := newTestApp(t, "memory")
	var out bytes.Buffer
	view := console.New(&out, t.TempDir())
	a.NewController(view, &console.Prompt{AssumeYes: true})

	key, err := a.CreateBackup()
	require.NoError(t, err)
	require.NoError(t, a.Inventory().Clear())
	require.NoError(t, a.RestoreBackup(key))

	assert.Equal(t, 8, a.Inventory().Count())
	notes := view.Notifications()
	require.NotEmpty(t, notes)
	last := notes[len(notes)-1]
	assert.Equal(t, "Data updated from another session", last.Message)
	assert.Equal(t, controller.LevelInfo, last.Level)
}

func TestLowStockJobWarnsViews(t *testing.T) {
	a := newTestApp(t, "memory")
	view := console.New(&bytes.Buffer{}, t.TempDir())
	a.NewController(view, &console.Prompt{})

	assert.Equal(t, 1, a.SchedLowStockTask())
	notes := view.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, controller.LevelWarning, notes[0].Level)

	a.SchedStorageUsageTask()
}

func TestDiskUsageOfDataDir(t *testing.T) {
	a := newTestApp(t, "memory")
	// the memory backend never creates the data directory
	du, err := a.DiskUsage()
	require.NoError(t, err)
	assert.Equal(t, a.Config().System.Workdir, du.Path)
	assert.NotZero(t, du.Total)

	b := newTestApp(t, "bolt")
	du, err = b.DiskUsage()
	require.NoError(t, err)
	assert.Equal(t, b.Config().GetDataDir(), du.Path)
}

func TestRelayDeliversEveryInventoryEvent(t *testing.T) {
	bus := events.New()
	r := NewRelay(bus)
	got := make(chan string, len(events.InventoryEvents))
	require.NoError(t, r.SubscribeAsync(func(event string, _ interface{}) { got <- event }))

	for _, name := range events.InventoryEvents {
		bus.Publish(name, name)
	}
	r.Wait()
	assert.Len(t, got, len(events.InventoryEvents))

	r.Close()
	assert.Zero(t, bus.ListenerCount(events.ProductCreated))
}

func TestBoltStoreSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, "bolt")
	a := NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	_, err := a.Inventory().Add(draft("Té Negro", 7))
	require.NoError(t, err)
	a.Release()

	b := NewApplication(cfg)
	require.NoError(t, b.Init(cfg))
	defer b.Release()
	assert.Equal(t, 9, b.Inventory().Count())
	assert.Len(t, b.Inventory().Search("té negro"), 1)
}

func TestStartBackgroundJobs(t *testing.T) {
	a := newTestApp(t, "memory")
	ctx, cancel := context.WithCancel(context.Background())
	a.StartBackgroundJobs(ctx)
	cancel()
}
