package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/cafestock/config"
	"github.com/talkincode/cafestock/internal/controller"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/events"
	"github.com/talkincode/cafestock/internal/inventory"
	"github.com/talkincode/cafestock/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Application struct {
	appConfig *config.AppConfig
	backend   storage.Backend
	store     *storage.Manager
	bus       *events.Bus
	inventory *inventory.Service
	relay     *Relay
	sched     *cron.Cron
	jobs      map[string]func()

	// dirty is set by inventory events and cleared by the backup job
	dirty atomic.Bool

	ctrlMu      sync.Mutex
	controllers []*controller.Controller
}

// Ensure Application implements all interfaces
var (
	_ ConfigProvider    = (*Application)(nil)
	_ StoreProvider     = (*Application)(nil)
	_ InventoryProvider = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ BackupProvider    = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Store() *storage.Manager {
	return a.store
}

func (a *Application) Inventory() *inventory.Service {
	return a.inventory
}

func (a *Application) Bus() *events.Bus {
	return a.bus
}

func (a *Application) Relay() *Relay {
	return a.relay
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Dirty reports whether products changed since the last backup
func (a *Application) Dirty() bool {
	return a.dirty.Load()
}

func (a *Application) Init(cfg *config.AppConfig) error {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	a.backend, err = openBackend(cfg)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	a.store = storage.NewManager(a.backend, cfg.Storage.Quota)
	zap.S().Infof("Store ready, backend: %s", cfg.Storage.Backend)

	a.bus = events.New()
	money := domain.NewMoneyFormat(cfg.Inventory.Locale, cfg.Inventory.Currency)
	a.inventory = inventory.NewService(
		inventory.NewStorageRepository(a.store, cfg.Storage.ProductsKey),
		a.bus,
		inventory.Options{Locale: money.Locale, Money: money},
	)

	a.relay = NewRelay(a.bus)
	if err := a.relay.SubscribeAsync(a.markDirty); err != nil {
		return errors.Wrap(err, "subscribe backup marker")
	}
	if err := a.relay.SubscribeAsync(auditEvent); err != nil {
		return errors.Wrap(err, "subscribe audit log")
	}
	a.store.Watch(a.onStoreRewritten)

	a.checkStore()
	a.initJob()
	return nil
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stderr"}
	if cfg.Logger.Level != "" {
		if lvl, err := zapcore.ParseLevel(cfg.Logger.Level); err == nil {
			zapConfig.Level.SetLevel(lvl)
		}
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.LogFile(),
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stderr),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// NewController attaches a controller to the application. It is told about
// store rewrites and released with the application.
func (a *Application) NewController(view controller.View, confirm controller.Confirmer) *controller.Controller {
	cfg := a.appConfig
	ctrl := controller.New(a.inventory, view, confirm, a.store, controller.Options{
		SearchDebounce: cfg.Controller.SearchDebounce,
		LowStockDelay:  cfg.Controller.LowStockDelay,
		ProductsKey:    cfg.Storage.ProductsKey,
		FiltersKey:     cfg.Controller.FiltersKey,
	})
	a.ctrlMu.Lock()
	a.controllers = append(a.controllers, ctrl)
	a.ctrlMu.Unlock()
	ctrl.Start()
	return ctrl
}

func (a *Application) attachedControllers() []*controller.Controller {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	return append([]*controller.Controller(nil), a.controllers...)
}

// onStoreRewritten reloads the products when a restore or bulk import replaced them
func (a *Application) onStoreRewritten(keys []string) {
	for _, key := range keys {
		if key != a.appConfig.Storage.ProductsKey {
			continue
		}
		ctrls := a.attachedControllers()
		if len(ctrls) == 0 {
			a.inventory.Reload()
		}
		for _, c := range ctrls {
			c.OnStorageChanged(key)
		}
		zap.L().Info("products reloaded after store rewrite", zap.String("namespace", "app"))
	}
}

func (a *Application) markDirty(event string, _ interface{}) {
	a.dirty.Store(true)
}

func auditEvent(event string, payload interface{}) {
	fields := []zap.Field{zap.String("namespace", "audit"), zap.String("event", event)}
	switch v := payload.(type) {
	case inventory.ProductEvent:
		if v.Product != nil {
			fields = append(fields, zap.String("id", v.Product.ID), zap.String("name", v.Product.Name))
		}
	case inventory.CollectionEvent:
		fields = append(fields, zap.Int("count", v.Count))
	case inventory.ImportResult:
		fields = append(fields, zap.Int("imported", v.Imported), zap.Int("skipped", v.Skipped))
	}
	zap.L().Info("inventory changed", fields...)
}

// CreateBackup snapshots the store under the configured backup prefix
func (a *Application) CreateBackup() (string, error) {
	key, ok := a.store.CreateBackup(a.appConfig.Storage.BackupPrefix)
	if !ok {
		return "", errors.New("backup could not be stored")
	}
	return key, nil
}

// RestoreBackup rewrites the store from a snapshot and reloads the products
func (a *Application) RestoreBackup(key string) error {
	if key == a.appConfig.Storage.BackupPrefix || !strings.HasPrefix(key, a.appConfig.Storage.BackupPrefix) {
		return errors.Errorf("%s is not a backup key", key)
	}
	if !a.store.RestoreBackup(key) {
		return errors.Errorf("backup %s could not be restored", key)
	}
	return nil
}

func (a *Application) Backups() []string {
	return a.store.Backups(a.appConfig.Storage.BackupPrefix)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	for _, c := range a.attachedControllers() {
		c.Close()
	}
	if a.relay != nil {
		a.relay.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			zap.L().Warn("store close failed", zap.String("namespace", "app"), zap.Error(err))
		}
	}
	_ = zap.L().Sync()
}
