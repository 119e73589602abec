package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system settings
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// LogConfig logger settings
type LogConfig struct {
	Mode       string `yaml:"mode"`
	Level      string `yaml:"level"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// StorageConfig key-value store settings
type StorageConfig struct {
	Backend      string `yaml:"backend"` // bolt or memory
	Path         string `yaml:"path"`
	Bucket       string `yaml:"bucket"`
	Quota        int64  `yaml:"quota"`
	ProductsKey  string `yaml:"products_key"`
	BackupPrefix string `yaml:"backup_prefix"`
	BackupKeep   int    `yaml:"backup_keep"`
	BackupCron   string `yaml:"backup_cron"`
}

// InventoryConfig display settings of the collection
type InventoryConfig struct {
	Locale   string `yaml:"locale"`
	Currency string `yaml:"currency"`
	// LowStockCron schedules the periodic low stock report, empty disables it
	LowStockCron string `yaml:"low_stock_cron"`
}

// ControllerConfig timing of the interactive controller
type ControllerConfig struct {
	SearchDebounce       time.Duration `yaml:"search_debounce"`
	LowStockDelay        time.Duration `yaml:"low_stock_delay"`
	NotificationDuration time.Duration `yaml:"notification_duration"`
	FiltersKey           string        `yaml:"filters_key"`
}

// WebConfig admin API settings
type WebConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	BodyLimit string `yaml:"body_limit"`
}

type AppConfig struct {
	System     SysConfig        `yaml:"system"`
	Logger     LogConfig        `yaml:"logger"`
	Storage    StorageConfig    `yaml:"storage"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Controller ControllerConfig `yaml:"controller"`
	Web        WebConfig        `yaml:"web"`
}

func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

// LogFile is the rolling log file, inside the log directory unless configured
func (c *AppConfig) LogFile() string {
	if c.Logger.Filename != "" {
		return c.Logger.Filename
	}
	return filepath.Join(c.GetLogDir(), "cafestock.log")
}

func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetExportDir() string {
	return filepath.Join(c.System.Workdir, "exports")
}

// StoragePath is the bolt file location, relative paths resolve against the data directory
func (c *AppConfig) StoragePath() string {
	if c.Storage.Path == "" {
		return filepath.Join(c.GetDataDir(), "cafestock.db")
	}
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(c.GetDataDir(), c.Storage.Path)
}

func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir(), c.GetExportDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig returns a fresh copy of the built-in settings
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "CafeStock",
			Location: "America/Bogota",
			Workdir:  "/var/cafestock",
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
		},
		Storage: StorageConfig{
			Backend:      "bolt",
			Path:         "cafestock.db",
			Bucket:       "kv",
			Quota:        5 * 1024 * 1024,
			ProductsKey:  "cafeteria_products",
			BackupPrefix: "backup_",
			BackupKeep:   10,
			BackupCron:   "@every 10m",
		},
		Inventory: InventoryConfig{
			Locale:       "es-CO",
			Currency:     "COP",
			LowStockCron: "@every 1h",
		},
		Controller: ControllerConfig{
			SearchDebounce:       300 * time.Millisecond,
			LowStockDelay:        time.Second,
			NotificationDuration: 3 * time.Second,
			FiltersKey:           "cafeteria_filters_cache",
		},
		Web: WebConfig{
			Host:      "0.0.0.0",
			Port:      1880,
			BodyLimit: "2M",
		},
	}
}

// LoadConfig reads cfile over the defaults, then applies CAFESTOCK_* environment overrides.
// A missing file is not an error.
func LoadConfig(cfile string) (*AppConfig, error) {
	if cfile == "" {
		cfile = "cafestock.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/cafestock.yml"
	}
	cfg := DefaultAppConfig()
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	setEnvValue("CAFESTOCK_SYSTEM_APPID", &c.System.Appid)
	setEnvValue("CAFESTOCK_SYSTEM_LOCATION", &c.System.Location)
	setEnvValue("CAFESTOCK_WORKDIR", &c.System.Workdir)
	setEnvBoolValue("CAFESTOCK_SYSTEM_DEBUG", &c.System.Debug)

	setEnvValue("CAFESTOCK_LOGGER_MODE", &c.Logger.Mode)
	setEnvValue("CAFESTOCK_LOGGER_LEVEL", &c.Logger.Level)
	setEnvValue("CAFESTOCK_LOGGER_FILENAME", &c.Logger.Filename)
	setEnvBoolValue("CAFESTOCK_LOGGER_FILE_ENABLE", &c.Logger.FileEnable)

	setEnvValue("CAFESTOCK_STORAGE_BACKEND", &c.Storage.Backend)
	setEnvValue("CAFESTOCK_STORAGE_PATH", &c.Storage.Path)
	setEnvInt64Value("CAFESTOCK_STORAGE_QUOTA", &c.Storage.Quota)
	setEnvIntValue("CAFESTOCK_STORAGE_BACKUP_KEEP", &c.Storage.BackupKeep)
	setEnvValue("CAFESTOCK_STORAGE_BACKUP_CRON", &c.Storage.BackupCron)

	setEnvValue("CAFESTOCK_INVENTORY_LOCALE", &c.Inventory.Locale)
	setEnvValue("CAFESTOCK_INVENTORY_CURRENCY", &c.Inventory.Currency)

	setEnvDurationValue("CAFESTOCK_CONTROLLER_SEARCH_DEBOUNCE", &c.Controller.SearchDebounce)
	setEnvDurationValue("CAFESTOCK_CONTROLLER_LOW_STOCK_DELAY", &c.Controller.LowStockDelay)

	setEnvValue("CAFESTOCK_WEB_HOST", &c.Web.Host)
	setEnvIntValue("CAFESTOCK_WEB_PORT", &c.Web.Port)
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*val = b
		}
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func setEnvInt64Value(name string, val *int64) {
	if v := os.Getenv(name); v != "" {
		if i, err := cast.ToInt64E(v); err == nil {
			*val = i
		}
	}
}

// setEnvDurationValue accepts Go duration strings, a bare number is read as nanoseconds
func setEnvDurationValue(name string, val *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			*val = d
		}
	}
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	return err == nil && !info.IsDir()
}
