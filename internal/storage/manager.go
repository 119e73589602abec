package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// DefaultQuota is the aggregate size ceiling of all stored keys and values
const DefaultQuota int64 = 5 * 1024 * 1024

const backupLayout = "2006-01-02T15:04:05.000000000Z"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Usage reports the space taken by stored entries
type Usage struct {
	TotalSize          int64            `json:"totalSize"`
	TotalSizeFormatted string           `json:"totalSizeFormatted"`
	ItemCount          int              `json:"itemCount"`
	Quota              int64            `json:"quota"`
	Items              map[string]int64 `json:"items"`
}

// Manager wraps a Backend with JSON values, a capacity ceiling and backups.
// Failures are logged and reported as false or empty results, never as panics.
type Manager struct {
	mu       sync.Mutex
	backend  Backend
	quota    int64
	watchers []func(keys []string)
}

// NewManager wraps backend. A non positive quota selects DefaultQuota.
func NewManager(backend Backend, quota int64) *Manager {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Manager{backend: backend, quota: quota}
}

// Watch registers fn to be told which keys a bulk import or restore rewrote
func (m *Manager) Watch(fn func(keys []string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

func (m *Manager) notify(keys []string) {
	m.mu.Lock()
	watchers := append([]func([]string){}, m.watchers...)
	m.mu.Unlock()
	for _, fn := range watchers {
		fn(keys)
	}
}

// Get decodes the JSON value of key into out. It returns false when the key is
// missing, unreadable or malformed, leaving out untouched on a miss.
func (m *Manager) Get(key string, out interface{}) bool {
	raw, ok := m.GetRaw(key)
	if !ok {
		return false
	}
	if err := json.UnmarshalFromString(raw, out); err != nil {
		zap.L().Error("storage value is malformed",
			zap.String("namespace", "storage"),
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return true
}

// GetRaw returns the stored string of key
func (m *Manager) GetRaw(key string) (string, bool) {
	v, ok, err := m.backend.Get(key)
	if err != nil {
		zap.L().Error("storage read failed",
			zap.String("namespace", "storage"),
			zap.String("key", key),
			zap.Error(err))
		return "", false
	}
	return v, ok
}

// Set stores value as JSON under key. It returns false when encoding fails,
// the write would exceed the quota, or the backend rejects it.
func (m *Manager) Set(key string, value interface{}) bool {
	raw, err := json.MarshalToString(value)
	if err != nil {
		zap.L().Error("storage value encode failed",
			zap.String("namespace", "storage"),
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return m.SetRaw(key, raw)
}

// SetRaw stores value under key as is, subject to the quota
func (m *Manager) SetRaw(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.backend.Entries()
	if err != nil {
		zap.L().Error("storage read failed", zap.String("namespace", "storage"), zap.Error(err))
		return false
	}
	projected := sizeOf(entries) + entrySize(key, value)
	if old, ok := entries[key]; ok {
		projected -= entrySize(key, old)
	}
	if projected > m.quota {
		zap.L().Warn("storage quota exceeded",
			zap.String("namespace", "storage"),
			zap.String("key", key),
			zap.String("projected", humanize.IBytes(uint64(projected))),
			zap.String("quota", humanize.IBytes(uint64(m.quota))))
		return false
	}
	if err := m.backend.Set(key, value); err != nil {
		zap.L().Error("storage write failed",
			zap.String("namespace", "storage"),
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key and reports success
func (m *Manager) Remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.backend.Remove(key); err != nil {
		zap.L().Error("storage remove failed",
			zap.String("namespace", "storage"),
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return true
}

// Clear removes every key
func (m *Manager) Clear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.backend.Clear(); err != nil {
		zap.L().Error("storage clear failed", zap.String("namespace", "storage"), zap.Error(err))
		return false
	}
	return true
}

// Usage sums the size of every key and value
func (m *Manager) Usage() Usage {
	entries, err := m.backend.Entries()
	if err != nil {
		zap.L().Error("storage read failed", zap.String("namespace", "storage"), zap.Error(err))
		entries = nil
	}
	u := Usage{Quota: m.quota, Items: make(map[string]int64, len(entries))}
	for k, v := range entries {
		size := entrySize(k, v)
		u.Items[k] = size
		u.TotalSize += size
	}
	u.ItemCount = len(entries)
	u.TotalSizeFormatted = FormatBytes(u.TotalSize)
	return u
}

// ExportAll returns a snapshot of every stored entry
func (m *Manager) ExportAll() map[string]string {
	entries, err := m.backend.Entries()
	if err != nil {
		zap.L().Error("storage export failed", zap.String("namespace", "storage"), zap.Error(err))
		return map[string]string{}
	}
	return entries
}

// ImportAll writes every entry, replacing existing values of the same keys.
// Nothing is written when the result would exceed the quota.
func (m *Manager) ImportAll(entries map[string]string) bool {
	if !m.importAll(entries) {
		return false
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.notify(keys)
	return true
}

func (m *Manager) importAll(entries map[string]string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.backend.Entries()
	if err != nil {
		zap.L().Error("storage read failed", zap.String("namespace", "storage"), zap.Error(err))
		return false
	}
	projected := sizeOf(current)
	for k, v := range entries {
		if old, ok := current[k]; ok {
			projected -= entrySize(k, old)
		}
		projected += entrySize(k, v)
	}
	if projected > m.quota {
		zap.L().Warn("storage import exceeds quota",
			zap.String("namespace", "storage"),
			zap.String("projected", humanize.IBytes(uint64(projected))))
		return false
	}
	if err := m.backend.SetAll(entries); err != nil {
		zap.L().Error("storage import write failed",
			zap.String("namespace", "storage"),
			zap.Int("keys", len(entries)),
			zap.Error(err))
		return false
	}
	return true
}

// CreateBackup snapshots every non backup entry under prefix plus a timestamp
// and returns the backup key
func (m *Manager) CreateBackup(prefix string) (string, bool) {
	snapshot := make(map[string]string)
	for k, v := range m.ExportAll() {
		if !strings.HasPrefix(k, prefix) {
			snapshot[k] = v
		}
	}
	key := prefix + time.Now().UTC().Format(backupLayout)
	if !m.Set(key, snapshot) {
		return "", false
	}
	zap.L().Info("storage backup created",
		zap.String("namespace", "storage"),
		zap.String("key", key),
		zap.Int("entries", len(snapshot)))
	return key, true
}

// Backups lists backup keys under prefix, oldest first
func (m *Manager) Backups(prefix string) []string {
	if lister, ok := m.backend.(PrefixLister); ok {
		keys, err := lister.KeysWithPrefix(prefix)
		if err == nil {
			return keys
		}
		zap.L().Warn("storage backup listing failed",
			zap.String("namespace", "storage"),
			zap.Error(err))
	}
	var keys []string
	for k := range m.ExportAll() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// PruneBackups keeps the newest keep backups and returns how many were removed
func (m *Manager) PruneBackups(prefix string, keep int) int {
	if keep < 0 {
		keep = 0
	}
	keys := m.Backups(prefix)
	removed := 0
	for i := 0; i < len(keys)-keep; i++ {
		if m.Remove(keys[i]) {
			removed++
		}
	}
	return removed
}

// RestoreBackup writes the entries captured in the backup key back into storage
func (m *Manager) RestoreBackup(key string) bool {
	var snapshot map[string]string
	if !m.Get(key, &snapshot) {
		return false
	}
	return m.ImportAll(snapshot)
}

// FormatBytes renders a byte count in binary units
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

func sizeOf(entries map[string]string) int64 {
	var total int64
	for k, v := range entries {
		total += entrySize(k, v)
	}
	return total
}
