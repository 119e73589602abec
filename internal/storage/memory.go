package storage

import (
	"strings"
	"sync"

	"github.com/google/btree"
)

type memoryEntry struct {
	key   string
	value string
}

func lessEntry(a, b memoryEntry) bool {
	return a.key < b.key
}

// MemoryBackend keeps entries ordered by key in a btree. It backs tests and ephemeral runs.
type MemoryBackend struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[memoryEntry]
	closed bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tree: btree.NewG(8, lessEntry)}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	e, ok := m.tree.Get(memoryEntry{key: key})
	return e.value, ok, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.tree.ReplaceOrInsert(memoryEntry{key: key, value: value})
	return nil
}

func (m *MemoryBackend) SetAll(entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for k, v := range entries {
		m.tree.ReplaceOrInsert(memoryEntry{key: k, value: v})
	}
	return nil
}

func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.tree.Delete(memoryEntry{key: key})
	return nil
}

func (m *MemoryBackend) Entries() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string, m.tree.Len())
	m.tree.Ascend(func(e memoryEntry) bool {
		out[e.key] = e.value
		return true
	})
	return out, nil
}

// KeysWithPrefix returns the keys starting with prefix in ascending order
func (m *MemoryBackend) KeysWithPrefix(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var keys []string
	m.tree.AscendGreaterOrEqual(memoryEntry{key: prefix}, func(e memoryEntry) bool {
		if !strings.HasPrefix(e.key, prefix) {
			return false
		}
		keys = append(keys, e.key)
		return true
	})
	return keys, nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.tree.Clear(false)
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
