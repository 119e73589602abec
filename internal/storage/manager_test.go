package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBackend struct {
	*MemoryBackend
	failSet bool
}

func (f *failingBackend) Set(key, value string) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Set(key, value)
}

func (f *failingBackend) SetAll(entries map[string]string) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryBackend.SetAll(entries)
}

func TestGetSetRoundTrip(t *testing.T) {
	m := NewManager(NewMemoryBackend(), 0)

	require.True(t, m.Set("prefs", map[string]interface{}{"theme": "dark", "size": 3}))
	var out map[string]interface{}
	require.True(t, m.Get("prefs", &out))
	assert.Equal(t, "dark", out["theme"])
	assert.EqualValues(t, 3, out["size"])
}

func TestGetMissingAndMalformed(t *testing.T) {
	backend := NewMemoryBackend()
	m := NewManager(backend, 0)

	out := []string{"default"}
	assert.False(t, m.Get("missing", &out))
	assert.Equal(t, []string{"default"}, out)

	require.NoError(t, backend.Set("broken", "{not json"))
	assert.False(t, m.Get("broken", &out))
}

func TestSetRejectsOverQuota(t *testing.T) {
	m := NewManager(NewMemoryBackend(), 64)

	assert.True(t, m.SetRaw("a", strings.Repeat("x", 40)))
	assert.False(t, m.SetRaw("b", strings.Repeat("y", 40)))
	_, ok := m.GetRaw("b")
	assert.False(t, ok)

	// replacing a key only counts the new value
	assert.True(t, m.SetRaw("a", strings.Repeat("z", 60)))
}

func TestSetReportsBackendFailure(t *testing.T) {
	m := NewManager(&failingBackend{MemoryBackend: NewMemoryBackend(), failSet: true}, 0)
	assert.False(t, m.Set("k", 1))
}

func TestSetRejectsUnencodableValue(t *testing.T) {
	m := NewManager(NewMemoryBackend(), 0)
	assert.False(t, m.Set("k", make(chan int)))
}

func TestRemoveAndClear(t *testing.T) {
	m := NewManager(NewMemoryBackend(), 0)
	require.True(t, m.Set("a", 1))
	require.True(t, m.Set("b", 2))

	assert.True(t, m.Remove("a"))
	assert.True(t, m.Remove("a"))
	_, ok := m.GetRaw("a")
	assert.False(t, ok)

	assert.True(t, m.Clear())
	assert.Zero(t, m.Usage().ItemCount)
}

func TestUsage(t *testing.T) {
	m := NewManager(NewMemoryBackend(), 0)
	require.True(t, m.SetRaw("ab", "1234"))
	require.True(t, m.SetRaw("c", "5"))

	u := m.Usage()
	assert.EqualValues(t, 8, u.TotalSize)
	assert.Equal(t, 2, u.ItemCount)
	assert.EqualValues(t, 6, u.Items["ab"])
	assert.Equal(t, "8 B", u.TotalSizeFormatted)
	assert.Equal(t, DefaultQuota, u.Quota)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "0 B", FormatBytes(-4))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "5.0 MiB", FormatBytes(DefaultQuota))
}

func TestExportImportAll(t *testing.T) {
	src := NewManager(NewMemoryBackend(), 0)
	require.True(t, src.SetRaw("a", `"1"`))
	require.True(t, src.SetRaw("b", `"2"`))

	dst := NewManager(NewMemoryBackend(), 0)
	var notified []string
	dst.Watch(func(keys []string) { notified = keys })

	require.True(t, dst.ImportAll(src.ExportAll()))
	assert.Equal(t, src.ExportAll(), dst.ExportAll())
	assert.Equal(t, []string{"a", "b"}, notified)
}

func TestImportAllRespectsQuota(t *testing.T) {
	m := NewManager(NewMemoryBackend(), 10)
	assert.False(t, m.ImportAll(map[string]string{"a": strings.Repeat("x", 20)}))
	assert.Empty(t, m.ExportAll())
}

func TestImportAllWritesNothingOnFailure(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	m := NewManager(backend, 0)
	require.True(t, m.SetRaw("kept", `"old"`))

	var notified []string
	m.Watch(func(keys []string) { notified = keys })
	backend.failSet = true
	assert.False(t, m.ImportAll(map[string]string{"kept": `"new"`, "a": `"1"`, "b": `"2"`}))
	assert.Equal(t, map[string]string{"kept": `"old"`}, m.ExportAll())
	assert.Nil(t, notified)
}

func TestBoltSetAllInOneTransaction(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "batch.db"), "")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Set("a", "0"))
	require.NoError(t, b.SetAll(map[string]string{"a": "1", "b": "2", "c": "3"}))
	entries, err := b.Entries()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, entries)

	// bolt refuses empty keys, which aborts the whole batch
	assert.Error(t, b.SetAll(map[string]string{"d": "4", "": "x"}))
	entries, err = b.Entries()
	require.NoError(t, err)
	assert.NotContains(t, entries, "d")

	m := NewMemoryBackend()
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.SetAll(map[string]string{"a": "1"}), ErrClosed)
}

func TestBackups(t *testing.T) {
	m := NewManager(NewMemoryBackend(), 0)
	require.True(t, m.SetRaw("products", `[1]`))

	first, ok := m.CreateBackup("backup_")
	require.True(t, ok)
	second, ok := m.CreateBackup("backup_")
	require.True(t, ok)
	third, ok := m.CreateBackup("backup_")
	require.True(t, ok)

	assert.Equal(t, []string{first, second, third}, m.Backups("backup_"))

	var snapshot map[string]string
	require.True(t, m.Get(third, &snapshot))
	assert.Equal(t, map[string]string{"products": `[1]`}, snapshot)

	assert.Equal(t, 2, m.PruneBackups("backup_", 1))
	assert.Equal(t, []string{third}, m.Backups("backup_"))

	require.True(t, m.SetRaw("products", `[2]`))
	require.True(t, m.RestoreBackup(third))
	raw, _ := m.GetRaw("products")
	assert.Equal(t, `[1]`, raw)

	assert.False(t, m.RestoreBackup("backup_missing"))
}

func TestBoltBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.db")
	b, err := OpenBolt(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, b.Path())

	m := NewManager(b, 0)
	require.True(t, m.Set("k", []int{1, 2}))
	var out []int
	require.True(t, m.Get("k", &out))
	assert.Equal(t, []int{1, 2}, out)

	_, found, err := b.Get("nope")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, b.Clear())
	entries, err := b.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.True(t, m.Set("persisted", "yes"))
	require.NoError(t, b.Close())

	reopened, err := OpenBolt(path, "")
	require.NoError(t, err)
	defer reopened.Close()
	v, found, err := reopened.Get("persisted")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `"yes"`, v)
}

func TestMemoryBackendClosed(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Set("a", "b"), ErrClosed)
	_, _, err := b.Get("a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, NewManager(b, 0).Set("a", 1))
}

func TestKeysWithPrefix(t *testing.T) {
	bolted, err := OpenBolt(filepath.Join(t.TempDir(), "keys.db"), "")
	require.NoError(t, err)
	defer bolted.Close()

	for name, b := range map[string]interface {
		Backend
		PrefixLister
	}{"memory": NewMemoryBackend(), "bolt": bolted} {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"backup_2", "products", "backup_1", "backupx", "a"} {
				require.NoError(t, b.Set(k, "v"))
			}
			keys, err := b.KeysWithPrefix("backup_")
			require.NoError(t, err)
			assert.Equal(t, []string{"backup_1", "backup_2"}, keys)

			keys, err = b.KeysWithPrefix("zzz")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}
