package history

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "history.db")

	db, err := NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}

func TestNewDB_AppliesSchema(t *testing.T) {
	db := newTestDB(t)

	var name string
	err := db.conn.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'runs'`,
	).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "runs", name)
}

func TestNewDB_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Runs().Save(sampleRun("a")))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.Runs().Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNewDB_WALMode(t *testing.T) {
	db := newTestDB(t)

	var mode string
	require.NoError(t, db.conn.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)
}
