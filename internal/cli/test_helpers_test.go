package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/logging"
	"github.com/runnerr0/visitlog/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestApp returns an app over a migrated in-memory SQLite database.
func newTestApp(t *testing.T) *app {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())
	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := logging.WithContext(context.Background(), zerolog.Nop())
	return newApp(ctx, config.DefaultConfig(), store, ":memory:")
}

// seedHistory writes visits directly into the log.
func seedHistory(t *testing.T, a *app, visits map[string][]int64) {
	t.Helper()
	data, err := json.Marshal(visits)
	require.NoError(t, err)
	require.NoError(t, a.store.Set(context.Background(), a.cfg.History.NamespaceKey, data))
}

// storedHistory reads the log back, returning an empty map when absent.
func storedHistory(t *testing.T, a *app) map[string][]int64 {
	t.Helper()
	out := map[string][]int64{}
	data, err := a.store.Get(context.Background(), a.cfg.History.NamespaceKey)
	if err == storage.ErrNotFound {
		return out
	}
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}
