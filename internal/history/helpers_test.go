package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/visitlog/internal/clock"
	"github.com/runnerr0/visitlog/internal/storage"
)

// newTestRecorder returns a recorder with a fake clock at t=0ms.
func newTestRecorder(t *testing.T, max int) (*Recorder, *storage.MemoryStore, *clock.Fake) {
	t.Helper()
	store := storage.NewMemoryStore()
	fake := clock.NewFake(time.UnixMilli(0))
	rec := NewRecorder(store, RecorderOptions{
		MaxVisitsPerChannel: max,
		DebounceWindow:      60 * time.Second,
		Clock:               fake,
	})
	return rec, store, fake
}

// storedLog decodes the raw blob under the default namespace key.
func storedLog(t *testing.T, store storage.Store) map[string][]int64 {
	t.Helper()
	data, err := store.Get(context.Background(), DefaultNamespaceKey)
	require.NoError(t, err)
	out := map[string][]int64{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// seedLog writes a visit log directly, bypassing the recorder.
func seedLog(t *testing.T, store storage.Store, log map[string][]int64) {
	t.Helper()
	data, err := json.Marshal(log)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), DefaultNamespaceKey, data))
}

// failingStore wraps a MemoryStore and fails the selected operations.
type failingStore struct {
	*storage.MemoryStore
	failGet bool
	failSet bool
}

var errBackend = errors.New("backend unavailable")

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errBackend
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errBackend
	}
	return f.MemoryStore.Set(ctx, key, value)
}
