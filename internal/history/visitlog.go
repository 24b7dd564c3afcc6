// Package history owns the visit log: the recorder is its only writer and
// the query engine reads it to build sorted, filtered pages.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/runnerr0/visitlog/internal/storage"
)

var (
	// ErrEmptyChannel is returned when a visit is recorded without a channel.
	ErrEmptyChannel = errors.New("channel id is empty")
	// ErrInvalidPageSize is returned by Query when pageSize < 1.
	ErrInvalidPageSize = errors.New("page size must be positive")
	// ErrChannelNotFound is returned by Detail for channels with no visits.
	ErrChannelNotFound = errors.New("channel not found")
)

// VisitLog maps a lower-case channel id to its visit timestamps in
// milliseconds since the epoch, oldest first.
type VisitLog map[string][]int64

// NormalizeChannel trims and lower-cases a channel id.
func NormalizeChannel(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// loadLog reads the log stored under key. A missing key is an empty log.
// The second result reports whether the stored form had to be normalized
// (case variants merged), meaning a save would change it.
func loadLog(ctx context.Context, store storage.Store, key string) (VisitLog, bool, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return VisitLog{}, false, nil
		}
		return nil, false, err
	}
	return decodeLog(data)
}

func decodeLog(data []byte) (VisitLog, bool, error) {
	raw := map[string][]int64{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, false, fmt.Errorf("decode visit log: %w", err)
		}
	}

	log := make(VisitLog, len(raw))
	changed := false
	for id, visits := range raw {
		norm := NormalizeChannel(id)
		if norm != id {
			changed = true
		}
		if norm == "" {
			continue
		}
		if existing, ok := log[norm]; ok {
			merged := append(append([]int64(nil), existing...), visits...)
			sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
			log[norm] = merged
			continue
		}
		log[norm] = visits
	}
	return log, changed, nil
}

func saveLog(ctx context.Context, store storage.Store, key string, log VisitLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode visit log: %w", err)
	}
	return store.Set(ctx, key, data)
}

// capVisits keeps the most recent max entries. It returns a fresh slice so
// the dropped prefix is not retained.
func capVisits(visits []int64, max int) []int64 {
	if max < 1 || len(visits) <= max {
		return visits
	}
	return append([]int64(nil), visits[len(visits)-max:]...)
}

func mostRecent(visits []int64) int64 {
	var latest int64
	for i, ts := range visits {
		if i == 0 || ts > latest {
			latest = ts
		}
	}
	return latest
}

func sortedDesc(visits []int64) []int64 {
	out := append([]int64(nil), visits...)
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
