package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runnerr0/visitlog/internal/storage"
)

const DefaultRecentDisplay = 5

// ChannelSummary is one row of a history page.
type ChannelSummary struct {
	ChannelID  string  `json:"channel"`
	VisitCount int     `json:"visit_count"`
	MostRecent int64   `json:"most_recent"`
	Recent     []int64 `json:"recent"`
}

// Page is a slice of the sorted, filtered channel list. It is rebuilt on
// every query.
type Page struct {
	Items         []ChannelSummary `json:"items"`
	PageNumber    int              `json:"page"`
	PageSize      int              `json:"page_size"`
	TotalPages    int              `json:"total_pages"`
	TotalMatches  int              `json:"total_matches"`
	TotalChannels int              `json:"total_channels"`
	Search        string           `json:"search,omitempty"`
}

// ChannelCount pairs a channel with its stored visit count.
type ChannelCount struct {
	ChannelID string `json:"channel"`
	Count     int    `json:"count"`
}

// Stats holds aggregate figures about the visit log.
type Stats struct {
	Channels    int            `json:"channels"`
	TotalVisits int            `json:"total_visits"`
	OldestVisit int64          `json:"oldest_visit,omitempty"`
	NewestVisit int64          `json:"newest_visit,omitempty"`
	TopChannels []ChannelCount `json:"top_channels"`
}

// EngineOptions configures an Engine. Zero values take the defaults.
type EngineOptions struct {
	NamespaceKey  string
	RecentDisplay int
}

// Engine answers read-only queries over the visit log.
type Engine struct {
	store         storage.Store
	key           string
	recentDisplay int
}

// NewEngine creates a query Engine over store.
func NewEngine(store storage.Store, opts EngineOptions) *Engine {
	e := &Engine{store: store, key: opts.NamespaceKey, recentDisplay: opts.RecentDisplay}
	if e.key == "" {
		e.key = DefaultNamespaceKey
	}
	if e.recentDisplay < 1 {
		e.recentDisplay = DefaultRecentDisplay
	}
	return e
}

// Query returns page pageNumber (1-based) of the channels whose id contains
// searchTerm, case-insensitively, ordered by most recent visit. Channels with
// the same most recent visit are ordered by id. A page outside
// 1..TotalPages has no items.
func (e *Engine) Query(ctx context.Context, searchTerm string, pageNumber, pageSize int) (Page, error) {
	if pageSize < 1 {
		return Page{}, ErrInvalidPageSize
	}

	timer := prometheus.NewTimer(queryDuration.WithLabelValues("page"))
	defer timer.ObserveDuration()

	visits, _, err := loadLog(ctx, e.store, e.key)
	if err != nil {
		return Page{}, fmt.Errorf("load visit log: %w", err)
	}

	all := summarize(visits)
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	matches := all
	if term != "" {
		matches = make([]ChannelSummary, 0, len(all))
		for _, s := range all {
			if strings.Contains(s.ChannelID, term) {
				matches = append(matches, s)
			}
		}
	}

	page := Page{
		Items:         []ChannelSummary{},
		PageNumber:    pageNumber,
		PageSize:      pageSize,
		TotalPages:    pageCount(len(matches), pageSize),
		TotalMatches:  len(matches),
		TotalChannels: len(all),
		Search:        term,
	}

	if pageNumber < 1 || pageNumber > page.TotalPages {
		return page, nil
	}

	start := (pageNumber - 1) * pageSize
	end := len(matches)
	if pageSize < end-start {
		end = start + pageSize
	}

	for _, s := range matches[start:end] {
		recent := sortedDesc(visits[s.ChannelID])
		if len(recent) > e.recentDisplay {
			recent = recent[:e.recentDisplay]
		}
		s.Recent = recent
		page.Items = append(page.Items, s)
	}

	return page, nil
}

// Detail returns every stored visit for channelID, newest first.
func (e *Engine) Detail(ctx context.Context, channelID string) ([]int64, error) {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues("detail"))
	defer timer.ObserveDuration()

	visits, _, err := loadLog(ctx, e.store, e.key)
	if err != nil {
		return nil, fmt.Errorf("load visit log: %w", err)
	}

	seq, ok := visits[NormalizeChannel(channelID)]
	if !ok || len(seq) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	return sortedDesc(seq), nil
}

// Stats summarizes the log. TopChannels holds up to 10 channels by visit
// count.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues("stats"))
	defer timer.ObserveDuration()

	visits, _, err := loadLog(ctx, e.store, e.key)
	if err != nil {
		return nil, fmt.Errorf("load visit log: %w", err)
	}

	stats := &Stats{Channels: len(visits), TopChannels: []ChannelCount{}}
	first := true
	for id, seq := range visits {
		stats.TotalVisits += len(seq)
		for _, ts := range seq {
			if first || ts < stats.OldestVisit {
				stats.OldestVisit = ts
			}
			if first || ts > stats.NewestVisit {
				stats.NewestVisit = ts
			}
			first = false
		}
		stats.TopChannels = append(stats.TopChannels, ChannelCount{ChannelID: id, Count: len(seq)})
	}

	sort.Slice(stats.TopChannels, func(i, j int) bool {
		a, b := stats.TopChannels[i], stats.TopChannels[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ChannelID < b.ChannelID
	})
	if len(stats.TopChannels) > 10 {
		stats.TopChannels = stats.TopChannels[:10]
	}

	return stats, nil
}

// summarize builds one summary per channel, sorted by most recent visit
// descending and then by channel id.
func summarize(visits VisitLog) []ChannelSummary {
	out := make([]ChannelSummary, 0, len(visits))
	for id, seq := range visits {
		out = append(out, ChannelSummary{
			ChannelID:  id,
			VisitCount: len(seq),
			MostRecent: mostRecent(seq),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MostRecent != out[j].MostRecent {
			return out[i].MostRecent > out[j].MostRecent
		}
		return out[i].ChannelID < out[j].ChannelID
	})
	return out
}

// pageCount is ceil(n / size) without the overflow of (n+size-1)/size.
func pageCount(n, size int) int {
	pages := n / size
	if n%size != 0 {
		pages++
	}
	return pages
}
