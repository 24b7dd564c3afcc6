// Package render turns a history page into a presentation-agnostic view and
// draws that view for a terminal.
package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/visitlog/internal/history"
)

const (
	// DefaultChannelURLBase prefixes a channel id to form its link.
	DefaultChannelURLBase = "https://twitch.tv/"

	EmptyTitle    = "No history yet"
	EmptySubtitle = "Visit some Twitch channels to see them here"
)

var agoMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "Just now", DivBy: time.Second},
	{D: time.Hour, Format: "%dm %s", DivBy: time.Minute},
	{D: 24 * time.Hour, Format: "%dh %s", DivBy: time.Hour},
	{D: 7 * 24 * time.Hour, Format: "%dd %s", DivBy: 24 * time.Hour},
	{D: math.MaxInt64, Format: "%dw %s", DivBy: 7 * 24 * time.Hour},
}

// Card describes one channel entry.
type Card struct {
	Initial    string   `json:"initial"`
	Channel    string   `json:"channel"`
	TimeAgo    string   `json:"time_ago"`
	VisitCount int      `json:"visit_count"`
	Recent     []string `json:"recent"`
	URL        string   `json:"url"`
}

// EmptyState is shown instead of cards when there is nothing to list.
type EmptyState struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// View is everything needed to draw one history page.
type View struct {
	Cards      []Card      `json:"cards"`
	Empty      *EmptyState `json:"empty,omitempty"`
	Search     string      `json:"search,omitempty"`
	PageNumber int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Footer     string      `json:"footer,omitempty"`
}

// Options adjusts Build. The zero value uses DefaultChannelURLBase.
type Options struct {
	ChannelURLBase string
}

// Build describes page as seen at now. It has no side effects.
func Build(page history.Page, now time.Time, opts Options) View {
	base := opts.ChannelURLBase
	if base == "" {
		base = DefaultChannelURLBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	v := View{
		Cards:      make([]Card, 0, len(page.Items)),
		Search:     page.Search,
		PageNumber: page.PageNumber,
		TotalPages: page.TotalPages,
	}

	switch {
	case page.TotalChannels == 0:
		v.Empty = &EmptyState{Title: EmptyTitle, Subtitle: EmptySubtitle}
		return v
	case page.TotalMatches == 0:
		v.Empty = &EmptyState{Title: fmt.Sprintf("No channels match %q", page.Search)}
		return v
	}

	for _, item := range page.Items {
		v.Cards = append(v.Cards, buildCard(item, now, base))
	}
	if page.TotalPages > 0 {
		v.Footer = fmt.Sprintf("Page %d of %d", page.PageNumber, page.TotalPages)
	}
	return v
}

func buildCard(item history.ChannelSummary, now time.Time, base string) Card {
	recent := make([]string, 0, len(item.Recent))
	for _, ts := range item.Recent {
		recent = append(recent, VisitLabel(time.UnixMilli(ts), now))
	}
	return Card{
		Initial:    initial(item.ChannelID),
		Channel:    item.ChannelID,
		TimeAgo:    TimeAgo(time.UnixMilli(item.MostRecent), now),
		VisitCount: item.VisitCount,
		Recent:     recent,
		URL:        base + item.ChannelID,
	}
}

// TimeAgo formats the age of then relative to now, flooring to whole units.
// Times in the future read as "Just now".
func TimeAgo(then, now time.Time) string {
	if then.After(now) {
		then = now
	}
	return humanize.CustomRelTime(then, now, "ago", "from now", agoMagnitudes)
}

// VisitLabel formats a visit as a clock time when it falls on now's
// calendar day, and with the month and day otherwise.
func VisitLabel(visit, now time.Time) string {
	visit = visit.In(now.Location())
	vy, vm, vd := visit.Date()
	ny, nm, nd := now.Date()
	if vy == ny && vm == nm && vd == nd {
		return visit.Format("03:04 PM")
	}
	return visit.Format("Jan 2 at 03:04 PM")
}

func initial(channel string) string {
	for _, r := range channel {
		return strings.ToUpper(string(r))
	}
	return "?"
}
