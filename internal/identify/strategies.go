package identify

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/runnerr0/visitlog/internal/logging"
)

var channelSegment = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// PathStrategy resolves /<channel> URLs, skipping the platform's reserved
// top-level routes.
type PathStrategy struct {
	excluded map[string]struct{}
}

func NewPathStrategy(excluded []string) *PathStrategy {
	s := &PathStrategy{excluded: make(map[string]struct{}, len(excluded))}
	for _, r := range excluded {
		s.excluded[strings.ToLower(r)] = struct{}{}
	}
	return s
}

func (s *PathStrategy) Name() string { return "path" }

// Resolve accepts a single-segment path that is not a reserved route, and
// only when the document has rendered its main content region.
func (s *PathStrategy) Resolve(_ context.Context, page Page) (string, bool) {
	path := page.Path()
	if !strings.HasPrefix(path, "/") || strings.Count(path, "/") != 1 {
		return "", false
	}
	segment := strings.ToLower(path[1:])
	if segment == "" || s.isExcluded(segment) {
		return "", false
	}
	if page.Doc == nil || page.Doc.Find("main").Length() == 0 {
		return "", false
	}
	return segment, true
}

// IsChannelRoute reports whether path's first segment looks like a channel
// name. Deeper paths such as /name/videos still count.
func (s *PathStrategy) IsChannelRoute(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || !channelSegment.MatchString(parts[1]) {
		return false
	}
	return !s.isExcluded(strings.ToLower(parts[1]))
}

func (s *PathStrategy) isExcluded(segment string) bool {
	_, ok := s.excluded[segment]
	return ok
}

// SelectorStrategy reads the channel name from the first selector, in
// priority order, that matches an element with text.
type SelectorStrategy struct {
	selectors []string
}

func NewSelectorStrategy(selectors []string) *SelectorStrategy {
	return &SelectorStrategy{selectors: append([]string(nil), selectors...)}
}

func (s *SelectorStrategy) Name() string { return "selector" }

func (s *SelectorStrategy) Resolve(_ context.Context, page Page) (string, bool) {
	if page.Doc == nil {
		return "", false
	}
	for _, sel := range s.selectors {
		text := strings.TrimSpace(page.Doc.Find(sel).First().Text())
		if text != "" {
			return strings.ToLower(text), true
		}
	}
	return "", false
}

// EmbedStrategy reads the channel query parameter of an embedded player
// iframe served from host.
type EmbedStrategy struct {
	host string
}

func NewEmbedStrategy(host string) *EmbedStrategy {
	return &EmbedStrategy{host: host}
}

func (s *EmbedStrategy) Name() string { return "embed" }

func (s *EmbedStrategy) Resolve(ctx context.Context, page Page) (string, bool) {
	if page.Doc == nil || s.host == "" {
		return "", false
	}
	src, ok := page.Doc.Find(`iframe[src*="` + s.host + `"]`).First().Attr("src")
	if !ok {
		return "", false
	}
	return ResolveEmbed(ctx, src)
}

// ResolveEmbed extracts the channel from an embedded player src, logging
// and swallowing parse failures.
func ResolveEmbed(ctx context.Context, src string) (string, bool) {
	channel, err := ChannelFromEmbedSrc(src)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("src", logging.TruncateURL(src, 120)).Msg("error parsing iframe url")
		return "", false
	}
	return channel, channel != ""
}

// ChannelFromEmbedSrc returns the lower-cased channel query parameter of an
// embedded player URL. Protocol-relative sources are read as https. It
// returns "" with a nil error when the URL carries no channel.
func ChannelFromEmbedSrc(src string) (string, error) {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	u, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("embed src %q is not an absolute url", src)
	}
	return strings.ToLower(strings.TrimSpace(u.Query().Get("channel"))), nil
}
