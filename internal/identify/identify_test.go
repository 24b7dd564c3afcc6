package identify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/logging"
)

const channelPageHTML = `<html><body><main><div class="channel-root">stream</div></main></body></html>`

const playerPageHTML = `<html><body>
<div class="persistent-player"><div class="channel-info"><a href="/ninja">  Ninja </a></div></div>
<iframe src="https://player.twitch.tv/?channel=other&parent=example.com"></iframe>
</body></html>`

const embedOnlyHTML = `<html><body>
<iframe src="https://www.youtube.com/embed/xyz"></iframe>
<iframe src="https://player.twitch.tv/?channel=Pokimane&parent=example.com"></iframe>
</body></html>`

func newDefaultIdentifier() *Identifier {
	return NewFromConfig(config.DefaultConfig().Identify)
}

func mustPage(t *testing.T, rawURL, html string) Page {
	t.Helper()
	p, err := NewPage(rawURL, html)
	require.NoError(t, err)
	return p
}

func TestIdentify_PathHeuristic(t *testing.T) {
	id := newDefaultIdentifier()

	channel, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/Shroud", channelPageHTML))
	require.True(t, ok)
	assert.Equal(t, "shroud", channel)
}

func TestIdentify_PathRequiresMainContent(t *testing.T) {
	id := newDefaultIdentifier()

	_, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/shroud", "<html><body><div>loading</div></body></html>"))
	assert.False(t, ok)
}

func TestIdentify_ExcludedRoutesFallThrough(t *testing.T) {
	id := newDefaultIdentifier()

	for _, route := range config.DefaultExcludedRoutes() {
		_, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/"+route, channelPageHTML))
		assert.False(t, ok, "route %s", route)
	}

	_, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/Directory", channelPageHTML))
	assert.False(t, ok, "exclusion is case-insensitive")
}

func TestIdentify_MultiSegmentPathUsesDOM(t *testing.T) {
	id := newDefaultIdentifier()

	channel, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/directory/following", playerPageHTML))
	require.True(t, ok)
	assert.Equal(t, "ninja", channel, "selector text beats the embedded player")
}

func TestIdentify_SelectorPriority(t *testing.T) {
	html := `<html><body>
<p data-a-target="stream-title">Some Title</p>
<div class="metadata-layout__support"><a>Second</a></div>
</body></html>`
	id := newDefaultIdentifier()

	channel, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/directory", html))
	require.True(t, ok)
	assert.Equal(t, "second", channel)
}

func TestIdentify_SelectorSkipsEmptyText(t *testing.T) {
	html := `<html><body>
<div class="persistent-player"><div class="channel-info"><a>   </a></div></div>
<p data-a-target="stream-title">Title Text</p>
</body></html>`
	id := newDefaultIdentifier()

	channel, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/", html))
	require.True(t, ok)
	assert.Equal(t, "title text", channel)
}

func TestIdentify_EmbeddedPlayer(t *testing.T) {
	id := newDefaultIdentifier()

	channel, ok := id.Identify(context.Background(), mustPage(t, "https://example.com/watch/party", embedOnlyHTML))
	require.True(t, ok)
	assert.Equal(t, "pokimane", channel)
}

func TestIdentify_MalformedIframeIsLoggedNotFatal(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithContext(context.Background(), logging.New(logging.Options{Format: "json", Out: &buf}))
	html := `<html><body><iframe src="https://player.twitch.tv/%zz?channel=x"></iframe></body></html>`

	_, ok := newDefaultIdentifier().Identify(ctx, mustPage(t, "https://example.com/", html))
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "error parsing iframe url")
}

func TestIdentify_NothingFound(t *testing.T) {
	_, ok := newDefaultIdentifier().Identify(context.Background(), mustPage(t, "https://www.twitch.tv/directory", "<html><body></body></html>"))
	assert.False(t, ok)

	_, ok = newDefaultIdentifier().Identify(context.Background(), Page{})
	assert.False(t, ok)
}

func TestIdentify_Idempotent(t *testing.T) {
	id := newDefaultIdentifier()
	page := mustPage(t, "https://www.twitch.tv/directory/following", playerPageHTML)

	first, ok1 := id.Identify(context.Background(), page)
	second, ok2 := id.Identify(context.Background(), page)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

type fixedStrategy struct{ id string }

func (f fixedStrategy) Name() string { return "fixed" }

func (f fixedStrategy) Resolve(context.Context, Page) (string, bool) { return f.id, f.id != "" }

func TestIdentify_CustomStrategyOrder(t *testing.T) {
	id := New(fixedStrategy{}, fixedStrategy{id: "custom"}, NewPathStrategy(nil))

	channel, ok := id.Identify(context.Background(), mustPage(t, "https://www.twitch.tv/shroud", channelPageHTML))
	require.True(t, ok)
	assert.Equal(t, "custom", channel)
	assert.Equal(t, []string{"fixed", "fixed", "path"}, id.Strategies())
}

func TestIsChannelRoute(t *testing.T) {
	s := NewPathStrategy(config.DefaultExcludedRoutes())

	assert.True(t, s.IsChannelRoute("/shroud"))
	assert.True(t, s.IsChannelRoute("/Summit1G/videos"))
	assert.False(t, s.IsChannelRoute("/"))
	assert.False(t, s.IsChannelRoute("/directory"))
	assert.False(t, s.IsChannelRoute("/Settings/profile"))
	assert.False(t, s.IsChannelRoute("/some-name"))
	assert.False(t, s.IsChannelRoute(""))
}

func TestChannelFromEmbedSrc(t *testing.T) {
	tests := []struct {
		src     string
		want    string
		wantErr bool
	}{
		{"https://player.twitch.tv/?channel=XQC&parent=a.com", "xqc", false},
		{"//player.twitch.tv/?channel=lirik", "lirik", false},
		{"https://player.twitch.tv/?video=123", "", false},
		{"/relative/player?channel=x", "", true},
		{"https://player.twitch.tv/%zz", "", true},
	}

	for _, tc := range tests {
		got, err := ChannelFromEmbedSrc(tc.src)
		if tc.wantErr {
			assert.Error(t, err, tc.src)
			continue
		}
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, got, tc.src)
	}
}

func TestNewPage_NoHTML(t *testing.T) {
	p, err := NewPage("https://www.twitch.tv/shroud", "")
	require.NoError(t, err)
	assert.Nil(t, p.Doc)
	assert.Equal(t, "/shroud", p.Path())
}

func TestNewPage_BadURL(t *testing.T) {
	_, err := NewPage("http://[::1", "")
	assert.Error(t, err)
}
