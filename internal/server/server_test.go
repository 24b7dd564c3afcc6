package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/visitlog/internal/clock"
	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/history"
	"github.com/runnerr0/visitlog/internal/signals"
	"github.com/runnerr0/visitlog/internal/storage"
)

type fakeHandler struct {
	mu   sync.Mutex
	sigs []signals.Signal
	err  error
}

func (f *fakeHandler) Handle(_ context.Context, sig signals.Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sigs = append(f.sigs, sig)
	return nil
}

func (f *fakeHandler) received() []signals.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]signals.Signal(nil), f.sigs...)
}

type testEnv struct {
	srv      *Server
	handler  *fakeHandler
	recorder *history.Recorder
	clock    *clock.Fake
}

func newTestEnv(t *testing.T, mutate func(*config.DaemonConfig)) *testEnv {
	t.Helper()
	daemon := config.DefaultConfig().Daemon
	if mutate != nil {
		mutate(&daemon)
	}
	store := storage.NewMemoryStore()
	fake := clock.NewFake(time.UnixMilli(1_000_000))
	handler := &fakeHandler{}
	srv := New(Deps{
		Signals:  handler,
		History:  history.NewEngine(store, history.EngineOptions{}),
		Daemon:   daemon,
		PageSize: 10,
		Version:  "test",
	})
	return &testEnv{
		srv:      srv,
		handler:  handler,
		recorder: history.NewRecorder(store, history.RecorderOptions{Clock: fake}),
		clock:    fake,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) visit(t *testing.T, channel string, at time.Duration) {
	t.Helper()
	e.clock.Set(time.UnixMilli(0).Add(at))
	_, err := e.recorder.RecordVisit(context.Background(), channel)
	require.NoError(t, err)
}

func TestPostSignal_Accepted(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/signals", `{"tab":"7","kind":"load","url":"https://www.twitch.tv/shroud","html":"<main></main>"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"accepted":true}`, w.Body.String())

	got := env.handler.received()
	require.Len(t, got, 1)
	assert.Equal(t, signals.KindLoad, got[0].Kind)
	assert.Equal(t, "7", got[0].Tab)
}

func TestPostSignal_BadInput(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/signals", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/signals", `{"tab":"1","kind":"hover"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/signals", `{"kind":"play"}`).Code)
	assert.Empty(t, env.handler.received())
}

func TestPostSignal_Closed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.handler.err = signals.ErrClosed

	w := env.do(t, http.MethodPost, "/signals", `{"tab":"1","kind":"play"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPostSignal_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *config.DaemonConfig) {
		d.RateLimit = 0.001
		d.RateBurst = 2
	})

	body := `{"tab":"1","kind":"play"}`
	assert.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/signals", body).Code)
	assert.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/signals", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/signals", body).Code)

	// Queries are not rate limited.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/history", "").Code)
}

func TestPostSignal_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(d *config.DaemonConfig) {
		d.MaxRequestSize = 64
	})

	body := `{"tab":"1","kind":"play","html":"` + strings.Repeat("x", 200) + `"}`
	w := env.do(t, http.MethodPost, "/signals", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, env.handler.received())
}

func TestPostSignal_ChunkedBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(d *config.DaemonConfig) {
		d.MaxRequestSize = 64
	})

	body := `{"tab":"1","kind":"play","html":"` + strings.Repeat("x", 200) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large")
	assert.Empty(t, env.handler.received())
}

func TestGetHistory_Pagination(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 25; i++ {
		env.visit(t, "chan"+string(rune('a'+i)), time.Duration(i)*time.Minute)
	}

	w := env.do(t, http.MethodGet, "/history?page=3", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page history.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.PageNumber)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.TotalMatches)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "chane", page.Items[0].ChannelID)
	assert.Equal(t, "chana", page.Items[4].ChannelID)
}

func TestGetHistory_SearchAndSize(t *testing.T) {
	env := newTestEnv(t, nil)
	env.visit(t, "shroud", time.Minute)
	env.visit(t, "summit1g", 2*time.Minute)
	env.visit(t, "lirik", 3*time.Minute)

	w := env.do(t, http.MethodGet, "/history?q=+S+&size=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page history.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "s", page.Search)
	assert.Equal(t, 2, page.TotalMatches)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "summit1g", page.Items[0].ChannelID)
}

func TestGetHistory_BadParams(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/history?page=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/history?size=0", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/history?page=0", "").Code)
}

func TestGetChannel(t *testing.T) {
	env := newTestEnv(t, nil)
	env.visit(t, "shroud", 0)
	env.visit(t, "shroud", 2*time.Minute)

	w := env.do(t, http.MethodGet, "/history/Shroud", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"channel":"shroud","visits":[120000,0]}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/history/nobody", "").Code)
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.visit(t, "shroud", 0)

	w := env.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Version string        `json:"version"`
		History history.Stats `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 1, body.History.Channels)
	assert.Equal(t, 1, body.History.TotalVisits)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/signals", `{not json`)

	w := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "visitlog_signals_rejected_total")
}

func TestAddr(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, "127.0.0.1:8722", env.srv.Addr())
}
