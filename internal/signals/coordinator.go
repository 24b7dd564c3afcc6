package signals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/visitlog/internal/clock"
	"github.com/runnerr0/visitlog/internal/history"
	"github.com/runnerr0/visitlog/internal/identify"
	"github.com/runnerr0/visitlog/internal/logging"
)

// ErrClosed is returned by Handle after Close.
var ErrClosed = errors.New("coordinator closed")

// Recorder is the write side the coordinator feeds.
type Recorder interface {
	RecordVisit(ctx context.Context, channelID string) (history.Outcome, error)
}

// Identifier resolves a channel from a page snapshot.
type Identifier interface {
	Identify(ctx context.Context, page identify.Page) (string, bool)
}

// RouteMatcher reports whether a URL path looks like a channel page.
type RouteMatcher interface {
	IsChannelRoute(path string) bool
}

// Options wires a Coordinator.
type Options struct {
	Identifier Identifier
	Routes     RouteMatcher
	Recorder   Recorder
	Clock      clock.Clock
	Delays     Delays
}

type tabState struct {
	page    identify.Page
	lastURL string
	preview *PreviewWatcher
}

// Coordinator keeps per-tab page state and schedules the load, playback,
// preview and navigation triggers. It never writes storage itself.
type Coordinator struct {
	ctx    context.Context
	ident  Identifier
	routes RouteMatcher
	rec    Recorder
	clock  clock.Clock
	delays Delays

	mu      sync.Mutex
	tabs    map[string]*tabState
	timers  map[int]clock.Timer
	nextID  int
	closed  bool
	pending sync.WaitGroup
}

// NewCoordinator creates a Coordinator. ctx supplies the logger used by
// triggers that fire after the originating request has returned.
func NewCoordinator(ctx context.Context, opts Options) *Coordinator {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Coordinator{
		ctx:    logging.WithComponent(ctx, "signals"),
		ident:  opts.Identifier,
		routes: opts.Routes,
		rec:    opts.Recorder,
		clock:  clk,
		delays: opts.Delays,
		tabs:   make(map[string]*tabState),
		timers: make(map[int]clock.Timer),
	}
}

// Handle applies one signal: it refreshes the tab's page snapshot and
// schedules whichever triggers the signal starts. It returns once the
// triggers are scheduled; visits are recorded when they fire.
func (c *Coordinator) Handle(ctx context.Context, sig Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}

	var page identify.Page
	if sig.URL != "" || sig.HTML != "" {
		p, err := identify.NewPage(sig.URL, sig.HTML)
		if err != nil {
			return fmt.Errorf("signal %s: %w", sig.ID, err)
		}
		page = p
	}

	signalsTotal.WithLabelValues(string(sig.Kind)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	log := logging.FromContext(logging.WithTabID(ctx, sig.Tab)).With().Str("signal_id", sig.ID).Str("kind", string(sig.Kind)).Logger()

	if sig.Kind == KindUnload {
		if tab, ok := c.tabs[sig.Tab]; ok {
			tab.preview.Stop()
			delete(c.tabs, sig.Tab)
		}
		log.Debug().Msg("tab state dropped")
		return nil
	}

	tab := c.tabLocked(sig.Tab)
	if page.URL != nil {
		tab.page.URL = page.URL
	}
	if page.Doc != nil {
		tab.page.Doc = page.Doc
	}

	navigated := false
	if sig.URL != "" {
		navigated = tab.lastURL != "" && sig.URL != tab.lastURL
		tab.lastURL = sig.URL
	}

	switch sig.Kind {
	case KindLoad:
		if c.routes == nil || c.routes.IsChannelRoute(tab.page.Path()) {
			c.scheduleLocked(sig.Tab, "load", c.delays.Load)
		}
	case KindPlay:
		c.scheduleLocked(sig.Tab, "play", c.delays.Play)
	case KindPlaying:
		c.scheduleLocked(sig.Tab, "sweep", c.delays.Sweep)
	case KindPreview:
		tab.preview.Update(c.ctx, sig.Preview.Visible, sig.Preview.IframeSrc)
	}

	if navigated && sig.Kind != KindLoad {
		c.scheduleLocked(sig.Tab, "navigate", c.delays.Navigate)
	}

	log.Debug().Bool("navigated", navigated).Msg("signal handled")
	return nil
}

func (c *Coordinator) tabLocked(id string) *tabState {
	tab, ok := c.tabs[id]
	if !ok {
		tab = &tabState{}
		tab.preview = NewPreviewWatcher(c.clock, c.delays.PreviewSustain, func(channel string) {
			c.confirmPreview(id, channel)
		})
		c.tabs[id] = tab
	}
	return tab
}

func (c *Coordinator) scheduleLocked(tabID, trigger string, delay time.Duration) {
	c.nextID++
	id := c.nextID
	c.pending.Add(1)
	c.timers[id] = c.clock.AfterFunc(delay, func() {
		defer c.pending.Done()
		c.fire(id, tabID, trigger)
	})
}

// fire identifies the channel from the tab's current snapshot, which may be
// newer than the one that scheduled the trigger.
func (c *Coordinator) fire(timerID int, tabID, trigger string) {
	c.mu.Lock()
	delete(c.timers, timerID)
	tab, ok := c.tabs[tabID]
	if c.closed || !ok {
		c.mu.Unlock()
		return
	}
	page := tab.page
	c.mu.Unlock()

	channel, found := c.ident.Identify(c.ctx, page)
	if !found {
		logging.FromContext(logging.WithTabID(c.ctx, tabID)).Debug().Str("trigger", trigger).Msg("no channel identified")
		return
	}
	c.record(tabID, trigger, channel)
}

// confirmPreview records a confirmed preview. It joins the pending group so
// Close waits for a confirmation that is already recording.
func (c *Coordinator) confirmPreview(tabID, channel string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending.Add(1)
	c.mu.Unlock()
	defer c.pending.Done()

	c.record(tabID, "preview", channel)
}

func (c *Coordinator) record(tabID, trigger, channel string) {
	ctx := logging.WithTabID(c.ctx, tabID)
	log := logging.FromContext(ctx)
	outcome, err := c.rec.RecordVisit(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("trigger", trigger).Str("channel", channel).Msg("visit lost")
		return
	}
	triggersTotal.WithLabelValues(trigger, outcome.String()).Inc()
	log.Debug().Str("trigger", trigger).Str("channel", channel).Stringer("outcome", outcome).Msg("trigger fired")
}

// Tabs returns the number of tabs with state.
func (c *Coordinator) Tabs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tabs)
}

// Pending returns the number of scheduled triggers that have not fired.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Close stops every pending trigger and preview confirmation, then waits for
// triggers and confirmations already recording. Signals handled afterwards
// return ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, t := range c.timers {
		if t.Stop() {
			c.pending.Done()
		}
		delete(c.timers, id)
	}
	for _, tab := range c.tabs {
		tab.preview.Stop()
	}
	c.mu.Unlock()

	c.pending.Wait()
}
