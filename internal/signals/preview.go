package signals

import (
	"context"
	"sync"
	"time"

	"github.com/runnerr0/visitlog/internal/clock"
	"github.com/runnerr0/visitlog/internal/identify"
)

// PreviewPhase is the state of a PreviewWatcher.
type PreviewPhase int

const (
	PreviewHidden PreviewPhase = iota
	PreviewAppearing
	PreviewConfirmed
	PreviewCancelled
)

func (p PreviewPhase) String() string {
	switch p {
	case PreviewAppearing:
		return "appearing"
	case PreviewConfirmed:
		return "confirmed"
	case PreviewCancelled:
		return "cancelled"
	default:
		return "hidden"
	}
}

// PreviewWatcher confirms a hover preview once it has stayed visible for the
// sustain delay. Hiding it before then cancels the pending confirmation.
type PreviewWatcher struct {
	clock     clock.Clock
	sustain   time.Duration
	onConfirm func(channel string)

	mu      sync.Mutex
	phase   PreviewPhase
	channel string
	timer   clock.Timer
	gen     int
}

// NewPreviewWatcher returns a watcher in the hidden phase. onConfirm runs on
// the timer's goroutine without the watcher lock held.
func NewPreviewWatcher(clk clock.Clock, sustain time.Duration, onConfirm func(channel string)) *PreviewWatcher {
	return &PreviewWatcher{clock: clk, sustain: sustain, onConfirm: onConfirm}
}

// Update feeds one observation of the preview container.
func (w *PreviewWatcher) Update(ctx context.Context, visible bool, iframeSrc string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !visible {
		switch w.phase {
		case PreviewAppearing:
			w.stopLocked()
			w.phase = PreviewCancelled
		case PreviewConfirmed:
			w.phase = PreviewHidden
		}
		return
	}

	channel, ok := identify.ResolveEmbed(ctx, iframeSrc)
	if !ok {
		return
	}

	switch w.phase {
	case PreviewAppearing, PreviewConfirmed:
		if channel == w.channel {
			return
		}
		w.stopLocked()
	}

	w.phase = PreviewAppearing
	w.channel = channel
	w.gen++
	gen := w.gen
	w.timer = w.clock.AfterFunc(w.sustain, func() { w.expire(gen) })
}

func (w *PreviewWatcher) expire(gen int) {
	w.mu.Lock()
	if gen != w.gen || w.phase != PreviewAppearing {
		w.mu.Unlock()
		return
	}
	w.phase = PreviewConfirmed
	w.timer = nil
	channel := w.channel
	w.mu.Unlock()

	w.onConfirm(channel)
}

// Stop cancels any pending confirmation.
func (w *PreviewWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.phase == PreviewAppearing {
		w.phase = PreviewCancelled
	}
	w.stopLocked()
}

func (w *PreviewWatcher) stopLocked() {
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Phase returns the current phase and channel.
func (w *PreviewWatcher) Phase() (PreviewPhase, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase, w.channel
}
