// Package signals turns page events from a browser tab into visit attempts.
//
// Each trigger waits a settle delay, identifies the channel from the tab's
// latest page snapshot and hands it to the recorder. Overlapping triggers
// for the same channel collapse in the recorder's debounce window.
package signals

import (
	"fmt"
	"time"

	"github.com/runnerr0/visitlog/internal/config"
)

// Kind names the event that produced a signal.
type Kind string

const (
	// KindLoad is sent once when the content script starts on a page.
	KindLoad Kind = "load"
	// KindPlay is sent when a media element starts playing.
	KindPlay Kind = "play"
	// KindPlaying is the startup sweep for media already playing.
	KindPlaying Kind = "playing"
	// KindPreview reports the hover preview container's visibility.
	KindPreview Kind = "preview"
	// KindNavigate is sent when the document observer sees a location change.
	KindNavigate Kind = "navigate"
	// KindUnload drops all state for the tab.
	KindUnload Kind = "unload"
)

// Preview is the observed state of the hover preview container.
type Preview struct {
	Visible   bool   `json:"visible"`
	IframeSrc string `json:"iframe_src,omitempty"`
}

// Signal is one event from a tab. HTML is a snapshot of the document at the
// time of the event and may be omitted when unchanged.
type Signal struct {
	ID      string   `json:"id,omitempty"`
	Tab     string   `json:"tab"`
	Kind    Kind     `json:"kind"`
	URL     string   `json:"url,omitempty"`
	HTML    string   `json:"html,omitempty"`
	Preview *Preview `json:"preview,omitempty"`
}

// Validate checks the fields each kind depends on.
func (s Signal) Validate() error {
	if s.Tab == "" {
		return fmt.Errorf("signal has no tab")
	}
	switch s.Kind {
	case KindLoad, KindNavigate:
		if s.URL == "" {
			return fmt.Errorf("%s signal requires url", s.Kind)
		}
	case KindPreview:
		if s.Preview == nil {
			return fmt.Errorf("preview signal requires preview state")
		}
	case KindPlay, KindPlaying, KindUnload:
	default:
		return fmt.Errorf("unknown signal kind %q", s.Kind)
	}
	return nil
}

// Delays holds the settle delay for each trigger.
type Delays struct {
	Load           time.Duration
	Play           time.Duration
	Sweep          time.Duration
	PreviewSustain time.Duration
	Navigate       time.Duration
}

// DefaultDelays returns 2s load, 1s play, 3s sweep, 3s preview, 2s navigate.
func DefaultDelays() Delays {
	return DelaysFromConfig(config.DefaultConfig().Signals)
}

func DelaysFromConfig(cfg config.SignalsConfig) Delays {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return Delays{
		Load:           ms(cfg.LoadDelayMs),
		Play:           ms(cfg.PlayDelayMs),
		Sweep:          ms(cfg.SweepDelayMs),
		PreviewSustain: ms(cfg.PreviewSustainMs),
		Navigate:       ms(cfg.NavigateDelayMs),
	}
}
