package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/runnerr0/visitlog/internal/clock"
	"github.com/runnerr0/visitlog/internal/logging"
	"github.com/runnerr0/visitlog/internal/storage"
)

const (
	DefaultNamespaceKey        = "history"
	DefaultMaxVisitsPerChannel = 100
	DefaultDebounceWindow      = 60 * time.Second
)

// Outcome describes what RecordVisit did with a visit attempt.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeRecorded
	OutcomeDebounced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDebounced:
		return "debounced"
	default:
		return "rejected"
	}
}

// RecorderOptions configures a Recorder. Zero values take the defaults.
type RecorderOptions struct {
	NamespaceKey        string
	MaxVisitsPerChannel int
	DebounceWindow      time.Duration
	Clock               clock.Clock
}

// Recorder appends debounced, capped visit timestamps to the log. It is the
// only component that writes the log.
//
// The load-decide-save sequence runs under a mutex, so two visits for the
// same channel inside the window collapse even when they race. The whole log
// is one blob, which is why the lock is global rather than per channel.
type Recorder struct {
	store  storage.Store
	key    string
	max    int
	window time.Duration
	clock  clock.Clock

	mu sync.Mutex
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store storage.Store, opts RecorderOptions) *Recorder {
	r := &Recorder{
		store:  store,
		key:    opts.NamespaceKey,
		max:    opts.MaxVisitsPerChannel,
		window: opts.DebounceWindow,
		clock:  opts.Clock,
	}
	if r.key == "" {
		r.key = DefaultNamespaceKey
	}
	if r.max < 1 {
		r.max = DefaultMaxVisitsPerChannel
	}
	if r.window <= 0 {
		r.window = DefaultDebounceWindow
	}
	if r.clock == nil {
		r.clock = clock.Real{}
	}
	return r
}

// RecordVisit appends the current time to channelID's visits unless the
// previous visit is within the debounce window. Exactly one storage write
// happens for a recorded visit and none otherwise.
func (r *Recorder) RecordVisit(ctx context.Context, channelID string) (Outcome, error) {
	id := NormalizeChannel(channelID)
	if id == "" {
		return OutcomeRejected, ErrEmptyChannel
	}

	log := logging.FromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	visits, _, err := loadLog(ctx, r.store, r.key)
	if err != nil {
		recordErrorsTotal.Inc()
		return OutcomeRejected, fmt.Errorf("load visit log: %w", err)
	}

	now := r.clock.Now().UnixMilli()
	seq := visits[id]
	if n := len(seq); n > 0 && now-seq[n-1] <= r.window.Milliseconds() {
		visitsDebouncedTotal.Inc()
		log.Debug().Str("channel", id).Int64("last", seq[n-1]).Msg("visit debounced")
		return OutcomeDebounced, nil
	}

	seq = append(seq, now)
	if len(seq) > r.max {
		visitsTruncatedTotal.Add(float64(len(seq) - r.max))
		seq = capVisits(seq, r.max)
	}
	visits[id] = seq

	if err := saveLog(ctx, r.store, r.key, visits); err != nil {
		recordErrorsTotal.Inc()
		return OutcomeRejected, fmt.Errorf("save visit log: %w", err)
	}

	visitsRecordedTotal.Inc()
	log.Info().Str("channel", id).Int("visits", len(seq)).Msg("logged view")
	return OutcomeRecorded, nil
}

// Compact re-applies the retention cap to every channel, which matters after
// the cap is lowered. It returns the number of timestamps dropped.
func (r *Recorder) Compact(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	visits, normalized, err := loadLog(ctx, r.store, r.key)
	if err != nil {
		return 0, fmt.Errorf("load visit log: %w", err)
	}

	dropped := 0
	for id, seq := range visits {
		if len(seq) > r.max {
			dropped += len(seq) - r.max
			visits[id] = capVisits(seq, r.max)
		}
	}

	if dropped == 0 && !normalized {
		return 0, nil
	}

	if err := saveLog(ctx, r.store, r.key, visits); err != nil {
		return 0, fmt.Errorf("save visit log: %w", err)
	}
	visitsTruncatedTotal.Add(float64(dropped))
	logging.FromContext(ctx).Info().Int("dropped", dropped).Msg("visit log compacted")
	return dropped, nil
}

// Purge removes the whole visit log.
func (r *Recorder) Purge(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("purge visit log: %w", err)
	}
	return nil
}

// Config reports the effective cap and window, for status output.
func (r *Recorder) Config() (maxVisits int, window time.Duration) {
	return r.max, r.window
}
