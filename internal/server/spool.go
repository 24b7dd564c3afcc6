package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/runnerr0/visitlog/internal/logging"
	"github.com/runnerr0/visitlog/internal/signals"
)

// Spool feeds signal files dropped into a directory to a SignalHandler.
// Each *.json file holds one signal and is removed once handled, whether or
// not it was accepted.
type Spool struct {
	dir     string
	handler SignalHandler
}

// NewSpool returns a Spool over dir.
func NewSpool(dir string, handler SignalHandler) *Spool {
	return &Spool{dir: dir, handler: handler}
}

// Run creates the directory if needed, drains files already present, then
// processes new ones until ctx is cancelled.
func (s *Spool) Run(ctx context.Context) error {
	ctx = logging.WithComponent(ctx, "spool")
	log := logging.FromContext(ctx)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create spool watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch spool dir: %w", err)
	}
	log.Info().Str("dir", s.dir).Msg("watching spool")

	if _, err := s.Drain(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isSignalFile(ev.Name) {
				continue
			}
			s.processFile(ctx, ev.Name, false)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("spool watcher error")
		}
	}
}

// Drain processes every signal file currently in the directory in name
// order and returns how many were handled.
func (s *Spool) Drain(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read spool dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isSignalFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		if s.processFile(ctx, filepath.Join(s.dir, name), true) {
			n++
		}
	}
	return n, nil
}

// processFile handles one file and reports whether it was accepted. A file
// that fails to decode may still be being written and is left for the next
// write event, unless final is set.
func (s *Spool) processFile(ctx context.Context, path string, final bool) bool {
	log := logging.FromContext(ctx).With().Str("file", filepath.Base(path)).Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("read spool file")
		}
		return false
	}

	var sig signals.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		if !final {
			log.Debug().Err(err).Msg("spool file not decodable yet")
			return false
		}
		spoolFilesTotal.WithLabelValues("malformed").Inc()
		log.Warn().Err(err).Msg("dropping malformed spool file")
		s.remove(log, path)
		return false
	}

	accepted := true
	if err := s.handler.Handle(ctx, sig); err != nil {
		accepted = false
		spoolFilesTotal.WithLabelValues("rejected").Inc()
		log.Warn().Err(err).Msg("spool signal rejected")
	} else {
		spoolFilesTotal.WithLabelValues("accepted").Inc()
	}

	s.remove(log, path)
	return accepted
}

func (s *Spool) remove(log zerolog.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("remove spool file")
	}
}

func isSignalFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
