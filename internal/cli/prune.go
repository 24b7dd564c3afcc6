package cli

import (
	"fmt"

	"github.com/runnerr0/visitlog/internal/history"
)

type pruneJSON struct {
	Dropped             int `json:"dropped"`
	MaxVisitsPerChannel int `json:"max_visits_per_channel"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a)
}

// executeWithApp compacts the log against a provided app (for testing).
func (c *PruneCommand) executeWithApp(a *app) error {
	if c.MaxVisits < 0 {
		return fmt.Errorf("--max-visits must be positive")
	}

	rec := a.recorder
	if c.MaxVisits > 0 {
		rec = history.NewRecorder(a.store, history.RecorderOptions{
			NamespaceKey:        a.cfg.History.NamespaceKey,
			MaxVisitsPerChannel: c.MaxVisits,
		})
	}
	maxVisits, _ := rec.Config()

	dropped, err := rec.Compact(a.ctx)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	if c.globals.JSON {
		return printJSON(pruneJSON{Dropped: dropped, MaxVisitsPerChannel: maxVisits})
	}

	if dropped == 0 {
		fmt.Printf("Nothing to prune (cap %d visits per channel).\n", maxVisits)
		return nil
	}
	fmt.Printf("Pruned %d visits (cap %d visits per channel).\n", dropped, maxVisits)
	return nil
}
