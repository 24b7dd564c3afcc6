package cli

import (
	"fmt"

	"github.com/runnerr0/visitlog/internal/history"
)

type recordJSON struct {
	Channel string `json:"channel"`
	Outcome string `json:"outcome"`
}

// Execute implements the go-flags Commander interface for RecordCommand.
func (c *RecordCommand) Execute(args []string) error {
	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a)
}

// executeWithApp records the visit against a provided app (for testing).
func (c *RecordCommand) executeWithApp(a *app) error {
	channel := history.NormalizeChannel(c.Args.Channel)
	outcome, err := a.recorder.RecordVisit(a.ctx, channel)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}

	if c.globals.JSON {
		return printJSON(recordJSON{Channel: channel, Outcome: outcome.String()})
	}

	switch outcome {
	case history.OutcomeRecorded:
		fmt.Printf("Logged view: %s\n", channel)
	case history.OutcomeDebounced:
		_, window := a.recorder.Config()
		fmt.Printf("Skipped %s: already visited within %s\n", channel, window)
	}
	return nil
}
