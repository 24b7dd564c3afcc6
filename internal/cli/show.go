package cli

import (
	"fmt"
	"time"

	"github.com/runnerr0/visitlog/internal/history"
	"github.com/runnerr0/visitlog/internal/render"
)

type showJSON struct {
	Channel string  `json:"channel"`
	Visits  []int64 `json:"visits"`
}

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a, time.Now())
}

// executeWithApp prints the channel's visits against a provided app (for testing).
func (c *ShowCommand) executeWithApp(a *app, now time.Time) error {
	channel := history.NormalizeChannel(c.Args.Channel)
	visits, err := a.engine.Detail(a.ctx, channel)
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return printJSON(showJSON{Channel: channel, Visits: visits})
	}

	noun := "visits"
	if len(visits) == 1 {
		noun = "visit"
	}
	fmt.Printf("%s: %d %s\n", channel, len(visits), noun)
	for _, ts := range visits {
		at := time.UnixMilli(ts)
		fmt.Printf("  %-22s %s\n", render.VisitLabel(at, now), render.TimeAgo(at, now))
	}
	return nil
}
