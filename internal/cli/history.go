package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/visitlog/internal/render"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a, time.Now())
}

// executeWithApp queries and prints one page against a provided app (for testing).
func (c *HistoryCommand) executeWithApp(a *app, now time.Time) error {
	size := c.PageSize
	if size == 0 {
		size = a.cfg.Query.PageSize
	}

	page, err := a.engine.Query(a.ctx, c.Search, c.Page, size)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if c.globals.JSON {
		return printJSON(page)
	}

	view := render.Build(page, now, render.Options{ChannelURLBase: a.cfg.Identify.ChannelURLBase})
	return render.NewTerminal(os.Stdout).Render(view)
}
