package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/identify"
	"github.com/runnerr0/visitlog/internal/logging"
)

type identifyJSON struct {
	URL      string `json:"url"`
	Channel  string `json:"channel,omitempty"`
	Found    bool   `json:"found"`
	Recorded string `json:"recorded,omitempty"`
}

// Execute implements the go-flags Commander interface for IdentifyCommand.
func (c *IdentifyCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for identify command")
	}

	if !c.Record {
		cfg, err := c.globals.loadConfig()
		if err != nil {
			return err
		}
		logger, logFile, err := newLogger(cfg)
		if err != nil {
			return err
		}
		if logFile != nil {
			defer logFile.Close()
		}
		return c.identify(logging.WithContext(context.Background(), logger), cfg, nil)
	}

	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a)
}

// executeWithApp identifies the page and records a visit when asked (for testing).
func (c *IdentifyCommand) executeWithApp(a *app) error {
	return c.identify(a.ctx, a.cfg, a)
}

func (c *IdentifyCommand) identify(ctx context.Context, cfg *config.Config, a *app) error {
	html := c.HTML
	if c.HTMLFile != "" {
		data, err := os.ReadFile(c.HTMLFile)
		if err != nil {
			return fmt.Errorf("reading html file: %w", err)
		}
		html = string(data)
	}

	page, err := identify.NewPage(c.URL, html)
	if err != nil {
		return err
	}

	out := identifyJSON{URL: c.URL}
	out.Channel, out.Found = identify.NewFromConfig(cfg.Identify).Identify(ctx, page)

	if out.Found && c.Record && a != nil {
		outcome, err := a.recorder.RecordVisit(ctx, out.Channel)
		if err != nil {
			return fmt.Errorf("record visit: %w", err)
		}
		out.Recorded = outcome.String()
	}

	if c.globals.JSON {
		return printJSON(out)
	}

	if !out.Found {
		fmt.Println("No channel identified.")
		return nil
	}
	fmt.Println(out.Channel)
	if out.Recorded != "" {
		fmt.Printf("Visit %s.\n", out.Recorded)
	}
	return nil
}
