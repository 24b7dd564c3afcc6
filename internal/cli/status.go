package cli

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/visitlog/internal/history"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version             string                 `json:"version"`
	DatabasePath        string                 `json:"database_path"`
	DatabaseSizeBytes   int64                  `json:"database_size_bytes"`
	SchemaVersion       int                    `json:"schema_version"`
	Namespaces          []string               `json:"namespaces"`
	Channels            int                    `json:"channels"`
	TotalVisits         int                    `json:"total_visits"`
	OldestVisit         string                 `json:"oldest_visit,omitempty"`
	NewestVisit         string                 `json:"newest_visit,omitempty"`
	MaxVisitsPerChannel int                    `json:"max_visits_per_channel"`
	DebounceWindowMs    int64                  `json:"debounce_window_ms"`
	TopChannels         []history.ChannelCount `json:"top_channels"`
	DaemonAddr          string                 `json:"daemon_addr"`
	DaemonRunning       bool                   `json:"daemon_running"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a)
}

// executeWithApp runs status against a provided app (for testing).
func (c *StatusCommand) executeWithApp(a *app) error {
	stats, err := a.engine.Stats(a.ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	namespaces, err := a.store.Keys(a.ctx)
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	if namespaces == nil {
		namespaces = []string{}
	}

	probe := c.probe
	if probe == nil {
		probe = checkDaemon
	}
	addr := net.JoinHostPort(a.cfg.Daemon.Host, strconv.Itoa(a.cfg.Daemon.Port))
	maxVisits, window := a.recorder.Config()

	out := statusJSON{
		Version:             c.version,
		DatabasePath:        a.dbPath,
		DatabaseSizeBytes:   a.sizeBytes(),
		SchemaVersion:       a.schemaVersion(),
		Namespaces:          namespaces,
		Channels:            stats.Channels,
		TotalVisits:         stats.TotalVisits,
		MaxVisitsPerChannel: maxVisits,
		DebounceWindowMs:    window.Milliseconds(),
		TopChannels:         stats.TopChannels,
		DaemonAddr:          addr,
		DaemonRunning:       probe("http://" + addr + "/status"),
	}
	if stats.TotalVisits > 0 {
		out.OldestVisit = time.UnixMilli(stats.OldestVisit).UTC().Format(time.RFC3339)
		out.NewestVisit = time.UnixMilli(stats.NewestVisit).UTC().Format(time.RFC3339)
	}

	if c.globals.JSON {
		return printJSON(out)
	}
	c.printStatusHuman(out, stats)
	return nil
}

func (c *StatusCommand) printStatusHuman(out statusJSON, stats *history.Stats) {
	fmt.Println("visitlog Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, humanize.IBytes(uint64(out.DatabaseSizeBytes)))
	fmt.Printf("Schema:        v%d\n", out.SchemaVersion)
	if len(out.Namespaces) > 0 {
		fmt.Printf("Namespaces:    %s\n", strings.Join(out.Namespaces, ", "))
	} else {
		fmt.Println("Namespaces:    (none)")
	}
	fmt.Printf("Channels:      %s\n", humanize.Comma(int64(out.Channels)))
	fmt.Printf("Visits:        %s\n", humanize.Comma(int64(out.TotalVisits)))

	if stats.TotalVisits > 0 {
		fmt.Printf("Oldest:        %s\n", time.UnixMilli(stats.OldestVisit).Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", time.UnixMilli(stats.NewestVisit).Local().Format("2006-01-02"))
	}

	fmt.Printf("Retention:     %d visits per channel\n", out.MaxVisitsPerChannel)
	fmt.Printf("Debounce:      %s\n", time.Duration(out.DebounceWindowMs)*time.Millisecond)

	if len(out.TopChannels) > 0 {
		fmt.Println()
		fmt.Println("Top Channels:")
		for _, ch := range out.TopChannels {
			fmt.Printf("  %-20s %s\n", ch.ChannelID, humanize.Comma(int64(ch.Count)))
		}
	}

	fmt.Println()
	if out.DaemonRunning {
		fmt.Printf("Daemon:        running on %s\n", out.DaemonAddr)
	} else {
		fmt.Println("Daemon:        not running")
	}
}

// checkDaemon attempts an HTTP GET to the daemon status endpoint.
// Returns true if the daemon responds within 1 second.
func checkDaemon(url string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
