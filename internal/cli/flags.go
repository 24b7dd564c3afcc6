package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the history database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// RecordCommand records a visit to a channel.
type RecordCommand struct {
	Args struct {
		Channel string `positional-arg-name:"channel" description:"Channel name"`
	} `positional-args:"yes" required:"yes"`

	globals *GlobalFlags
	version string
}

// IdentifyCommand resolves the channel shown by a page.
type IdentifyCommand struct {
	URL      string `long:"url" description:"Page URL (required)"`
	HTML     string `long:"html" description:"Inline HTML snapshot"`
	HTMLFile string `long:"html-file" description:"Path to a file containing the HTML snapshot"`
	Record   bool   `long:"record" description:"Record a visit when a channel is identified"`

	globals *GlobalFlags
	version string
}

// HistoryCommand lists visited channels, one page at a time.
type HistoryCommand struct {
	Search   string `short:"s" long:"search" description:"Only channels whose name contains this text"`
	Page     int    `short:"p" long:"page" description:"Page number (1-based)" default:"1"`
	PageSize int    `long:"page-size" description:"Channels per page (default from config)"`

	globals *GlobalFlags
	version string
}

// ShowCommand prints every stored visit to a channel.
type ShowCommand struct {
	Args struct {
		Channel string `positional-arg-name:"channel" description:"Channel name"`
	} `positional-args:"yes" required:"yes"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows history statistics, database size and settings.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	probe   func(url string) bool // injectable for testing; nil means checkDaemon
}

// IngestCommand starts the visitlog daemon (local HTTP service).
type IngestCommand struct {
	Host     string `long:"host" description:"Override daemon listen host"`
	Port     int    `long:"port" description:"Override daemon port"`
	SpoolDir string `long:"spool-dir" description:"Watch this directory for signal files"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// PruneCommand re-applies the retention cap.
type PruneCommand struct {
	MaxVisits int `long:"max-visits" description:"Override the per-channel cap for this run"`

	globals *GlobalFlags
	version string
}

// PurgeCommand deletes ALL visit history with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	in      io.Reader // injectable for testing; nil means os.Stdin
}
