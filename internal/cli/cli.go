package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Record   *RecordCommand
	Identify *IdentifyCommand
	History  *HistoryCommand
	Show     *ShowCommand
	Status   *StatusCommand
	Ingest   *IngestCommand
	Prune    *PruneCommand
	Purge    *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "visitlog"
	parser.LongDescription = "Local channel visit history: debounced visit recording, search and paging."

	cmds := &commands{
		Record:   &RecordCommand{globals: &globals, version: version},
		Identify: &IdentifyCommand{globals: &globals, version: version},
		History:  &HistoryCommand{globals: &globals, version: version},
		Show:     &ShowCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
		Ingest:   &IngestCommand{globals: &globals, version: version},
		Prune:    &PruneCommand{globals: &globals, version: version},
		Purge:    &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("record", "Record a visit to a channel", "Record a visit to a channel now, subject to the debounce window.", cmds.Record)
	parser.AddCommand("identify", "Identify the channel on a page", "Identify the channel shown by a page URL and optional HTML snapshot.", cmds.Identify)
	parser.AddCommand("history", "List visited channels", "List visited channels, most recent first, with search and paging.", cmds.History)
	parser.AddCommand("show", "Show every visit to a channel", "Show every stored visit to a channel, newest first.", cmds.Show)
	parser.AddCommand("status", "Show history statistics", "Show history statistics, database size, daemon state and settings.", cmds.Status)
	parser.AddCommand("ingest", "Start the visitlog daemon", "Start the visitlog daemon (local HTTP service and spool watcher).", cmds.Ingest)
	parser.AddCommand("prune", "Apply the retention cap", "Re-apply the per-channel retention cap to the stored history.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL visit history", "Delete ALL visit history. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the visitlog CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("visitlog %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
