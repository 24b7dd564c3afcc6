package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly builds a parser whose commands are matched but not executed.
func parseOnly(t *testing.T, args ...string) (*GlobalFlags, *commands, goflags.Commander) {
	t.Helper()
	parser, globals, cmds := buildParser("test")
	var matched goflags.Commander
	parser.CommandHandler = func(cmd goflags.Commander, _ []string) error {
		matched = cmd
		return nil
	}
	_, err := parser.ParseArgs(args)
	require.NoError(t, err)
	return globals, cmds, matched
}

func TestVersionFlag(t *testing.T) {
	var err error
	output := captureOutput(t, func() {
		err = RunWithArgs("1.2.3", []string{"--version"})
	})

	assert.NoError(t, err)
	assert.Equal(t, "visitlog 1.2.3", strings.TrimSpace(output))
}

func TestSubcommandsRecognized(t *testing.T) {
	tests := []struct {
		args []string
		want func(*commands) goflags.Commander
	}{
		{[]string{"record", "shroud"}, func(c *commands) goflags.Commander { return c.Record }},
		{[]string{"identify", "--url", "https://www.twitch.tv/shroud"}, func(c *commands) goflags.Commander { return c.Identify }},
		{[]string{"history"}, func(c *commands) goflags.Commander { return c.History }},
		{[]string{"show", "shroud"}, func(c *commands) goflags.Commander { return c.Show }},
		{[]string{"status"}, func(c *commands) goflags.Commander { return c.Status }},
		{[]string{"ingest"}, func(c *commands) goflags.Commander { return c.Ingest }},
		{[]string{"prune"}, func(c *commands) goflags.Commander { return c.Prune }},
		{[]string{"purge", "--all"}, func(c *commands) goflags.Commander { return c.Purge }},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			_, cmds, matched := parseOnly(t, tt.args...)
			assert.Same(t, tt.want(cmds), matched)
		})
	}
}

func TestRecordRequiresChannel(t *testing.T) {
	parser, _, _ := buildParser("test")
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs([]string{"record"})
	require.Error(t, err)
}

func TestIdentifyRequiresURL(t *testing.T) {
	err := RunWithArgs("test", []string{"identify"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url is required")
}

func TestPurgeRequiresAll(t *testing.T) {
	err := RunWithArgs("test", []string{"purge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge requires --all flag for safety")
}

func TestHistoryFlagsDefaults(t *testing.T) {
	_, cmds, _ := parseOnly(t, "history")
	assert.Equal(t, 1, cmds.History.Page)
	assert.Equal(t, 0, cmds.History.PageSize)
	assert.Empty(t, cmds.History.Search)
}

func TestHistoryFlags(t *testing.T) {
	_, cmds, _ := parseOnly(t, "history", "-s", "shr", "--page", "3", "--page-size", "5")
	assert.Equal(t, "shr", cmds.History.Search)
	assert.Equal(t, 3, cmds.History.Page)
	assert.Equal(t, 5, cmds.History.PageSize)
}

func TestGlobalFlags(t *testing.T) {
	globals, _, _ := parseOnly(t, "--json", "--verbose", "--config", "/tmp/test.yaml", "--db-path", "/tmp/v.db", "status")
	assert.True(t, globals.JSON)
	assert.True(t, globals.Verbose)
	assert.Equal(t, "/tmp/test.yaml", globals.Config)
	assert.Equal(t, "/tmp/v.db", globals.DBPath)
}

func TestRunWithArgs_RecordAgainstConfiguredDB(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  path: "+dir+"\nlogging:\n  level: error\n"), 0644))

	var err error
	output := captureOutput(t, func() {
		err = RunWithArgs("test", []string{"--config", cfgPath, "record", "Shroud"})
	})
	require.NoError(t, err)
	assert.Contains(t, output, "Logged view: shroud")

	output = captureOutput(t, func() {
		err = RunWithArgs("test", []string{"--config", cfgPath, "record", "shroud"})
	})
	require.NoError(t, err)
	assert.Contains(t, output, "Skipped shroud")

	_, statErr := os.Stat(filepath.Join(dir, "visitlog.db"))
	assert.NoError(t, statErr)
}

func TestLoadConfig_VerboseAndDBPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: warn\n"), 0644))

	g := &GlobalFlags{Config: cfgPath, Verbose: true, DBPath: filepath.Join(dir, "other.db")}
	cfg, err := g.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	path, err := g.resolveDBPath(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "other.db"), path)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	g := &GlobalFlags{Config: filepath.Join(t.TempDir(), "nope.yaml")}
	_, err := g.loadConfig()
	require.Error(t, err)
}
