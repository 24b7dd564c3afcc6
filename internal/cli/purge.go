package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if err := c.confirm(); err != nil {
		return err
	}

	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a)
}

// confirm enforces --all and, unless --force is set, the typed confirmation.
func (c *PurgeCommand) confirm() error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if c.Force {
		return nil
	}

	fmt.Println("⚠ WARNING: This will permanently delete ALL visit history.")
	fmt.Println("  - Every recorded channel")
	fmt.Println("  - Every visit timestamp")
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithApp deletes the history against a provided app (for testing).
func (c *PurgeCommand) executeWithApp(a *app) error {
	if err := a.recorder.Purge(a.ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if c.globals.JSON {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": "all visit history deleted",
		})
	}

	fmt.Println("Purged all visit history. visitlog is empty.")
	return nil
}
