package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var auditLimit int

// auditCmd lists the chain-of-custody log.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit log entries",
	Long: `Show the append-only audit trail of mutating operations, most recent
first. Every entry records the action, the acting OS user, and a
timestamp.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum number of entries to show")
}

func runAudit(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.Audit.Recent(cmd.Context(), auditLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("Audit log is empty.")
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-18s %s",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.Actor)
		if detail := formatDetails(e.Details); detail != "" {
			line += "  " + detail
		}
		fmt.Println(line)
	}
	return nil
}

// formatDetails renders the details map as stable key=value pairs.
func formatDetails(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, " ")
}
