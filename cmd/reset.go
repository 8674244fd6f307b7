package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casetrace/trace-console/internal/audit"
	"github.com/casetrace/trace-console/internal/store"
)

var (
	confirmReset bool
	keepSettings bool
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored cases, notes, and the audit log",
	Long: `Reset deletes the case tree, active context, audit log, and (unless
--keep-settings) the signing settings from the data directory. Exports
already written under exports/ are kept.

WARNING: This operation is irreversible and will permanently delete all data.

Examples:
  # Reset with confirmation prompt
  trace-console reset

  # Reset with automatic confirmation
  trace-console reset --yes

  # Reset but keep the signing configuration
  trace-console reset --keep-settings`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&confirmReset, "yes", "y", false, "Automatically confirm reset operation")
	resetCmd.Flags().BoolVar(&keepSettings, "keep-settings", false, "Keep the signing settings")
}

func runReset(cmd *cobra.Command, args []string) error {
	config := GetConfig()

	// The store is opened without an audit handle on purpose: the audit
	// database is among the files being removed.
	st, err := store.NewStore(config.Data.Dir, newLogger(config.Log.Level))
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}

	targets := "cases, notes, active context, and the audit log"
	if !keepSettings {
		targets = "cases, notes, active context, settings, and the audit log"
	}
	fmt.Printf("This will permanently delete: %s\n", targets)

	// Confirm operation unless --yes flag is used
	if !confirmReset {
		fmt.Print("Are you sure you want to continue? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
			fmt.Println("Reset operation cancelled.")
			return nil
		}
	}

	removed, err := st.Reset(keepSettings)
	if err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	if len(removed) == 0 {
		fmt.Println("No data files found to remove")
	} else {
		fmt.Printf("Removed data files: %s\n", strings.Join(removed, ", "))
		fmt.Println("✓ Store cleared successfully")
	}

	// A fresh audit log opens on the wiped directory so its first row
	// records the reset itself.
	if auditLog, err := audit.Open(st.AuditPath()); err == nil {
		auditLog.Append(cmd.Context(), audit.Entry{
			Action:     audit.ActionStoreReset,
			EntityType: "store",
			Details: map[string]interface{}{
				"mode":          "reset",
				"keep_settings": keepSettings,
				"files_removed": len(removed),
			},
		})
		auditLog.Close()
	}

	fmt.Println("Reset operation completed successfully!")
	return nil
}
