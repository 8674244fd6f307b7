package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	addCaseRef     string
	addEvidenceRef string
)

// addCmd appends a note without opening the TUI.
var addCmd = &cobra.Command{
	Use:     "add <note text>",
	Aliases: []string{"a"},
	Short:   "Add a note to the active case or evidence",
	Long: `Add a note from the command line. The note lands on the active context
unless --case or --evidence picks an explicit target. IOCs and #tags are
extracted automatically, and the note is signed when GPG signing is
configured.

Examples:
  # Note on the active context
  trace-console add "Beacon traffic to 10.0.0.8 every 60s #malware"

  # Note on an explicit case
  trace-console a --case IR-2024-001 "Interviewed the user"

  # Note on an evidence item (name or ID prefix)
  trace-console a --evidence "Laptop HDD" "Hash matches known dropper"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addCaseRef, "case", "", "Case number or ID prefix to note on")
	addCmd.Flags().StringVar(&addEvidenceRef, "evidence", "", "Evidence name or ID prefix to note on")
}

func runAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	content := strings.Join(args, " ")
	res, err := app.Service.AddNote(cmd.Context(), content, addCaseRef, addEvidenceRef)
	printWarnings(res.Warnings)
	if err != nil {
		return err
	}

	if res.EvidenceName != "" {
		fmt.Printf("✓ Note added to evidence '%s'\n", res.EvidenceName)
	} else {
		fmt.Printf("✓ Note added to case '%s'\n", res.CaseNumber)
	}
	return nil
}
