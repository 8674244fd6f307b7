package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportOutput string

// exportCmd writes the Markdown export of every case.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all cases and notes to Markdown",
	Long: `Write a Markdown document covering every case, evidence item, and note,
including each note's SHA-256 fingerprint and any GPG signature
verbatim, so the export can be re-verified offline. When signing is
enabled the whole document is clearsigned as one unit.

Without --output the file lands under <data-dir>/exports/ with a
timestamped name.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Service.ExportMarkdown(cmd.Context(), exportOutput)
	printWarnings(res.Warnings)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Exported %d cases to %s\n", res.Cases, res.Path)
	if res.Signed {
		fmt.Println("✓ Export signed with GPG")
		fmt.Printf("  Verify with: gpg --verify %s\n", res.Path)
	}
	return nil
}
