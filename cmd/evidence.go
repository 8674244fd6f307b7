package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	evidenceCaseRef     string
	evidenceName        string
	evidenceDescription string
	evidenceDeleteYes   bool
)

// evidenceCmd groups evidence management subcommands.
var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Manage evidence items within cases",
}

var evidenceAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Attach an evidence item to a case",
	Long: `Attach an evidence item to the active case, or to an explicit case
via --case.

Examples:
  trace-console evidence add "Employee Laptop HDD" --description "Seized 2024-03-01"
  trace-console evidence add --case IR-2024-001 --name "Firewall Logs"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvidenceAdd,
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence items grouped by case",
	RunE:  runEvidenceList,
}

var evidenceDeleteCmd = &cobra.Command{
	Use:   "delete <name-or-id>",
	Short: "Delete an evidence item and its notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceDelete,
}

var evidenceMetaCmd = &cobra.Command{
	Use:   "meta <name-or-id> <key> <value>",
	Short: "Set a metadata field on an evidence item",
	Long: `Set a free-form metadata field on an evidence item, for example the
acquisition hash of a disk image:

  trace-console evidence meta "Laptop HDD" source_hash e3b0c44298fc...`,
	Args: cobra.ExactArgs(3),
	RunE: runEvidenceMeta,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceAddCmd)
	evidenceCmd.AddCommand(evidenceListCmd)
	evidenceCmd.AddCommand(evidenceDeleteCmd)
	evidenceCmd.AddCommand(evidenceMetaCmd)

	evidenceAddCmd.Flags().StringVar(&evidenceCaseRef, "case", "", "Case number or ID prefix (defaults to the active case)")
	evidenceAddCmd.Flags().StringVar(&evidenceName, "name", "", "Evidence name (alternative to the positional argument)")
	evidenceAddCmd.Flags().StringVar(&evidenceDescription, "description", "", "Evidence description")

	evidenceListCmd.Flags().StringVar(&evidenceCaseRef, "case", "", "Only list evidence for this case")

	evidenceDeleteCmd.Flags().BoolVarP(&evidenceDeleteYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runEvidenceAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	name := evidenceName
	if len(args) > 0 {
		name = args[0]
	}

	res, err := app.Service.AddEvidence(cmd.Context(), evidenceCaseRef, name, evidenceDescription)
	printWarnings(res.Warnings)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Evidence '%s' added to case '%s' (id %s)\n", res.Evidence.Name, res.CaseNumber, res.Evidence.ID)
	return nil
}

func runEvidenceList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	tree, err := app.Service.Snapshot()
	if err != nil {
		return err
	}

	shown := 0
	for i := range tree.Cases {
		c := &tree.Cases[i]
		if evidenceCaseRef != "" && !caseMatches(c.Number, c.ID, evidenceCaseRef) {
			continue
		}
		if len(c.Evidence) == 0 {
			continue
		}
		fmt.Printf("Case %s:\n", c.Number)
		for _, e := range c.Evidence {
			fmt.Printf("  - %s (id %s, %d notes)\n", e.Name, e.ID, len(e.Notes))
			if e.Description != "" {
				fmt.Printf("    %s\n", e.Description)
			}
			for k, v := range e.Metadata {
				fmt.Printf("    %s: %s\n", k, v)
			}
		}
		fmt.Println()
		shown += len(c.Evidence)
	}

	if shown == 0 {
		fmt.Println("No evidence found.")
	}
	return nil
}

// caseMatches mirrors the service's case resolution for display filtering:
// exact number, exact ID, or an ID prefix of at least 4 characters.
func caseMatches(number, id, ref string) bool {
	if ref == number || ref == id {
		return true
	}
	return len(ref) >= 4 && strings.HasPrefix(id, ref)
}

func runEvidenceDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ref := args[0]
	if !evidenceDeleteYes {
		fmt.Printf("This will permanently delete evidence %q and its notes.\n", ref)
		fmt.Print("Are you sure you want to continue? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	ev, _, err := app.Service.DeleteEvidence(cmd.Context(), ref)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Evidence '%s' deleted (%d notes removed)\n", ev.Name, len(ev.Notes))
	return nil
}

func runEvidenceMeta(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Service.SetEvidenceMeta(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s set on evidence '%s'\n", args[1], res.EvidenceName)
	return nil
}
