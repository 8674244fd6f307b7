package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var useClear bool

// useCmd sets or clears the active working context for quick-add notes.
var useCmd = &cobra.Command{
	Use:   "use <case> [evidence]",
	Short: "Set the active case (and optionally evidence) for quick-add",
	Long: `Set the active context that quick-add notes land on. The case is
referenced by number or ID prefix, the evidence by name or ID prefix
within that case.

Examples:
  trace-console use IR-2024-001
  trace-console use IR-2024-001 "Laptop HDD"
  trace-console use --clear`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runUse,
}

func init() {
	rootCmd.AddCommand(useCmd)

	useCmd.Flags().BoolVar(&useClear, "clear", false, "Clear the active context")
}

func runUse(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if useClear {
		if err := app.Service.ClearActive(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("✓ Active context cleared")
		return nil
	}

	if len(args) == 0 {
		// No arguments: report the current context.
		active := app.Store.ActiveContext()
		if active.IsZero() {
			fmt.Println("No active context. Set one with 'trace-console use <case>'.")
			return nil
		}
		tree, err := app.Service.Snapshot()
		if err != nil {
			return err
		}
		if c := tree.FindCase(active.CaseID); c != nil {
			fmt.Printf("Active case: %s\n", c.Number)
			if active.EvidenceID != "" {
				if e := c.FindEvidence(active.EvidenceID); e != nil {
					fmt.Printf("Active evidence: %s\n", e.Name)
				}
			}
		} else {
			fmt.Println("Active context points at a deleted case; it will be cleared on the next note.")
		}
		return nil
	}

	caseRef := args[0]
	evidenceRef := ""
	if len(args) > 1 {
		evidenceRef = args[1]
	}

	res, err := app.Service.SetActive(cmd.Context(), caseRef, evidenceRef)
	if err != nil {
		return err
	}

	if res.EvidenceName != "" {
		fmt.Printf("✓ Active context: case '%s', evidence '%s'\n", res.CaseNumber, res.EvidenceName)
	} else {
		fmt.Printf("✓ Active context: case '%s'\n", res.CaseNumber)
	}
	return nil
}
