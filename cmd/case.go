package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	caseNumber       string
	caseName         string
	caseInvestigator string
	caseDeleteYes    bool
)

// caseCmd groups case management subcommands.
var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Create, list, and delete cases",
}

var caseNewCmd = &cobra.Command{
	Use:   "new [number]",
	Short: "Create a case",
	Long: `Create a case identified by a human-meaningful number such as IR-2024-001.

Examples:
  trace-console case new IR-2024-001 --name "Workstation compromise" --investigator "J. Doe"
  trace-console case new --number IR-2024-002`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCaseNew,
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cases",
	RunE:  runCaseList,
}

var caseDeleteCmd = &cobra.Command{
	Use:   "delete <number-or-id>",
	Short: "Delete a case and everything under it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaseDelete,
}

func init() {
	rootCmd.AddCommand(caseCmd)
	caseCmd.AddCommand(caseNewCmd)
	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseDeleteCmd)

	caseNewCmd.Flags().StringVar(&caseNumber, "number", "", "Case number (alternative to the positional argument)")
	caseNewCmd.Flags().StringVar(&caseName, "name", "", "Descriptive case name")
	caseNewCmd.Flags().StringVar(&caseInvestigator, "investigator", "", "Investigator name")

	caseDeleteCmd.Flags().BoolVarP(&caseDeleteYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runCaseNew(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	number := caseNumber
	if len(args) > 0 {
		number = args[0]
	}

	c, err := app.Service.CreateCase(cmd.Context(), number, caseName, caseInvestigator)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Case '%s' created (id %s)\n", c.Number, c.ID)
	if app.Store.ActiveContext().IsZero() {
		fmt.Printf("Tip: run 'trace-console use %s' to make it the active context.\n", c.Number)
	}
	return nil
}

func runCaseList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	tree, err := app.Service.Snapshot()
	if err != nil {
		return err
	}

	if len(tree.Cases) == 0 {
		fmt.Println("No cases found. Create one with 'trace-console case new' or open the TUI.")
		return nil
	}

	active := app.Store.ActiveContext()
	fmt.Printf("Found %d cases:\n\n", len(tree.Cases))
	for i, c := range tree.Cases {
		marker := " "
		if c.ID == active.CaseID {
			marker = "*"
		}
		fmt.Printf("%d. %s %s\n", i+1, marker, c.Number)
		if c.Name != "" {
			fmt.Printf("     Name: %s\n", c.Name)
		}
		if c.Investigator != "" {
			fmt.Printf("     Investigator: %s\n", c.Investigator)
		}
		fmt.Printf("     ID: %s\n", c.ID)
		fmt.Printf("     Evidence: %d  Notes: %d\n", len(c.Evidence), c.NoteCount())
		fmt.Println()
	}
	if active.CaseID != "" {
		fmt.Println("* marks the active case.")
	}
	return nil
}

func runCaseDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ref := args[0]
	if !caseDeleteYes {
		fmt.Printf("This will permanently delete case %q with all its evidence and notes.\n", ref)
		fmt.Print("Are you sure you want to continue? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	c, err := app.Service.DeleteCase(cmd.Context(), ref)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Case '%s' deleted (%d notes removed)\n", c.Number, c.NoteCount())
	return nil
}
