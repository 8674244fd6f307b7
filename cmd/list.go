package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casetrace/trace-console/internal/store"
)

var listCaseRef string

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases, evidence, and notes",
	Long: `List the case tree in a simple text format. This command works in any
terminal environment and provides an alternative to the TUI when
terminal capabilities are limited.

Examples:
  # Overview of all cases
  trace-console list

  # Full detail for one case, including notes
  trace-console list --case IR-2024-001`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listCaseRef, "case", "", "Show full detail for this case")
}

func runList(cmd *cobra.Command, args []string) error {
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

	if listCaseRef != "" {
		for i := range tree.Cases {
			c := &tree.Cases[i]
			if caseMatches(c.Number, c.ID, listCaseRef) {
				printCaseDetail(c)
				return nil
			}
		}
		return fmt.Errorf("%w: case %q", store.ErrNotFound, listCaseRef)
	}

	active := app.Store.ActiveContext()
	for i := range tree.Cases {
		c := &tree.Cases[i]
		marker := ""
		if c.ID == active.CaseID {
			marker = " (active)"
		}
		fmt.Printf("%s%s\n", c.Number, marker)
		if len(c.Notes) > 0 {
			fmt.Printf("  %d case notes\n", len(c.Notes))
		}
		for j := range c.Evidence {
			e := &c.Evidence[j]
			fmt.Printf("  %s (%d notes)\n", e.Name, len(e.Notes))
		}
		fmt.Println()
	}
	return nil
}

func printCaseDetail(c *store.Case) {
	fmt.Printf("Case %s\n", c.Number)
	if c.Name != "" {
		fmt.Printf("Name: %s\n", c.Name)
	}
	if c.Investigator != "" {
		fmt.Printf("Investigator: %s\n", c.Investigator)
	}
	fmt.Printf("ID: %s\n\n", c.ID)

	fmt.Printf("Case notes (%d):\n", len(c.Notes))
	for _, n := range c.Notes {
		printNoteLine(n)
	}
	for i := range c.Evidence {
		e := &c.Evidence[i]
		fmt.Printf("\nEvidence: %s (%d notes)\n", e.Name, len(e.Notes))
		if e.Description != "" {
			fmt.Printf("  %s\n", e.Description)
		}
		for _, n := range e.Notes {
			printNoteLine(n)
		}
	}
}

func printNoteLine(n store.Note) {
	signed := ""
	if n.Signature != "" {
		signed = " [signed]"
	}
	fmt.Printf("  %s  %s%s\n", n.Timestamp.Local().Format("2006-01-02 15:04:05"), firstLineOf(n.Content), signed)
	hash := n.Hash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	fmt.Printf("    sha256 %s...\n", hash)
	if len(n.Tags) > 0 {
		fmt.Printf("    tags: %s\n", strings.Join(n.Tags, ", "))
	}
	if len(n.IOCs) > 0 {
		vals := make([]string, len(n.IOCs))
		for i, ioc := range n.IOCs {
			vals[i] = ioc.Value
		}
		fmt.Printf("    iocs: %s\n", strings.Join(vals, ", "))
	}
}

func firstLineOf(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 70 {
		s = s[:70] + "..."
	}
	return s
}
