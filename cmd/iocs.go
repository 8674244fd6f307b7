package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casetrace/trace-console/internal/casefile"
	"github.com/casetrace/trace-console/internal/extract"
)

var (
	iocsAll         bool
	iocsCaseRef     string
	iocsEvidenceRef string
	iocsType        string
	iocsOut         string
)

// iocsCmd aggregates extracted indicators over the selected scope.
var iocsCmd = &cobra.Command{
	Use:   "iocs [value]",
	Short: "Show IOC counts, or the notes carrying one indicator",
	Long: `Show distinct indicators of compromise with occurrence counts, scoped
to the active context unless --all, --case, or --evidence widens or
narrows it. With a value argument, list the notes carrying that
indicator instead.

Examples:
  trace-console iocs
  trace-console iocs --all --type ipv4
  trace-console iocs 10.0.0.8
  trace-console iocs --all --out indicators.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIOCs,
}

func init() {
	rootCmd.AddCommand(iocsCmd)

	iocsCmd.Flags().BoolVar(&iocsAll, "all", false, "Aggregate across every case")
	iocsCmd.Flags().StringVar(&iocsCaseRef, "case", "", "Scope to this case")
	iocsCmd.Flags().StringVar(&iocsEvidenceRef, "evidence", "", "Scope to this evidence item")
	iocsCmd.Flags().StringVar(&iocsType, "type", "", "Only show one indicator type (ipv4, ipv6, domain, url, email, md5, sha1, sha256)")
	iocsCmd.Flags().StringVar(&iocsOut, "out", "", "Write a tab-separated IOC export to this file instead of printing")
}

func runIOCs(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sc := casefile.Scope{All: iocsAll, CaseRef: iocsCaseRef, EvidenceRef: iocsEvidenceRef}

	if iocsOut != "" || cmd.Flags().Changed("out") {
		path, count, err := app.Service.ExportIOCs(cmd.Context(), sc, iocsOut)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %d indicators to %s\n", count, path)
		return nil
	}

	if len(args) == 1 {
		value := args[0]
		refs, err := app.Service.ListByIOC(sc, value)
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			fmt.Printf("No notes carry indicator %s.\n", value)
			return nil
		}
		fmt.Printf("Notes carrying %s:\n\n", value)
		for _, ref := range refs {
			printNoteRef(ref)
		}
		return nil
	}

	agg, err := app.Service.IndicatorCounts(sc)
	if err != nil {
		return err
	}

	printScopeHeading("IOCs", agg)
	shown := 0
	for _, vc := range agg.Counts {
		if iocsType != "" && vc.Typ != extract.Type(iocsType) {
			continue
		}
		fmt.Printf("%4d  %-8s %s\n", vc.Count, vc.Typ, vc.Value)
		shown++
	}
	if shown == 0 {
		fmt.Println("No indicators found.")
	}
	return nil
}
