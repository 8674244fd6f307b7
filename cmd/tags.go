package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casetrace/trace-console/internal/casefile"
	"github.com/casetrace/trace-console/internal/store"
)

var (
	tagsAll         bool
	tagsCaseRef     string
	tagsEvidenceRef string
)

// tagsCmd aggregates hashtags over the selected scope.
var tagsCmd = &cobra.Command{
	Use:   "tags [tag]",
	Short: "Show tag counts, or the notes carrying one tag",
	Long: `Show distinct #tags with occurrence counts, scoped to the active
context unless --all, --case, or --evidence widens or narrows it.
With a tag argument, list the notes carrying that tag instead.

Examples:
  trace-console tags
  trace-console tags --all
  trace-console tags malware --case IR-2024-001`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)

	tagsCmd.Flags().BoolVar(&tagsAll, "all", false, "Aggregate across every case")
	tagsCmd.Flags().StringVar(&tagsCaseRef, "case", "", "Scope to this case")
	tagsCmd.Flags().StringVar(&tagsEvidenceRef, "evidence", "", "Scope to this evidence item")
}

func runTags(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sc := casefile.Scope{All: tagsAll, CaseRef: tagsCaseRef, EvidenceRef: tagsEvidenceRef}

	if len(args) == 1 {
		tag := args[0]
		refs, err := app.Service.ListByTag(sc, tag)
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			fmt.Printf("No notes tagged #%s.\n", tag)
			return nil
		}
		fmt.Printf("Notes tagged #%s:\n\n", tag)
		for _, ref := range refs {
			printNoteRef(ref)
		}
		return nil
	}

	agg, err := app.Service.TagCounts(sc)
	if err != nil {
		return err
	}

	printScopeHeading("Tags", agg)
	if len(agg.Counts) == 0 {
		fmt.Println("No tags found.")
		return nil
	}
	for _, vc := range agg.Counts {
		fmt.Printf("%4d  #%s\n", vc.Count, vc.Value)
	}
	return nil
}

// printScopeHeading names the scope an aggregate covers.
func printScopeHeading(what string, agg casefile.Aggregate) {
	switch {
	case agg.Evidence != nil:
		fmt.Printf("%s for evidence '%s' (case %s):\n", what, agg.Evidence.Name, agg.Case.Number)
	case agg.Case != nil:
		fmt.Printf("%s for case %s:\n", what, agg.Case.Number)
	default:
		fmt.Printf("%s across all cases:\n", what)
	}
}

func printNoteRef(ref store.NoteRef) {
	where := ref.Case.Number
	if ref.Evidence != nil {
		where = fmt.Sprintf("%s / %s", ref.Case.Number, ref.Evidence.Name)
	}
	fmt.Printf("[%s]\n", where)
	printNoteLine(*ref.Note)
}
