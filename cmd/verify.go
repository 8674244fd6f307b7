package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casetrace/trace-console/internal/fingerprint"
)

var verifyFile string

// verifyCmd re-checks stored fingerprints and signatures.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify note fingerprints and signatures",
	Long: `Recompute every stored note's SHA-256 fingerprint and verify each GPG
signature, reporting valid/invalid/unsigned per note. With --file, verify
a clearsigned export document instead.

Examples:
  trace-console verify
  trace-console verify --file exports/trace_export_20240301_120000.md`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "Verify this clearsigned export file")
}

func runVerify(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if verifyFile != "" {
		status, detail, err := app.Service.VerifyExport(cmd.Context(), verifyFile)
		if err != nil {
			return err
		}
		switch status {
		case fingerprint.StatusValid:
			fmt.Printf("✓ Signature valid")
			if detail != "" {
				fmt.Printf(" (signed by %s)", detail)
			}
			fmt.Println()
		case fingerprint.StatusInvalid:
			fmt.Printf("✗ Signature INVALID: %s\n", detail)
			return fmt.Errorf("signature verification failed for %s", verifyFile)
		default:
			fmt.Println("File carries no clearsign signature.")
		}
		return nil
	}

	results, err := app.Service.VerifyNotes(cmd.Context())
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No notes to verify.")
		return nil
	}

	var hashBad, sigBad int
	for _, r := range results {
		where := r.Ref.Case.Number
		if r.Ref.Evidence != nil {
			where = fmt.Sprintf("%s / %s", r.Ref.Case.Number, r.Ref.Evidence.Name)
		}

		hashMark := "✓"
		if !r.HashOK {
			hashMark = "✗"
			hashBad++
		}

		sigText := r.SigStatus.String()
		if r.SigStatus == fingerprint.StatusInvalid {
			sigBad++
			if r.SigDetail != "" {
				sigText = fmt.Sprintf("invalid (%s)", r.SigDetail)
			}
		} else if r.SigStatus == fingerprint.StatusValid && r.SigDetail != "" {
			sigText = fmt.Sprintf("valid (%s)", r.SigDetail)
		}

		fmt.Printf("%s hash, sig %s  [%s] %s\n", hashMark, sigText, where, firstLineOf(r.Ref.Note.Content))
	}

	fmt.Printf("\n%d notes checked", len(results))
	if hashBad == 0 && sigBad == 0 {
		fmt.Println(", all fingerprints intact.")
		return nil
	}
	fmt.Println()
	if hashBad > 0 {
		fmt.Printf("✗ %d notes have MISMATCHED fingerprints (content or timestamp altered)\n", hashBad)
	}
	if sigBad > 0 {
		fmt.Printf("✗ %d notes have invalid signatures\n", sigBad)
	}
	return fmt.Errorf("verification found %d problems", hashBad+sigBad)
}
