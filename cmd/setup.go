package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// setupCmd runs the signing wizard explicitly; the same wizard runs on
// first launch of the console.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the GPG signing setup wizard",
	Long: `Detect GPG, list available secret keys, and configure note signing.
Signing is optional: without GPG every note still carries its SHA-256
fingerprint, it just is not signed.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	return runSetupWizard(cmd.Context(), app)
}

// runSetupWizard probes GPG and writes the signing settings. It never fails
// the launch over a missing GPG; it records signing as disabled instead.
func runSetupWizard(ctx context.Context, app *App) error {
	fmt.Println("Trace-Console signing setup")
	fmt.Println()

	signer := app.Service.Signer()
	if !signer.Available(ctx) {
		fmt.Println("GPG was not found on this system.")
		fmt.Println("Notes will still be fingerprinted with SHA-256, just not signed.")
		fmt.Println("Install GnuPG and run 'trace-console setup' to enable signing.")
		return app.Service.UpdateSettings(ctx, app.Store.Settings().WithSigning(false))
	}

	keys, err := signer.ListSecretKeys(ctx)
	if err != nil || len(keys) == 0 {
		fmt.Println("GPG is installed but no secret keys were found.")
		fmt.Println("Generate one with 'gpg --gen-key', then run 'trace-console setup'.")
		return app.Service.UpdateSettings(ctx, app.Store.Settings().WithSigning(false))
	}

	st := app.Store.Settings().WithSigning(true)
	st.SigningKey = ""

	if len(keys) == 1 {
		st.SigningKey = keys[0].ID
		fmt.Printf("✓ Signing enabled with key %s (%s)\n", keys[0].ID, keys[0].UserID)
		return app.Service.UpdateSettings(ctx, st)
	}

	fmt.Println("Multiple GPG secret keys found:")
	fmt.Println("  0. Use the GPG default key")
	for i, k := range keys {
		fmt.Printf("  %d. %s (%s)\n", i+1, k.ID, k.UserID)
	}
	fmt.Print("Select a key [0]: ")
	var response string
	fmt.Scanln(&response)
	choice, convErr := strconv.Atoi(strings.TrimSpace(response))
	if convErr != nil || choice < 0 || choice > len(keys) {
		choice = 0
	}

	if choice == 0 {
		fmt.Println("✓ Signing enabled with the GPG default key")
	} else {
		st.SigningKey = keys[choice-1].ID
		fmt.Printf("✓ Signing enabled with key %s (%s)\n", st.SigningKey, keys[choice-1].UserID)
	}
	return app.Service.UpdateSettings(ctx, st)
}
