package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// settingsCmd shows the persisted settings.
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change signing settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a persisted setting. Supported keys:

  signing_enabled   true or false
  signing_key       GPG key ID, or empty for the GPG default key

Examples:
  trace-console settings set signing_enabled false
  trace-console settings set signing_key 9A8B7C6D5E4F3A2B`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	st := app.Store.Settings()
	fmt.Printf("Data directory:  %s\n", app.Store.Dir())
	if !st.Configured() {
		fmt.Println("Signing:         not configured (run 'trace-console setup')")
		return nil
	}
	if st.SigningOn() {
		key := st.SigningKey
		if key == "" {
			key = "GPG default key"
		}
		fmt.Printf("Signing:         enabled\n")
		fmt.Printf("Signing key:     %s\n", key)
	} else {
		fmt.Println("Signing:         disabled")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	key, value := args[0], args[1]
	st := app.Store.Settings()

	switch key {
	case "signing_enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("signing_enabled takes true or false, got %q", value)
		}
		st = st.WithSigning(enabled)
	case "signing_key":
		// Setting a key implies signing should be on.
		st = st.WithSigning(true)
		st.SigningKey = value
	default:
		return fmt.Errorf("unknown setting %q (supported: signing_enabled, signing_key)", key)
	}

	if err := app.Service.UpdateSettings(cmd.Context(), st); err != nil {
		return err
	}
	fmt.Printf("✓ %s updated\n", key)
	return nil
}
