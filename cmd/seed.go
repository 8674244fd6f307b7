package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var seedForce bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install a demo case with sample notes",
	Long: `Install a demo case with sample evidence and notes covering every
indicator type. This is useful for trying the console on an empty store.
Seeding refuses to run when real data exists unless --force is given.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Seed even when cases already exist")
}

func runSeed(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	logger := log.New(cmd.OutOrStdout(), "[seed] ", log.LstdFlags)
	logger.Println("Seeding demo case...")

	if err := app.Service.Seed(cmd.Context(), seedForce); err != nil {
		return err
	}

	logger.Println("Demo case DEMO-2024-001 installed")
	return nil
}
