package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import legacy single-config rows into profiles",
	Long: `Convert configurations left behind by the old schema into local
profiles. Running it again after a successful pass is a no-op.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		if err := repo.MigrateFromLegacy(); err != nil {
			logger.Log.Fatalf("Error migrating: %v", err)
		}
		fmt.Println("Migration complete")
	},
}

var wipeConfirm bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all profiles and servers",
	Run: func(cmd *cobra.Command, args []string) {
		if !wipeConfirm {
			logger.Log.Fatal("Refusing to wipe without --yes.")
		}
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		if err := repo.WipeAll(); err != nil {
			logger.Log.Fatalf("Error wiping: %v", err)
		}
		fmt.Println("All data removed")
	},
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeConfirm, "yes", false, "Confirm deletion")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(wipeCmd)
}
