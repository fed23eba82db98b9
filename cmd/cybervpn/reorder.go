package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
)

var reorderProfile string

var reorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Reorder profiles, or servers within one profile",
	Long: `Without --profile the arguments are profile ids and set the profile
order. With --profile they are server ids within that profile. The id
list must name every existing row exactly once.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		if reorderProfile != "" {
			err = repo.ReorderServers(reorderProfile, args)
		} else {
			err = repo.ReorderProfiles(args)
		}
		if err != nil {
			logger.Log.Fatalf("Error reordering: %v", err)
		}
		fmt.Println("Order updated")
	},
}

func init() {
	reorderCmd.Flags().StringVar(&reorderProfile, "profile", "", "Reorder servers within this profile id")
	rootCmd.AddCommand(reorderCmd)
}
