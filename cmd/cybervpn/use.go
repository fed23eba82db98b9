package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
)

var useCmd = &cobra.Command{
	Use:   "use <profile-id>",
	Short: "Make a profile the active one",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		if err := repo.SetActive(args[0]); err != nil {
			logger.Log.Fatalf("Error activating profile: %v", err)
		}
		fmt.Printf("Profile %s is now active\n", args[0])
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <profile-id>",
	Short: "Delete a profile and its servers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		if err := repo.Delete(args[0]); err != nil {
			logger.Log.Fatalf("Error deleting profile: %v", err)
		}
		fmt.Printf("Deleted profile %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(removeCmd)
}
