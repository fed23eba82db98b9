package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage individual servers",
}

var serverFavoriteCmd = &cobra.Command{
	Use:   "favorite <server-id>",
	Short: "Toggle a server's favorite flag on",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setFavorite(args[0], true)
	},
}

var serverUnfavoriteCmd = &cobra.Command{
	Use:   "unfavorite <server-id>",
	Short: "Toggle a server's favorite flag off",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setFavorite(args[0], false)
	},
}

var serverRenameCmd = &cobra.Command{
	Use:   "rename <server-id> <name>",
	Short: "Rename a server",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		if err := repo.RenameServer(args[0], args[1]); err != nil {
			logger.Log.Fatalf("Error renaming server: %v", err)
		}
		fmt.Printf("Renamed server %s\n", args[0])
	},
}

func setFavorite(id string, favorite bool) {
	_, database, repo, err := openRepo()
	if err != nil {
		logger.Log.Fatalf("Error initializing: %v", err)
	}
	defer db.Close(database)

	if err := repo.SetFavorite(id, favorite); err != nil {
		logger.Log.Fatalf("Error updating server: %v", err)
	}
	fmt.Printf("Updated server %s\n", id)
}

func init() {
	serverCmd.AddCommand(serverFavoriteCmd)
	serverCmd.AddCommand(serverUnfavoriteCmd)
	serverCmd.AddCommand(serverRenameCmd)
	rootCmd.AddCommand(serverCmd)
}
