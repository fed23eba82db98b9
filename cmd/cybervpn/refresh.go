package main

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
	"cybervpn/internal/profile"
)

var refreshDueOnly bool
var refreshTimeout time.Duration

var refreshCmd = &cobra.Command{
	Use:   "refresh [profile-id]",
	Short: "Re-fetch remote profiles from their subscription URLs",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if len(args) == 1 {
			if err := repo.UpdateSubscription(ctx, args[0]); err != nil {
				logger.Log.Fatalf("Error refreshing profile: %v", err)
			}
			fmt.Printf("Refreshed profile %s\n", args[0])
			return
		}

		if refreshDueOnly {
			n, err := repo.UpdateAllDueSubscriptions(ctx)
			if err != nil {
				logger.Log.Fatalf("Error refreshing subscriptions: %v", err)
			}
			fmt.Printf("Refreshed %d due profile(s)\n", n)
			return
		}

		profiles, err := repo.All()
		if err != nil {
			logger.Log.Fatalf("Error listing profiles: %v", err)
		}
		var remotes []profile.Profile
		for _, p := range profiles {
			if p.Kind == profile.KindRemote {
				remotes = append(remotes, p)
			}
		}
		if len(remotes) == 0 {
			fmt.Println("No remote profiles to refresh.")
			return
		}

		bar := progressbar.Default(int64(len(remotes)), "Refreshing")
		ok := 0
		for _, p := range remotes {
			if err := repo.UpdateSubscription(ctx, p.ID); err != nil {
				logger.Log.Warnf("refresh failed for %s: %v", p.Name, err)
			} else {
				ok++
			}
			bar.Add(1)
		}
		fmt.Printf("Refreshed %d/%d profile(s)\n", ok, len(remotes))
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshDueOnly, "due", false, "Only refresh profiles whose update interval has elapsed")
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 5*time.Minute, "Overall timeout")
	rootCmd.AddCommand(refreshCmd)
}
