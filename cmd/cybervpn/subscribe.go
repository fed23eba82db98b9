package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
)

var subscribeName string
var subscribeTimeout time.Duration

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <url>",
	Short: "Add a remote profile from a subscription URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		defer cancel()

		p, err := repo.AddRemoteProfile(ctx, args[0], subscribeName)
		if err != nil {
			logger.Log.Fatalf("Error adding subscription: %v", err)
		}

		fmt.Printf("Created profile %q (%s) with %d server(s)\n", p.Name, p.ID, len(p.Servers))
		if info, ok := p.Subscription(); ok && info.TotalBytes > 0 {
			fmt.Printf("Usage: %.1f%%", info.UsageRatio()*100)
			if info.ExpiresAt != nil {
				fmt.Printf(", expires %s", info.ExpiresAt.Format("2006-01-02"))
			}
			fmt.Println()
		}
	},
}

func init() {
	subscribeCmd.Flags().StringVarP(&subscribeName, "name", "n", "", "Profile name (defaults to the subscription's own)")
	subscribeCmd.Flags().DurationVar(&subscribeTimeout, "timeout", 60*time.Second, "Overall timeout for the initial fetch")
	rootCmd.AddCommand(subscribeCmd)
}
