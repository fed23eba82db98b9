package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
)

var daemonSchedule string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run in the background, refreshing due subscriptions on a schedule",
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		c := cron.New()
		_, err = c.AddFunc(daemonSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			n, err := repo.UpdateAllDueSubscriptions(ctx)
			if err != nil {
				logger.Log.Errorf("scheduled refresh failed: %v", err)
				return
			}
			if n > 0 {
				logger.Log.Infof("scheduled refresh updated %d profile(s)", n)
			}
		})
		if err != nil {
			logger.Log.Fatalf("Invalid schedule %q: %v", daemonSchedule, err)
		}

		c.Start()
		fmt.Printf("Daemon running, schedule %q. Ctrl-C to stop.\n", daemonSchedule)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		<-c.Stop().Done()
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", "@every 15m", "Cron schedule for the refresh sweep")
	rootCmd.AddCommand(daemonCmd)
}
