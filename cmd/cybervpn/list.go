package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
	"cybervpn/internal/profile"
)

var listServers bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles and their subscription state",
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		profiles, err := repo.All()
		if err != nil {
			logger.Log.Fatalf("Error listing profiles: %v", err)
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles. Use 'subscribe' or 'import' to add one.")
			return
		}

		now := time.Now()
		for _, p := range profiles {
			marker := " "
			if p.IsActive {
				marker = "*"
			}
			fmt.Printf("%s %s  %-24s %-6s %d server(s)\n", marker, p.ID, p.Name, p.Kind, len(p.Servers))

			if info, ok := p.Subscription(); ok {
				fmt.Printf("    usage %s / %s (%.1f%%)",
					formatBytes(info.ConsumedBytes()), formatBytes(info.TotalBytes), info.UsageRatio()*100)
				switch {
				case info.IsExpired(now):
					fmt.Print(", expired")
				case info.ExpiresAt != nil:
					fmt.Printf(", %dd left", int(info.TimeLeft(now).Hours()/24))
				}
				fmt.Println()
			}

			if listServers {
				for _, s := range p.Servers {
					printServer(s)
				}
			}
		}
	},
}

func printServer(s profile.Server) {
	latency := "-"
	if s.LatencyMs != nil {
		latency = fmt.Sprintf("%dms", *s.LatencyMs)
	}
	fav := " "
	if s.IsFavorite {
		fav = "+"
	}
	fmt.Printf("    %s %s  %-24s %-11s %s:%d  %s\n", fav, s.ID, s.Name, s.Protocol, s.Host, s.Port, latency)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	listCmd.Flags().BoolVarP(&listServers, "servers", "s", false, "Also list each profile's servers")
	rootCmd.AddCommand(listCmd)
}
