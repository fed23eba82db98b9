package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
	"cybervpn/internal/mapper"
	"cybervpn/internal/profile"
	"cybervpn/internal/transport/xraycore"
)

var pingProfile string
var pingConcurrency int

type pingResult struct {
	server  profile.Server
	latency time.Duration
	err     error
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure latency of the active profile's servers",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		var p *profile.Profile
		if pingProfile != "" {
			p, err = repo.Get(pingProfile)
		} else {
			p, err = repo.ActiveProfile()
		}
		if err != nil {
			logger.Log.Fatalf("Error loading profile: %v", err)
		}
		if p == nil {
			logger.Log.Fatal("No active profile. Pass --profile or run 'use' first.")
		}
		if len(p.Servers) == 0 {
			logger.Log.Fatal("Profile has no servers.")
		}

		probe := xraycore.NewProbe(cfg.Probe)
		bar := progressbar.Default(int64(len(p.Servers)), "Pinging")

		results := make([]pingResult, len(p.Servers))
		sem := make(chan struct{}, pingConcurrency)
		var wg sync.WaitGroup
		for i, s := range p.Servers {
			wg.Add(1)
			go func(i int, s profile.Server) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				latency, err := probe.Latency(context.Background(), mapper.ServerToTransport(&s))
				results[i] = pingResult{server: s, latency: latency, err: err}
				bar.Add(1)
			}(i, s)
		}
		wg.Wait()

		sort.SliceStable(results, func(a, b int) bool {
			if (results[a].err == nil) != (results[b].err == nil) {
				return results[a].err == nil
			}
			return results[a].latency < results[b].latency
		})

		ok := 0
		for _, r := range results {
			if r.err != nil {
				fmt.Printf("  %-24s %s:%d  unreachable\n", r.server.Name, r.server.Host, r.server.Port)
				continue
			}
			ms := r.latency.Milliseconds()
			fmt.Printf("  %-24s %s:%d  %dms\n", r.server.Name, r.server.Host, r.server.Port, ms)
			if err := repo.RecordLatency(r.server.ID, ms); err != nil {
				logger.Log.Warnf("could not record latency for %s: %v", r.server.Name, err)
			}
			ok++
		}
		fmt.Printf("%d/%d server(s) reachable\n", ok, len(results))
	},
}

func init() {
	pingCmd.Flags().StringVar(&pingProfile, "profile", "", "Profile id (defaults to the active profile)")
	pingCmd.Flags().IntVarP(&pingConcurrency, "concurrency", "c", 4, "Servers probed in parallel")
	rootCmd.AddCommand(pingCmd)
}
