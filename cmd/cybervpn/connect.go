package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/logger"
	"cybervpn/internal/mapper"
	"cybervpn/internal/profile"
	"cybervpn/internal/transport/xraycore"
)

var connectPort int
var connectServer string

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Tunnel through the active profile's best server",
	Long: `Start an in-process tunnel exposing a local socks5 proxy. The server
is picked from the active profile: an explicit --server id, else the
lowest-latency favorite, else the lowest-latency server, else the
first. Switching the active profile while connected reconnects.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		engine := xraycore.NewLocalEngine(connectPort)
		updates := repo.WatchActiveProfile(ctx)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		var connectedServer string
		for {
			select {
			case p, ok := <-updates:
				if !ok {
					return
				}
				if p == nil || len(p.Servers) == 0 {
					if connectedServer != "" {
						engine.Disconnect(ctx)
						connectedServer = ""
						fmt.Println("No active profile, tunnel down")
					}
					continue
				}
				s := pickServer(p, connectServer)
				if s.ID == connectedServer {
					continue
				}
				if err := engine.Connect(ctx, mapper.ServerToTransport(s)); err != nil {
					logger.Log.Errorf("connect failed: %v", err)
					continue
				}
				connectedServer = s.ID
				fmt.Printf("Connected via %s (%s:%d), socks5://127.0.0.1:%d\n", s.Name, s.Host, s.Port, connectPort)

			case <-sig:
				engine.Disconnect(ctx)
				fmt.Println("Tunnel closed")
				return
			}
		}
	},
}

// pickServer chooses the endpoint to tunnel through. Favorites win, then
// measured latency, then profile order.
func pickServer(p *profile.Profile, explicitID string) *profile.Server {
	if explicitID != "" {
		for i := range p.Servers {
			if p.Servers[i].ID == explicitID {
				return &p.Servers[i]
			}
		}
		logger.Log.Warnf("server %s not in active profile, falling back", explicitID)
	}

	best := -1
	for i := range p.Servers {
		if best == -1 {
			best = i
			continue
		}
		if better(&p.Servers[i], &p.Servers[best]) {
			best = i
		}
	}
	return &p.Servers[best]
}

func better(a, b *profile.Server) bool {
	if a.IsFavorite != b.IsFavorite {
		return a.IsFavorite
	}
	if (a.LatencyMs != nil) != (b.LatencyMs != nil) {
		return a.LatencyMs != nil
	}
	if a.LatencyMs != nil && b.LatencyMs != nil && *a.LatencyMs != *b.LatencyMs {
		return *a.LatencyMs < *b.LatencyMs
	}
	return false
}

func init() {
	connectCmd.Flags().IntVarP(&connectPort, "port", "p", 10808, "Local socks5 port")
	connectCmd.Flags().StringVar(&connectServer, "server", "", "Tunnel through this server id")
	rootCmd.AddCommand(connectCmd)
}
