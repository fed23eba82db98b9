package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"cybervpn/internal/config"
	"cybervpn/internal/db"
	"cybervpn/internal/fieldcrypt"
	"cybervpn/internal/geoip"
	"cybervpn/internal/logger"
	"cybervpn/internal/repository"
	"cybervpn/internal/subscription"
)

var cfgFile string
var verbose bool
var logFile string

var rootCmd = &cobra.Command{
	Use:   "cybervpn",
	Short: "Manage VPN connection profiles: import, subscriptions, sharing",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(verbose, logFile)
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stdout (overwrites file)")
}

// openRepo wires the shared stack every command needs. The caller owns the
// returned database handle.
func openRepo() (*config.Config, *gorm.DB, *repository.Repository, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	database, err := db.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(database); err != nil {
		db.Close(database)
		return nil, nil, nil, err
	}

	if err := geoip.Init(cfg.GeoIP.CountryPath); err != nil {
		logger.Log.Warnf("GeoIP disabled: %v", err)
	}

	crypt := fieldcrypt.New(fieldcrypt.NewKeyringStore())
	fetcher := subscription.NewFetcher(cfg.Subscription)
	repo := repository.New(database, crypt, fetcher, cfg.Subscription.DefaultIntervalMinutes)

	return cfg, database, repo, nil
}
