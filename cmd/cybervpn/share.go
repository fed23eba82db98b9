package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cybervpn/internal/db"
	"cybervpn/internal/fieldcrypt"
	"cybervpn/internal/logger"
	"cybervpn/internal/signedcfg"
	"cybervpn/internal/uri"
)

var shareNative bool

var shareCmd = &cobra.Command{
	Use:   "share <profile-id>",
	Short: "Export a profile's servers as shareable links",
	Long: `Print one signed config link per server. Signed links carry an HMAC
so the receiving side can reject tampered payloads. With --native the
plain protocol URIs (vless://, vmess://, ...) are printed instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, database, repo, err := openRepo()
		if err != nil {
			logger.Log.Fatalf("Error initializing: %v", err)
		}
		defer db.Close(database)

		p, err := repo.Get(args[0])
		if err != nil {
			logger.Log.Fatalf("Error loading profile: %v", err)
		}
		if len(p.Servers) == 0 {
			logger.Log.Fatal("Profile has no servers.")
		}

		if shareNative {
			for _, s := range p.Servers {
				sc, err := uri.DecodeConfigData(s.ConfigData)
				if err != nil {
					logger.Log.Warnf("skipping %s: %v", s.Name, err)
					continue
				}
				fmt.Println(sc.ToURI())
			}
			return
		}

		key, err := signedcfg.LoadShareKey(fieldcrypt.NewKeyringStore())
		if err != nil {
			logger.Log.Fatalf("Error loading share key: %v", err)
		}
		codec := signedcfg.New(cfg.Share.Scheme)
		for _, s := range p.Servers {
			fmt.Println(codec.CreateSignedURI(s.ConfigData, key))
		}
	},
}

func init() {
	shareCmd.Flags().BoolVar(&shareNative, "native", false, "Print plain protocol URIs instead of signed links")
	rootCmd.AddCommand(shareCmd)
}
