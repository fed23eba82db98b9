package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Probe        ProbeConfig        `yaml:"probe"`
	GeoIP        GeoIPConfig        `yaml:"geoip"`
	Share        ShareConfig        `yaml:"share"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SubscriptionConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// Proxy routes subscription fetches through a socks5:// or http:// proxy.
	Proxy string `yaml:"proxy"`
	// DefaultIntervalMinutes applies when a subscription response carries
	// no profile-update-interval header.
	DefaultIntervalMinutes int    `yaml:"default_interval_minutes"`
	UserAgent              string `yaml:"user_agent"`
}

type ProbeConfig struct {
	// EchoURL is fetched through each server to measure round-trip latency.
	EchoURL string        `yaml:"echo_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type GeoIPConfig struct {
	CountryPath string `yaml:"country_path"`
}

type ShareConfig struct {
	// Scheme is the prefix of signed share links.
	Scheme string `yaml:"scheme"`
}

func Load(path string) (*Config, error) {
	var cfg Config

	// Defaults
	cfg.Database.Path = "cybervpn.db"
	cfg.Subscription.FetchTimeout = 30 * time.Second
	cfg.Subscription.DefaultIntervalMinutes = 1440
	cfg.Subscription.UserAgent = "cybervpn/1.0"
	cfg.Probe.EchoURL = "http://api.ipify.org"
	cfg.Probe.Timeout = 8 * time.Second
	cfg.Share.Scheme = "cybervpn"

	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Running without a config file is fine, defaults apply.
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if cfg.Subscription.DefaultIntervalMinutes <= 0 {
		cfg.Subscription.DefaultIntervalMinutes = 1440
	}
	if cfg.Subscription.FetchTimeout <= 0 {
		cfg.Subscription.FetchTimeout = 30 * time.Second
	}

	return &cfg, nil
}
