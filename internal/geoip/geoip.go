// Package geoip annotates imported servers with a country code when the
// endpoint host is a literal IP and a GeoLite2 database is configured.
package geoip

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var (
	countryReader *geoip2.Reader
	once          sync.Once
	initErr       error
)

// Init loads the MMDB file. An empty path leaves lookups disabled.
func Init(countryPath string) error {
	once.Do(func() {
		if countryPath == "" {
			return
		}
		var err error
		countryReader, err = geoip2.Open(countryPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open country DB at %s: %w", countryPath, err)
		}
	})
	return initErr
}

// Country returns the ISO code for a literal IP, or "" when the database is
// not loaded, the host is a domain name, or the IP is unknown.
func Country(host string) string {
	if countryReader == nil {
		return ""
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	c, err := countryReader.Country(ip)
	if err != nil {
		return ""
	}
	return c.Country.IsoCode
}

func Close() {
	if countryReader != nil {
		countryReader.Close()
	}
}
