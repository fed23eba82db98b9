// Package subscription fetches and decodes remote subscription payloads:
// a body of share links (plain or base64) plus usage metadata carried in
// response headers.
package subscription

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"cybervpn/internal/config"
	"cybervpn/internal/logger"
	"cybervpn/internal/uri"
)

// FetchError is the typed failure surfaced to the repository so refresh
// errors stay distinguishable from parse or storage errors.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("subscription fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Meta is the usage metadata a subscription endpoint reports in headers.
type Meta struct {
	UploadBytes   int64
	DownloadBytes int64
	TotalBytes    int64
	ExpiresAt     *time.Time
	// UpdateIntervalMinutes is 0 when the endpoint sent no interval.
	UpdateIntervalMinutes int
	SupportURL            *string
	TestURL               *string
}

// Result is one successfully fetched and decoded subscription payload.
type Result struct {
	Links []string
	Meta  Meta
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(cfg config.SubscriptionConfig) *Fetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.FetchTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	if cfg.Proxy != "" {
		if pURL, err := url.Parse(cfg.Proxy); err == nil {
			switch pURL.Scheme {
			case "socks5", "socks5h":
				if dialer, err := proxy.FromURL(pURL, proxy.Direct); err == nil {
					if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
						transport.DialContext = ctxDialer.DialContext
					}
					logger.Log.Debugf("subscription fetcher using socks proxy: %s", cfg.Proxy)
				}
			default:
				transport.Proxy = http.ProxyURL(pURL)
				logger.Log.Debugf("subscription fetcher using http proxy: %s", cfg.Proxy)
			}
		}
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.FetchTimeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
	}
}

// Fetch retrieves and decodes one subscription URL. All failures come back
// as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	logger.Log.Debugf("Fetching subscription: %s", targetURL)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("non-200 status code: %d", resp.StatusCode)}
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	body := string(bodyBytes)
	// Many providers base64-encode the whole link list.
	if decoded, err := uri.DecodeBase64(strings.TrimSpace(body)); err == nil && decoded != "" {
		if strings.Contains(decoded, "://") {
			body = decoded
		}
	}

	links := ExtractLinks(body)
	if len(links) == 0 {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("no usable links in response")}
	}

	return &Result{
		Links: links,
		Meta:  parseMeta(resp.Header),
	}, nil
}

// parseMeta reads the de-facto standard subscription headers:
//
//	subscription-userinfo: upload=..; download=..; total=..; expire=..
//	profile-update-interval: <hours>
//	profile-web-page-url, test-url
func parseMeta(h http.Header) Meta {
	var m Meta

	if info := h.Get("subscription-userinfo"); info != "" {
		for _, part := range strings.Split(info, ";") {
			kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
			if len(kv) != 2 {
				continue
			}
			val, err := strconv.ParseInt(strings.TrimSpace(kv[1]), 10, 64)
			if err != nil {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "upload":
				m.UploadBytes = val
			case "download":
				m.DownloadBytes = val
			case "total":
				m.TotalBytes = val
			case "expire":
				if val > 0 {
					t := time.Unix(val, 0)
					m.ExpiresAt = &t
				}
			}
		}
	}

	if interval := h.Get("profile-update-interval"); interval != "" {
		if hours, err := strconv.Atoi(strings.TrimSpace(interval)); err == nil && hours > 0 {
			m.UpdateIntervalMinutes = hours * 60
		}
	}

	if support := h.Get("profile-web-page-url"); support != "" {
		m.SupportURL = &support
	}
	if test := h.Get("test-url"); test != "" {
		m.TestURL = &test
	}

	return m
}
