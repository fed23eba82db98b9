package xraycore

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"cybervpn/internal/config"
	"cybervpn/internal/transport"
)

// Probe measures round-trip latency through a server by starting an
// ephemeral instance and timing one HTTP request through its socks inbound.
type Probe struct {
	echoURL string
	timeout time.Duration
}

func NewProbe(cfg config.ProbeConfig) *Probe {
	return &Probe{
		echoURL: cfg.EchoURL,
		timeout: cfg.Timeout,
	}
}

// Latency returns the measured round-trip for one server.
func (p *Probe) Latency(ctx context.Context, cfg transport.Config) (time.Duration, error) {
	port, err := getFreePort()
	if err != nil {
		return 0, err
	}

	instance, err := startInstance(cfg, port)
	if err != nil {
		return 0, err
	}
	defer instance.Close()

	client := makeSocksClient(port, p.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.echoURL, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("echo failed with status: %d", resp.StatusCode)
	}
	return elapsed, nil
}

func makeSocksClient(port int, timeout time.Duration) *http.Client {
	proxyURL, _ := url.Parse(fmt.Sprintf("socks5://127.0.0.1:%d", port))
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: timeout,
		},
		Timeout: timeout,
	}
}
