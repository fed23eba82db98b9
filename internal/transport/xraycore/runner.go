// Package xraycore adapts the Xray tunnel core to the transport contract.
// It spins up in-process instances with a local socks inbound, both for the
// local engine and for ephemeral latency probes.
package xraycore

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/xtls/xray-core/core"
	"github.com/xtls/xray-core/infra/conf"

	// Import distro to register all protocols/transports
	_ "github.com/xtls/xray-core/main/distro/all"

	"cybervpn/internal/logger"
	"cybervpn/internal/transport"
)

// startInstance builds and starts an Xray instance tunneling a local socks
// inbound on port through the given server.
func startInstance(cfg transport.Config, port int) (instance *core.Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("CRITICAL: Xray Core Panic recovered: %v", r)
			err = fmt.Errorf("xray core panic: %v", r)
			if instance != nil {
				instance.Close()
				instance = nil
			}
		}
	}()

	outbound, err := toOutbound(cfg)
	if err != nil {
		return nil, err
	}

	func() {
		restore := muteLogs()
		defer restore()
		_, err = outbound.Build()
	}()
	if err != nil {
		return nil, fmt.Errorf("invalid outbound for %s: %w", cfg.Name, err)
	}

	inbound := conf.InboundDetourConfig{
		Tag:      "in",
		Protocol: "socks",
		PortList: &conf.PortList{Range: []conf.PortRange{{From: uint32(port), To: uint32(port)}}},
		Settings: toRawMessagePtr(`{"auth": "noauth", "udp": true}`),
		ListenOn: toAddress("127.0.0.1"),
	}

	pbConfig, err := (&conf.Config{
		LogConfig: &conf.LogConfig{
			LogLevel:  "none",
			AccessLog: "none",
			ErrorLog:  "none",
			DNSLog:    false,
		},
		InboundConfigs:  []conf.InboundDetourConfig{inbound},
		OutboundConfigs: []conf.OutboundDetourConfig{*outbound},
	}).Build()
	if err != nil {
		return nil, err
	}

	instance, err = core.New(pbConfig)
	if err != nil {
		return nil, err
	}

	if err := instance.Start(); err != nil {
		return nil, err
	}

	return instance, nil
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port, nil
}

func toAddress(s string) *conf.Address {
	var addr conf.Address
	_ = json.Unmarshal([]byte(fmt.Sprintf("%q", s)), &addr)
	return &addr
}

func muteLogs() func() {
	origStdout := os.Stdout
	origStderr := os.Stderr

	devNull, _ := os.Open(os.DevNull)
	if devNull != nil {
		os.Stdout = devNull
		os.Stderr = devNull
	}

	return func() {
		os.Stdout = origStdout
		os.Stderr = origStderr
		if devNull != nil {
			devNull.Close()
		}
	}
}
