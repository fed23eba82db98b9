package xraycore

import (
	"encoding/json"
	"fmt"

	"github.com/xtls/xray-core/infra/conf"

	"cybervpn/internal/transport"
	"cybervpn/internal/uri"
)

// toOutbound converts a transport config record into an Xray outbound. The
// opaque ConfigData blob is decoded here and nowhere else outside the
// parsers.
func toOutbound(cfg transport.Config) (*conf.OutboundDetourConfig, error) {
	sc, err := uri.DecodeConfigData(cfg.ConfigData)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", cfg.ID, err)
	}

	streamSettings := buildStreamSettings(sc)

	var protocol string
	var settings json.RawMessage

	switch sc.Protocol {
	case uri.ProtocolVMess:
		protocol = "vmess"
		settings = buildVMess(sc)
	case uri.ProtocolVLESS:
		protocol = "vless"
		settings = buildVLESS(sc)
	case uri.ProtocolTrojan:
		protocol = "trojan"
		settings = buildTrojan(sc)
	case uri.ProtocolShadowsocks:
		protocol = "shadowsocks"
		settings = buildShadowsocks(sc)
	default:
		return nil, fmt.Errorf("protocol conversion not implemented: %s", sc.Protocol)
	}

	return &conf.OutboundDetourConfig{
		Tag:           "proxy",
		Protocol:      protocol,
		Settings:      &settings,
		StreamSetting: streamSettings,
	}, nil
}

// --- JSON Builders ---

func buildVMess(c *uri.ServerConfig) json.RawMessage {
	return jsonRaw(map[string]interface{}{
		"vnext": []interface{}{
			map[string]interface{}{
				"address": c.Host,
				"port":    c.Port,
				"users": []interface{}{
					map[string]interface{}{
						"id":       c.Extra.UUID,
						"alterId":  0,
						"security": c.Extra.Method,
					},
				},
			},
		},
	})
}

func buildVLESS(c *uri.ServerConfig) json.RawMessage {
	return jsonRaw(map[string]interface{}{
		"vnext": []interface{}{
			map[string]interface{}{
				"address": c.Host,
				"port":    c.Port,
				"users": []interface{}{
					map[string]interface{}{
						"id":         c.Extra.UUID,
						"encryption": c.Extra.Method,
						"flow":       c.Extra.Flow,
					},
				},
			},
		},
	})
}

func buildTrojan(c *uri.ServerConfig) json.RawMessage {
	return jsonRaw(map[string]interface{}{
		"servers": []interface{}{
			map[string]interface{}{
				"address":  c.Host,
				"port":     c.Port,
				"password": c.Extra.Password,
			},
		},
	})
}

func buildShadowsocks(c *uri.ServerConfig) json.RawMessage {
	return jsonRaw(map[string]interface{}{
		"servers": []interface{}{
			map[string]interface{}{
				"address":  c.Host,
				"port":     c.Port,
				"method":   c.Extra.Method,
				"password": c.Extra.Password,
			},
		},
	})
}

func buildStreamSettings(c *uri.ServerConfig) *conf.StreamConfig {
	network := c.Extra.Network
	if network == "" {
		network = "tcp"
	}

	sc := &conf.StreamConfig{
		Network:  (*conf.TransportProtocol)(&network),
		Security: c.Extra.Security,
	}

	// TLS / REALITY
	if c.Extra.Security == "tls" || c.Extra.Security == "reality" {
		sc.TLSSettings = &conf.TLSConfig{
			ServerName:  c.Extra.SNI,
			Fingerprint: c.Extra.Fingerprint,
		}
		if len(c.Extra.ALPN) > 0 {
			sc.TLSSettings.ALPN = &conf.StringList{}
			*sc.TLSSettings.ALPN = append(*sc.TLSSettings.ALPN, c.Extra.ALPN...)
		}

		if c.Extra.Security == "reality" {
			sc.REALITYSettings = &conf.REALITYConfig{
				Fingerprint: c.Extra.Fingerprint,
				ServerName:  c.Extra.SNI,
				PublicKey:   c.Extra.PublicKey,
				ShortId:     c.Extra.ShortID,
				SpiderX:     c.Extra.SpiderX,
			}
		}

		if c.Extra.Insecure {
			sc.TLSSettings.Insecure = true
		}
	}

	switch network {
	case "ws":
		sc.WSSettings = &conf.WebSocketConfig{
			Path: c.Extra.Path,
			Headers: map[string]string{
				"Host": c.Extra.HostHeader,
			},
		}
	case "grpc":
		sc.GRPCSettings = &conf.GRPCConfig{
			ServiceName: c.Extra.ServiceName,
		}
		if c.Extra.Mode == "multi" {
			sc.GRPCSettings.MultiMode = true
		}
	case "tcp":
		if c.Extra.HeaderType == "http" {
			sc.TCPSettings = &conf.TCPConfig{
				HeaderConfig: jsonRaw(map[string]interface{}{
					"type": "http",
					"request": map[string]interface{}{
						"headers": map[string]interface{}{
							"Host": []string{c.Extra.HostHeader},
						},
						"path": []string{c.Extra.Path},
					},
				}),
			}
		}
	case "kcp":
		seed := c.Extra.Seed
		sc.KCPSettings = &conf.KCPConfig{
			Seed: &seed,
		}
	}

	return sc
}

func jsonRaw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return json.RawMessage(b)
}

func toRawMessagePtr(s string) *json.RawMessage {
	msg := json.RawMessage(s)
	return &msg
}
