// Package uri parses VPN share links into normalized server configurations.
// One parser per protocol scheme; the Registry tries them in a fixed order.
package uri

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Protocol is the closed set of supported VPN protocols.
type Protocol string

const (
	ProtocolVLESS       Protocol = "vless"
	ProtocolVMess       Protocol = "vmess"
	ProtocolTrojan      Protocol = "trojan"
	ProtocolShadowsocks Protocol = "shadowsocks"
)

// ParseProtocol matches a protocol string case-insensitively.
func ParseProtocol(s string) (Protocol, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vless":
		return ProtocolVLESS, true
	case "vmess":
		return ProtocolVMess, true
	case "trojan":
		return ProtocolTrojan, true
	case "ss", "shadowsocks":
		return ProtocolShadowsocks, true
	default:
		return "", false
	}
}

// ErrUnrecognizedScheme is returned when no registered parser claims a link.
var ErrUnrecognizedScheme = errors.New("unrecognized protocol scheme")

// ParseError describes why a link with a known scheme was rejected.
// The Reason is meant to be shown to the user as-is.
type ParseError struct {
	Scheme string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Scheme, e.Reason)
}

func parseErr(scheme, format string, args ...interface{}) error {
	return &ParseError{Scheme: scheme, Reason: fmt.Sprintf(format, args...)}
}

// ServerConfig is the normalized configuration extracted from a share link.
type ServerConfig struct {
	Protocol Protocol `json:"protocol"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	// Name is the display name, usually the URI fragment.
	Name   string         `json:"name,omitempty"`
	Remark string         `json:"remark,omitempty"`
	RawURI string         `json:"rawUri,omitempty"`
	Extra  TransportExtra `json:"extra"`
}

// TransportExtra carries the protocol-specific parameters the tunnel engine
// needs. The repository stores it opaquely; only the parsers and the engine
// adapter interpret it.
type TransportExtra struct {
	// Authentication
	UUID     string `json:"uuid,omitempty"`     // VLESS/VMess user id
	Password string `json:"password,omitempty"` // Trojan/Shadowsocks secret
	Method   string `json:"method,omitempty"`   // SS cipher / VMess security / VLESS encryption
	Flow     string `json:"flow,omitempty"`

	// Transport
	Network     string `json:"network,omitempty"` // tcp, ws, grpc, kcp, quic
	HeaderType  string `json:"headerType,omitempty"`
	HostHeader  string `json:"hostHeader,omitempty"`
	Path        string `json:"path,omitempty"`
	Seed        string `json:"seed,omitempty"`
	Mode        string `json:"mode,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`

	// Security (TLS / REALITY)
	Security    string   `json:"security,omitempty"`
	SNI         string   `json:"sni,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	ALPN        []string `json:"alpn,omitempty"`
	Insecure    bool     `json:"insecure,omitempty"`
	PublicKey   string   `json:"publicKey,omitempty"` // REALITY pbk
	ShortID     string   `json:"shortId,omitempty"`
	SpiderX     string   `json:"spiderX,omitempty"`
}

// ConfigData serializes the opaque blob persisted alongside a server row.
func (c *ServerConfig) ConfigData() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode server config: %w", err)
	}
	return string(b), nil
}

// DecodeConfigData is the inverse of ConfigData.
func DecodeConfigData(data string) (*ServerConfig, error) {
	var c ServerConfig
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}
	return &c, nil
}
