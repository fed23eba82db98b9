package uri

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vmessLegacyLink(body string) string {
	return "vmess://" + base64.StdEncoding.EncodeToString([]byte(body))
}

func TestRegistryParseVLESS(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.Parse("vless://9a6b1c9e-0000-4f10-9f08-9d4b3a33a7a1@example.com:443?security=tls#MyServer")
	require.NoError(t, err)

	assert.Equal(t, ProtocolVLESS, c.Protocol)
	assert.Equal(t, "example.com", c.Host)
	assert.Equal(t, 443, c.Port)
	assert.Equal(t, "MyServer", c.Name)
	assert.Equal(t, "9a6b1c9e-0000-4f10-9f08-9d4b3a33a7a1", c.Extra.UUID)
	assert.Equal(t, "tls", c.Extra.Security)
	assert.Equal(t, "none", c.Extra.Method)
}

func TestRegistryParseVMessLegacy(t *testing.T) {
	reg := NewRegistry()

	link := vmessLegacyLink(`{"v":"2","ps":"Tokyo 1","add":"jp.example.com","port":"8443","id":"uuid-here","net":"ws","host":"cdn.example.com","path":"/ray","tls":"tls"}`)
	c, err := reg.Parse(link)
	require.NoError(t, err)

	assert.Equal(t, ProtocolVMess, c.Protocol)
	assert.Equal(t, "jp.example.com", c.Host)
	assert.Equal(t, 8443, c.Port)
	assert.Equal(t, "Tokyo 1", c.Name)
	assert.Equal(t, "ws", c.Extra.Network)
	assert.Equal(t, "cdn.example.com", c.Extra.HostHeader)
	assert.Equal(t, "/ray", c.Extra.Path)
	assert.Equal(t, "auto", c.Extra.Method)
}

func TestRegistryParseVMessGRPCMapping(t *testing.T) {
	reg := NewRegistry()

	link := vmessLegacyLink(`{"add":"gw.example.com","port":443,"id":"uuid-here","net":"grpc","type":"multi","path":"TunService"}`)
	c, err := reg.Parse(link)
	require.NoError(t, err)

	assert.Equal(t, "multi", c.Extra.Mode)
	assert.Equal(t, "TunService", c.Extra.ServiceName)
}

func TestRegistryParseVMessStandardURI(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.Parse("vmess://uuid-here@host.example.com:2096?type=ws&path=%2Fws&security=tls#Std")
	require.NoError(t, err)

	assert.Equal(t, ProtocolVMess, c.Protocol)
	assert.Equal(t, "host.example.com", c.Host)
	assert.Equal(t, "ws", c.Extra.Network)
	assert.Equal(t, "/ws", c.Extra.Path)
}

func TestRegistryParseTrojan(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.Parse("trojan://s3cret@tr.example.com:443?sni=tr.example.com&allowInsecure=1#Berlin")
	require.NoError(t, err)

	assert.Equal(t, ProtocolTrojan, c.Protocol)
	assert.Equal(t, "s3cret", c.Extra.Password)
	assert.Equal(t, "tr.example.com", c.Extra.SNI)
	assert.True(t, c.Extra.Insecure)
	assert.Equal(t, "tcp", c.Extra.Network)
}

func TestRegistryParseShadowsocksSIP002(t *testing.T) {
	reg := NewRegistry()

	userInfo := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte("chacha20-ietf-poly1305:pass-123"))
	c, err := reg.Parse("ss://" + userInfo + "@ss.example.com:8388#HK%201")
	require.NoError(t, err)

	assert.Equal(t, ProtocolShadowsocks, c.Protocol)
	assert.Equal(t, "chacha20-ietf-poly1305", c.Extra.Method)
	assert.Equal(t, "pass-123", c.Extra.Password)
	assert.Equal(t, "HK 1", c.Name)
}

func TestRegistryParseShadowsocksObfsPlugin(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.Parse("ss://aes-256-gcm:pw@ss.example.com:443/?plugin=obfs-local%3Bobfs%3Dhttp%3Bobfs-host%3Dwww.bing.com%3Bpath%3D%2Fstatic")
	require.NoError(t, err)

	assert.Equal(t, "http", c.Extra.HeaderType)
	assert.Equal(t, "www.bing.com", c.Extra.HostHeader)
	assert.Equal(t, "/static", c.Extra.Path)
}

func TestRegistryParseFailures(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name   string
		link   string
		scheme string
	}{
		{"vless missing uuid", "vless://example.com:443?security=tls", "vless"},
		{"vless missing port", "vless://uuid@example.com?security=tls", "vless"},
		{"vless port out of range", "vless://uuid@example.com:70000?x=1", "vless"},
		{"vmess garbage base64", "vmess://!!!not-base64!!!", "vmess"},
		{"vmess missing id", vmessLegacyLink(`{"add":"h","port":443}`), "vmess"},
		{"trojan missing password", "trojan://tr.example.com:443?sni=x", "trojan"},
		{"ss bad userinfo", "ss://just-a-blob@host.example.com:8388", "ss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Parse(tt.link)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.scheme, pe.Scheme)
			assert.NotEmpty(t, pe.Reason)
		})
	}
}

func TestRegistryUnrecognizedScheme(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Parse("http://example.com/sub")
	assert.ErrorIs(t, err, ErrUnrecognizedScheme)
	assert.False(t, reg.CanParse("wireguard://peer"))
}

func TestRegistryCleansWhitespace(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.Parse("  vless://uuid@example.com:443?security=tls#X\r\n")
	require.NoError(t, err)
	assert.Equal(t, "example.com", c.Host)
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want Protocol
		ok   bool
	}{
		{"vless", ProtocolVLESS, true},
		{"VMess", ProtocolVMess, true},
		{" trojan ", ProtocolTrojan, true},
		{"ss", ProtocolShadowsocks, true},
		{"shadowsocks", ProtocolShadowsocks, true},
		{"wireguard", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseProtocol(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConfigDataRoundTrip(t *testing.T) {
	reg := NewRegistry()

	c, err := reg.Parse("vless://uuid@example.com:443?security=reality&pbk=KEY&sid=0123&type=grpc&serviceName=svc#R")
	require.NoError(t, err)

	blob, err := c.ConfigData()
	require.NoError(t, err)

	back, err := DecodeConfigData(blob)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestHashNormalization(t *testing.T) {
	reg := NewRegistry()

	a, err := reg.Parse("vless://uuid@example.com:443?encryption=none#one")
	require.NoError(t, err)
	b, err := reg.Parse("vless://uuid@EXAMPLE.com:443#two")
	require.NoError(t, err)

	// Display name and cosmetic spelling do not change identity.
	assert.Equal(t, a.Hash(), b.Hash())

	c, err := reg.Parse("vless://uuid@example.com:8443#one")
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestToURIRoundTrip(t *testing.T) {
	reg := NewRegistry()

	links := []string{
		"vless://uuid@example.com:443?security=tls&sni=example.com&type=ws&path=%2Fray#Name",
		"trojan://pw@tr.example.com:443?sni=tr.example.com#T",
		vmessLegacyLink(`{"add":"h.example.com","port":443,"id":"uuid","net":"ws","path":"/a","tls":"tls"}`),
		"ss://" + base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte("aes-256-gcm:pw")) + "@ss.example.com:8388#S",
	}
	for _, link := range links {
		orig, err := reg.Parse(link)
		require.NoError(t, err, link)

		back, err := reg.Parse(orig.ToURI())
		require.NoError(t, err, orig.ToURI())
		assert.Equal(t, orig.Hash(), back.Hash(), link)
	}
}
