package uri

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ShadowsocksParser handles ss:// links in both SIP002 form
// (base64(method:password)@host:port) and the plain userinfo form.
type ShadowsocksParser struct{}

var (
	obfsHostRe = regexp.MustCompile(`obfs-host=([^;]+)`)
	obfsPathRe = regexp.MustCompile(`path=([^;]+)`)
)

func (p *ShadowsocksParser) Scheme() string { return "ss" }

func (p *ShadowsocksParser) CanParse(raw string) bool {
	return hasScheme(raw, "ss") || hasScheme(raw, "shadowsocks")
}

func (p *ShadowsocksParser) Parse(raw string) (*ServerConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, parseErr("ss", "malformed uri: %v", err)
	}

	host := u.Hostname()
	if host == "" {
		return nil, parseErr("ss", "missing host")
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port > 65535 {
		return nil, parseErr("ss", "missing or invalid port")
	}

	c := &ServerConfig{
		Protocol: ProtocolShadowsocks,
		Host:     host,
		Port:     port,
		Name:     u.Fragment,
		RawURI:   raw,
	}

	userInfo := u.User.String()
	if userInfo == "" {
		return nil, parseErr("ss", "missing userinfo")
	}

	// SIP002: no colon means the whole block is base64.
	if !strings.Contains(userInfo, ":") {
		decoded, err := DecodeBase64(userInfo)
		if err == nil {
			userInfo = decoded
		}
	}

	parts := strings.SplitN(userInfo, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, parseErr("ss", "invalid userinfo, want method:password")
	}
	c.Extra.Method = parts[0]
	c.Extra.Password = parts[1]

	// simple-obfs plugin strings carry embedded params:
	// "obfs-local;obfs=http;obfs-host=...;path=..."
	plugin := u.Query().Get("plugin")
	if strings.Contains(plugin, "obfs=http") {
		c.Extra.Network = "tcp"
		c.Extra.HeaderType = "http"
		if m := obfsHostRe.FindStringSubmatch(plugin); len(m) > 1 {
			c.Extra.HostHeader = m[1]
		}
		if m := obfsPathRe.FindStringSubmatch(plugin); len(m) > 1 {
			c.Extra.Path = m[1]
		}
	}

	return c, nil
}
