package uri

import (
	"net/url"
	"strconv"
)

// VLESSParser handles vless:// links (RFC 3986 style with query params).
type VLESSParser struct{}

func (p *VLESSParser) Scheme() string { return "vless" }

func (p *VLESSParser) CanParse(raw string) bool {
	return hasScheme(raw, "vless")
}

func (p *VLESSParser) Parse(raw string) (*ServerConfig, error) {
	c, u, err := parseGenericURI(raw, "vless", ProtocolVLESS)
	if err != nil {
		return nil, err
	}

	uuid := u.User.String()
	if uuid == "" {
		return nil, parseErr("vless", "missing user id")
	}
	c.Extra.UUID = uuid

	q := u.Query()
	applyQueryParams(&c.Extra, q)

	c.Extra.Method = q.Get("encryption")
	if c.Extra.Method == "" {
		c.Extra.Method = "none"
	}

	return c, nil
}

// parseGenericURI covers the shared shape of vless/trojan/standard-vmess
// links: scheme://user@host:port?params#name. Percent-encoding in the
// fragment and userinfo is handled by net/url.
func parseGenericURI(raw, scheme string, proto Protocol) (*ServerConfig, *url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, nil, parseErr(scheme, "malformed uri: %v", err)
	}

	host := u.Hostname()
	if host == "" {
		return nil, nil, parseErr(scheme, "missing host")
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port > 65535 {
		return nil, nil, parseErr(scheme, "missing or invalid port")
	}

	return &ServerConfig{
		Protocol: proto,
		Host:     host,
		Port:     port,
		Name:     u.Fragment,
		RawURI:   raw,
	}, u, nil
}
