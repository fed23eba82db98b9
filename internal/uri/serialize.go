package uri

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ToURI converts a ServerConfig back into its native link format. Used when
// exporting a server whose fields were edited after import, so the stored
// RawURI may be stale.
func (c *ServerConfig) ToURI() string {
	switch c.Protocol {
	case ProtocolVMess:
		return c.toVMessURI()
	case ProtocolShadowsocks:
		return c.toShadowsocksURI()
	default:
		// VLESS and Trojan share a common URI structure.
		return c.toGenericURI()
	}
}

func (c *ServerConfig) toVMessURI() string {
	v := vmessJSON{
		V:    "2",
		Ps:   c.Name,
		Add:  c.Host,
		Port: c.Port,
		Id:   c.Extra.UUID,
		Scy:  c.Extra.Method,
		Net:  c.Extra.Network,
		Type: c.Extra.HeaderType,
		Host: c.Extra.HostHeader,
		Path: c.Extra.Path,
		Tls:  c.Extra.Security,
		Sni:  c.Extra.SNI,
		Alpn: strings.Join(c.Extra.ALPN, ","),
		Fp:   c.Extra.Fingerprint,
	}

	if c.Extra.Network == "grpc" {
		v.Type = c.Extra.Mode
		v.Path = c.Extra.ServiceName
	} else if c.Extra.Network == "kcp" {
		v.Path = c.Extra.Seed
	}

	b, _ := json.Marshal(v)
	return "vmess://" + base64.StdEncoding.EncodeToString(b)
}

func (c *ServerConfig) toShadowsocksURI() string {
	userInfo := fmt.Sprintf("%s:%s", c.Extra.Method, c.Extra.Password)

	// SIP002 is safe for special chars.
	safeUser := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(userInfo))

	u := url.URL{
		Scheme:   "ss",
		User:     url.User(safeUser),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Fragment: c.Name,
	}

	if c.Extra.HeaderType == "http" {
		plugin := fmt.Sprintf("obfs-local;obfs=http;obfs-host=%s", c.Extra.HostHeader)
		if c.Extra.Path != "" {
			plugin += fmt.Sprintf(";path=%s", c.Extra.Path)
		}
		q := u.Query()
		q.Set("plugin", plugin)
		u.RawQuery = q.Encode()
	}

	return u.String()
}

func (c *ServerConfig) toGenericURI() string {
	u := url.URL{
		Scheme:   string(c.Protocol),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Fragment: c.Name,
	}

	if c.Extra.UUID != "" {
		u.User = url.User(c.Extra.UUID)
	} else if c.Extra.Password != "" {
		u.User = url.User(c.Extra.Password)
	}

	q := u.Query()

	if c.Extra.Network != "" && c.Extra.Network != "tcp" {
		q.Set("type", c.Extra.Network)
	}
	if c.Protocol == ProtocolVLESS && c.Extra.Method != "" && c.Extra.Method != "none" {
		q.Set("encryption", c.Extra.Method)
	}
	if c.Extra.Security != "" {
		q.Set("security", c.Extra.Security)
	}
	if c.Extra.SNI != "" {
		q.Set("sni", c.Extra.SNI)
	}
	if c.Extra.Fingerprint != "" {
		q.Set("fp", c.Extra.Fingerprint)
	}
	if c.Extra.HostHeader != "" {
		q.Set("host", c.Extra.HostHeader)
	}
	if c.Extra.Path != "" {
		q.Set("path", c.Extra.Path)
	}
	if c.Extra.HeaderType != "" && c.Extra.HeaderType != "none" {
		q.Set("headerType", c.Extra.HeaderType)
	}
	if c.Extra.ServiceName != "" {
		q.Set("serviceName", c.Extra.ServiceName)
	}
	if c.Extra.Mode != "" {
		q.Set("mode", c.Extra.Mode)
	}
	if len(c.Extra.ALPN) > 0 {
		q.Set("alpn", strings.Join(c.Extra.ALPN, ","))
	}
	if c.Extra.Insecure {
		q.Set("allowInsecure", "1")
	}
	if c.Extra.PublicKey != "" {
		q.Set("pbk", c.Extra.PublicKey)
	}
	if c.Extra.ShortID != "" {
		q.Set("sid", c.Extra.ShortID)
	}
	if c.Extra.SpiderX != "" {
		q.Set("spx", c.Extra.SpiderX)
	}
	if c.Extra.Flow != "" {
		q.Set("flow", c.Extra.Flow)
	}

	u.RawQuery = q.Encode()
	return u.String()
}
