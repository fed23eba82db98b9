package uri

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// VMessParser handles both vmess link flavors: the legacy base64-encoded
// JSON body and the standard URI form with query params.
type VMessParser struct{}

// vmessJSON mirrors the legacy share format. Port and aid are emitted as
// either strings or numbers depending on the exporting client.
type vmessJSON struct {
	V    interface{} `json:"v"`
	Ps   string      `json:"ps"`
	Add  string      `json:"add"`
	Port interface{} `json:"port"`
	Id   string      `json:"id"`
	Aid  interface{} `json:"aid"`
	Scy  string      `json:"scy"`
	Net  string      `json:"net"`
	Type string      `json:"type"`
	Host string      `json:"host"`
	Path string      `json:"path"`
	Tls  string      `json:"tls"`
	Sni  string      `json:"sni"`
	Alpn string      `json:"alpn"`
	Fp   string      `json:"fp"`
}

func (p *VMessParser) Scheme() string { return "vmess" }

func (p *VMessParser) CanParse(raw string) bool {
	return hasScheme(raw, "vmess")
}

func (p *VMessParser) Parse(raw string) (*ServerConfig, error) {
	// Standard URI form shares its layout with VLESS.
	if strings.Contains(raw, "?") {
		return p.parseStandard(raw)
	}

	b64 := strings.TrimPrefix(raw, "vmess://")
	jsonStr, err := DecodeBase64(b64)
	if err != nil {
		return nil, parseErr("vmess", "invalid base64 body")
	}

	var v vmessJSON
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, parseErr("vmess", "invalid json body")
	}

	if v.Add == "" {
		return nil, parseErr("vmess", "missing address")
	}
	if v.Id == "" {
		return nil, parseErr("vmess", "missing user id")
	}

	// Port can be a string or a number in the legacy format.
	port, _ := strconv.Atoi(fmt.Sprintf("%v", v.Port))
	if port <= 0 || port > 65535 {
		return nil, parseErr("vmess", "missing or invalid port")
	}

	c := &ServerConfig{
		Protocol: ProtocolVMess,
		Host:     v.Add,
		Port:     port,
		Name:     v.Ps,
		RawURI:   raw,
		Extra: TransportExtra{
			UUID:        v.Id,
			Method:      v.Scy,
			Network:     v.Net,
			HostHeader:  v.Host,
			Path:        v.Path,
			Security:    v.Tls,
			SNI:         v.Sni,
			Fingerprint: v.Fp,
		},
	}

	if c.Extra.Method == "" {
		c.Extra.Method = "auto"
	}
	if v.Alpn != "" {
		c.Extra.ALPN = strings.Split(v.Alpn, ",")
	}

	// Map the generic "type" field to the transport it belongs to.
	c.Extra.HeaderType = v.Type
	if c.Extra.Network == "grpc" {
		c.Extra.Mode = v.Type // "gun" or "multi" often travel in 'type'
		c.Extra.ServiceName = v.Path
	}
	if c.Extra.Network == "kcp" {
		c.Extra.Seed = v.Path
	}

	return c, nil
}

func (p *VMessParser) parseStandard(raw string) (*ServerConfig, error) {
	c, u, err := parseGenericURI(raw, "vmess", ProtocolVMess)
	if err != nil {
		return nil, err
	}

	uuid := u.User.String()
	if uuid == "" {
		return nil, parseErr("vmess", "missing user id")
	}
	c.Extra.UUID = uuid
	c.Extra.Method = "auto"

	applyQueryParams(&c.Extra, u.Query())
	return c, nil
}
