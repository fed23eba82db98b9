package uri

import (
	"net/url"
	"strings"
)

// applyQueryParams extracts the standard transport/security params shared by
// the query-string based link formats (vless, trojan, standard vmess).
func applyQueryParams(e *TransportExtra, q url.Values) {
	if v := q.Get("type"); v != "" {
		e.Network = v
	}
	if v := q.Get("headerType"); v != "" {
		e.HeaderType = v
	}
	if v := q.Get("host"); v != "" {
		e.HostHeader = v
	}
	if v := q.Get("path"); v != "" {
		e.Path = v
	}
	if v := q.Get("seed"); v != "" {
		e.Seed = v
	}
	if v := q.Get("mode"); v != "" {
		e.Mode = v
	}
	if v := q.Get("serviceName"); v != "" {
		e.ServiceName = v
	}
	if v := q.Get("security"); v != "" {
		e.Security = v
	}
	if v := q.Get("sni"); v != "" {
		e.SNI = v
	}
	if v := q.Get("fp"); v != "" {
		e.Fingerprint = v
	}
	if v := q.Get("alpn"); v != "" {
		e.ALPN = strings.Split(v, ",")
	}
	if v := q.Get("pbk"); v != "" {
		e.PublicKey = v
	}
	if v := q.Get("sid"); v != "" {
		e.ShortID = v
	}
	if v := q.Get("spx"); v != "" {
		e.SpiderX = v
	}
	if v := q.Get("flow"); v != "" {
		e.Flow = v
	}

	// Insecure mapping (1/0/true/false) across the aliases seen in the wild.
	for _, key := range []string{"allowInsecure", "insecure", "allow_insecure"} {
		if val := q.Get(key); val != "" {
			e.Insecure = val == "1" || val == "true"
			break
		}
	}
}
