package uri

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash generates a stable identity for a server configuration, used to
// deduplicate entries inside one subscription payload. Fields that mean the
// same thing under different spellings are normalized first so cosmetic
// differences between exporting clients do not produce distinct hashes.
func (c *ServerConfig) Hash() string {
	var parts []string

	parts = append(parts, strings.ToLower(string(c.Protocol)))
	parts = append(parts, strings.ToLower(c.Host))
	parts = append(parts, fmt.Sprintf("%d", c.Port))

	parts = append(parts, c.Extra.UUID)
	parts = append(parts, c.Extra.Password)

	// "none" on VLESS means the same as unset.
	method := strings.ToLower(c.Extra.Method)
	if c.Protocol == ProtocolVLESS && method == "none" {
		method = ""
	}
	parts = append(parts, method)

	// Empty network implies tcp.
	net := strings.ToLower(c.Extra.Network)
	if net == "" {
		net = "tcp"
	}
	parts = append(parts, net)

	// "none" header type implies default.
	header := strings.ToLower(c.Extra.HeaderType)
	if header == "none" {
		header = ""
	}
	parts = append(parts, header)

	parts = append(parts, c.Extra.Path)
	parts = append(parts, c.Extra.Mode)
	parts = append(parts, c.Extra.ServiceName)
	parts = append(parts, c.Extra.Seed)
	parts = append(parts, c.Extra.Flow)
	parts = append(parts, c.Extra.PublicKey)
	parts = append(parts, c.Extra.ShortID)

	signature := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(hash[:])
}
