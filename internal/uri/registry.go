package uri

import "strings"

// Parser validates and extracts one protocol's share-link format.
type Parser interface {
	// Scheme returns the URI scheme this parser owns.
	Scheme() string
	// CanParse is a cheap prefix check, no full parse.
	CanParse(raw string) bool
	// Parse fully validates the link. A failed parse returns a *ParseError
	// with a reason suitable for display; it never panics on bad input.
	Parse(raw string) (*ServerConfig, error)
}

// Registry tries parsers in a fixed order and returns the first match.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds the default registry. Order is fixed so behavior is
// stable when schemes overlap in prefix (none do today, but ss/shadowsocks
// alias through one parser).
func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			&VLESSParser{},
			&VMessParser{},
			&TrojanParser{},
			&ShadowsocksParser{},
		},
	}
}

// CanParse reports whether any registered parser claims the link.
func (r *Registry) CanParse(raw string) bool {
	raw = CleanLink(raw)
	for _, p := range r.parsers {
		if p.CanParse(raw) {
			return true
		}
	}
	return false
}

// Parse dispatches to the parser owning the link's scheme. A claimed link
// that fails validation surfaces that parser's specific reason rather than
// falling through to the next one.
func (r *Registry) Parse(raw string) (*ServerConfig, error) {
	raw = CleanLink(raw)
	for _, p := range r.parsers {
		if p.CanParse(raw) {
			return p.Parse(raw)
		}
	}
	return nil, ErrUnrecognizedScheme
}

// CleanLink strips whitespace and stray line breaks from scraped links.
func CleanLink(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func hasScheme(raw, scheme string) bool {
	return strings.HasPrefix(strings.ToLower(raw), scheme+"://")
}
