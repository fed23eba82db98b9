package uri

// TrojanParser handles trojan:// links.
type TrojanParser struct{}

func (p *TrojanParser) Scheme() string { return "trojan" }

func (p *TrojanParser) CanParse(raw string) bool {
	return hasScheme(raw, "trojan")
}

func (p *TrojanParser) Parse(raw string) (*ServerConfig, error) {
	c, u, err := parseGenericURI(raw, "trojan", ProtocolTrojan)
	if err != nil {
		return nil, err
	}

	password := u.User.String()
	if password == "" {
		return nil, parseErr("trojan", "missing password")
	}
	c.Extra.Password = password

	applyQueryParams(&c.Extra, u.Query())
	if c.Extra.Network == "" {
		c.Extra.Network = "tcp"
	}
	return c, nil
}
