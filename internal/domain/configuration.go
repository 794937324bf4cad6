package domain

// Account modes accepted in configuration files.
const (
	AccountModeSingle = "SINGLE"
	AccountModeMulti  = "MULTI"
)

// Authority is the trust endpoint of a policy.
type Authority struct {
	URL       string
	Type      string
	IsDefault bool
}

// Configuration describes a B2C application. The first authority is the
// default one.
type Configuration struct {
	ClientID                    string
	RedirectURI                 string
	AccountMode                 string
	BrokerRedirectURIRegistered bool
	Authorities                 []Authority
	DefaultScopes               []string
}

// DefaultAuthority returns the first configured authority.
func (c *Configuration) DefaultAuthority() (Authority, bool) {
	if c == nil || len(c.Authorities) == 0 {
		return Authority{}, false
	}
	return c.Authorities[0], true
}

// AuthorityURLs lists every configured authority URL in order.
func (c *Configuration) AuthorityURLs() []string {
	urls := make([]string, 0, len(c.Authorities))
	for _, authority := range c.Authorities {
		urls = append(urls, authority.URL)
	}
	return urls
}
