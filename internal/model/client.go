package model

import "slices"

// Client публичный OAuth клиент (мобильное приложение, SPA)
type Client struct {
	ClientID     string   `db:"client_id" json:"client_id" yaml:"client_id"`
	Name         string   `db:"name" json:"name" yaml:"name"`
	RedirectURIs []string `db:"redirect_uris" json:"redirect_uris" yaml:"redirect_uris"`
	Scopes       []string `db:"scopes" json:"scopes" yaml:"scopes"`
}

// HasRedirectURI проверяет точное совпадение redirect_uri
func (c *Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// AllowsScopes проверяет, что все запрошенные scope разрешены клиенту
func (c *Client) AllowsScopes(scopes []string) bool {
	for _, scope := range scopes {
		if !slices.Contains(c.Scopes, scope) {
			return false
		}
	}
	return true
}
