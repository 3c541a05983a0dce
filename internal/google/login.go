package google

import (
	"strings"

	"golang.org/x/oauth2"
)

// LoginConfig holds the settings of the authorization redirect.
type LoginConfig struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	CallbackURI  string
	Scope        string
}

// OAuthConfig converts c into an oauth2.Config. Scope may list several
// scopes separated by spaces.
func (c LoginConfig) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.CallbackURI,
		Scopes:       strings.Fields(c.Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL: c.AuthURL,
		},
	}
}

// LoginURL returns the URL the browser is sent to for Google sign-in. It
// requests an authorization code for the configured callback and scope.
func LoginURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL("")
}
