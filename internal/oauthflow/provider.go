package oauthflow

import (
	"fmt"

	"golang.org/x/oauth2"
)

// Token cache keys written when a session is activated.
const (
	SessionTokenKey = "__session_token"
	SessionIDKey    = "__session_id"
	userKeyPrefix   = "user:"
)

// GoogleEndpoint defines the OAuth2 endpoints for Google sign-in.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// GoogleUserInfoURL is Google's OpenID Connect userinfo endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// DefaultScopes request the OpenID Connect claims BrowserFlow reads.
var DefaultScopes = []string{"openid", "email", "profile"}

// Provider describes an OAuth2 identity provider.
type Provider struct {
	// Name is shown to the user, e.g. "Google".
	Name         string
	ClientID     string
	ClientSecret string // Empty for public clients (PKCE only)
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	Scopes       []string
}

// Google returns the Google provider for the given client credentials.
func Google(clientID, clientSecret string) Provider {
	return Provider{
		Name:         "Google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     GoogleEndpoint,
		UserInfoURL:  GoogleUserInfoURL,
		Scopes:       DefaultScopes,
	}
}

// Validate checks that the provider can run a flow.
func (p Provider) Validate() error {
	switch {
	case p.ClientID == "":
		return fmt.Errorf("client id cannot be empty")
	case p.Endpoint.AuthURL == "" || p.Endpoint.TokenURL == "":
		return fmt.Errorf("auth and token URLs cannot be empty")
	case p.UserInfoURL == "":
		return fmt.Errorf("userinfo URL cannot be empty")
	}
	return nil
}

// OAuth2Config returns the oauth2 configuration for p. RedirectURL is left unset;
// it depends on the callback listener.
func (p Provider) OAuth2Config() *oauth2.Config {
	scopes := p.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint:     p.Endpoint,
		Scopes:       scopes,
	}
}

// userKey is the token cache key marking a user as already registered.
func userKey(subject string) string {
	return userKeyPrefix + subject
}
