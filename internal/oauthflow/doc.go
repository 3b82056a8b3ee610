// Package oauthflow implements a sign-in flow-starter for command-line use.
//
// BrowserFlow runs an OAuth2 authorization code flow with PKCE against a loopback
// callback listener:
//
//	flow, _ := oauthflow.NewBrowserFlow(oauthflow.Provider{...}, cache)
//	result := initiator.Start(ctx, flow.Start)
//
// On success it reports a new session whose activation stores the OAuth2 token in
// the token cache under SessionTokenKey.
//
// # Custom Base Transport
//
// Configure a custom base transport for token exchange and userinfo requests:
//
//	flow, _ := oauthflow.NewBrowserFlow(provider, cache, oauthflow.WithTransport(customTransport))
package oauthflow
