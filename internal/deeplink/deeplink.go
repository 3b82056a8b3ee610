// Package deeplink builds URLs that route back into the app after an external redirect.
package deeplink

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// schemePattern follows the RFC 3986 scheme grammar, lowercase only.
var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// Builder creates deep links for a fixed scheme and optional host.
type Builder struct {
	scheme string
	host   string
}

// New creates a Builder. Web schemes (http, https) require a host; custom app
// schemes usually leave it empty so the path follows "scheme://" directly.
func New(scheme, host string) (*Builder, error) {
	if !schemePattern.MatchString(scheme) {
		return nil, fmt.Errorf("invalid scheme %q", scheme)
	}
	if (scheme == "http" || scheme == "https") && host == "" {
		return nil, fmt.Errorf("host required for %s links", scheme)
	}

	return &Builder{
		scheme: scheme,
		host:   host,
	}, nil
}

// CreateURL returns the link for path with optional query parameters.
//
//	authkit + "/home"                 -> authkit://home
//	http + 127.0.0.1:4000 + "/home"   -> http://127.0.0.1:4000/home
func (b *Builder) CreateURL(path string, query url.Values) string {
	var sb strings.Builder
	sb.WriteString(b.scheme)
	sb.WriteString("://")
	if b.host != "" {
		sb.WriteString(b.host)
		sb.WriteByte('/')
	}

	// RawPath keeps sub-delimiters such as "(" unescaped when the path is already valid
	trimmed := strings.TrimLeft(path, "/")
	sb.WriteString((&url.URL{Path: trimmed, RawPath: trimmed}).EscapedPath())

	if len(query) > 0 {
		sb.WriteByte('?')
		sb.WriteString(query.Encode())
	}
	return sb.String()
}
