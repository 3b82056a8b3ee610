package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"

	"github.com/florianilch/authkit/internal/tokencache"
)

// ErrNoSession is returned when the token cache holds no session token.
var ErrNoSession = errors.New("not signed in")

// TokenSourceFactory creates an oauth2.TokenSource from a stored token.
type TokenSourceFactory func(token *oauth2.Token) oauth2.TokenSource

// PersistentTokenSource wraps an oauth2.TokenSource with token persistence in the token cache.
// Initialization is deferred to avoid I/O during application startup.
type PersistentTokenSource struct {
	factory TokenSourceFactory
	cache   *tokencache.Cache
	key     string

	tokenSource func() (oauth2.TokenSource, error)

	lastAccessToken atomic.Pointer[string]
	writeMu         sync.Mutex
}

// Compile-time check to ensure PersistentTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*PersistentTokenSource)(nil)

// NewPersistentTokenSource creates a PersistentTokenSource for the token stored under key.
// No I/O is performed until the first Token call.
func NewPersistentTokenSource(factory TokenSourceFactory, cache *tokencache.Cache, key string) (*PersistentTokenSource, error) {
	if factory == nil {
		return nil, fmt.Errorf("missing token source factory")
	}
	if cache == nil {
		return nil, fmt.Errorf("missing token cache")
	}
	if key == "" {
		return nil, fmt.Errorf("missing token key")
	}

	p := &PersistentTokenSource{
		factory: factory,
		cache:   cache,
		key:     key,
	}

	p.tokenSource = sync.OnceValues(p.createTokenSource)

	return p, nil
}

// createTokenSource performs one-time initialization of the TokenSource.
func (p *PersistentTokenSource) createTokenSource() (oauth2.TokenSource, error) {
	// oauth2.TokenSource.Token() has no context parameter (legacy interface limitation)
	ctx := context.Background()

	raw, ok := p.cache.GetToken(ctx, p.key)
	if !ok {
		return nil, ErrNoSession
	}

	var initial oauth2.Token
	if err := json.Unmarshal([]byte(raw), &initial); err != nil {
		return nil, fmt.Errorf("decoding stored token: %w", err)
	}

	// Remember the initial token to avoid unnecessary write-back on first call to `Token()`
	p.lastAccessToken.Store(&initial.AccessToken)

	return p.factory(&initial), nil
}

// Token returns a valid token, refreshing if necessary and persisting refreshed tokens.
func (p *PersistentTokenSource) Token() (*oauth2.Token, error) {
	ts, err := p.tokenSource()
	if err != nil {
		return nil, err
	}

	freshToken, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token from token source: %w", err)
	}

	// Hot path: lock-free atomic read for minimal contention
	lastPtr := p.lastAccessToken.Load()
	last := ""
	if lastPtr != nil {
		last = *lastPtr
	}

	if freshToken.AccessToken != last {
		p.writeMu.Lock()
		defer p.writeMu.Unlock()

		raw, err := json.Marshal(freshToken)
		if err != nil {
			return nil, fmt.Errorf("encoding refreshed token: %w", err)
		}
		// Cache writes never fail loudly; a dropped write only costs a refresh next run
		p.cache.SaveToken(context.Background(), p.key, string(raw))
		accessToken := freshToken.AccessToken
		p.lastAccessToken.Store(&accessToken)
	}

	return freshToken, nil
}
