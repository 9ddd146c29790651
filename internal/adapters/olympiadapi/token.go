package olympiadapi

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by authenticated calls made while no session token is set.
var ErrNoToken = errors.New("no session token")

// BearerSource is a mutable oauth2.TokenSource holding the console's opaque
// session token. The session store updates it on every token write.
type BearerSource struct {
	mu    sync.RWMutex
	token string
}

var _ oauth2.TokenSource = (*BearerSource)(nil)

// Set replaces the current token. An empty token clears it.
func (b *BearerSource) Set(token string) {
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
}

// Current returns the current token.
func (b *BearerSource) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

// Token implements oauth2.TokenSource.
func (b *BearerSource) Token() (*oauth2.Token, error) {
	tok := b.Current()
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
