// ABOUTME: Opaque access tokens granting capability sets to MCP callers.
// ABOUTME: Tokens arrive via the URL path or query and can be revoked at runtime.

package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// grant records what one token is allowed to do and when it was minted.
type grant struct {
	capabilities []string
	mintedAt     time.Time
}

// TokenStore maps opaque access tokens to capability grants. A token is
// valid from CreateToken until Revoke; there is no expiry.
type TokenStore struct {
	mu     sync.RWMutex
	grants map[string]grant
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		grants: make(map[string]grant),
	}
}

// CreateToken mints a token carrying the given capabilities and returns
// the token string callers embed in MCP URLs.
func (s *TokenStore) CreateToken(capabilities ...string) string {
	token := uuid.New().String()

	caps := make([]string, len(capabilities))
	copy(caps, capabilities)

	s.mu.Lock()
	s.grants[token] = grant{capabilities: caps, mintedAt: time.Now()}
	s.mu.Unlock()

	return token
}

// GetCapabilities returns the capabilities granted to a token, or nil
// when the token is unknown or revoked.
func (s *TokenStore) GetCapabilities(token string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[token]
	if !ok {
		return nil
	}

	caps := make([]string, len(g.capabilities))
	copy(caps, g.capabilities)
	return caps
}

// Revoke removes a token and reports whether it existed. Sessions already
// created with the token stay alive; only new initializes are refused.
func (s *TokenStore) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.grants[token]
	delete(s.grants, token)
	return existed
}

// Count returns the number of active tokens.
func (s *TokenStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grants)
}
