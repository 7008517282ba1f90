package rest

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// tokenCache holds single-use stream tokens. EventSource clients cannot set
// an Authorization header, so they trade their bearer token for one of these.
type tokenCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]tokenEntry
}

type tokenEntry struct {
	userID  int64
	expires time.Time
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]tokenEntry),
	}
}

// Issue creates a token for userID.
func (c *tokenCache) Issue(userID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for token, e := range c.tokens {
		if now.After(e.expires) {
			delete(c.tokens, token)
		}
	}

	token := uuid.NewString()
	c.tokens[token] = tokenEntry{userID: userID, expires: now.Add(c.ttl)}
	return token
}

// Take consumes a token and returns its user.
func (c *tokenCache) Take(token string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.tokens[token]
	if !ok {
		return 0, false
	}
	delete(c.tokens, token)
	if c.now().After(e.expires) {
		return 0, false
	}
	return e.userID, true
}

// Len returns the number of outstanding tokens.
func (c *tokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}
