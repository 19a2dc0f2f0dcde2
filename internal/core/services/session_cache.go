package services

import (
	"sync"

	"github.com/lorrc/vendor-performance/internal/core/domain"
)

// sessionCache is the in-process identity tier. It lives as long as the
// resolver and is safe for concurrent use.
type sessionCache struct {
	mu      sync.RWMutex
	entries map[string]domain.AgentIdentity
}

func newSessionCache() *sessionCache {
	return &sessionCache{entries: make(map[string]domain.AgentIdentity)}
}

func (c *sessionCache) get(rawID string) (domain.AgentIdentity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	identity, ok := c.entries[rawID]
	return identity, ok
}

func (c *sessionCache) put(identity domain.AgentIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[identity.RawID] = identity
}

func (c *sessionCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
