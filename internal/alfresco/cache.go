package alfresco

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ClientCache maps (normalized base URL, auth signature) to a live client.
// At most one client exists per key; entries are evicted explicitly on
// logout or server removal, never by TTL. The expected cardinality is a
// handful of configured servers per session.
type ClientCache struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// NewClientCache creates an empty cache. One cache is constructed at startup
// and disposed at shutdown.
func NewClientCache() *ClientCache {
	return &ClientCache{clients: make(map[string]*Client)}
}

func cacheKey(baseURL string, auth *AuthDescriptor) string {
	return NormalizeBaseURL(baseURL) + "|" + auth.Signature()
}

// Get returns the cached client for the URL and descriptor, constructing and
// caching a new one on miss.
func (cc *ClientCache) Get(baseURL string, auth *AuthDescriptor) *Client {
	key := cacheKey(baseURL, auth)
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if c, ok := cc.clients[key]; ok {
		return c
	}
	c := NewClient(baseURL, auth)
	cc.clients[key] = c
	log.Debug().Str("key", key).Msg("cached new repository client")
	return c
}

// Drop evicts one entry when a descriptor is given, otherwise every entry
// whose key is prefixed by the normalized URL.
func (cc *ClientCache) Drop(baseURL string, auth *AuthDescriptor) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if auth != nil {
		delete(cc.clients, cacheKey(baseURL, auth))
		return
	}
	prefix := NormalizeBaseURL(baseURL) + "|"
	for key := range cc.clients {
		if strings.HasPrefix(key, prefix) {
			delete(cc.clients, key)
		}
	}
}

// UpdateOAuth2Token mutates the cached descriptor and the live client's
// token in place. The client is not recreated, so in-flight state survives a
// token refresh. A miss is a no-op.
func (cc *ClientCache) UpdateOAuth2Token(baseURL string, auth *AuthDescriptor, accessToken, refreshToken string) {
	cc.mu.Lock()
	c, ok := cc.clients[cacheKey(baseURL, auth)]
	cc.mu.Unlock()
	if !ok {
		return
	}
	c.SetBearerToken(accessToken, refreshToken)
}

// Clear drops every entry. Logout/shutdown path.
func (cc *ClientCache) Clear() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.clients = make(map[string]*Client)
}

// Len reports the number of live entries.
func (cc *ClientCache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.clients)
}
