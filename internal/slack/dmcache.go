package slack

import "sync"

// DMCache remembers the direct-message channel opened for each user name so
// repeated sends skip the conversations.open round trip.
// Thread-safe for concurrent access.
type DMCache struct {
	mu       sync.RWMutex
	channels map[string]string
}

// NewDMCache creates an empty cache.
func NewDMCache() *DMCache {
	return &DMCache{channels: make(map[string]string)}
}

// Get returns the cached channel ID for a user name.
func (c *DMCache) Get(userName string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.channels[userName]
	return id, ok
}

// Set records the channel ID for a user name.
func (c *DMCache) Set(userName, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[userName] = channelID
}

// Clear forgets every entry.
func (c *DMCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = make(map[string]string)
}

// Len returns the number of cached entries.
func (c *DMCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels)
}
