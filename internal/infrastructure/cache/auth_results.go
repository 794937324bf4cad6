package cache

import (
	"b2c-hub/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultAuthResultCapacity bounds the store when no capacity is configured.
const DefaultAuthResultCapacity = 256

// AuthResultCache keeps the latest auth result per subject. It is bounded
// and safe for concurrent use. Implements domain.AuthResultStore.
type AuthResultCache struct {
	entries *lru.Cache[string, *domain.AuthResult]
}

// NewAuthResultCache creates a cache holding at most capacity subjects.
func NewAuthResultCache(capacity int) (*AuthResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultAuthResultCapacity
	}
	entries, err := lru.New[string, *domain.AuthResult](capacity)
	if err != nil {
		return nil, err
	}
	return &AuthResultCache{entries: entries}, nil
}

// Get retrieves the stored result for subject.
func (c *AuthResultCache) Get(subject string) (*domain.AuthResult, bool) {
	return c.entries.Get(subject)
}

// Set stores result for subject, evicting the least recently used subject
// when the cache is full.
func (c *AuthResultCache) Set(subject string, result *domain.AuthResult) {
	if subject == "" || result == nil {
		return
	}
	c.entries.Add(subject, result)
}

// Delete removes subject.
func (c *AuthResultCache) Delete(subject string) {
	c.entries.Remove(subject)
}

// Retain drops every subject not listed.
func (c *AuthResultCache) Retain(subjects []string) {
	keep := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		keep[s] = struct{}{}
	}
	for _, key := range c.entries.Keys() {
		if _, ok := keep[key]; !ok {
			c.entries.Remove(key)
		}
	}
}

// Purge removes every entry.
func (c *AuthResultCache) Purge() {
	c.entries.Purge()
}

// Len reports the number of stored subjects.
func (c *AuthResultCache) Len() int {
	return c.entries.Len()
}
