package gateway

import (
	"context"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
)

// sharedCache holds one serialized MSAL cache shared by every per-authority
// client. It lives in process memory only.
type sharedCache struct {
	mu   sync.RWMutex
	blob []byte
}

// Replace loads the shared blob into the calling client.
func (c *sharedCache) Replace(_ context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	c.mu.RLock()
	data := c.blob
	c.mu.RUnlock()

	if len(data) == 0 {
		return nil
	}
	return u.Unmarshal(data)
}

// Export stores the calling client's cache as the shared blob.
func (c *sharedCache) Export(_ context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.blob = data
	c.mu.Unlock()
	return nil
}
