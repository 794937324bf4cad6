package gateway

import (
	"errors"
	"fmt"
	"sync"

	"b2c-hub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var errAccountNotCached = errors.New("account not present in token cache")

// parseIDTokenClaims decodes the payload of an ID token. MSAL has already
// validated the token, so the signature is not checked again.
func parseIDTokenClaims(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, errors.New("auth result carries no id token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("decode id token: %w", err)
	}
	return map[string]any(claims), nil
}

func firstEmail(claims map[string]any) string {
	switch emails := claims[domain.ClaimEmails].(type) {
	case []any:
		if len(emails) > 0 {
			email, _ := emails[0].(string)
			return email
		}
	case string:
		return emails
	}
	return ""
}

// claimsIndex remembers ID-token claims per home account id. MSAL account
// records do not carry claims.
type claimsIndex struct {
	mu     sync.RWMutex
	claims map[string]map[string]any
}

func newClaimsIndex() *claimsIndex {
	return &claimsIndex{claims: make(map[string]map[string]any)}
}

func (i *claimsIndex) Get(homeAccountID string) map[string]any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.claims[homeAccountID]
}

func (i *claimsIndex) Set(homeAccountID string, claims map[string]any) {
	if homeAccountID == "" {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.claims[homeAccountID] = claims
}

func (i *claimsIndex) Delete(homeAccountID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.claims, homeAccountID)
}
