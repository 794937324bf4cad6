package domain

import "time"

// Claim names used to attribute B2C accounts.
const (
	ClaimSubject              = "sub"
	ClaimName                 = "name"
	ClaimEmails               = "emails"
	ClaimTrustFrameworkPolicy = "tfp"
	ClaimAuthContextClass     = "acr"
)

// Account is a platform account record. B2C issues one record per policy
// the user has authenticated against.
type Account struct {
	HomeAccountID string
	Environment   string
	Username      string
	Claims        map[string]any
}

// Subject returns the subject claim, or "" when the record carries none.
func (a Account) Subject() string {
	return a.stringClaim(ClaimSubject)
}

// DisplayName returns the optional name claim.
func (a Account) DisplayName() string {
	return a.stringClaim(ClaimName)
}

// Policy returns the name of the policy that issued the record.
func (a Account) Policy() string {
	if policy := a.stringClaim(ClaimTrustFrameworkPolicy); policy != "" {
		return policy
	}
	return a.stringClaim(ClaimAuthContextClass)
}

func (a Account) stringClaim(name string) string {
	if a.Claims == nil {
		return ""
	}
	value, _ := a.Claims[name].(string)
	return value
}

// AuthResult holds the outcome of a successful token acquisition.
type AuthResult struct {
	AccessToken string
	IDToken     string
	ExpiresOn   time.Time
	Scopes      []string
	Account     Account
}
