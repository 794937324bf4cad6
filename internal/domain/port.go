package domain

import "context"

// InteractiveRequest describes a user-facing token acquisition.
type InteractiveRequest struct {
	Authority string
	Scopes    []string
	LoginHint string
}

// SilentRequest describes a token acquisition from cached credentials.
type SilentRequest struct {
	Authority string
	Scopes    []string
	Account   Account
}

// PublicClient is the platform auth library bound to one B2C application.
type PublicClient interface {
	AcquireTokenInteractive(ctx context.Context, req InteractiveRequest) (*AuthResult, error)
	AcquireTokenSilent(ctx context.Context, req SilentRequest) (*AuthResult, error)
	Accounts(ctx context.Context) ([]Account, error)
	RemoveAccount(ctx context.Context, account Account) error
}

// ClientFactory builds a PublicClient for a loaded configuration.
// Every authority in the configuration is registered as known.
type ClientFactory interface {
	NewClient(ctx context.Context, cfg *Configuration) (PublicClient, error)
}

// ConfigurationLoader resolves a bundled configuration resource by name.
type ConfigurationLoader interface {
	Load(name string) (*Configuration, error)
}

// EventSink delivers operation results back to the caller.
type EventSink interface {
	Publish(ctx context.Context, result OperationResult) error
}

// AuthResultStore keeps the latest successful auth result per subject.
type AuthResultStore interface {
	Get(subject string) (*AuthResult, bool)
	Set(subject string, result *AuthResult)
	Delete(subject string)
	Retain(subjects []string)
	Purge()
}
