package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"b2c-hub/internal/domain"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
)

// msalClient is the subset of public.Client used by the gateway.
type msalClient interface {
	AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error)
	Accounts(ctx context.Context) ([]public.Account, error)
	RemoveAccount(ctx context.Context, account public.Account) error
}

type newClientFunc func(clientID, authority string, accessor cache.ExportReplace) (msalClient, error)

// MSALFactory implements domain.ClientFactory on top of MSAL public clients.
type MSALFactory struct {
	newClient          newClientFunc
	timeout            time.Duration
	interactiveTimeout time.Duration
}

// NewMSALFactory creates a factory whose clients share one tuned HTTP
// transport. timeout bounds cache reads and silent acquisitions.
// interactiveTimeout bounds how long a browser flow may wait for the user.
func NewMSALFactory(timeout, interactiveTimeout time.Duration) *MSALFactory {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	return &MSALFactory{
		newClient: func(clientID, authority string, accessor cache.ExportReplace) (msalClient, error) {
			client, err := public.New(clientID,
				public.WithAuthority(authority),
				public.WithCache(accessor),
				public.WithHTTPClient(httpClient),
				public.WithInstanceDiscovery(false),
			)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		timeout:            timeout,
		interactiveTimeout: interactiveTimeout,
	}
}

// NewClient builds a gateway bound to the default authority of cfg. Every
// configured authority host is registered as known.
func (f *MSALFactory) NewClient(_ context.Context, cfg *domain.Configuration) (domain.PublicClient, error) {
	def, ok := cfg.DefaultAuthority()
	if !ok {
		return nil, domain.ErrNoAuthority
	}

	known := make(map[string]struct{}, len(cfg.Authorities))
	for _, authority := range cfg.Authorities {
		u, err := parseAuthority(authority.URL)
		if err != nil {
			return nil, err
		}
		known[strings.ToLower(u.Host)] = struct{}{}
	}

	gw := &MSALGateway{
		clientID:         cfg.ClientID,
		redirectURI:      loopbackRedirect(cfg.RedirectURI),
		defaultAuthority: def.URL,
		knownHosts:       known,
		cache:            &sharedCache{},
		newClient:        f.newClient,
		timeout:          f.timeout,
		interactive:      f.interactiveTimeout,
		clients:          make(map[string]msalClient),
		claims:           newClaimsIndex(),
	}

	if _, err := gw.clientFor(def.URL); err != nil {
		return nil, err
	}
	return gw, nil
}

// MSALGateway implements domain.PublicClient. MSAL binds a client to one
// authority, so the gateway keeps one client per policy authority and lets
// them share a single token cache.
type MSALGateway struct {
	clientID         string
	redirectURI      string
	defaultAuthority string
	knownHosts       map[string]struct{}
	cache            *sharedCache
	newClient        newClientFunc
	timeout          time.Duration
	interactive      time.Duration

	mu      sync.Mutex
	clients map[string]msalClient

	claims *claimsIndex
}

// AcquireTokenInteractive runs the browser flow against req.Authority.
func (g *MSALGateway) AcquireTokenInteractive(ctx context.Context, req domain.InteractiveRequest) (*domain.AuthResult, error) {
	client, err := g.clientFor(req.Authority)
	if err != nil {
		return nil, err
	}

	var opts []public.AcquireInteractiveOption
	if req.LoginHint != "" {
		opts = append(opts, public.WithLoginHint(req.LoginHint))
	}
	if g.redirectURI != "" {
		opts = append(opts, public.WithRedirectURI(g.redirectURI))
	}

	if g.interactive > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.interactive)
		defer cancel()
	}

	res, err := client.AcquireTokenInteractive(ctx, req.Scopes, opts...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// the user walked away from the browser
		return nil, fmt.Errorf("%w: no response within %s: %w", domain.ErrUserCancelled, g.interactive, err)
	}
	if err != nil {
		return nil, classifyMSALError(err)
	}
	return g.toAuthResult(res)
}

// AcquireTokenSilent refreshes tokens for req.Account from the shared cache.
func (g *MSALGateway) AcquireTokenSilent(ctx context.Context, req domain.SilentRequest) (*domain.AuthResult, error) {
	client, err := g.clientFor(req.Authority)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	account, err := g.lookup(ctx, client, req.Account.HomeAccountID)
	if errors.Is(err, errAccountNotCached) {
		return nil, fmt.Errorf("%w: %w", domain.ErrInteractionRequired, err)
	}
	if err != nil {
		return nil, err
	}

	res, err := client.AcquireTokenSilent(ctx, req.Scopes, public.WithSilentAccount(account))
	if err != nil {
		return nil, classifyMSALError(err)
	}
	return g.toAuthResult(res)
}

// Accounts lists every cached account with the claims of the ID token it was
// last issued with.
func (g *MSALGateway) Accounts(ctx context.Context) ([]domain.Account, error) {
	client, err := g.clientFor(g.defaultAuthority)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return nil, classifyMSALError(err)
	}

	out := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, g.toAccount(account, nil))
	}
	return out, nil
}

// RemoveAccount deletes the cached account and its tokens. Removing an
// account that is already gone is not an error.
func (g *MSALGateway) RemoveAccount(ctx context.Context, account domain.Account) error {
	client, err := g.clientFor(g.defaultAuthority)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cached, err := g.lookup(ctx, client, account.HomeAccountID)
	if err != nil {
		if errors.Is(err, errAccountNotCached) {
			g.claims.Delete(account.HomeAccountID)
			return nil
		}
		return err
	}

	if err := client.RemoveAccount(ctx, cached); err != nil {
		return classifyMSALError(err)
	}
	g.claims.Delete(account.HomeAccountID)
	return nil
}

func (g *MSALGateway) lookup(ctx context.Context, client msalClient, homeAccountID string) (public.Account, error) {
	accounts, err := client.Accounts(ctx)
	if err != nil {
		return public.Account{}, classifyMSALError(err)
	}
	for _, account := range accounts {
		if account.HomeAccountID == homeAccountID {
			return account, nil
		}
	}
	return public.Account{}, errAccountNotCached
}

func (g *MSALGateway) clientFor(authority string) (msalClient, error) {
	u, err := parseAuthority(authority)
	if err != nil {
		return nil, err
	}
	if _, ok := g.knownHosts[strings.ToLower(u.Host)]; !ok {
		return nil, fmt.Errorf("%w: unknown host %q", domain.ErrInvalidAuthority, u.Host)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[authority]; ok {
		return client, nil
	}
	client, err := g.newClient(g.clientID, authority, g.cache)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidAuthority, err)
	}
	g.clients[authority] = client
	return client, nil
}

func (g *MSALGateway) toAuthResult(res public.AuthResult) (*domain.AuthResult, error) {
	claims, err := parseIDTokenClaims(res.IDToken.RawToken)
	if err != nil {
		return nil, err
	}
	g.claims.Set(res.Account.HomeAccountID, claims)

	return &domain.AuthResult{
		AccessToken: res.AccessToken,
		IDToken:     res.IDToken.RawToken,
		ExpiresOn:   res.ExpiresOn,
		Scopes:      res.GrantedScopes,
		Account:     g.toAccount(res.Account, claims),
	}, nil
}

func (g *MSALGateway) toAccount(account public.Account, claims map[string]any) domain.Account {
	if claims == nil {
		claims = g.claims.Get(account.HomeAccountID)
	}
	username := account.PreferredUsername
	if username == "" {
		username = firstEmail(claims)
	}
	return domain.Account{
		HomeAccountID: account.HomeAccountID,
		Environment:   account.Environment,
		Username:      username,
		Claims:        claims,
	}
}

func parseAuthority(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidAuthority, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an https URL", domain.ErrInvalidAuthority, raw)
	}
	return u, nil
}

// loopbackRedirect returns redirect when a desktop browser flow can listen
// on it. Mobile schemes such as msauth:// are left to MSAL's default.
func loopbackRedirect(redirect string) string {
	u, err := url.Parse(redirect)
	if err != nil || u.Scheme != "http" {
		return ""
	}
	host := u.Hostname()
	if host == "localhost" {
		return redirect
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return redirect
	}
	return ""
}
