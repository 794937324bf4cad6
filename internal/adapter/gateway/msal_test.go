package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"b2c-hub/internal/domain"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	signinAuthority = "https://tenant.b2clogin.com/tenant.onmicrosoft.com/B2C_1_signin/"
	editAuthority   = "https://tenant.b2clogin.com/tenant.onmicrosoft.com/B2C_1_edit/"
)

type fakeMSALClient struct {
	mu          sync.Mutex
	accounts    []public.Account
	result      public.AuthResult
	acquireErr  error
	accountsErr error
	removed     []string
	scopes      []string

	// waitForBrowser makes the interactive flow block until ctx ends, the
	// way the loopback redirect server does when nobody signs in.
	waitForBrowser bool
}

func (f *fakeMSALClient) AcquireTokenInteractive(ctx context.Context, scopes []string, _ ...public.AcquireInteractiveOption) (public.AuthResult, error) {
	if f.waitForBrowser {
		<-ctx.Done()
		return public.AuthResult{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = scopes
	if f.acquireErr != nil {
		return public.AuthResult{}, f.acquireErr
	}
	f.accounts = append(f.accounts, f.result.Account)
	return f.result, nil
}

func (f *fakeMSALClient) AcquireTokenSilent(_ context.Context, scopes []string, _ ...public.AcquireSilentOption) (public.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = scopes
	if f.acquireErr != nil {
		return public.AuthResult{}, f.acquireErr
	}
	return f.result, nil
}

func (f *fakeMSALClient) Accounts(context.Context) ([]public.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return append([]public.Account(nil), f.accounts...), nil
}

func (f *fakeMSALClient) RemoveAccount(_ context.Context, account public.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, account.HomeAccountID)
	kept := f.accounts[:0]
	for _, a := range f.accounts {
		if a.HomeAccountID != account.HomeAccountID {
			kept = append(kept, a)
		}
	}
	f.accounts = kept
	return nil
}

func idToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func authResult(t *testing.T, homeAccountID string, claims jwt.MapClaims) public.AuthResult {
	res := public.AuthResult{
		AccessToken:   "access-" + homeAccountID,
		ExpiresOn:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		GrantedScopes: []string{"openid"},
		Account: public.Account{
			HomeAccountID: homeAccountID,
			Environment:   "tenant.b2clogin.com",
		},
	}
	res.IDToken.RawToken = idToken(t, claims)
	return res
}

func testConfig() *domain.Configuration {
	return &domain.Configuration{
		ClientID:    "client-1",
		RedirectURI: "msauth://callback",
		Authorities: []domain.Authority{
			{URL: signinAuthority, Type: "B2C", IsDefault: true},
			{URL: editAuthority, Type: "B2C"},
		},
	}
}

func newTestFactory(client *fakeMSALClient, created *[]string) *MSALFactory {
	return &MSALFactory{
		newClient: func(clientID, authority string, _ cache.ExportReplace) (msalClient, error) {
			*created = append(*created, authority)
			return client, nil
		},
		timeout:            time.Second,
		interactiveTimeout: time.Minute,
	}
}

func TestMSALFactory_NewClient(t *testing.T) {
	var created []string
	factory := newTestFactory(&fakeMSALClient{}, &created)

	client, err := factory.NewClient(context.Background(), testConfig())

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, []string{signinAuthority}, created)
}

func TestMSALFactory_NewClient_Errors(t *testing.T) {
	var created []string
	factory := newTestFactory(&fakeMSALClient{}, &created)

	_, err := factory.NewClient(context.Background(), &domain.Configuration{ClientID: "c"})
	assert.True(t, errors.Is(err, domain.ErrNoAuthority))

	cfg := testConfig()
	cfg.Authorities[1].URL = "http://tenant.b2clogin.com/tenant.onmicrosoft.com/B2C_1_edit/"
	_, err = factory.NewClient(context.Background(), cfg)
	assert.True(t, errors.Is(err, domain.ErrInvalidAuthority))

	failing := &MSALFactory{
		newClient: func(string, string, cache.ExportReplace) (msalClient, error) {
			return nil, errors.New("invalid authority format")
		},
		timeout: time.Second,
	}
	_, err = failing.NewClient(context.Background(), testConfig())
	assert.True(t, errors.Is(err, domain.ErrInvalidAuthority))
}

func TestMSALGateway_AcquireTokenInteractive(t *testing.T) {
	fake := &fakeMSALClient{result: authResult(t, "alice-signin", jwt.MapClaims{
		"sub":    "alice",
		"name":   "Alice",
		"tfp":    "B2C_1_signin",
		"emails": []any{"alice@example.com"},
	})}
	var created []string
	client, err := newTestFactory(fake, &created).NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	res, err := client.AcquireTokenInteractive(context.Background(), domain.InteractiveRequest{
		Authority: editAuthority,
		Scopes:    []string{"openid"},
		LoginHint: "alice@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "access-alice-signin", res.AccessToken)
	assert.NotEmpty(t, res.IDToken)
	assert.Equal(t, "alice", res.Account.Subject())
	assert.Equal(t, "alice@example.com", res.Account.Username, "falls back to the emails claim")
	assert.Equal(t, []string{signinAuthority, editAuthority}, created, "one client per authority")

	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "alice", accounts[0].Subject(), "claims survive into account enumeration")
	assert.Equal(t, "B2C_1_signin", accounts[0].Policy())
}

func TestMSALGateway_AcquireTokenInteractive_UnknownHost(t *testing.T) {
	var created []string
	client, err := newTestFactory(&fakeMSALClient{}, &created).NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = client.AcquireTokenInteractive(context.Background(), domain.InteractiveRequest{
		Authority: "https://evil.example.com/tenant/B2C_1_signin/",
	})

	assert.True(t, errors.Is(err, domain.ErrInvalidAuthority))
	assert.Len(t, created, 1)
}

func TestMSALGateway_AcquireTokenInteractive_ClassifiesErrors(t *testing.T) {
	fake := &fakeMSALClient{acquireErr: errors.New("AADB2C90118: The user has forgotten their password.")}
	var created []string
	client, err := newTestFactory(fake, &created).NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = client.AcquireTokenInteractive(context.Background(), domain.InteractiveRequest{Authority: signinAuthority})

	assert.True(t, errors.Is(err, domain.ErrPasswordReset))
	assert.Equal(t, domain.StatePasswordReset, domain.Classify(err))
}

func TestMSALGateway_AcquireTokenInteractive_AbandonedFlowTimesOut(t *testing.T) {
	var created []string
	factory := newTestFactory(&fakeMSALClient{waitForBrowser: true}, &created)
	factory.interactiveTimeout = 20 * time.Millisecond
	client, err := factory.NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = client.AcquireTokenInteractive(context.Background(), domain.InteractiveRequest{Authority: signinAuthority})

	assert.True(t, errors.Is(err, domain.ErrUserCancelled))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, domain.StateUserCancelled, domain.Classify(err))
}

func TestMSALGateway_AcquireTokenInteractive_CallerCancellation(t *testing.T) {
	var created []string
	client, err := newTestFactory(&fakeMSALClient{waitForBrowser: true}, &created).NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.AcquireTokenInteractive(ctx, domain.InteractiveRequest{Authority: signinAuthority})

	assert.True(t, errors.Is(err, domain.ErrUserCancelled))
}

func TestMSALGateway_AcquireTokenSilent(t *testing.T) {
	fake := &fakeMSALClient{
		accounts: []public.Account{{HomeAccountID: "alice-signin"}},
		result:   authResult(t, "alice-signin", jwt.MapClaims{"sub": "alice"}),
	}
	var created []string
	client, err := newTestFactory(fake, &created).NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	res, err := client.AcquireTokenSilent(context.Background(), domain.SilentRequest{
		Authority: signinAuthority,
		Scopes:    []string{"https://tenant.onmicrosoft.com/api/read"},
		Account:   domain.Account{HomeAccountID: "alice-signin"},
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", res.Account.Subject())
	assert.Equal(t, []string{"https://tenant.onmicrosoft.com/api/read"}, fake.scopes)
}

func TestMSALGateway_AcquireTokenSilent_AccountMissing(t *testing.T) {
	var created []string
	client, err := newTestFactory(&fakeMSALClient{}, &created).NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = client.AcquireTokenSilent(context.Background(), domain.SilentRequest{
		Authority: signinAuthority,
		Account:   domain.Account{HomeAccountID: "gone"},
	})

	assert.True(t, errors.Is(err, domain.ErrInteractionRequired))
}

func TestMSALGateway_RemoveAccount(t *testing.T) {
	fake := &fakeMSALClient{accounts: []public.Account{{HomeAccountID: "a"}, {HomeAccountID: "b"}}}
	var created []string
	client, err := newTestFactory(fake, &created).NewClient(context.Background(), testConfig())
	require.NoError(t, err)

	require.NoError(t, client.RemoveAccount(context.Background(), domain.Account{HomeAccountID: "a"}))
	require.NoError(t, client.RemoveAccount(context.Background(), domain.Account{HomeAccountID: "missing"}))

	assert.Equal(t, []string{"a"}, fake.removed)
	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "b", accounts[0].HomeAccountID)
}

func TestClassifyMSALError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"cancelled context", context.Canceled, domain.ErrUserCancelled},
		{"user backed out", errors.New("access_denied: AADB2C90091: The user has cancelled entering self-asserted information."), domain.ErrUserCancelled},
		{"password reset", errors.New("AADB2C90118: forgot password"), domain.ErrPasswordReset},
		{"timeout", context.DeadlineExceeded, domain.ErrServiceFailure},
		{"server error", msalerrors.CallErr{Resp: &http.Response{StatusCode: http.StatusBadGateway}, Err: errors.New("bad gateway")}, domain.ErrServiceFailure},
		{"invalid grant", msalerrors.CallErr{Resp: &http.Response{StatusCode: http.StatusBadRequest}, Err: errors.New("invalid_grant: refresh token expired")}, domain.ErrInteractionRequired},
		{"interaction required", fmt.Errorf("silent: %w", errors.New("interaction_required")), domain.ErrInteractionRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(classifyMSALError(tt.err), tt.want))
		})
	}

	plain := errors.New("something odd")
	assert.Equal(t, plain, classifyMSALError(plain))
	assert.NoError(t, classifyMSALError(nil))
}

func TestLoopbackRedirect(t *testing.T) {
	assert.Equal(t, "http://localhost:8400", loopbackRedirect("http://localhost:8400"))
	assert.Equal(t, "http://127.0.0.1:8400/cb", loopbackRedirect("http://127.0.0.1:8400/cb"))
	assert.Empty(t, loopbackRedirect("msauth.com.example://auth"))
	assert.Empty(t, loopbackRedirect("http://example.com/cb"))
}

type blob struct{ data []byte }

func (b *blob) Marshal() ([]byte, error) { return b.data, nil }

func (b *blob) Unmarshal(data []byte) error {
	b.data = append([]byte(nil), data...)
	return nil
}

func TestSharedCache_ReplaceExport(t *testing.T) {
	shared := &sharedCache{}
	ctx := context.Background()

	fresh := &blob{}
	require.NoError(t, shared.Replace(ctx, fresh, cache.ReplaceHints{}))
	assert.Nil(t, fresh.data, "empty cache leaves the client untouched")

	require.NoError(t, shared.Export(ctx, &blob{data: []byte(`{"Account":{}}`)}, cache.ExportHints{}))

	other := &blob{}
	require.NoError(t, shared.Replace(ctx, other, cache.ReplaceHints{}))
	assert.Equal(t, `{"Account":{}}`, string(other.data))
}

func TestParseIDTokenClaims(t *testing.T) {
	claims, err := parseIDTokenClaims(idToken(t, jwt.MapClaims{"sub": "alice", "emails": []any{"a@example.com"}}))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "a@example.com", firstEmail(claims))

	_, err = parseIDTokenClaims("")
	assert.Error(t, err)
	_, err = parseIDTokenClaims("not-a-jwt")
	assert.Error(t, err)
}
