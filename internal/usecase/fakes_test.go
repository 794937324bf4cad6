package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"b2c-hub/internal/domain"
)

const (
	signinAuthority = "https://tenant.b2clogin.com/tenant.onmicrosoft.com/B2C_1_signin/"
	resetAuthority  = "https://tenant.b2clogin.com/tenant.onmicrosoft.com/B2C_1_reset/"
)

func testConfiguration() *domain.Configuration {
	return &domain.Configuration{
		ClientID:    "client-1",
		RedirectURI: "msauth://callback",
		AccountMode: domain.AccountModeMulti,
		Authorities: []domain.Authority{
			{URL: signinAuthority, Type: "B2C", IsDefault: true},
			{URL: resetAuthority, Type: "B2C"},
		},
		DefaultScopes: []string{"openid", "offline_access"},
	}
}

type fakeLoader struct {
	cfg *domain.Configuration
	err error
}

func (f *fakeLoader) Load(string) (*domain.Configuration, error) {
	return f.cfg, f.err
}

type fakeFactory struct {
	client *fakeClient
	err    error
	calls  int
}

func (f *fakeFactory) NewClient(context.Context, *domain.Configuration) (domain.PublicClient, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// fakeClient keeps accounts in memory the way the platform cache would.
type fakeClient struct {
	mu          sync.Mutex
	accounts    []domain.Account
	result      *domain.AuthResult
	acquireErr  error
	accountsErr error
	removeErr   error

	// resultFor, when set, answers acquisitions per login hint or subject.
	resultFor func(key string) *domain.AuthResult
	// waitForBrowser blocks interactive flows until ctx ends.
	waitForBrowser bool
	// park holds the next account enumeration after it has read the list.
	park *parkedList

	interactive []domain.InteractiveRequest
	silent      []domain.SilentRequest
	removed     []string
	listCalls   int
}

type parkedList struct {
	entered chan struct{}
	release chan struct{}
}

func newParkedList() *parkedList {
	return &parkedList{entered: make(chan struct{}), release: make(chan struct{})}
}

func (f *fakeClient) AcquireTokenInteractive(ctx context.Context, req domain.InteractiveRequest) (*domain.AuthResult, error) {
	f.mu.Lock()
	f.interactive = append(f.interactive, req)
	wait := f.waitForBrowser
	f.mu.Unlock()

	if wait {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", domain.ErrUserCancelled, ctx.Err())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	res := f.result
	if f.resultFor != nil {
		res = f.resultFor(req.LoginHint)
	}
	f.accounts = append(f.accounts, res.Account)
	return res, nil
}

func (f *fakeClient) AcquireTokenSilent(_ context.Context, req domain.SilentRequest) (*domain.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silent = append(f.silent, req)
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	if f.resultFor != nil {
		return f.resultFor(req.Account.Subject()), nil
	}
	return f.result, nil
}

func (f *fakeClient) Accounts(context.Context) ([]domain.Account, error) {
	f.mu.Lock()
	f.listCalls++
	if f.accountsErr != nil {
		f.mu.Unlock()
		return nil, f.accountsErr
	}
	accounts := append([]domain.Account(nil), f.accounts...)
	park := f.park
	f.park = nil
	f.mu.Unlock()

	if park != nil {
		close(park.entered)
		<-park.release
	}
	return accounts, nil
}

func (f *fakeClient) RemoveAccount(_ context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
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

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*domain.AuthResult
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*domain.AuthResult)}
}

func (s *memoryStore) Get(subject string) (*domain.AuthResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.entries[subject]
	return r, ok
}

func (s *memoryStore) Set(subject string, result *domain.AuthResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[subject] = result
}

func (s *memoryStore) Delete(subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, subject)
}

func (s *memoryStore) Retain(subjects []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := make(map[string]bool, len(subjects))
	for _, subject := range subjects {
		keep[subject] = true
	}
	for subject := range s.entries {
		if !keep[subject] {
			delete(s.entries, subject)
		}
	}
}

func (s *memoryStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*domain.AuthResult)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.OperationResult
	err    error

	// onPublish sees every event at the moment it is published.
	onPublish func(domain.OperationResult)
}

func (s *recordingSink) Publish(_ context.Context, r domain.OperationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onPublish != nil {
		s.onPublish(r)
	}
	s.events = append(s.events, r)
	return s.err
}

func (s *recordingSink) all() []domain.OperationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OperationResult(nil), s.events...)
}

func testAccount(home, subject, policy string) domain.Account {
	claims := map[string]any{"tfp": policy, "name": "User " + subject}
	if subject != "" {
		claims["sub"] = subject
	}
	return domain.Account{HomeAccountID: home, Username: subject + "@example.com", Claims: claims}
}

type harness struct {
	provider *B2CProvider
	client   *fakeClient
	factory  *fakeFactory
	loader   *fakeLoader
	store    *memoryStore
	sink     *recordingSink
}

func newHarness() *harness {
	client := &fakeClient{}
	h := &harness{
		client:  client,
		factory: &fakeFactory{client: client},
		loader:  &fakeLoader{cfg: testConfiguration()},
		store:   newMemoryStore(),
		sink:    &recordingSink{},
	}
	h.provider = NewB2CProvider(h.loader, h.factory, h.store, h.sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h
}

func (h *harness) initialized() *harness {
	h.provider.Initialize(context.Background(), "auth_config")
	return h
}
