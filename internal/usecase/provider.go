package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"b2c-hub/internal/domain"
	"b2c-hub/metrics"
	"b2c-hub/utils/logger"

	"golang.org/x/sync/singleflight"
)

// B2CProvider owns the platform client of one B2C application and turns
// every operation into exactly one OperationResult event.
type B2CProvider struct {
	loader  domain.ConfigurationLoader
	factory domain.ClientFactory
	results domain.AuthResultStore
	events  domain.EventSink
	log     *logger.ContextLogger

	mu       sync.RWMutex
	cfg      *domain.Configuration
	client   domain.PublicClient
	hostName string
	tenant   string
	users    []domain.User

	// writes counts changes to results. installed is the value of writes
	// when the current user list was enumerated.
	writes    uint64
	installed uint64
	reloads   singleflight.Group

	emitMu sync.Mutex
	seq    uint64

	stop   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewB2CProvider creates a provider. It stays uninitialized until
// Initialize succeeds.
func NewB2CProvider(
	loader domain.ConfigurationLoader,
	factory domain.ClientFactory,
	results domain.AuthResultStore,
	events domain.EventSink,
	l *slog.Logger,
) *B2CProvider {
	stop, cancel := context.WithCancel(context.Background())
	return &B2CProvider{
		loader:  loader,
		factory: factory,
		results: results,
		events:  events,
		log:     logger.NewContextLogger(l),
		stop:    stop,
		cancel:  cancel,
	}
}

// Go runs fn in the background. fn keeps the values of ctx but not its
// cancellation, so a started operation always reports its outcome. Only
// Shutdown cancels it.
func (p *B2CProvider) Go(ctx context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	release := context.AfterFunc(p.stop, cancel)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		defer release()
		fn(ctx)
	}()
}

// Wait blocks until every operation started with Go has finished.
func (p *B2CProvider) Wait() {
	p.wg.Wait()
}

// Shutdown cancels every operation started with Go and waits for them to
// emit their final event. It returns ctx.Err() if ctx ends first.
func (p *B2CProvider) Shutdown(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for operations: %w", ctx.Err())
	}
}

// Initialized reports whether a client is ready.
func (p *B2CProvider) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}

// AuthorityForPolicy builds https://{host}/{tenant}/{policy}/ from the
// default authority. An empty policy selects the default authority.
func (p *B2CProvider) AuthorityForPolicy(policyName string) (string, error) {
	p.mu.RLock()
	cfg, host, tenant := p.cfg, p.hostName, p.tenant
	p.mu.RUnlock()

	if cfg == nil {
		return "", domain.ErrNotInitialized
	}
	if policyName == "" {
		def, _ := cfg.DefaultAuthority()
		return def.URL, nil
	}
	if strings.ContainsAny(policyName, "/?#%\\ ") || url.PathEscape(policyName) != policyName {
		return "", fmt.Errorf("%w: policy %q is not a single path segment", domain.ErrInvalidAuthority, policyName)
	}

	authority := fmt.Sprintf("https://%s/%s/%s/", host, tenant, policyName)
	if _, err := url.Parse(authority); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidAuthority, err)
	}
	return authority, nil
}

// splitAuthority extracts the host and tenant of an authority URL of the
// form https://{host}/{tenant}/{policy}/.
func splitAuthority(authority string) (host, tenant string, err error) {
	u, err := url.Parse(authority)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrInvalidAuthority, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q is not an https URL", domain.ErrInvalidAuthority, authority)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if segments[0] == "" {
		return "", "", fmt.Errorf("%w: %q has no tenant segment", domain.ErrInvalidAuthority, authority)
	}
	return u.Host, segments[0], nil
}

func (p *B2CProvider) snapshot() (domain.PublicClient, *domain.Configuration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client, p.cfg
}

func (p *B2CProvider) user(subject string) (domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.client == nil {
		return domain.User{}, domain.ErrNotInitialized
	}
	for _, u := range p.users {
		if u.Subject() == subject {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("%w: %s", domain.ErrSubjectNotFound, subject)
}

// storeResult and dropResult change results under mu so that a running
// enumeration can tell it is stale.
func (p *B2CProvider) storeResult(subject string, result *domain.AuthResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results.Set(subject, result)
	p.writes++
}

func (p *B2CProvider) dropResult(subject string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results.Delete(subject)
	p.writes++
}

func (p *B2CProvider) purgeResults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results.Purge()
	p.writes++
}

// reloadAccounts replaces the user list with the platform's current
// accounts. Concurrent reloads share one enumeration, but a caller only
// returns once the installed list was enumerated after its own writes.
func (p *B2CProvider) reloadAccounts(ctx context.Context) error {
	p.mu.RLock()
	want := p.writes
	p.mu.RUnlock()

	for {
		_, err, _ := p.reloads.Do("accounts", func() (interface{}, error) {
			return nil, p.enumerateAccounts(ctx)
		})
		if err != nil {
			return err
		}

		p.mu.RLock()
		fresh := p.installed >= want
		p.mu.RUnlock()
		if fresh {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
	}
}

// enumerateAccounts lists the platform accounts and installs them unless
// results changed meanwhile, in which case it lists them again.
func (p *B2CProvider) enumerateAccounts(ctx context.Context) error {
	for {
		p.mu.RLock()
		client, start := p.client, p.writes
		p.mu.RUnlock()
		if client == nil {
			return domain.ErrNotInitialized
		}

		accounts, err := client.Accounts(ctx)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}

		users, unattributed := domain.GroupUsers(accounts)
		subjects := make([]string, 0, len(users))
		for _, u := range users {
			subjects = append(subjects, u.Subject())
		}

		p.mu.Lock()
		if p.writes != start {
			p.mu.Unlock()
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("load accounts: %w", err)
			}
			continue
		}
		p.users = users
		p.installed = start
		p.results.Retain(subjects)
		p.mu.Unlock()

		if unattributed > 0 {
			p.log.WithContext(ctx).WarnContext(ctx, "dropped accounts without subject claim", "count", unattributed)
		}
		metrics.RecordAccountReload(len(users), unattributed)
		return nil
	}
}

func (p *B2CProvider) emit(ctx context.Context, result domain.OperationResult, started time.Time) domain.OperationResult {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.seq++
	result.Seq = p.seq

	if err := p.events.Publish(context.WithoutCancel(ctx), result); err != nil {
		p.log.WithContext(ctx).ErrorContext(ctx, "failed to publish operation result",
			"source", result.Source,
			"seq", result.Seq,
			"error", err,
		)
	}
	metrics.RecordOperation(result.Source, result.Reason.String(), time.Since(started).Seconds())
	p.log.LogDuration(ctx, result.Source, time.Since(started).Milliseconds())
	return result
}

func (p *B2CProvider) succeed(ctx context.Context, source, tag string, data any, started time.Time) domain.OperationResult {
	return p.emit(ctx, domain.OperationResult{
		Source: source,
		Reason: domain.StateSuccess,
		Data:   data,
		Tag:    tag,
	}, started)
}

func (p *B2CProvider) fail(ctx context.Context, source, tag string, err error, started time.Time) domain.OperationResult {
	state := domain.Classify(err)
	p.log.LogError(ctx, source, err,
		"reason", state.String(),
		"kind", domain.ErrorKind(err),
	)
	return p.emit(ctx, domain.OperationResult{
		Source: source,
		Reason: state,
		Data:   domain.ErrorPayload(err),
		Tag:    tag,
	}, started)
}
