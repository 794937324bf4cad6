package usecase

import (
	"context"
	"time"

	"b2c-hub/internal/domain"
	"b2c-hub/utils/logger"
)

// Initialize loads the configuration resource fileName, builds a client for
// it and loads the cached accounts. On failure no client is kept, even one
// from an earlier successful call.
func (p *B2CProvider) Initialize(ctx context.Context, fileName string) domain.OperationResult {
	started := time.Now()
	ctx = logger.WithOperation(ctx, domain.SourceInit)

	cfg, err := p.loader.Load(fileName)
	if err != nil {
		p.reset()
		return p.fail(ctx, domain.SourceInit, "", err, started)
	}

	def, ok := cfg.DefaultAuthority()
	if !ok {
		p.reset()
		return p.fail(ctx, domain.SourceInit, "", domain.ErrNoAuthority, started)
	}
	host, tenant, err := splitAuthority(def.URL)
	if err != nil {
		p.reset()
		return p.fail(ctx, domain.SourceInit, "", err, started)
	}

	client, err := p.factory.NewClient(ctx, cfg)
	if err != nil {
		p.reset()
		return p.fail(ctx, domain.SourceInit, "", err, started)
	}

	p.mu.Lock()
	p.cfg = cfg
	p.client = client
	p.hostName = host
	p.tenant = tenant
	p.users = nil
	p.mu.Unlock()
	p.purgeResults()

	if err := p.reloadAccounts(ctx); err != nil {
		p.reset()
		return p.fail(ctx, domain.SourceInit, "", err, started)
	}

	p.log.WithContext(ctx).InfoContext(ctx, "b2c client initialized",
		"client_id", cfg.ClientID,
		"authorities", len(cfg.Authorities),
	)
	return p.succeed(ctx, domain.SourceInit, "", nil, started)
}

func (p *B2CProvider) reset() {
	p.mu.Lock()
	p.cfg = nil
	p.client = nil
	p.hostName = ""
	p.tenant = ""
	p.users = nil
	p.mu.Unlock()
	p.purgeResults()
}
