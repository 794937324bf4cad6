package usecase

import (
	"context"
	"time"

	"b2c-hub/internal/domain"
	"b2c-hub/utils/logger"
)

// AcquireTokenSilent refreshes the tokens of subject against policyName
// without user interaction. The event carries tag.
func (p *B2CProvider) AcquireTokenSilent(ctx context.Context, subject, tag, policyName string, scopes []string) domain.OperationResult {
	started := time.Now()
	const source = domain.SourcePolicyTriggerSilently
	ctx = logger.WithOperation(ctx, source)
	ctx = logger.WithSubject(ctx, subject)
	ctx = logger.WithPolicy(ctx, policyName)
	ctx = logger.WithTag(ctx, tag)

	client, cfg := p.snapshot()
	u, err := p.user(subject)
	if err != nil {
		return p.fail(ctx, source, tag, err, started)
	}

	account, _ := u.AccountForPolicy(policyName)
	authority, err := p.AuthorityForPolicy(policyName)
	if err != nil {
		return p.fail(ctx, source, tag, err, started)
	}

	res, err := client.AcquireTokenSilent(ctx, domain.SilentRequest{
		Authority: authority,
		Scopes:    scopesOrDefault(scopes, cfg),
		Account:   account,
	})
	if err != nil {
		return p.fail(ctx, source, tag, err, started)
	}

	p.storeResult(subject, res)
	if err := p.reloadAccounts(ctx); err != nil {
		return p.fail(ctx, source, tag, err, started)
	}
	return p.succeed(ctx, source, tag, subject, started)
}
