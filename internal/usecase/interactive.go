package usecase

import (
	"context"
	"fmt"
	"time"

	"b2c-hub/internal/domain"
	"b2c-hub/utils/logger"
)

// AcquireTokenInteractive runs the user-facing flow of policyName. The
// success event carries the subject of the signed-in user and is emitted
// only after the account list has been reloaded.
func (p *B2CProvider) AcquireTokenInteractive(ctx context.Context, policyName string, scopes []string, loginHint string) domain.OperationResult {
	started := time.Now()
	const source = domain.SourcePolicyTriggerInteractive
	ctx = logger.WithOperation(ctx, source)
	ctx = logger.WithPolicy(ctx, policyName)

	client, cfg := p.snapshot()
	if client == nil {
		return p.fail(ctx, source, "", domain.ErrNotInitialized, started)
	}

	authority, err := p.AuthorityForPolicy(policyName)
	if err != nil {
		return p.fail(ctx, source, "", err, started)
	}

	res, err := client.AcquireTokenInteractive(ctx, domain.InteractiveRequest{
		Authority: authority,
		Scopes:    scopesOrDefault(scopes, cfg),
		LoginHint: loginHint,
	})
	if err != nil {
		return p.fail(ctx, source, "", err, started)
	}

	subject := res.Account.Subject()
	if subject == "" {
		return p.fail(ctx, source, "", fmt.Errorf("%w: id token carries no subject", domain.ErrSubjectNotAuthenticated), started)
	}
	ctx = logger.WithSubject(ctx, subject)

	p.storeResult(subject, res)
	if err := p.reloadAccounts(ctx); err != nil {
		return p.fail(ctx, source, "", err, started)
	}
	return p.succeed(ctx, source, "", subject, started)
}

func scopesOrDefault(scopes []string, cfg *domain.Configuration) []string {
	if len(scopes) > 0 || cfg == nil {
		return scopes
	}
	return cfg.DefaultScopes
}
