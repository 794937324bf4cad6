package usecase

import (
	"context"
	"fmt"
	"time"

	"b2c-hub/internal/domain"
	"b2c-hub/utils/logger"
)

// SignOut removes every platform account of subject and forgets its auth
// result. The event carries tag.
func (p *B2CProvider) SignOut(ctx context.Context, subject, tag string) domain.OperationResult {
	started := time.Now()
	const source = domain.SourceSignOut
	ctx = logger.WithOperation(ctx, source)
	ctx = logger.WithSubject(ctx, subject)
	ctx = logger.WithTag(ctx, tag)

	client, _ := p.snapshot()
	u, err := p.user(subject)
	if err != nil {
		return p.fail(ctx, source, tag, err, started)
	}

	for _, account := range u.Accounts {
		if err := client.RemoveAccount(ctx, account); err != nil {
			return p.fail(ctx, source, tag, fmt.Errorf("remove account %s: %w", account.HomeAccountID, err), started)
		}
	}

	p.dropResult(subject)
	if err := p.reloadAccounts(ctx); err != nil {
		return p.fail(ctx, source, tag, err, started)
	}
	return p.succeed(ctx, source, tag, subject, started)
}
