package usecase

import (
	"fmt"

	"b2c-hub/internal/domain"
)

// Configuration returns the loaded configuration.
func (p *B2CProvider) Configuration() (*domain.Configuration, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return nil, domain.ErrNotInitialized
	}
	return p.cfg, nil
}

// Subjects lists the subjects of known users in reload order.
func (p *B2CProvider) Subjects() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return nil, domain.ErrNotInitialized
	}

	subjects := make([]string, 0, len(p.users))
	for _, u := range p.users {
		subjects = append(subjects, u.Subject())
	}
	return subjects, nil
}

// HasSubject reports whether subject belongs to a known user. It is false
// before initialization.
func (p *B2CProvider) HasSubject(subject string) bool {
	_, err := p.user(subject)
	return err == nil
}

// User returns the user owning subject.
func (p *B2CProvider) User(subject string) (domain.User, error) {
	return p.user(subject)
}

// AccessToken returns the latest auth result stored for subject.
func (p *B2CProvider) AccessToken(subject string) (*domain.AuthResult, error) {
	if !p.Initialized() {
		return nil, domain.ErrNotInitialized
	}
	res, ok := p.results.Get(subject)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSubjectNotAuthenticated, subject)
	}
	return res, nil
}
