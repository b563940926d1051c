// Package token caches short-lived provider access tokens for the search
// fan-out. Entries live in process memory only and are rebuilt from the vault
// whenever missing or close to expiry.
package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/pkg/logger"
)

const minSafetyMargin = time.Minute

// CredentialSource is satisfied by the vault.
type CredentialSource interface {
	Get(ctx context.Context, providerID string) (*domain.Provider, error)
}

// Exchanger performs the provider's client-credentials exchange.
type Exchanger interface {
	Exchange(ctx context.Context, p *domain.Provider) (token string, expiresIn time.Duration, err error)
}

type entry struct {
	token     string
	expiresAt time.Time
}

// Cache is constructed once in main and handed to the aggregator; there is
// no package-level state. Concurrent refreshes for the same provider are
// allowed, the most recently obtained token wins.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]entry
	creds     CredentialSource
	exchanger Exchanger
	margin    time.Duration

	now func() time.Time
}

func NewCache(creds CredentialSource, exchanger Exchanger, safetyMargin time.Duration) *Cache {
	if safetyMargin < minSafetyMargin {
		safetyMargin = minSafetyMargin
	}
	return &Cache{
		entries:   make(map[string]entry),
		creds:     creds,
		exchanger: exchanger,
		margin:    safetyMargin,
		now:       time.Now,
	}
}

// Token returns a valid access token for the provider, refreshing through
// the vault when the cached one is missing or within the safety margin of
// expiry. Failures leave no cache entry behind so the next call retries
// cleanly.
func (c *Cache) Token(ctx context.Context, providerID string) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[providerID]
	now := c.now()
	c.mu.Unlock()

	if ok && now.Before(e.expiresAt.Add(-c.margin)) {
		return e.token, nil
	}

	p, err := c.creds.Get(ctx, providerID)
	if err != nil {
		return "", fmt.Errorf("load credentials for %s: %w", providerID, err)
	}
	if p == nil || !p.HasCredentials() {
		return "", fmt.Errorf("%w: %s", domain.ErrProviderCredentialsMissing, providerID)
	}

	tok, expiresIn, err := c.exchanger.Exchange(ctx, p)
	if err != nil {
		c.evict(providerID)
		return "", err
	}

	c.mu.Lock()
	c.entries[providerID] = entry{token: tok, expiresAt: c.now().Add(expiresIn)}
	c.mu.Unlock()

	logger.DebugContext(ctx, "Refreshed provider token", "provider", providerID, "expires_in", expiresIn)
	return tok, nil
}

func (c *Cache) evict(providerID string) {
	c.mu.Lock()
	delete(c.entries, providerID)
	c.mu.Unlock()
}
