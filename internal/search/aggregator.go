// Package search fans a single logical search out to every eligible provider
// and merges whatever comes back. Results are never cached; every call is a
// live fan-out.
package search

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/pkg/logger"
)

// ProviderStore is the secret-free slice of the provider repository the
// aggregator needs.
type ProviderStore interface {
	Descriptors(ctx context.Context, ids []string) ([]domain.ProviderDescriptor, error)
	Flags(ctx context.Context) (map[string]bool, error)
}

// TokenSource is satisfied by the token cache.
type TokenSource interface {
	Token(ctx context.Context, providerID string) (string, error)
}

// SearchClient is satisfied by the providers HTTP client.
type SearchClient interface {
	Search(ctx context.Context, d domain.ProviderDescriptor, token string, params domain.SearchParams) ([]domain.Offer, error)
}

type Aggregator struct {
	store  ProviderStore
	tokens TokenSource
	client SearchClient
}

func NewAggregator(store ProviderStore, tokens TokenSource, client SearchClient) *Aggregator {
	return &Aggregator{store: store, tokens: tokens, client: client}
}

// Search queries the requested providers concurrently. A provider that fails
// for any reason is dropped from the result set; only zero successes is an
// error. The merged offers come back sorted ascending by normalized price.
func (a *Aggregator) Search(ctx context.Context, providerIDs []string, params domain.SearchParams) ([]domain.Offer, error) {
	flags, err := a.store.Flags(ctx)
	if err != nil {
		return nil, err
	}

	descs, err := a.store.Descriptors(ctx, providerIDs)
	if err != nil {
		return nil, err
	}

	var eligible []domain.ProviderDescriptor
	for _, d := range descs {
		if !d.IsActive {
			continue
		}
		if enabled, ok := flags[d.ID]; ok && !enabled {
			continue
		}
		eligible = append(eligible, d)
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNoProvidersAvailable
	}

	var (
		mu        sync.Mutex
		merged    []domain.Offer
		succeeded int
	)

	// Workers report their own failures as dropped providers, never as
	// group errors, so one slow or broken provider cannot cancel the rest.
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range eligible {
		d := d
		g.Go(func() error {
			var token string
			if d.HasCredentials {
				var err error
				token, err = a.tokens.Token(gctx, d.ID)
				if err != nil {
					logger.WarnContext(gctx, "Dropping provider from search: token unavailable",
						"provider", d.ID, "error", err)
					return nil
				}
			}

			offers, err := a.client.Search(gctx, d, token, params)
			if err != nil {
				logger.WarnContext(gctx, "Dropping provider from search: request failed",
					"provider", d.ID, "error", err)
				return nil
			}

			mu.Lock()
			merged = append(merged, offers...)
			succeeded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if succeeded == 0 {
		return nil, domain.ErrNoProvidersAvailable
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Price.Amount < merged[j].Price.Amount
	})
	return merged, nil
}
