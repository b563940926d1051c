package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/internal/search"
)

// ---------- Mocks ----------

type mockStore struct {
	descs    []domain.ProviderDescriptor
	flags    map[string]bool
	descsErr error
}

func (m *mockStore) Descriptors(_ context.Context, ids []string) ([]domain.ProviderDescriptor, error) {
	if m.descsErr != nil {
		return nil, m.descsErr
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.ProviderDescriptor
	for _, d := range m.descs {
		if want[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) Flags(context.Context) (map[string]bool, error) {
	if m.flags == nil {
		return map[string]bool{}, nil
	}
	return m.flags, nil
}

type mockTokens struct {
	tokens map[string]string
	errs   map[string]error
}

func (m *mockTokens) Token(_ context.Context, id string) (string, error) {
	if err := m.errs[id]; err != nil {
		return "", err
	}
	return m.tokens[id], nil
}

type mockClient struct {
	offers map[string][]domain.Offer
	errs   map[string]error
	tokens map[string]string // provider -> token it was called with
}

func (m *mockClient) Search(_ context.Context, d domain.ProviderDescriptor, token string, _ domain.SearchParams) ([]domain.Offer, error) {
	if m.tokens == nil {
		m.tokens = make(map[string]string)
	}
	m.tokens[d.ID] = token
	if err := m.errs[d.ID]; err != nil {
		return nil, err
	}
	return m.offers[d.ID], nil
}

func desc(id string, active, creds bool) domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID: id, Name: id, Type: domain.ProviderFlightGDS,
		IsActive: active, BaseURL: "https://" + id + ".example.com", HasCredentials: creds,
	}
}

func offer(id string, amount float64) domain.Offer {
	return domain.Offer{ID: id, Price: domain.Price{Amount: amount, Currency: "USD"}}
}

// ---------- Tests ----------

func TestAggregator_Search_MergesAndSortsByPrice(t *testing.T) {
	store := &mockStore{descs: []domain.ProviderDescriptor{
		desc("a", true, true), desc("b", true, false),
	}}
	tokens := &mockTokens{tokens: map[string]string{"a": "tok-a"}}
	client := &mockClient{offers: map[string][]domain.Offer{
		"a": {offer("a-2", 420.50), offer("a-1", 199.99)},
		"b": {offer("b-1", 310.00)},
	}}

	agg := search.NewAggregator(store, tokens, client)
	offers, err := agg.Search(context.Background(), []string{"a", "b"}, domain.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}

	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}
	for i := 1; i < len(offers); i++ {
		if offers[i-1].Price.Amount > offers[i].Price.Amount {
			t.Fatalf("offers not sorted ascending: %v before %v", offers[i-1].Price.Amount, offers[i].Price.Amount)
		}
	}

	// Token-less providers are searched without a bearer token.
	if client.tokens["a"] != "tok-a" || client.tokens["b"] != "" {
		t.Fatalf("token routing wrong: %v", client.tokens)
	}
}

func TestAggregator_Search_DropsFailingProviders(t *testing.T) {
	store := &mockStore{descs: []domain.ProviderDescriptor{
		desc("good", true, false), desc("badtoken", true, true), desc("badsearch", true, false),
	}}
	tokens := &mockTokens{errs: map[string]error{"badtoken": domain.ErrProviderAuthFailed}}
	client := &mockClient{
		offers: map[string][]domain.Offer{"good": {offer("g-1", 100)}},
		errs:   map[string]error{"badsearch": errors.New("connection refused")},
	}

	agg := search.NewAggregator(store, tokens, client)
	offers, err := agg.Search(context.Background(), []string{"good", "badtoken", "badsearch"}, domain.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 1 || offers[0].ID != "g-1" {
		t.Fatalf("expected only the healthy provider's offer, got %+v", offers)
	}
}

func TestAggregator_Search_AllFail_ErrNoProviders(t *testing.T) {
	store := &mockStore{descs: []domain.ProviderDescriptor{desc("a", true, false)}}
	client := &mockClient{errs: map[string]error{"a": errors.New("timeout")}}

	agg := search.NewAggregator(store, &mockTokens{}, client)
	_, err := agg.Search(context.Background(), []string{"a"}, domain.SearchParams{})
	if !errors.Is(err, domain.ErrNoProvidersAvailable) {
		t.Fatalf("expected ErrNoProvidersAvailable, got %v", err)
	}
}

func TestAggregator_Search_FiltersInactiveAndFlaggedOff(t *testing.T) {
	store := &mockStore{
		descs: []domain.ProviderDescriptor{
			desc("inactive", false, false),
			desc("flagged-off", true, false),
			desc("no-flag-row", true, false),
		},
		flags: map[string]bool{"flagged-off": false},
	}
	client := &mockClient{offers: map[string][]domain.Offer{
		"no-flag-row": {offer("n-1", 50)},
		"flagged-off": {offer("f-1", 10)},
		"inactive":    {offer("i-1", 5)},
	}}

	agg := search.NewAggregator(store, &mockTokens{}, client)
	offers, err := agg.Search(context.Background(), []string{"inactive", "flagged-off", "no-flag-row"}, domain.SearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 1 || offers[0].ID != "n-1" {
		t.Fatalf("expected only the unflagged active provider, got %+v", offers)
	}
}

func TestAggregator_Search_NoEligibleProviders(t *testing.T) {
	store := &mockStore{descs: []domain.ProviderDescriptor{desc("a", false, false)}}

	agg := search.NewAggregator(store, &mockTokens{}, &mockClient{})
	_, err := agg.Search(context.Background(), []string{"a"}, domain.SearchParams{})
	if !errors.Is(err, domain.ErrNoProvidersAvailable) {
		t.Fatalf("expected ErrNoProvidersAvailable, got %v", err)
	}
}

func TestPrice_UnmarshalJSON_LegacyNumericQuotes(t *testing.T) {
	var o domain.Offer
	if err := json.Unmarshal([]byte(`{"id":"x","price":149.5}`), &o); err != nil {
		t.Fatal(err)
	}
	if o.Price.Amount != 149.5 {
		t.Fatalf("expected bare number price, got %+v", o.Price)
	}

	if err := json.Unmarshal([]byte(`{"id":"y","price":{"amount":200,"currency":"EUR"}}`), &o); err != nil {
		t.Fatal(err)
	}
	if o.Price.Amount != 200 || o.Price.Currency != "EUR" {
		t.Fatalf("expected structured price, got %+v", o.Price)
	}
}
