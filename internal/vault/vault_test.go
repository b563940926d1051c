package vault_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/internal/repo/postgres"
	"github.com/voyago/travel-bookings/internal/vault"
)

// ---------- Mocks ----------

type mockProviderRepo struct {
	records map[string]*postgres.ProviderRecord
	getErr  error
}

func newMockProviderRepo() *mockProviderRepo {
	return &mockProviderRepo{records: make(map[string]*postgres.ProviderRecord)}
}

func (m *mockProviderRepo) Get(_ context.Context, id string) (*postgres.ProviderRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *mockProviderRepo) Upsert(_ context.Context, rec *postgres.ProviderRecord) error {
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockProviderRepo) Descriptors(context.Context, []string) ([]domain.ProviderDescriptor, error) {
	return nil, nil
}

func (m *mockProviderRepo) Flags(context.Context) (map[string]bool, error) {
	return nil, nil
}

// ---------- Tests ----------

func TestVault_StoreAndGet_RoundTrip(t *testing.T) {
	repo := newMockProviderRepo()
	v, err := vault.New("test-master-key", repo)
	if err != nil {
		t.Fatal(err)
	}

	in := &domain.Provider{
		ID:        "amadeus",
		Name:      "Amadeus",
		Type:      domain.ProviderFlightGDS,
		IsActive:  true,
		BaseURL:   "https://api.example.com",
		APIKey:    "client-id-123",
		APISecret: "client-secret-456",
	}
	if err := v.Store(context.Background(), in); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Stored row must never contain plaintext
	rec := repo.records["amadeus"]
	if rec.APIKeyEnc == nil || rec.APISecretEnc == nil {
		t.Fatal("expected encrypted credential columns")
	}
	if strings.Contains(*rec.APIKeyEnc, "client-id-123") || strings.Contains(*rec.APISecretEnc, "client-secret-456") {
		t.Fatal("plaintext credential leaked into stored record")
	}
	if !strings.HasPrefix(*rec.APIKeyEnc, "v1:") {
		t.Fatalf("expected versioned envelope, got %q", *rec.APIKeyEnc)
	}

	out, err := v.Get(context.Background(), "amadeus")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.APIKey != "client-id-123" || out.APISecret != "client-secret-456" {
		t.Fatalf("round trip mismatch: %q / %q", out.APIKey, out.APISecret)
	}
	if !out.HasCredentials() {
		t.Fatal("expected HasCredentials true")
	}
}

func TestVault_Get_MissingProvider_ReturnsNil(t *testing.T) {
	v, err := vault.New("test-master-key", newMockProviderRepo())
	if err != nil {
		t.Fatal(err)
	}

	p, err := v.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil provider, got %+v", p)
	}
}

func TestVault_Get_WrongKey_ErrDecryption(t *testing.T) {
	repo := newMockProviderRepo()
	v1, err := vault.New("key-one", repo)
	if err != nil {
		t.Fatal(err)
	}
	if err := v1.Store(context.Background(), &domain.Provider{
		ID: "amadeus", Name: "Amadeus", Type: domain.ProviderFlightGDS,
		BaseURL: "https://api.example.com", APIKey: "k", APISecret: "s",
	}); err != nil {
		t.Fatal(err)
	}

	v2, err := vault.New("key-two", repo)
	if err != nil {
		t.Fatal(err)
	}
	_, err = v2.Get(context.Background(), "amadeus")
	if !errors.Is(err, domain.ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
}

func TestVault_Get_MalformedEnvelope_ErrDecryption(t *testing.T) {
	repo := newMockProviderRepo()
	v, err := vault.New("test-master-key", repo)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		envelope string
	}{
		{"no separators", "garbage"},
		{"wrong version", "v9:AAAA:BBBB"},
		{"bad nonce encoding", "v1:!!!!:BBBB"},
		{"bad ciphertext encoding", "v1:AAAAAAAAAAAAAAAA:!!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.envelope
			repo.records["p"] = &postgres.ProviderRecord{ID: "p", APIKeyEnc: &env}
			_, err := v.Get(context.Background(), "p")
			if !errors.Is(err, domain.ErrDecryption) {
				t.Fatalf("expected ErrDecryption, got %v", err)
			}
		})
	}
}

func TestVault_Rotate_KeepsUnchangedFields(t *testing.T) {
	repo := newMockProviderRepo()
	v, err := vault.New("test-master-key", repo)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Store(context.Background(), &domain.Provider{
		ID: "hertz", Name: "Hertz", Type: domain.ProviderCarAggregator,
		IsActive: true, BaseURL: "https://cars.example.com",
		APIKey: "old-key", APISecret: "old-secret",
	}); err != nil {
		t.Fatal(err)
	}

	if err := v.Rotate(context.Background(), "hertz", "new-key", ""); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	p, err := v.Get(context.Background(), "hertz")
	if err != nil {
		t.Fatal(err)
	}
	if p.APIKey != "new-key" {
		t.Fatalf("expected rotated key, got %q", p.APIKey)
	}
	if p.APISecret != "old-secret" {
		t.Fatalf("expected secret unchanged, got %q", p.APISecret)
	}
}

func TestVault_New_EmptyKey_Fails(t *testing.T) {
	if _, err := vault.New("   ", newMockProviderRepo()); err == nil {
		t.Fatal("expected error for empty vault key")
	}
}
