package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voyago/travel-bookings/internal/domain"
)

// ---------- Mocks ----------

type mockCreds struct {
	providers map[string]*domain.Provider
	getErr    error
	calls     int
}

func (m *mockCreds) Get(_ context.Context, id string) (*domain.Provider, error) {
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.providers[id], nil
}

type mockExchanger struct {
	token     string
	expiresIn time.Duration
	err       error
	calls     int
}

func (m *mockExchanger) Exchange(_ context.Context, _ *domain.Provider) (string, time.Duration, error) {
	m.calls++
	if m.err != nil {
		return "", 0, m.err
	}
	return m.token, m.expiresIn, nil
}

func withCreds(id string) *mockCreds {
	return &mockCreds{providers: map[string]*domain.Provider{
		id: {ID: id, BaseURL: "https://api.example.com", APIKey: "k", APISecret: "s"},
	}}
}

// ---------- Tests ----------

func TestCache_Token_CachesUntilMargin(t *testing.T) {
	creds := withCreds("amadeus")
	ex := &mockExchanger{token: "tok-1", expiresIn: 10 * time.Minute}
	c := NewCache(creds, ex, 5*time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }

	tok, err := c.Token(context.Background(), "amadeus")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" || ex.calls != 1 {
		t.Fatalf("expected one exchange, got token=%q calls=%d", tok, ex.calls)
	}

	// Well inside the window: cached token, no vault or exchange traffic.
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	tok, err = c.Token(context.Background(), "amadeus")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" || ex.calls != 1 || creds.calls != 1 {
		t.Fatalf("expected cache hit, got calls ex=%d creds=%d", ex.calls, creds.calls)
	}

	// 4 minutes to expiry with a 5 minute margin: must refresh even though
	// the token is technically still valid.
	ex.token = "tok-2"
	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	tok, err = c.Token(context.Background(), "amadeus")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-2" || ex.calls != 2 {
		t.Fatalf("expected refresh inside safety margin, got token=%q calls=%d", tok, ex.calls)
	}
}

func TestCache_Token_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds *mockCreds
	}{
		{"no provider row", &mockCreds{providers: map[string]*domain.Provider{}}},
		{"provider without secrets", &mockCreds{providers: map[string]*domain.Provider{
			"open": {ID: "open", BaseURL: "https://open.example.com"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache(tt.creds, &mockExchanger{}, time.Minute)
			name := "open"
			if len(tt.creds.providers) == 0 {
				name = "missing"
			}
			_, err := c.Token(context.Background(), name)
			if !errors.Is(err, domain.ErrProviderCredentialsMissing) {
				t.Fatalf("expected ErrProviderCredentialsMissing, got %v", err)
			}
		})
	}
}

func TestCache_Token_ExchangeFailureLeavesNoEntry(t *testing.T) {
	creds := withCreds("amadeus")
	ex := &mockExchanger{err: domain.ErrProviderAuthFailed}
	c := NewCache(creds, ex, time.Minute)

	if _, err := c.Token(context.Background(), "amadeus"); !errors.Is(err, domain.ErrProviderAuthFailed) {
		t.Fatalf("expected ErrProviderAuthFailed, got %v", err)
	}

	// Next call retries from scratch instead of serving a stale entry.
	ex.err = nil
	ex.token = "tok-after-recovery"
	ex.expiresIn = 10 * time.Minute
	tok, err := c.Token(context.Background(), "amadeus")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-after-recovery" || ex.calls != 2 {
		t.Fatalf("expected clean retry, got token=%q calls=%d", tok, ex.calls)
	}
}

func TestNewCache_EnforcesMinimumMargin(t *testing.T) {
	c := NewCache(&mockCreds{}, &mockExchanger{}, 0)
	if c.margin != minSafetyMargin {
		t.Fatalf("expected margin %v, got %v", minSafetyMargin, c.margin)
	}
}

func TestCache_Token_VaultErrorPropagates(t *testing.T) {
	creds := &mockCreds{getErr: domain.ErrDecryption}
	c := NewCache(creds, &mockExchanger{}, time.Minute)

	_, err := c.Token(context.Background(), "amadeus")
	if !errors.Is(err, domain.ErrDecryption) {
		t.Fatalf("expected wrapped ErrDecryption, got %v", err)
	}
}
