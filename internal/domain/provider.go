package domain

type ProviderType string

const (
	ProviderFlightGDS        ProviderType = "flight_gds"
	ProviderCarAggregator    ProviderType = "car_aggregator"
	ProviderHotelAggregator  ProviderType = "hotel_aggregator"
	ProviderPaymentProcessor ProviderType = "payment_processor"
)

func ParseProviderType(s string) (ProviderType, bool) {
	switch ProviderType(s) {
	case ProviderFlightGDS, ProviderCarAggregator, ProviderHotelAggregator, ProviderPaymentProcessor:
		return ProviderType(s), true
	default:
		return "", false
	}
}

// Provider is a third-party travel content or payment service. APIKey and
// APISecret are plaintext only inside the vault boundary; everything outside
// it works with ProviderDescriptor instead.
type Provider struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ProviderType `json:"type"`
	IsActive  bool         `json:"is_active"`
	BaseURL   string       `json:"base_url"`
	APIKey    string       `json:"-"`
	APISecret string       `json:"-"`
}

// HasCredentials reports whether the provider needs a token exchange before
// its endpoints can be called. Token-less providers are searched directly.
func (p *Provider) HasCredentials() bool {
	return p.APIKey != "" && p.APISecret != ""
}

// Descriptor returns the secret-free view of the provider.
func (p *Provider) Descriptor() ProviderDescriptor {
	return ProviderDescriptor{
		ID:             p.ID,
		Name:           p.Name,
		Type:           p.Type,
		IsActive:       p.IsActive,
		BaseURL:        p.BaseURL,
		HasCredentials: p.HasCredentials(),
	}
}

// ProviderDescriptor is the secret-free view of a provider handed to the
// search fan-out.
type ProviderDescriptor struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Type           ProviderType `json:"type"`
	IsActive       bool         `json:"is_active"`
	BaseURL        string       `json:"base_url"`
	HasCredentials bool         `json:"has_credentials"`
}
