// Package providers holds the outbound HTTP client for travel content
// providers: the client-credentials token exchange and the search endpoint.
// Provider-native response mapping happens upstream; this client only expects
// the common offer envelope.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/pkg/logger"
)

type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Exchange performs the client-credentials grant against the provider's
// token endpoint. Rejections map to ErrProviderAuthFailed.
func (c *Client) Exchange(ctx context.Context, p *domain.Provider) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	endpoint := strings.TrimRight(p.BaseURL, "/") + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build token request for %s: %w", p.ID, err)
	}
	req.SetBasicAuth(p.APIKey, p.APISecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange for %s: %w", p.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.WarnContext(ctx, "Provider rejected credential exchange",
			"provider", p.ID, "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
		return "", 0, fmt.Errorf("%w: %s returned status %d", domain.ErrProviderAuthFailed, p.ID, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", 0, fmt.Errorf("decode token response for %s: %w", p.ID, err)
	}
	if tok.AccessToken == "" {
		return "", 0, fmt.Errorf("%w: %s returned no access token", domain.ErrProviderAuthFailed, p.ID)
	}
	return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
}

// searchEnvelope accepts both {"data": [...]} and a bare array body.
type searchEnvelope struct {
	Data []domain.Offer `json:"data"`
}

// Search calls the provider's search endpoint with the params encoded as a
// query string. token may be empty for token-less providers.
func (c *Client) Search(ctx context.Context, d domain.ProviderDescriptor, token string, params domain.SearchParams) ([]domain.Offer, error) {
	qs, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode search params: %w", err)
	}

	endpoint := strings.TrimRight(d.BaseURL, "/") + "/search?" + qs.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request for %s: %w", d.ID, err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", d.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search %s: status %d", d.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response from %s: %w", d.ID, err)
	}

	var offers []domain.Offer
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(body, &offers)
	} else {
		var env searchEnvelope
		err = json.Unmarshal(body, &env)
		offers = env.Data
	}
	if err != nil {
		return nil, fmt.Errorf("decode search response from %s: %w", d.ID, err)
	}

	for i := range offers {
		offers[i].Provider = d.ID
	}
	return offers, nil
}
