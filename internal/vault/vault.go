// Package vault is the only place provider credentials exist in plaintext.
// Secrets are sealed with AES-256-GCM under a process-wide key loaded once at
// startup; rows hold versioned envelopes, never raw key material.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/voyago/travel-bookings/internal/domain"
	"github.com/voyago/travel-bookings/internal/repo/postgres"
)

const envelopeVersion = "v1"

type Vault struct {
	aead cipher.AEAD
	repo postgres.ProviderRepository
}

// New derives the sealing key from the configured secret with SHA-256.
func New(secret string, repo postgres.ProviderRepository) (*Vault, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("vault key is empty")
	}
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead, repo: repo}, nil
}

// Get loads and decrypts a provider. Returns nil when the provider does not
// exist. Ciphertext sealed under a different key fails with ErrDecryption.
func (v *Vault) Get(ctx context.Context, providerID string) (*domain.Provider, error) {
	rec, err := v.repo.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	p := &domain.Provider{
		ID:       rec.ID,
		Name:     rec.Name,
		Type:     domain.ProviderType(rec.Type),
		IsActive: rec.IsActive,
		BaseURL:  rec.BaseURL,
	}
	if rec.APIKeyEnc != nil {
		if p.APIKey, err = v.open(*rec.APIKeyEnc); err != nil {
			return nil, err
		}
	}
	if rec.APISecretEnc != nil {
		if p.APISecret, err = v.open(*rec.APISecretEnc); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Store seals the provider's credentials and writes the row.
func (v *Vault) Store(ctx context.Context, p *domain.Provider) error {
	rec := &postgres.ProviderRecord{
		ID:       p.ID,
		Name:     p.Name,
		Type:     string(p.Type),
		IsActive: p.IsActive,
		BaseURL:  p.BaseURL,
	}
	if p.APIKey != "" {
		enc, err := v.seal(p.APIKey)
		if err != nil {
			return err
		}
		rec.APIKeyEnc = &enc
	}
	if p.APISecret != "" {
		enc, err := v.seal(p.APISecret)
		if err != nil {
			return err
		}
		rec.APISecretEnc = &enc
	}
	return v.repo.Upsert(ctx, rec)
}

// Rotate re-encrypts the provider with new credential material. Empty
// arguments keep the existing value.
func (v *Vault) Rotate(ctx context.Context, providerID, newKey, newSecret string) error {
	p, err := v.Get(ctx, providerID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("rotate %s: provider not found", providerID)
	}
	if newKey != "" {
		p.APIKey = newKey
	}
	if newSecret != "" {
		p.APISecret = newSecret
	}
	return v.Store(ctx, p)
}

func (v *Vault) seal(plain string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ct := v.aead.Seal(nil, nonce, []byte(plain), nil)
	return envelopeVersion + ":" +
		base64.RawStdEncoding.EncodeToString(nonce) + ":" +
		base64.RawStdEncoding.EncodeToString(ct), nil
}

func (v *Vault) open(envelope string) (string, error) {
	parts := strings.SplitN(envelope, ":", 3)
	if len(parts) != 3 || parts[0] != envelopeVersion {
		return "", fmt.Errorf("%w: malformed envelope", domain.ErrDecryption)
	}
	nonce, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(nonce) != v.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce encoding", domain.ErrDecryption)
	}
	ct, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", domain.ErrDecryption)
	}
	plain, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: key mismatch or corrupted record", domain.ErrDecryption)
	}
	return string(plain), nil
}
