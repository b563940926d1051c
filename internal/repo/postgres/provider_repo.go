package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyago/travel-bookings/internal/domain"
)

// ProviderRecord is the api_keys row as stored: credential columns hold the
// vault's sealed envelopes, never plaintext.
type ProviderRecord struct {
	ID           string
	Name         string
	Type         string
	IsActive     bool
	BaseURL      string
	APIKeyEnc    *string
	APISecretEnc *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ProviderRepository interface {
	Get(ctx context.Context, id string) (*ProviderRecord, error)
	Upsert(ctx context.Context, rec *ProviderRecord) error
	Descriptors(ctx context.Context, ids []string) ([]domain.ProviderDescriptor, error)
	Flags(ctx context.Context) (map[string]bool, error)
}

type providerRepository struct {
	pool *pgxpool.Pool
}

func NewProviderRepository(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepository{pool: pool}
}

const providerCols = `id, name, type, is_active, base_url, api_key_enc, api_secret_enc, created_at, updated_at`

func (r *providerRepository) Get(ctx context.Context, id string) (*ProviderRecord, error) {
	const q = `SELECT ` + providerCols + ` FROM api_keys WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rec ProviderRecord
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.Name, &rec.Type, &rec.IsActive, &rec.BaseURL,
		&rec.APIKeyEnc, &rec.APISecretEnc, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *providerRepository) Upsert(ctx context.Context, rec *ProviderRecord) error {
	const q = `INSERT INTO api_keys (id, name, type, is_active, base_url, api_key_enc, api_secret_enc)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, type=EXCLUDED.type, is_active=EXCLUDED.is_active,
			base_url=EXCLUDED.base_url, api_key_enc=EXCLUDED.api_key_enc,
			api_secret_enc=EXCLUDED.api_secret_enc, updated_at=now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		rec.ID, rec.Name, rec.Type, rec.IsActive, rec.BaseURL,
		rec.APIKeyEnc, rec.APISecretEnc,
	)
	return err
}

func (r *providerRepository) Descriptors(ctx context.Context, ids []string) ([]domain.ProviderDescriptor, error) {
	const q = `SELECT id, name, type, is_active, base_url,
		(api_key_enc IS NOT NULL AND api_secret_enc IS NOT NULL)
		FROM api_keys WHERE id = ANY($1)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var descs []domain.ProviderDescriptor
	for rows.Next() {
		var d domain.ProviderDescriptor
		var typ string
		if err := rows.Scan(&d.ID, &d.Name, &typ, &d.IsActive, &d.BaseURL, &d.HasCredentials); err != nil {
			return nil, err
		}
		d.Type = domain.ProviderType(typ)
		descs = append(descs, d)
	}
	return descs, rows.Err()
}

// Flags reads the config table's provider enablement switches. Fetched once
// per search request; a provider with no row stays eligible.
func (r *providerRepository) Flags(ctx context.Context) (map[string]bool, error) {
	const q = `SELECT name, enabled FROM config`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flags := make(map[string]bool)
	for rows.Next() {
		var name string
		var enabled bool
		if err := rows.Scan(&name, &enabled); err != nil {
			return nil, err
		}
		flags[name] = enabled
	}
	return flags, rows.Err()
}
