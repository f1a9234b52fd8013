package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/carevault/carevault/pkg/errors"
)

// EnvelopeRepository implements the ciphertext store on Postgres. Envelope
// bytes are held opaquely in a bytea column; this layer never inspects them
// beyond length and never decrypts.
type EnvelopeRepository struct {
	store *Store
}

// NewEnvelopeRepository creates a new EnvelopeRepository
func NewEnvelopeRepository(store *Store) *EnvelopeRepository {
	return &EnvelopeRepository{store: store}
}

// Put persists envelope bytes under ownerKey, replacing any prior value.
func (r *EnvelopeRepository) Put(ctx context.Context, ownerKey string, envelope []byte) error {
	query := `
		INSERT INTO envelopes (owner_key, envelope, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_key) DO UPDATE SET envelope = $2, updated_at = $3
	`

	_, err := r.store.pool.Exec(ctx, query, ownerKey, envelope, time.Now().UTC())
	if err != nil {
		return apperrors.StorageUnavailable(fmt.Sprintf("failed to store envelope: %v", err))
	}
	return nil
}

// Get returns the envelope bytes for ownerKey.
func (r *EnvelopeRepository) Get(ctx context.Context, ownerKey string) ([]byte, error) {
	query := `SELECT envelope FROM envelopes WHERE owner_key = $1`

	var envelope []byte
	err := r.store.pool.QueryRow(ctx, query, ownerKey).Scan(&envelope)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("no envelope stored for this resource")
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable(fmt.Sprintf("failed to get envelope: %v", err))
	}
	return envelope, nil
}
