package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// WrappedKeyRepository stores wrapped custodial signing keys. Only the
// wrapped blob ever touches the database; raw key material never does.
type WrappedKeyRepository struct {
	store *Store
}

// NewWrappedKeyRepository creates a new WrappedKeyRepository
func NewWrappedKeyRepository(store *Store) *WrappedKeyRepository {
	return &WrappedKeyRepository{store: store}
}

// Create stores a wrapped key for a new custodial wallet.
func (r *WrappedKeyRepository) Create(ctx context.Context, walletAddress string, wrappedKey []byte, provider string) error {
	query := `
		INSERT INTO wrapped_keys (wallet_address, wrapped_key, provider, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.store.pool.Exec(ctx, query, walletAddress, wrappedKey, provider, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store wrapped key: %w", err)
	}
	return nil
}

// WrappedKey returns the wrapped key blob for a custodial wallet.
// Implements signer.WrappedKeySource.
func (r *WrappedKeyRepository) WrappedKey(ctx context.Context, walletAddress string) ([]byte, error) {
	query := `SELECT wrapped_key FROM wrapped_keys WHERE wallet_address = $1`

	var wrapped []byte
	err := r.store.pool.QueryRow(ctx, query, walletAddress).Scan(&wrapped)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("no custodial key for wallet %s", walletAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wrapped key: %w", err)
	}
	return wrapped, nil
}

// Exists reports whether a custodial wallet is provisioned.
func (r *WrappedKeyRepository) Exists(ctx context.Context, walletAddress string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM wrapped_keys WHERE wallet_address = $1)`

	var exists bool
	if err := r.store.pool.QueryRow(ctx, query, walletAddress).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check wrapped key: %w", err)
	}
	return exists, nil
}
