package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carevault/carevault/pkg/types"
)

// PermissionRepository persists permission grants in Postgres. The table
// carries a unique constraint on the natural key, so the at-most-one-record
// invariant is enforced by the storage layer itself, and every transition is
// an UPDATE guarded on the current status (a compare-and-swap).
type PermissionRepository struct {
	store *Store
}

// NewPermissionRepository creates a new PermissionRepository
func NewPermissionRepository(store *Store) *PermissionRepository {
	return &PermissionRepository{store: store}
}

const permissionColumns = `
	id, owner_wallet, requester_wallet, resource_id, scope, status,
	created_at, approved_at, expires_at, revoked_at, denied_at,
	consent_tx_id, consent_proof
`

// Get returns the record for the natural key, or nil if none exists.
func (r *PermissionRepository) Get(ctx context.Context, key types.GrantKey) (*types.PermissionRecord, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM permission_grants
		WHERE owner_wallet = $1 AND requester_wallet = $2 AND resource_id = $3 AND scope = $4
	`

	rec, err := scanPermission(r.store.pool.QueryRow(ctx, query,
		key.OwnerWallet, key.RequesterWallet, key.ResourceID, key.Scope))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission grant: %w", err)
	}
	return rec, nil
}

// CreateIfAbsent inserts rec unless the natural key already exists.
func (r *PermissionRepository) CreateIfAbsent(ctx context.Context, rec *types.PermissionRecord) (*types.PermissionRecord, bool, error) {
	query := `
		INSERT INTO permission_grants
			(id, owner_wallet, requester_wallet, resource_id, scope, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_wallet, requester_wallet, resource_id, scope) DO NOTHING
	`

	tag, err := r.store.pool.Exec(ctx, query,
		rec.ID,
		rec.OwnerWallet,
		rec.RequesterWallet,
		rec.ResourceID,
		rec.Scope,
		rec.Status,
		rec.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create permission grant: %w", err)
	}

	created := tag.RowsAffected() == 1

	stored, err := r.Get(ctx, rec.Key())
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("permission grant disappeared after insert")
	}
	return stored, created, nil
}

// Approve transitions REQUESTED -> APPROVED in a single conditional update.
func (r *PermissionRepository) Approve(ctx context.Context, key types.GrantKey, approvedAt time.Time, expiresAt *time.Time, proof *types.ConsentProof) (bool, error) {
	query := `
		UPDATE permission_grants
		SET status = $1, approved_at = $2, expires_at = $3, consent_tx_id = $4, consent_proof = $5
		WHERE owner_wallet = $6 AND requester_wallet = $7 AND resource_id = $8 AND scope = $9
		  AND status = $10
	`

	tag, err := r.store.pool.Exec(ctx, query,
		types.StatusApproved, approvedAt, expiresAt, proof.TxID, proof.Proof,
		key.OwnerWallet, key.RequesterWallet, key.ResourceID, key.Scope,
		types.StatusRequested,
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve permission grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Deny transitions REQUESTED -> DENIED in a single conditional update.
func (r *PermissionRepository) Deny(ctx context.Context, key types.GrantKey, deniedAt time.Time) (bool, error) {
	query := `
		UPDATE permission_grants
		SET status = $1, denied_at = $2
		WHERE owner_wallet = $3 AND requester_wallet = $4 AND resource_id = $5 AND scope = $6
		  AND status = $7
	`

	tag, err := r.store.pool.Exec(ctx, query,
		types.StatusDenied, deniedAt,
		key.OwnerWallet, key.RequesterWallet, key.ResourceID, key.Scope,
		types.StatusRequested,
	)
	if err != nil {
		return false, fmt.Errorf("failed to deny permission grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Revoke transitions APPROVED -> REVOKED for the pair, optionally narrowed
// to one resource. Zero rows affected is a successful no-op.
func (r *PermissionRepository) Revoke(ctx context.Context, owner, requester, resourceID string, revokedAt time.Time) (int, error) {
	query := `
		UPDATE permission_grants
		SET status = $1, revoked_at = $2
		WHERE owner_wallet = $3 AND requester_wallet = $4 AND status = $5
		  AND ($6 = '' OR resource_id = $6)
	`

	tag, err := r.store.pool.Exec(ctx, query,
		types.StatusRevoked, revokedAt, owner, requester, types.StatusApproved, resourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke permission grants: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// MarkExpired transitions APPROVED -> EXPIRED. The status guard means a
// REVOKED or DENIED record is never overwritten.
func (r *PermissionRepository) MarkExpired(ctx context.Context, key types.GrantKey, expiredAt time.Time) (bool, error) {
	query := `
		UPDATE permission_grants
		SET status = $1
		WHERE owner_wallet = $2 AND requester_wallet = $3 AND resource_id = $4 AND scope = $5
		  AND status = $6
	`

	tag, err := r.store.pool.Exec(ctx, query,
		types.StatusExpired,
		key.OwnerWallet, key.RequesterWallet, key.ResourceID, key.Scope,
		types.StatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("failed to expire permission grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanPermission(row pgx.Row) (*types.PermissionRecord, error) {
	var rec types.PermissionRecord
	var txID, proof *string
	err := row.Scan(
		&rec.ID,
		&rec.OwnerWallet,
		&rec.RequesterWallet,
		&rec.ResourceID,
		&rec.Scope,
		&rec.Status,
		&rec.CreatedAt,
		&rec.ApprovedAt,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.DeniedAt,
		&txID,
		&proof,
	)
	if err != nil {
		return nil, err
	}
	if txID != nil {
		rec.ConsentTxID = *txID
	}
	if proof != nil {
		rec.ConsentProof = *proof
	}
	return &rec, nil
}
