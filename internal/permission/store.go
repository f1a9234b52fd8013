// Package permission implements the consent-gated access lifecycle:
// request, approve, deny, revoke, and lazy expiry over grant records keyed
// by (owner, requester, resource, scope).
package permission

import (
	"context"
	"time"

	"github.com/carevault/carevault/pkg/types"
)

// Store persists permission grants. Implementations must enforce the
// at-most-one-record-per-natural-key invariant and make every status
// transition an atomic compare-and-swap on the current status, so that
// concurrent writers serialize and losers observe ok=false rather than
// silently overwriting.
type Store interface {
	// Get returns the record for the natural key, or nil if none exists.
	Get(ctx context.Context, key types.GrantKey) (*types.PermissionRecord, error)

	// CreateIfAbsent inserts rec unless a record already exists for its
	// natural key. Returns the stored record and whether it was created.
	CreateIfAbsent(ctx context.Context, rec *types.PermissionRecord) (*types.PermissionRecord, bool, error)

	// Approve transitions REQUESTED -> APPROVED, recording the approval time,
	// optional expiry, and the ledger receipt. ok=false when the record is
	// missing or its status is no longer REQUESTED.
	Approve(ctx context.Context, key types.GrantKey, approvedAt time.Time, expiresAt *time.Time, proof *types.ConsentProof) (bool, error)

	// Deny transitions REQUESTED -> DENIED. ok=false when the record is
	// missing or not REQUESTED.
	Deny(ctx context.Context, key types.GrantKey, deniedAt time.Time) (bool, error)

	// Revoke transitions APPROVED -> REVOKED for every grant of the pair,
	// optionally narrowed to one resource (resourceID empty = all resources).
	// Returns the number of records transitioned; zero is not an error.
	Revoke(ctx context.Context, owner, requester, resourceID string, revokedAt time.Time) (int, error)

	// MarkExpired transitions APPROVED -> EXPIRED. The guard on APPROVED
	// means a concurrent revoke wins: REVOKED or DENIED is never overwritten.
	MarkExpired(ctx context.Context, key types.GrantKey, expiredAt time.Time) (bool, error)
}
