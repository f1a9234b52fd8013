package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/ledger"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// Machine drives the grant lifecycle over a Store and a ConsentLedger.
// Stateless itself; all shared mutable state lives behind the Store.
type Machine struct {
	store  Store
	ledger ledger.ConsentLedger
	now    func() time.Time
}

// NewMachine creates a permission state machine.
func NewMachine(store Store, consentLedger ledger.ConsentLedger) *Machine {
	return &Machine{
		store:  store,
		ledger: consentLedger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Request creates a REQUESTED grant for the natural key, or returns the
// existing record unchanged. Idempotent; no ledger interaction.
func (m *Machine) Request(ctx context.Context, requester, owner, resourceID, scope string) (*types.PermissionRecord, error) {
	key := normalizeKey(owner, requester, resourceID, scope)

	rec := &types.PermissionRecord{
		ID:              uuid.New(),
		OwnerWallet:     key.OwnerWallet,
		RequesterWallet: key.RequesterWallet,
		ResourceID:      key.ResourceID,
		Scope:           key.Scope,
		Status:          types.StatusRequested,
		CreatedAt:       m.now().UTC(),
	}

	stored, _, err := m.store.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission request: %w", err)
	}
	return stored, nil
}

// Approve transitions a grant from REQUESTED to APPROVED. Only the wallet
// matching the record's owner may approve. The ledger write happens first;
// on ledger failure the record stays REQUESTED and the error is surfaced.
// The status transition is a single compare-and-swap from REQUESTED, so a
// concurrent second approval fails with Conflict rather than silently
// overwriting.
func (m *Machine) Approve(ctx context.Context, caller, owner, requester, resourceID, scope string, expiresAt *time.Time) (*types.PermissionRecord, error) {
	key := normalizeKey(owner, requester, resourceID, scope)

	if !types.SameWallet(caller, key.OwnerWallet) {
		return nil, apperrors.Unauthorized(
			fmt.Sprintf("wallet %s cannot approve a grant owned by %s", caller, key.OwnerWallet))
	}

	rec, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}
	if rec == nil {
		return nil, apperrors.NotFound("no access request exists for this grant")
	}
	if rec.Status != types.StatusRequested {
		return nil, apperrors.Conflict(fmt.Sprintf("grant is %s, not REQUESTED", rec.Status))
	}

	proof, err := m.ledger.RecordApproval(ctx, key, expiresAt)
	if err != nil {
		// Record stays REQUESTED; the caller may retry the whole approve.
		return nil, err
	}

	approvedAt := m.now().UTC()
	ok, err := m.store.Approve(ctx, key, approvedAt, expiresAt, proof)
	if err != nil {
		return nil, fmt.Errorf("failed to approve grant: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("grant was transitioned concurrently")
	}

	rec, err = m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to reload grant: %w", err)
	}
	return rec, nil
}

// Deny transitions a grant from REQUESTED to DENIED. Owner-only, terminal,
// no ledger write.
func (m *Machine) Deny(ctx context.Context, caller, owner, requester, resourceID, scope string) (*types.PermissionRecord, error) {
	key := normalizeKey(owner, requester, resourceID, scope)

	if !types.SameWallet(caller, key.OwnerWallet) {
		return nil, apperrors.Unauthorized(
			fmt.Sprintf("wallet %s cannot deny a grant owned by %s", caller, key.OwnerWallet))
	}

	rec, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}
	if rec == nil {
		return nil, apperrors.NotFound("no access request exists for this grant")
	}
	if rec.Status != types.StatusRequested {
		return nil, apperrors.Conflict(fmt.Sprintf("grant is %s, not REQUESTED", rec.Status))
	}

	ok, err := m.store.Deny(ctx, key, m.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to deny grant: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("grant was transitioned concurrently")
	}

	rec, err = m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to reload grant: %w", err)
	}
	return rec, nil
}

// Revoke revokes every APPROVED grant from caller to requester, optionally
// narrowed to one resource. Revoking absent or already-revoked grants is an
// idempotent no-op: concurrent revokes converge to REVOKED regardless of
// order.
func (m *Machine) Revoke(ctx context.Context, caller, requester, resourceID string) (int, error) {
	owner := types.NormalizeWallet(caller)
	requester = types.NormalizeWallet(requester)

	count, err := m.store.Revoke(ctx, owner, requester, resourceID, m.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke grants: %w", err)
	}
	return count, nil
}

// CheckAccess evaluates the current grant. Access is allowed only when the
// status is APPROVED and the expiry, if set, is in the future. When an
// APPROVED grant has lapsed, the status is flipped to EXPIRED as a side
// effect of the read; the flip is guarded on APPROVED so a REVOKED or
// DENIED record is never overwritten.
func (m *Machine) CheckAccess(ctx context.Context, owner, requester, resourceID, scope string) (*types.AccessDecision, error) {
	key := normalizeKey(owner, requester, resourceID, scope)

	rec, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}
	return m.evaluate(ctx, key, rec)
}

func (m *Machine) evaluate(ctx context.Context, key types.GrantKey, rec *types.PermissionRecord) (*types.AccessDecision, error) {
	if rec == nil {
		return &types.AccessDecision{Allow: false, Reason: types.ReasonNotFound}, nil
	}

	switch rec.Status {
	case types.StatusRevoked:
		return &types.AccessDecision{Allow: false, Reason: types.ReasonRevoked}, nil
	case types.StatusDenied, types.StatusRequested:
		return &types.AccessDecision{Allow: false, Reason: types.ReasonNotApproved}, nil
	case types.StatusExpired:
		return &types.AccessDecision{Allow: false, Reason: types.ReasonExpired}, nil
	case types.StatusApproved:
		if rec.ExpiresAt == nil || rec.ExpiresAt.After(m.now()) {
			return &types.AccessDecision{Allow: true}, nil
		}

		ok, err := m.store.MarkExpired(ctx, key, m.now().UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to persist expiry: %w", err)
		}
		if !ok {
			// Lost a race against another transition; report what won.
			current, err := m.store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("failed to reload grant: %w", err)
			}
			return m.evaluate(ctx, key, current)
		}
		return &types.AccessDecision{Allow: false, Reason: types.ReasonExpired}, nil
	default:
		return nil, fmt.Errorf("unknown grant status: %s", rec.Status)
	}
}

func normalizeKey(owner, requester, resourceID, scope string) types.GrantKey {
	return types.GrantKey{
		OwnerWallet:     types.NormalizeWallet(owner),
		RequesterWallet: types.NormalizeWallet(requester),
		ResourceID:      resourceID,
		Scope:           scope,
	}
}
