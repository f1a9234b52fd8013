package app

import (
	"context"
	"time"

	"github.com/carevault/carevault/internal/logger"
	"github.com/carevault/carevault/internal/metrics"
	"github.com/carevault/carevault/internal/permission"
	"github.com/carevault/carevault/internal/validation"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// DefaultResource is the resource an omitted resourceId means at the call
// boundary. A convention only; the state machine never defaults.
const DefaultResource = "profile"

// ConsentService fronts the permission state machine with input validation,
// the default-resource convention, logging, and metrics.
type ConsentService struct {
	machine *permission.Machine
}

// NewConsentService creates a new consent service
func NewConsentService(machine *permission.Machine) *ConsentService {
	return &ConsentService{machine: machine}
}

// RequestAccess records that requester wants scope access to the owner's
// resource. Idempotent.
func (s *ConsentService) RequestAccess(ctx context.Context, requester, owner, resourceID, scope string) (*types.PermissionRecord, error) {
	resourceID = defaultResource(resourceID)
	if err := validateGrantInput(requester, owner, resourceID, scope); err != nil {
		return nil, err
	}

	rec, err := s.machine.Request(ctx, requester, owner, resourceID, scope)
	if err != nil {
		return nil, err
	}

	metrics.ConsentTransitionsTotal.WithLabelValues(string(types.StatusRequested)).Inc()
	logger.Info(ctx, "access requested",
		"owner", rec.OwnerWallet, "requester", rec.RequesterWallet,
		"resource_id", rec.ResourceID, "scope", rec.Scope, "status", rec.Status)
	return rec, nil
}

// ApproveAccess approves a pending request as the owner, anchoring the
// approval on the consent ledger first.
func (s *ConsentService) ApproveAccess(ctx context.Context, caller, owner, requester, resourceID, scope string, expiresAt *time.Time) (*types.PermissionRecord, error) {
	resourceID = defaultResource(resourceID)
	if err := validateGrantInput(requester, owner, resourceID, scope); err != nil {
		return nil, err
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, apperrors.BadRequest("expires_at must be in the future")
	}

	rec, err := s.machine.Approve(ctx, caller, owner, requester, resourceID, scope, expiresAt)
	if err != nil {
		return nil, err
	}

	metrics.ConsentTransitionsTotal.WithLabelValues(string(types.StatusApproved)).Inc()
	logger.Info(ctx, "access approved",
		"owner", rec.OwnerWallet, "requester", rec.RequesterWallet,
		"resource_id", rec.ResourceID, "scope", rec.Scope, "tx_id", rec.ConsentTxID)
	return rec, nil
}

// DenyAccess rejects a pending request as the owner. Terminal, no ledger
// write.
func (s *ConsentService) DenyAccess(ctx context.Context, caller, owner, requester, resourceID, scope string) (*types.PermissionRecord, error) {
	resourceID = defaultResource(resourceID)
	if err := validateGrantInput(requester, owner, resourceID, scope); err != nil {
		return nil, err
	}

	rec, err := s.machine.Deny(ctx, caller, owner, requester, resourceID, scope)
	if err != nil {
		return nil, err
	}

	metrics.ConsentTransitionsTotal.WithLabelValues(string(types.StatusDenied)).Inc()
	logger.Info(ctx, "access denied by owner",
		"owner", rec.OwnerWallet, "requester", rec.RequesterWallet,
		"resource_id", rec.ResourceID, "scope", rec.Scope)
	return rec, nil
}

// RevokeAccess revokes approved grants from the caller to requester. An
// empty resourceID revokes every approved grant for the pair. Idempotent.
func (s *ConsentService) RevokeAccess(ctx context.Context, caller, requester, resourceID string) (int, error) {
	if err := validation.ValidateWalletAddress(caller); err != nil {
		return 0, apperrors.BadRequest(err.Error())
	}
	if err := validation.ValidateWalletAddress(requester); err != nil {
		return 0, apperrors.BadRequest(err.Error())
	}
	if resourceID != "" {
		if err := validation.ValidateResourceID(resourceID); err != nil {
			return 0, apperrors.BadRequest(err.Error())
		}
	}

	count, err := s.machine.Revoke(ctx, caller, requester, resourceID)
	if err != nil {
		return 0, err
	}

	metrics.ConsentTransitionsTotal.WithLabelValues(string(types.StatusRevoked)).Add(float64(count))
	logger.Info(ctx, "access revoked",
		"owner", caller, "requester", requester, "resource_id", resourceID, "count", count)
	return count, nil
}

// CheckAccess evaluates whether requester currently holds scope access to
// the owner's resource.
func (s *ConsentService) CheckAccess(ctx context.Context, owner, requester, resourceID, scope string) (*types.AccessDecision, error) {
	resourceID = defaultResource(resourceID)
	if err := validateGrantInput(requester, owner, resourceID, scope); err != nil {
		return nil, err
	}

	decision, err := s.machine.CheckAccess(ctx, owner, requester, resourceID, scope)
	if err != nil {
		return nil, err
	}

	outcome := "allow"
	if !decision.Allow {
		outcome = string(decision.Reason)
	}
	metrics.ConsentDecisionsTotal.WithLabelValues(outcome).Inc()
	return decision, nil
}

func defaultResource(resourceID string) string {
	if resourceID == "" {
		return DefaultResource
	}
	return resourceID
}

func validateGrantInput(requester, owner, resourceID, scope string) error {
	if err := validation.ValidateWalletAddress(owner); err != nil {
		return apperrors.BadRequest("owner: " + err.Error())
	}
	if err := validation.ValidateWalletAddress(requester); err != nil {
		return apperrors.BadRequest("requester: " + err.Error())
	}
	if err := validation.ValidateResourceID(resourceID); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	if err := validation.ValidateScope(scope); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	return nil
}
