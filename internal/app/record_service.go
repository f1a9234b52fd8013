package app

import (
	"context"
	"fmt"

	"github.com/carevault/carevault/internal/crypto"
	"github.com/carevault/carevault/internal/envelopestore"
	"github.com/carevault/carevault/internal/logger"
	"github.com/carevault/carevault/internal/validation"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// RecordService stores and serves ciphertext envelopes. It checks envelope
// shape (length only) and consent, but never decrypts: the plaintext is
// visible only to holders of the wallet-derived key.
type RecordService struct {
	envelopes envelopestore.Store
	consents  *ConsentService
}

// NewRecordService creates a new record service
func NewRecordService(envelopes envelopestore.Store, consents *ConsentService) *RecordService {
	return &RecordService{
		envelopes: envelopes,
		consents:  consents,
	}
}

// StoreRecord persists an envelope for the owner's resource. Only the owner
// may write their own records. The envelope must satisfy the minimum IV+TAG
// layout; interior bytes are not interpreted.
func (s *RecordService) StoreRecord(ctx context.Context, caller, owner, resourceID string, envelope []byte) error {
	resourceID = defaultResource(resourceID)
	if err := validation.ValidateWalletAddress(owner); err != nil {
		return apperrors.BadRequest("owner: " + err.Error())
	}
	if err := validation.ValidateResourceID(resourceID); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	if !types.SameWallet(caller, owner) {
		return apperrors.Forbidden("only the owner may store records")
	}
	if len(envelope) < crypto.EnvelopeOverhead {
		return apperrors.MalformedEnvelope(
			fmt.Sprintf("envelope is %d bytes, minimum is %d", len(envelope), crypto.EnvelopeOverhead))
	}

	ownerKey := envelopestore.Key(types.NormalizeWallet(owner), resourceID)
	if err := s.envelopes.Put(ctx, ownerKey, envelope); err != nil {
		return err
	}

	logger.Info(ctx, "envelope stored",
		"owner", owner, "resource_id", resourceID, "envelope_bytes", len(envelope))
	return nil
}

// FetchRecord returns the envelope for the owner's resource. The owner may
// always fetch their own envelopes; any other caller must hold an APPROVED,
// unexpired grant for exactly this resource and scope.
func (s *RecordService) FetchRecord(ctx context.Context, caller, owner, resourceID, scope string) ([]byte, error) {
	resourceID = defaultResource(resourceID)
	if err := validation.ValidateWalletAddress(owner); err != nil {
		return nil, apperrors.BadRequest("owner: " + err.Error())
	}
	if err := validation.ValidateResourceID(resourceID); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	if !types.SameWallet(caller, owner) {
		decision, err := s.consents.CheckAccess(ctx, owner, caller, resourceID, scope)
		if err != nil {
			return nil, err
		}
		if !decision.Allow {
			return nil, apperrors.Forbidden(string(decision.Reason))
		}
	}

	ownerKey := envelopestore.Key(types.NormalizeWallet(owner), resourceID)
	return s.envelopes.Get(ctx, ownerKey)
}
