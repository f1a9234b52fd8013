package ledger

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/logger"
	"github.com/carevault/carevault/pkg/types"
)

// DevLedger is a local stand-in for development. It computes the same
// canonical digest as the Ethereum backend but anchors nothing; the TxID is
// a fresh UUID.
type DevLedger struct{}

// NewDevLedger creates a development ledger.
func NewDevLedger() *DevLedger {
	return &DevLedger{}
}

// RecordApproval logs the approval and returns a synthetic receipt.
func (l *DevLedger) RecordApproval(ctx context.Context, grant types.GrantKey, expiresAt *time.Time) (*types.ConsentProof, error) {
	digest := ApprovalDigest(grant, expiresAt)
	proof := &types.ConsentProof{
		TxID:  uuid.NewString(),
		Proof: "0x" + hex.EncodeToString(digest[:]),
	}

	logger.Info(ctx, "recorded consent approval (dev ledger)",
		"owner", grant.OwnerWallet,
		"requester", grant.RequesterWallet,
		"resource_id", grant.ResourceID,
		"scope", grant.Scope,
		"tx_id", proof.TxID,
	)
	return proof, nil
}
