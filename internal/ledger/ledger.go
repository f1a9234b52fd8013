// Package ledger records consent approval events on an external
// tamper-evident ledger. The state machine only depends on the interface;
// the Ethereum backend is one implementation.
package ledger

import (
	"context"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/carevault/carevault/pkg/types"
)

// ConsentLedger records approval events and returns an opaque receipt.
// Implementations surface LedgerUnavailable when the ledger cannot be
// reached and LedgerRejected when it refuses the event; in both cases the
// grant stays REQUESTED and the caller may retry the whole approve.
type ConsentLedger interface {
	RecordApproval(ctx context.Context, grant types.GrantKey, expiresAt *time.Time) (*types.ConsentProof, error)
}

// approvalSchema versions the canonical approval encoding.
const approvalSchema = "carevault-consent-v1"

// ApprovalDigest computes the keccak256 digest of the canonical approval
// tuple. This digest is what the ledger anchors and what the proof refers to.
func ApprovalDigest(grant types.GrantKey, expiresAt *time.Time) [32]byte {
	var expires int64
	if expiresAt != nil {
		expires = expiresAt.UTC().Unix()
	}
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		approvalSchema,
		grant.OwnerWallet,
		grant.RequesterWallet,
		grant.ResourceID,
		grant.Scope,
		expires,
	)
	return [32]byte(ethcrypto.Keccak256([]byte(canonical)))
}
