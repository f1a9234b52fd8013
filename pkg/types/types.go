package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// GrantStatus is the lifecycle state of a permission grant.
type GrantStatus string

const (
	StatusRequested GrantStatus = "REQUESTED"
	StatusApproved  GrantStatus = "APPROVED"
	StatusRevoked   GrantStatus = "REVOKED"
	StatusExpired   GrantStatus = "EXPIRED"
	StatusDenied    GrantStatus = "DENIED"
)

// Terminal reports whether no further caller-driven transition can leave
// this status. EXPIRED is terminal but only ever set by a lazy read.
func (s GrantStatus) Terminal() bool {
	switch s {
	case StatusRevoked, StatusExpired, StatusDenied:
		return true
	}
	return false
}

// DenialReason explains why CheckAccess did not allow access.
type DenialReason string

const (
	ReasonNotFound    DenialReason = "NOT_FOUND"
	ReasonNotApproved DenialReason = "NOT_APPROVED"
	ReasonRevoked     DenialReason = "REVOKED"
	ReasonExpired     DenialReason = "EXPIRED"
)

// GrantKey is the natural key of a permission grant. At most one record
// exists per key; it is mutated in place, never duplicated.
type GrantKey struct {
	OwnerWallet     string `json:"owner_wallet"`
	RequesterWallet string `json:"requester_wallet"`
	ResourceID      string `json:"resource_id"`
	Scope           string `json:"scope"`
}

// PermissionRecord is one grant in the consent audit trail. Records are
// never deleted; their status history is append-only in effect.
type PermissionRecord struct {
	ID              uuid.UUID   `json:"id"`
	OwnerWallet     string      `json:"owner_wallet"`
	RequesterWallet string      `json:"requester_wallet"`
	ResourceID      string      `json:"resource_id"`
	Scope           string      `json:"scope"`
	Status          GrantStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
	RevokedAt       *time.Time  `json:"revoked_at,omitempty"`
	DeniedAt        *time.Time  `json:"denied_at,omitempty"`
	ConsentTxID     string      `json:"consent_tx_id,omitempty"`
	ConsentProof    string      `json:"consent_proof,omitempty"`
}

// Key returns the record's natural key.
func (r *PermissionRecord) Key() GrantKey {
	return GrantKey{
		OwnerWallet:     r.OwnerWallet,
		RequesterWallet: r.RequesterWallet,
		ResourceID:      r.ResourceID,
		Scope:           r.Scope,
	}
}

// ConsentProof is the opaque receipt returned by the consent ledger for an
// approval event.
type ConsentProof struct {
	TxID  string `json:"tx_id"`
	Proof string `json:"proof"`
}

// AccessDecision is the typed result of CheckAccess. Denials are results,
// not errors; callers use them to decide whether to fetch ciphertext.
type AccessDecision struct {
	Allow  bool         `json:"allow"`
	Reason DenialReason `json:"reason,omitempty"`
}

// NormalizeWallet canonicalizes a hex wallet address to its EIP-55
// checksummed form so that later comparisons are exact string matches.
// The address must already be validated as hex.
func NormalizeWallet(address string) string {
	return common.HexToAddress(address).Hex()
}

// SameWallet reports whether two addresses identify the same wallet.
func SameWallet(a, b string) bool {
	return NormalizeWallet(a) == NormalizeWallet(b)
}
