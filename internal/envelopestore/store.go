// Package envelopestore defines the opaque ciphertext store. Backends hold
// envelope bytes keyed by owner and resource and never interpret them; in
// particular no backend ever decrypts.
package envelopestore

import "context"

// Store is an opaque key/value store for ciphertext envelopes.
type Store interface {
	// Put persists envelope bytes under ownerKey, replacing any prior value.
	Put(ctx context.Context, ownerKey string, envelope []byte) error

	// Get returns the envelope bytes for ownerKey, or a not_found AppError.
	Get(ctx context.Context, ownerKey string) ([]byte, error)
}

// Key builds the store key for an owner's resource.
func Key(ownerWallet, resourceID string) string {
	return ownerWallet + "/" + resourceID
}
