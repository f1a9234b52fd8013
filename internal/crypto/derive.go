// Package crypto implements the wallet-derived encryption core: signature
// based key derivation and the AES-256-GCM envelope codec. Both are
// stateless, synchronous, and safe for concurrent use.
package crypto

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/carevault/carevault/internal/signer"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// KeyDerivationMessage is the fixed message every wallet signs to derive its
// profile encryption key. Changing it changes every derived key.
const KeyDerivationMessage = "CareVault Profile Encryption Key"

// KeySize is the derived symmetric key length in bytes (AES-256).
const KeySize = 32

// DeriveKey derives the wallet's 32-byte encryption key: the capability
// signs the fixed message and the signature bytes feed HKDF-SHA256 with no
// salt and no context info. The result is deterministic for a given wallet.
// The key is never persisted; every operation re-derives it.
//
// The signing step may suspend awaiting user interaction; callers bound the
// wait with a context deadline. Non-response surfaces as SigningUnavailable.
func DeriveKey(ctx context.Context, walletAddress string, capability signer.SigningCapability) ([]byte, error) {
	if capability == nil {
		return nil, apperrors.SigningUnavailable("no signing capability for wallet " + walletAddress)
	}
	if !types.SameWallet(capability.Address(), walletAddress) {
		return nil, apperrors.SigningUnavailable(
			fmt.Sprintf("signing capability bound to %s, not %s", capability.Address(), walletAddress))
	}

	signature, err := capability.Sign(ctx, []byte(KeyDerivationMessage))
	if err != nil {
		if _, ok := apperrors.IsAppError(err); ok {
			return nil, err
		}
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("signature request failed: %v", err))
	}
	defer Zero(signature)

	reader := hkdf.New(sha256.New, signature, nil, nil)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	return key, nil
}

// Zero clears sensitive byte material in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
