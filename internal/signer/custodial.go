package signer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/carevault/carevault/internal/keywrap"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// WrappedKeySource fetches the wrapped signing key for a custodial wallet.
// Implemented by the storage layer.
type WrappedKeySource interface {
	WrappedKey(ctx context.Context, walletAddress string) ([]byte, error)
}

// CustodialSigner signs on behalf of a managed wallet. The raw key only
// exists for the duration of one Sign call: it is fetched wrapped, unwrapped
// through the keywrap provider, used, and zeroed.
type CustodialSigner struct {
	address string
	keys    WrappedKeySource
	wrapper keywrap.Wrapper
}

// NewCustodialSigner creates a signing capability bound to a managed wallet.
func NewCustodialSigner(walletAddress string, keys WrappedKeySource, wrapper keywrap.Wrapper) *CustodialSigner {
	return &CustodialSigner{
		address: types.NormalizeWallet(walletAddress),
		keys:    keys,
		wrapper: wrapper,
	}
}

// Address returns the checksummed wallet address.
func (s *CustodialSigner) Address() string {
	return s.address
}

// Sign unwraps the wallet key, signs the personal-message digest, and clears
// the key material.
func (s *CustodialSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	wrapped, err := s.keys.WrappedKey(ctx, s.address)
	if err != nil {
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("wrapped key lookup failed for %s: %v", s.address, err))
	}

	raw, err := s.wrapper.Unwrap(ctx, wrapped)
	if err != nil {
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("key unwrap failed: %v", err))
	}
	defer func() {
		for i := range raw {
			raw[i] = 0
		}
	}()

	key, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("invalid key material: %v", err))
	}
	defer zeroKey(key)

	if got := WalletAddress(key).Hex(); got != s.address {
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("unwrapped key does not match wallet %s", s.address))
	}

	digest := accounts.TextHash(message)
	signature, err := ethcrypto.Sign(digest, key)
	if err != nil {
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("custodial signing failed: %v", err))
	}
	return signature, nil
}
