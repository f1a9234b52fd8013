package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	apperrors "github.com/carevault/carevault/pkg/errors"
)

// LocalSigner holds a secp256k1 key in process memory and signs with it
// directly. Intended for development, tests, and client-side use; the
// service itself uses CustodialSigner for managed wallets.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewLocalSigner creates a signer from a hex-encoded private key.
func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	key, err := ethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewLocalSignerFromKey(key), nil
}

// NewLocalSignerFromKey creates a signer from an in-memory key.
func NewLocalSignerFromKey(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: WalletAddress(key).Hex(),
	}
}

// Address returns the checksummed wallet address.
func (s *LocalSigner) Address() string {
	return s.address
}

// Sign signs the EIP-191 personal-message digest of message. The nonce is
// RFC 6979 deterministic, so repeated calls over the same message produce
// byte-identical signatures.
func (s *LocalSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("signing cancelled: %v", err))
	}

	digest := accounts.TextHash(message)
	signature, err := ethcrypto.Sign(digest, s.key)
	if err != nil {
		return nil, apperrors.SigningUnavailable(fmt.Sprintf("local signing failed: %v", err))
	}
	return signature, nil
}
