// Package signer provides the wallet signing capabilities the key deriver
// consumes. A SigningCapability is bound to exactly one wallet address; the
// same underlying key always yields the same signature for the same message.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SigningCapability produces deterministic signatures bound to one wallet.
// Sign may suspend awaiting user interaction; callers bound the wait with a
// context deadline and treat non-response as SigningUnavailable.
type SigningCapability interface {
	// Address returns the checksummed wallet address this capability is bound to.
	Address() string

	// Sign signs an arbitrary message using the Ethereum personal-message
	// scheme (EIP-191 prefix, keccak256, RFC 6979 deterministic ECDSA).
	Sign(ctx context.Context, message []byte) ([]byte, error)
}

// GenerateWalletKey generates a new secp256k1 wallet key.
func GenerateWalletKey() (*ecdsa.PrivateKey, error) {
	privateKey, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	return privateKey, nil
}

// WalletAddress derives the checksummed address from a private key.
func WalletAddress(privateKey *ecdsa.PrivateKey) common.Address {
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		panic("failed to cast public key to ECDSA")
	}
	return ethcrypto.PubkeyToAddress(*publicKey)
}

// KeyBytes converts a private key to its raw 32-byte form.
func KeyBytes(privateKey *ecdsa.PrivateKey) []byte {
	return ethcrypto.FromECDSA(privateKey)
}

// zeroKey clears the private scalar from memory after use.
func zeroKey(privateKey *ecdsa.PrivateKey) {
	if privateKey != nil && privateKey.D != nil {
		privateKey.D.SetInt64(0)
	}
}
