// Package keywrap wraps custodial wallet signing keys at rest. A Wrapper
// turns raw key material into an opaque blob the database can hold; the raw
// key only exists in memory between Unwrap and the end of one signing
// operation.
package keywrap

import (
	"context"
	"fmt"
)

// Wrapper is an interface for key-wrapping backends. Different backends
// (local master key, AWS KMS, HashiCorp Vault Transit) implement this
// interface to protect wallet signing keys at rest.
type Wrapper interface {
	// Wrap encrypts raw key material for storage
	Wrap(ctx context.Context, key []byte) ([]byte, error)

	// Unwrap recovers raw key material from a wrapped blob
	Unwrap(ctx context.Context, wrapped []byte) ([]byte, error)

	// Provider returns the backend name (e.g., "local", "aws-kms", "vault")
	Provider() string
}

// ProviderType represents supported key-wrapping backends
type ProviderType string

const (
	// ProviderLocal uses a local master key (development/simple deployments)
	ProviderLocal ProviderType = "local"

	// ProviderAWSKMS uses AWS KMS
	ProviderAWSKMS ProviderType = "aws-kms"

	// ProviderVault uses HashiCorp Vault Transit engine
	ProviderVault ProviderType = "vault"
)

// Config contains configuration for key-wrapping backends
type Config struct {
	// Provider specifies which backend to use
	Provider string

	// Local backend config: hex-encoded 32-byte master key
	LocalMasterKeyHex string

	// AWS KMS config
	AWSKMSKeyID  string
	AWSKMSRegion string

	// Vault config
	VaultAddress    string
	VaultToken      string
	VaultTransitKey string
}

// New creates a Wrapper based on the configuration
func New(cfg *Config) (Wrapper, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderLocal, "": // Default to local
		return NewLocalWrapper(cfg.LocalMasterKeyHex)

	case ProviderAWSKMS:
		return NewAWSKMSWrapper(cfg.AWSKMSKeyID, cfg.AWSKMSRegion)

	case ProviderVault:
		return NewVaultWrapper(cfg.VaultAddress, cfg.VaultToken, cfg.VaultTransitKey)

	default:
		return nil, fmt.Errorf("unsupported keywrap provider: %s (supported: %s, %s, %s)",
			cfg.Provider, ProviderLocal, ProviderAWSKMS, ProviderVault)
	}
}
