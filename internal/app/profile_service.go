package app

import (
	"context"
	"fmt"
	"time"

	"github.com/carevault/carevault/internal/crypto"
	"github.com/carevault/carevault/internal/envelopestore"
	"github.com/carevault/carevault/internal/keywrap"
	"github.com/carevault/carevault/internal/logger"
	"github.com/carevault/carevault/internal/metrics"
	"github.com/carevault/carevault/internal/signer"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
)

// WrappedKeyStore is the storage surface the custodial flow needs.
type WrappedKeyStore interface {
	signer.WrappedKeySource
	Create(ctx context.Context, walletAddress string, wrappedKey []byte, provider string) error
	Exists(ctx context.Context, walletAddress string) (bool, error)
}

// ProfileService implements the managed-custody mode: the service holds a
// wrapped signing key per custodial wallet and performs derive-encrypt-store
// on the owner's behalf. Opt-in only; self-custodied wallets encrypt client
// side and go through RecordService with ready-made envelopes.
type ProfileService struct {
	keys           WrappedKeyStore
	wrapper        keywrap.Wrapper
	envelopes      envelopestore.Store
	signingTimeout time.Duration
}

// NewProfileService creates a new profile service. signingTimeout bounds how
// long a key derivation waits on the wrapped-key unwrap before the operation
// fails as SigningUnavailable.
func NewProfileService(keys WrappedKeyStore, wrapper keywrap.Wrapper, envelopes envelopestore.Store, signingTimeout time.Duration) *ProfileService {
	return &ProfileService{
		keys:           keys,
		wrapper:        wrapper,
		envelopes:      envelopes,
		signingTimeout: signingTimeout,
	}
}

// deriveKey runs the wallet key derivation under the signing deadline.
func (s *ProfileService) deriveKey(ctx context.Context, wallet string) ([]byte, error) {
	if s.signingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.signingTimeout)
		defer cancel()
	}
	capability := signer.NewCustodialSigner(wallet, s.keys, s.wrapper)
	return crypto.DeriveKey(ctx, wallet, capability)
}

// ProvisionWallet creates a custodial wallet: generates a secp256k1 key,
// wraps it, stores only the wrapped blob, and returns the address. The raw
// key is cleared before returning.
func (s *ProfileService) ProvisionWallet(ctx context.Context) (string, error) {
	key, err := signer.GenerateWalletKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate custodial key: %w", err)
	}

	address := signer.WalletAddress(key).Hex()

	raw := signer.KeyBytes(key)
	defer crypto.Zero(raw)

	wrapped, err := s.wrapper.Wrap(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("failed to wrap custodial key: %w", err)
	}

	if err := s.keys.Create(ctx, address, wrapped, s.wrapper.Provider()); err != nil {
		return "", err
	}

	logger.Info(ctx, "custodial wallet provisioned", "wallet", address, "provider", s.wrapper.Provider())
	return address, nil
}

// SaveProfile encrypts a typed profile under the custodial wallet's derived
// key and stores the envelope. The derived key exists only for the duration
// of this call.
func (s *ProfileService) SaveProfile(ctx context.Context, walletAddress string, profile *types.Profile) error {
	wallet := types.NormalizeWallet(walletAddress)

	exists, err := s.keys.Exists(ctx, wallet)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound("no custodial wallet for this address")
	}

	plaintext, err := types.EncodeProfile(profile)
	if err != nil {
		return apperrors.BadRequest(err.Error())
	}

	key, err := s.deriveKey(ctx, wallet)
	if err != nil {
		metrics.CryptoOperationsTotal.WithLabelValues("derive", "error").Inc()
		return err
	}
	defer crypto.Zero(key)
	metrics.CryptoOperationsTotal.WithLabelValues("derive", "ok").Inc()

	envelope, err := crypto.Encrypt(plaintext, key)
	if err != nil {
		metrics.CryptoOperationsTotal.WithLabelValues("encrypt", "error").Inc()
		return fmt.Errorf("failed to encrypt profile: %w", err)
	}
	metrics.CryptoOperationsTotal.WithLabelValues("encrypt", "ok").Inc()

	ownerKey := envelopestore.Key(wallet, DefaultResource)
	if err := s.envelopes.Put(ctx, ownerKey, envelope); err != nil {
		return err
	}

	logger.Info(ctx, "custodial profile saved", "wallet", wallet, "envelope_bytes", len(envelope))
	return nil
}

// LoadProfile fetches and decrypts the custodial wallet's profile. Only
// reachable for wallets whose keys the service custodies; for everyone else
// the stored envelope is opaque.
func (s *ProfileService) LoadProfile(ctx context.Context, walletAddress string) (*types.Profile, error) {
	wallet := types.NormalizeWallet(walletAddress)

	ownerKey := envelopestore.Key(wallet, DefaultResource)
	envelope, err := s.envelopes.Get(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	key, err := s.deriveKey(ctx, wallet)
	if err != nil {
		metrics.CryptoOperationsTotal.WithLabelValues("derive", "error").Inc()
		return nil, err
	}
	defer crypto.Zero(key)
	metrics.CryptoOperationsTotal.WithLabelValues("derive", "ok").Inc()

	plaintext, err := crypto.Decrypt(envelope, key)
	if err != nil {
		metrics.CryptoOperationsTotal.WithLabelValues("decrypt", "error").Inc()
		return nil, err
	}
	metrics.CryptoOperationsTotal.WithLabelValues("decrypt", "ok").Inc()

	profile, err := types.DecodeProfile(plaintext)
	if err != nil {
		return nil, fmt.Errorf("stored profile is invalid: %w", err)
	}
	return profile, nil
}
