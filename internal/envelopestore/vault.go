package envelopestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	apperrors "github.com/carevault/carevault/pkg/errors"
)

// VaultStore persists envelopes in a Vault KV-v2 mount. Envelopes are
// base64-encoded for the KV payload and decoded back to raw bytes on read.
type VaultStore struct {
	client *vault.Client
	mount  string
}

// NewVaultStore creates a Vault-backed envelope store.
func NewVaultStore(address, token, mount string) (*VaultStore, error) {
	if address == "" {
		return nil, fmt.Errorf("Vault address is required")
	}
	if token == "" {
		return nil, fmt.Errorf("Vault token is required")
	}
	if mount == "" {
		return nil, fmt.Errorf("Vault mount is required")
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultStore{client: client, mount: mount}, nil
}

// Put persists envelope bytes under ownerKey.
func (s *VaultStore) Put(ctx context.Context, ownerKey string, envelope []byte) error {
	_, err := s.client.KVv2(s.mount).Put(ctx, ownerKey, map[string]interface{}{
		"envelope": base64.StdEncoding.EncodeToString(envelope),
	})
	if err != nil {
		return apperrors.StorageUnavailable(fmt.Sprintf("vault put failed: %v", err))
	}
	return nil
}

// Get returns the envelope bytes for ownerKey.
func (s *VaultStore) Get(ctx context.Context, ownerKey string) ([]byte, error) {
	secret, err := s.client.KVv2(s.mount).Get(ctx, ownerKey)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, apperrors.NotFound("no envelope stored for this resource")
		}
		return nil, apperrors.StorageUnavailable(fmt.Sprintf("vault get failed: %v", err))
	}

	encoded, ok := secret.Data["envelope"].(string)
	if !ok {
		return nil, apperrors.StorageUnavailable("vault entry is missing the envelope field")
	}

	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.StorageUnavailable(fmt.Sprintf("vault entry is not valid base64: %v", err))
	}
	return envelope, nil
}
