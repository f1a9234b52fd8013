package keywrap

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// vaultCiphertextPrefix marks Transit ciphertext blobs (vault:v1:...).
const vaultCiphertextPrefix = "vault:"

// VaultWrapper implements Wrapper using HashiCorp Vault Transit engine
type VaultWrapper struct {
	transitKey string
	client     *vault.Client
}

// NewVaultWrapper creates a new Vault Transit wrapper
func NewVaultWrapper(address, token, transitKey string) (*VaultWrapper, error) {
	if address == "" {
		return nil, fmt.Errorf("Vault address is required")
	}
	if token == "" {
		return nil, fmt.Errorf("Vault token is required")
	}
	if transitKey == "" {
		return nil, fmt.Errorf("Vault transit key name is required")
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultWrapper{
		transitKey: transitKey,
		client:     client,
	}, nil
}

// Wrap encrypts key material using Vault Transit
func (w *VaultWrapper) Wrap(ctx context.Context, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("key material is empty")
	}

	// Vault Transit requires base64-encoded plaintext
	path := fmt.Sprintf("transit/encrypt/%s", w.transitKey)
	secret, err := w.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(key),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("Vault Transit encrypt abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("Vault Transit encrypt failed: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("Vault Transit encrypt returned empty response")
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok || !strings.HasPrefix(ciphertext, vaultCiphertextPrefix) {
		return nil, fmt.Errorf("Vault Transit encrypt: malformed ciphertext in response")
	}

	return []byte(ciphertext), nil
}

// Unwrap decrypts key material using Vault Transit. The blob format is
// checked before any round trip; a deadline expiring mid-call surfaces as
// the context error.
func (w *VaultWrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	if !strings.HasPrefix(string(wrapped), vaultCiphertextPrefix) {
		return nil, fmt.Errorf("wrapped key blob is not Vault Transit ciphertext")
	}

	path := fmt.Sprintf("transit/decrypt/%s", w.transitKey)
	secret, err := w.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"ciphertext": string(wrapped),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("Vault Transit decrypt abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("Vault Transit decrypt failed: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("Vault Transit decrypt returned empty response")
	}

	plaintextB64, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("Vault Transit decrypt: plaintext not found in response")
	}

	key, err := base64.StdEncoding.DecodeString(plaintextB64)
	if err != nil {
		return nil, fmt.Errorf("Vault Transit decrypt: failed to decode plaintext: %w", err)
	}

	return key, nil
}

// Provider returns the backend name
func (w *VaultWrapper) Provider() string {
	return string(ProviderVault)
}
