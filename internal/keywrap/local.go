package keywrap

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// LocalWrapper implements Wrapper using a local master key with AES-GCM.
// Suitable for development or simple self-hosted deployments.
type LocalWrapper struct {
	masterKey []byte
}

// NewLocalWrapper creates a local wrapper from a hex-encoded 32-byte master key.
func NewLocalWrapper(masterKeyHex string) (*LocalWrapper, error) {
	if masterKeyHex == "" {
		return nil, fmt.Errorf("master key is required for local keywrap provider")
	}

	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key must be hex-encoded: %w", err)
	}
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}

	return &LocalWrapper{masterKey: masterKey}, nil
}

// Wrap encrypts key material using AES-GCM with the local master key
func (w *LocalWrapper) Wrap(ctx context.Context, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(w.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, key, nil), nil
}

// Unwrap decrypts key material using AES-GCM with the local master key
func (w *LocalWrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	block, err := aes.NewCipher(w.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(wrapped) < nonceSize {
		return nil, fmt.Errorf("wrapped key too short")
	}

	nonce, ciphertext := wrapped[:nonceSize], wrapped[nonceSize:]
	key, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap key: %w", err)
	}

	return key, nil
}

// Provider returns the backend name
func (w *LocalWrapper) Provider() string {
	return string(ProviderLocal)
}
