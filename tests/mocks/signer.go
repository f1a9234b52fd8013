package mocks

import (
	"context"
	"sync"

	apperrors "github.com/carevault/carevault/pkg/errors"
)

// MemWrappedKeys is an in-memory wrapped-key store for the custodial flow.
type MemWrappedKeys struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

// NewMemWrappedKeys creates an empty wrapped-key store.
func NewMemWrappedKeys() *MemWrappedKeys {
	return &MemWrappedKeys{keys: make(map[string][]byte)}
}

// Create stores a wrapped key for a wallet.
func (s *MemWrappedKeys) Create(ctx context.Context, walletAddress string, wrappedKey []byte, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[walletAddress] = wrappedKey
	return nil
}

// WrappedKey returns the wrapped key blob for a wallet.
func (s *MemWrappedKeys) WrappedKey(ctx context.Context, walletAddress string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wrapped, ok := s.keys[walletAddress]
	if !ok {
		return nil, apperrors.NotFound("no custodial key for wallet " + walletAddress)
	}
	return wrapped, nil
}

// Exists reports whether a wallet is provisioned.
func (s *MemWrappedKeys) Exists(ctx context.Context, walletAddress string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[walletAddress]
	return ok, nil
}
