package mocks

import (
	"context"
	"sync"

	apperrors "github.com/carevault/carevault/pkg/errors"
)

// MemEnvelopeStore is an in-memory ciphertext store.
type MemEnvelopeStore struct {
	mu        sync.RWMutex
	envelopes map[string][]byte
}

// NewMemEnvelopeStore creates an empty in-memory envelope store.
func NewMemEnvelopeStore() *MemEnvelopeStore {
	return &MemEnvelopeStore{envelopes: make(map[string][]byte)}
}

// Put persists envelope bytes under ownerKey.
func (s *MemEnvelopeStore) Put(ctx context.Context, ownerKey string, envelope []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := make([]byte, len(envelope))
	copy(clone, envelope)
	s.envelopes[ownerKey] = clone
	return nil
}

// Get returns the envelope bytes for ownerKey.
func (s *MemEnvelopeStore) Get(ctx context.Context, ownerKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	envelope, ok := s.envelopes[ownerKey]
	if !ok {
		return nil, apperrors.NotFound("no envelope stored for this resource")
	}
	clone := make([]byte, len(envelope))
	copy(clone, envelope)
	return clone, nil
}
