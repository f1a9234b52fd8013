// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/carevault/carevault/pkg/types"
)

// MemPermissionStore is an in-memory permission store with the same CAS
// semantics as the Postgres repository.
type MemPermissionStore struct {
	mu      sync.Mutex
	records map[types.GrantKey]*types.PermissionRecord
}

// NewMemPermissionStore creates an empty in-memory permission store.
func NewMemPermissionStore() *MemPermissionStore {
	return &MemPermissionStore{
		records: make(map[types.GrantKey]*types.PermissionRecord),
	}
}

// Get returns a copy of the record for the natural key, or nil.
func (s *MemPermissionStore) Get(ctx context.Context, key types.GrantKey) (*types.PermissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

// CreateIfAbsent inserts rec unless the natural key already exists.
func (s *MemPermissionStore) CreateIfAbsent(ctx context.Context, rec *types.PermissionRecord) (*types.PermissionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Key()
	if existing, ok := s.records[key]; ok {
		clone := *existing
		return &clone, false, nil
	}

	clone := *rec
	s.records[key] = &clone
	out := clone
	return &out, true, nil
}

// Approve transitions REQUESTED -> APPROVED.
func (s *MemPermissionStore) Approve(ctx context.Context, key types.GrantKey, approvedAt time.Time, expiresAt *time.Time, proof *types.ConsentProof) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Status != types.StatusRequested {
		return false, nil
	}
	rec.Status = types.StatusApproved
	rec.ApprovedAt = &approvedAt
	rec.ExpiresAt = expiresAt
	rec.ConsentTxID = proof.TxID
	rec.ConsentProof = proof.Proof
	return true, nil
}

// Deny transitions REQUESTED -> DENIED.
func (s *MemPermissionStore) Deny(ctx context.Context, key types.GrantKey, deniedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Status != types.StatusRequested {
		return false, nil
	}
	rec.Status = types.StatusDenied
	rec.DeniedAt = &deniedAt
	return true, nil
}

// Revoke transitions APPROVED -> REVOKED for the pair.
func (s *MemPermissionStore) Revoke(ctx context.Context, owner, requester, resourceID string, revokedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, rec := range s.records {
		if key.OwnerWallet != owner || key.RequesterWallet != requester {
			continue
		}
		if resourceID != "" && key.ResourceID != resourceID {
			continue
		}
		if rec.Status != types.StatusApproved {
			continue
		}
		rec.Status = types.StatusRevoked
		at := revokedAt
		rec.RevokedAt = &at
		count++
	}
	return count, nil
}

// MarkExpired transitions APPROVED -> EXPIRED.
func (s *MemPermissionStore) MarkExpired(ctx context.Context, key types.GrantKey, expiredAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Status != types.StatusApproved {
		return false, nil
	}
	rec.Status = types.StatusExpired
	return true, nil
}
