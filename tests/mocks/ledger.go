package mocks

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/ledger"
	"github.com/carevault/carevault/pkg/types"
)

// FakeLedger is an in-memory consent ledger with failure injection.
type FakeLedger struct {
	mu sync.Mutex

	// NextErr, when set, is returned by the next RecordApproval call and
	// then cleared.
	NextErr error

	// Calls records every successful approval event.
	Calls []types.GrantKey
}

// NewFakeLedger creates a fake consent ledger.
func NewFakeLedger() *FakeLedger {
	return &FakeLedger{}
}

// FailNext makes the next RecordApproval call return err.
func (l *FakeLedger) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.NextErr = err
}

// RecordApproval returns a synthetic receipt or the injected failure.
func (l *FakeLedger) RecordApproval(ctx context.Context, grant types.GrantKey, expiresAt *time.Time) (*types.ConsentProof, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.NextErr != nil {
		err := l.NextErr
		l.NextErr = nil
		return nil, err
	}

	l.Calls = append(l.Calls, grant)
	digest := ledger.ApprovalDigest(grant, expiresAt)
	return &types.ConsentProof{
		TxID:  uuid.NewString(),
		Proof: "0x" + hex.EncodeToString(digest[:]),
	}, nil
}
