package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevault/carevault/internal/app"
	"github.com/carevault/carevault/internal/crypto"
	"github.com/carevault/carevault/internal/permission"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/tests/mocks"
)

const (
	ownerWallet     = "0x4444444444444444444444444444444444444444"
	requesterWallet = "0x5555555555555555555555555555555555555555"
)

type recordFixture struct {
	envelopes *mocks.MemEnvelopeStore
	consents  *app.ConsentService
	records   *app.RecordService
}

func newRecordFixture(t *testing.T) *recordFixture {
	t.Helper()
	machine := permission.NewMachine(mocks.NewMemPermissionStore(), mocks.NewFakeLedger())
	envelopes := mocks.NewMemEnvelopeStore()
	consents := app.NewConsentService(machine)
	return &recordFixture{
		envelopes: envelopes,
		consents:  consents,
		records:   app.NewRecordService(envelopes, consents),
	}
}

func validEnvelope(size int) []byte {
	envelope := make([]byte, size)
	for i := range envelope {
		envelope[i] = byte(i)
	}
	return envelope
}

func TestStoreRecordOwnerOnly(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	err := f.records.StoreRecord(ctx, requesterWallet, ownerWallet, "lab_results", validEnvelope(64))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	err = f.records.StoreRecord(ctx, ownerWallet, ownerWallet, "lab_results", validEnvelope(64))
	require.NoError(t, err)
}

func TestStoreRecordRejectsShortEnvelope(t *testing.T) {
	f := newRecordFixture(t)

	err := f.records.StoreRecord(context.Background(), ownerWallet, ownerWallet, "lab_results",
		validEnvelope(crypto.EnvelopeOverhead-1))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMalformedEnvelope))
}

func TestStoreRecordDefaultsResource(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	envelope := validEnvelope(44)
	require.NoError(t, f.records.StoreRecord(ctx, ownerWallet, ownerWallet, "", envelope))

	got, err := f.records.FetchRecord(ctx, ownerWallet, ownerWallet, app.DefaultResource, "read")
	require.NoError(t, err)
	assert.Equal(t, envelope, got)
}

func TestFetchRecordOwnerBypassesConsent(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	envelope := validEnvelope(64)
	require.NoError(t, f.records.StoreRecord(ctx, ownerWallet, ownerWallet, "lab_results", envelope))

	got, err := f.records.FetchRecord(ctx, ownerWallet, ownerWallet, "lab_results", "read")
	require.NoError(t, err)
	assert.Equal(t, envelope, got)
}

func TestFetchRecordRequiresApprovedGrant(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	envelope := validEnvelope(64)
	require.NoError(t, f.records.StoreRecord(ctx, ownerWallet, ownerWallet, "lab_results", envelope))

	// No grant at all.
	_, err := f.records.FetchRecord(ctx, requesterWallet, ownerWallet, "lab_results", "read")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	// Pending request is not enough.
	_, err = f.consents.RequestAccess(ctx, requesterWallet, ownerWallet, "lab_results", "read")
	require.NoError(t, err)
	_, err = f.records.FetchRecord(ctx, requesterWallet, ownerWallet, "lab_results", "read")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))

	// Approved grant opens access.
	_, err = f.consents.ApproveAccess(ctx, ownerWallet, ownerWallet, requesterWallet, "lab_results", "read", nil)
	require.NoError(t, err)
	got, err := f.records.FetchRecord(ctx, requesterWallet, ownerWallet, "lab_results", "read")
	require.NoError(t, err)
	assert.Equal(t, envelope, got)

	// Revocation closes it again.
	_, err = f.consents.RevokeAccess(ctx, ownerWallet, requesterWallet, "lab_results")
	require.NoError(t, err)
	_, err = f.records.FetchRecord(ctx, requesterWallet, ownerWallet, "lab_results", "read")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeForbidden, appErr.Code)
	assert.Contains(t, appErr.Detail, "REVOKED")
}

func TestFetchRecordMissingEnvelope(t *testing.T) {
	f := newRecordFixture(t)

	_, err := f.records.FetchRecord(context.Background(), ownerWallet, ownerWallet, "lab_results", "read")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestStoreRecordRejectsBadInput(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	err := f.records.StoreRecord(ctx, ownerWallet, "not-a-wallet", "lab_results", validEnvelope(64))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))

	err = f.records.StoreRecord(ctx, ownerWallet, ownerWallet, "Lab Results!", validEnvelope(64))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
}
