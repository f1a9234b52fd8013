package app_test

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevault/carevault/internal/app"
	"github.com/carevault/carevault/internal/crypto"
	"github.com/carevault/carevault/internal/envelopestore"
	"github.com/carevault/carevault/internal/keywrap"
	apperrors "github.com/carevault/carevault/pkg/errors"
	"github.com/carevault/carevault/pkg/types"
	"github.com/carevault/carevault/tests/mocks"
)

func newTestWrapper(t *testing.T) keywrap.Wrapper {
	t.Helper()
	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i + 1)
	}
	wrapper, err := keywrap.NewLocalWrapper(hex.EncodeToString(masterKey))
	require.NoError(t, err)
	return wrapper
}

type profileFixture struct {
	keys      *mocks.MemWrappedKeys
	envelopes *mocks.MemEnvelopeStore
	profiles  *app.ProfileService
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	keys := mocks.NewMemWrappedKeys()
	envelopes := mocks.NewMemEnvelopeStore()
	return &profileFixture{
		keys:      keys,
		envelopes: envelopes,
		profiles:  app.NewProfileService(keys, newTestWrapper(t), envelopes, 5*time.Second),
	}
}

func TestProvisionWalletStoresOnlyWrappedKey(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	address, err := f.profiles.ProvisionWallet(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^0x[0-9a-fA-F]{40}$`, address)

	exists, err := f.keys.Exists(ctx, address)
	require.NoError(t, err)
	assert.True(t, exists)

	// The stored blob is wrapped: longer than the raw 32-byte key.
	wrapped, err := f.keys.WrappedKey(ctx, address)
	require.NoError(t, err)
	assert.Greater(t, len(wrapped), 32)
}

func TestSaveAndLoadProfileRoundTrip(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	address, err := f.profiles.ProvisionWallet(ctx)
	require.NoError(t, err)

	profile := &types.Profile{
		FullName:    "Ada Lovelace",
		BloodType:   "O-",
		Allergies:   []string{"penicillin"},
		Medications: []string{"metformin"},
	}
	require.NoError(t, f.profiles.SaveProfile(ctx, address, profile))

	loaded, err := f.profiles.LoadProfile(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, types.ProfileVersion, loaded.Version)
	assert.Equal(t, "Ada Lovelace", loaded.FullName)
	assert.Equal(t, "O-", loaded.BloodType)
	assert.Equal(t, []string{"penicillin"}, loaded.Allergies)
}

func TestSaveProfileOverwritesPrevious(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	address, err := f.profiles.ProvisionWallet(ctx)
	require.NoError(t, err)

	require.NoError(t, f.profiles.SaveProfile(ctx, address, &types.Profile{BloodType: "A+"}))
	require.NoError(t, f.profiles.SaveProfile(ctx, address, &types.Profile{BloodType: "AB-"}))

	loaded, err := f.profiles.LoadProfile(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, "AB-", loaded.BloodType)
}

func TestSaveProfileUnknownWallet(t *testing.T) {
	f := newProfileFixture(t)

	err := f.profiles.SaveProfile(context.Background(),
		"0x6666666666666666666666666666666666666666", &types.Profile{BloodType: "A+"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestLoadProfileWithoutEnvelope(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	address, err := f.profiles.ProvisionWallet(ctx)
	require.NoError(t, err)

	_, err = f.profiles.LoadProfile(ctx, address)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestStoredEnvelopeIsOpaque(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	address, err := f.profiles.ProvisionWallet(ctx)
	require.NoError(t, err)
	require.NoError(t, f.profiles.SaveProfile(ctx, address, &types.Profile{FullName: "Ada Lovelace"}))

	envelope, err := f.envelopes.Get(ctx, envelopestore.Key(types.NormalizeWallet(address), app.DefaultResource))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(envelope), crypto.EnvelopeOverhead)
	assert.NotContains(t, string(envelope), "Ada Lovelace")

	// A key derived from some other wallet cannot open it.
	otherKey := make([]byte, crypto.KeySize)
	_, err = crypto.Decrypt(envelope, otherKey)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthenticationFailure))
}

// stuckWrapper wraps normally but never answers an unwrap, like a hung KMS
// endpoint. Unwrap returns only when the context is done.
type stuckWrapper struct {
	inner keywrap.Wrapper
}

func (w *stuckWrapper) Wrap(ctx context.Context, key []byte) ([]byte, error) {
	return w.inner.Wrap(ctx, key)
}

func (w *stuckWrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (w *stuckWrapper) Provider() string {
	return w.inner.Provider()
}

func TestSaveProfileTimesOutOnUnresponsiveSigning(t *testing.T) {
	keys := mocks.NewMemWrappedKeys()
	envelopes := mocks.NewMemEnvelopeStore()
	wrapper := &stuckWrapper{inner: newTestWrapper(t)}
	profiles := app.NewProfileService(keys, wrapper, envelopes, 50*time.Millisecond)
	ctx := context.Background()

	address, err := profiles.ProvisionWallet(ctx)
	require.NoError(t, err)

	start := time.Now()
	err = profiles.SaveProfile(ctx, address, &types.Profile{BloodType: "A+"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSigningUnavailable),
		"unresponsive unwrap must surface as signing_unavailable, got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second, "the signing deadline must cut the wait short")
}

func TestLoadProfileTimesOutOnUnresponsiveSigning(t *testing.T) {
	keys := mocks.NewMemWrappedKeys()
	envelopes := mocks.NewMemEnvelopeStore()
	healthy := app.NewProfileService(keys, newTestWrapper(t), envelopes, 5*time.Second)
	ctx := context.Background()

	address, err := healthy.ProvisionWallet(ctx)
	require.NoError(t, err)
	require.NoError(t, healthy.SaveProfile(ctx, address, &types.Profile{BloodType: "A+"}))

	// The same stored state read through a hung wrapper.
	stuck := app.NewProfileService(keys, &stuckWrapper{inner: newTestWrapper(t)}, envelopes, 50*time.Millisecond)
	_, err = stuck.LoadProfile(ctx, address)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSigningUnavailable))
}

func TestProfilesIsolatedPerWallet(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	alice, err := f.profiles.ProvisionWallet(ctx)
	require.NoError(t, err)
	bob, err := f.profiles.ProvisionWallet(ctx)
	require.NoError(t, err)
	require.NotEqual(t, alice, bob)

	require.NoError(t, f.profiles.SaveProfile(ctx, alice, &types.Profile{BloodType: "A+"}))
	require.NoError(t, f.profiles.SaveProfile(ctx, bob, &types.Profile{BloodType: "B-"}))

	aliceProfile, err := f.profiles.LoadProfile(ctx, alice)
	require.NoError(t, err)
	bobProfile, err := f.profiles.LoadProfile(ctx, bob)
	require.NoError(t, err)

	assert.Equal(t, "A+", aliceProfile.BloodType)
	assert.Equal(t, "B-", bobProfile.BloodType)
}
